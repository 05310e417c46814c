package runtime

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/edgehill-data/gapush/adapter"
	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/retry"
	"github.com/edgehill-data/gapush/source"
	"github.com/edgehill-data/gapush/submit"
	"github.com/edgehill-data/gapush/types"
)

// journal records side effect deliveries across notifiers in call order.
type journal struct {
	entries []string
}

// fakeNotifier records deliveries and fails the first failures attempts.
type fakeNotifier struct {
	name     string
	journal  *journal
	failures int
	calls    int
	events   []*adapter.OutcomeEvent
	closed   bool
}

func (f *fakeNotifier) Notify(_ context.Context, event *adapter.OutcomeEvent) error {
	f.calls++
	if f.calls <= f.failures {
		return fmt.Errorf("%s unavailable", f.name)
	}
	f.events = append(f.events, event)
	if f.journal != nil {
		f.journal.entries = append(f.journal.entries, f.name)
	}
	return nil
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

type fakeBatch struct {
	report *submit.Report
	err    error
	called bool
}

func (f *fakeBatch) Run(_ context.Context, _ *types.RowSet) (*submit.Report, error) {
	f.called = true
	return f.report, f.err
}

type fakeBulk struct {
	err    error
	called bool
}

func (f *fakeBulk) Deliver(_ context.Context, _ *types.RowSet) error {
	f.called = true
	return f.err
}

type failingSource struct {
	err    error
	called bool
}

func (f *failingSource) Rows(_ context.Context) (*types.RowSet, error) {
	f.called = true
	return nil, f.err
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 5, BaseWait: time.Millisecond, MaxWait: 4 * time.Millisecond}
}

func staticSource() *source.Static {
	return &source.Static{Set: types.RowSet{
		Columns: []string{"cid"},
		Rows:    [][]string{{"c1"}, {"c2"}},
	}}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func baseConfig(mode types.DeliveryMode) *Config {
	return &Config{
		Meta:   &types.RunMeta{RunID: "run-001", Mode: mode},
		Source: staticSource(),
		Retry:  fastRetry(),
		Clock:  fixedClock(time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)),
	}
}

func TestRun_BatchSuccess(t *testing.T) {
	j := &journal{}
	statusLog := &fakeNotifier{name: "status_log", journal: j}
	alerter := &fakeNotifier{name: "alert", journal: j}
	publisher := &fakeNotifier{name: "publish", journal: j}

	cfg := baseConfig(types.ModeBatchSubmit)
	cfg.Batch = &fakeBatch{report: &submit.Report{
		TotalHits:       45,
		TotalBatches:    3,
		SuccessPayloads: []string{"p1", "p2", "p3"},
	}}
	cfg.StatusLog = statusLog
	cfg.Alerter = alerter
	cfg.Publisher = publisher
	cfg.Collector = metrics.NewCollector("mp", "run-001")

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())

	if result.Outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %q, want SUCCESS (%s)", result.Outcome.Status, result.Outcome.Message)
	}
	if result.Outcome.Timestamp != "2026-08-25 12:00:00" {
		t.Errorf("Timestamp = %q, must stamp run start", result.Outcome.Timestamp)
	}
	if len(result.SideEffectErrors) != 0 {
		t.Errorf("SideEffectErrors = %v", result.SideEffectErrors)
	}

	// SUCCESS skips the alert; log before publish.
	want := []string{"status_log", "publish"}
	if len(j.entries) != 2 || j.entries[0] != want[0] || j.entries[1] != want[1] {
		t.Errorf("deliveries = %v, want %v", j.entries, want)
	}
	if alerter.calls != 0 {
		t.Errorf("alerter called %d times on SUCCESS", alerter.calls)
	}

	event := statusLog.events[0]
	if event.SuccessBatches != 3 || event.FailedBatches != 0 {
		t.Errorf("event batches = %d/%d", event.SuccessBatches, event.FailedBatches)
	}
	if event.Status != "SUCCESS" {
		t.Errorf("event status = %q", event.Status)
	}

	if s := cfg.Collector.Snapshot(); s.RunsCompleted != 1 || s.RunsFailed != 0 {
		t.Errorf("collector = %+v", s)
	}
}

func TestRun_RejectedBatchesStaySuccess(t *testing.T) {
	// A rejected batch is visible in the report only; the run itself
	// completed, so the outcome stays SUCCESS.
	alerter := &fakeNotifier{name: "alert"}
	statusLog := &fakeNotifier{name: "status_log"}

	cfg := baseConfig(types.ModeBatchSubmit)
	cfg.Batch = &fakeBatch{report: &submit.Report{
		TotalHits:       45,
		TotalBatches:    3,
		SuccessPayloads: []string{"p1", "p3"},
		FailedPayloads:  []string{"p2"},
	}}
	cfg.StatusLog = statusLog
	cfg.Alerter = alerter

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())

	if result.Outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %q, want SUCCESS", result.Outcome.Status)
	}
	if alerter.calls != 0 {
		t.Errorf("alerter calls = %d, rejected batches must not alert", alerter.calls)
	}
	event := statusLog.events[0]
	if event.SuccessBatches != 2 || event.FailedBatches != 1 {
		t.Errorf("event batches = %d/%d, want 2/1", event.SuccessBatches, event.FailedBatches)
	}
}

func TestRun_TransportFaultClassifyError(t *testing.T) {
	j := &journal{}
	statusLog := &fakeNotifier{name: "status_log", journal: j}
	alerter := &fakeNotifier{name: "alert", journal: j}
	publisher := &fakeNotifier{name: "publish", journal: j}

	cfg := baseConfig(types.ModeBatchSubmit)
	cfg.Batch = &fakeBatch{
		report: &submit.Report{TotalBatches: 1},
		err:    errors.New("batch 1: connection reset"),
	}
	cfg.StatusLog = statusLog
	cfg.Alerter = alerter
	cfg.Publisher = publisher

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())
	if result.Outcome.Status != types.OutcomeError {
		t.Errorf("Status = %q, want ERROR", result.Outcome.Status)
	}
	if result.Report == nil || result.Report.TotalBatches != 1 {
		t.Errorf("partial report must be kept, got %+v", result.Report)
	}

	// ERROR delivers all three, in order.
	want := []string{"status_log", "alert", "publish"}
	if len(j.entries) != 3 {
		t.Fatalf("deliveries = %v, want %v", j.entries, want)
	}
	for i := range want {
		if j.entries[i] != want[i] {
			t.Errorf("delivery %d = %q, want %q", i, j.entries[i], want[i])
		}
	}
}

func TestRun_UnknownMode(t *testing.T) {
	src := &failingSource{err: errors.New("must not be read")}
	alerter := &fakeNotifier{name: "alert"}

	cfg := baseConfig(types.DeliveryMode("ftp"))
	cfg.Source = src
	cfg.Alerter = alerter
	cfg.Collector = metrics.NewCollector("ftp", "run-001")

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())

	if result.Outcome.Status != types.OutcomeError {
		t.Errorf("Status = %q, want ERROR", result.Outcome.Status)
	}
	if result.Outcome.Message != "export method not found" {
		t.Errorf("Message = %q, want the fixed diagnostic", result.Outcome.Message)
	}
	if src.called {
		t.Error("source must not be read for an unknown mode")
	}
	if alerter.calls != 1 {
		t.Errorf("alerter calls = %d, want 1", alerter.calls)
	}
	if s := cfg.Collector.Snapshot(); s.RunsFailed != 1 {
		t.Errorf("collector = %+v", s)
	}
}

func TestRun_SourceFailure(t *testing.T) {
	cfg := baseConfig(types.ModeBatchSubmit)
	cfg.Source = &failingSource{err: errors.New("warehouse down")}
	cfg.Batch = &fakeBatch{}

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())
	if result.Outcome.Status != types.OutcomeError {
		t.Errorf("Status = %q, want ERROR", result.Outcome.Status)
	}
	if cfg.Batch.(*fakeBatch).called {
		t.Error("delivery must not run when the source fails")
	}
}

func TestRun_BulkSuccess(t *testing.T) {
	bulk := &fakeBulk{}
	cfg := baseConfig(types.ModeBulkImport)
	cfg.Bulk = bulk

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())
	if result.Outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %q, want SUCCESS (%s)", result.Outcome.Status, result.Outcome.Message)
	}
	if !bulk.called {
		t.Error("bulk delivery not invoked")
	}
	if result.Report != nil {
		t.Error("bulk mode must not carry a batch report")
	}
}

func TestRun_BulkFailure(t *testing.T) {
	cfg := baseConfig(types.ModeBulkImport)
	cfg.Bulk = &fakeBulk{err: errors.New("import: upload: unexpected status 403")}

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())
	if result.Outcome.Status != types.OutcomeError {
		t.Errorf("Status = %q, want ERROR", result.Outcome.Status)
	}
}

func TestRun_SideEffectRetriedThenDelivered(t *testing.T) {
	// Fails twice, succeeds on the third attempt within the policy's budget.
	statusLog := &fakeNotifier{name: "status_log", failures: 2}

	cfg := baseConfig(types.ModeBatchSubmit)
	cfg.Batch = &fakeBatch{report: &submit.Report{}}
	cfg.StatusLog = statusLog

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())

	if statusLog.calls != 3 {
		t.Errorf("status log attempts = %d, want 3", statusLog.calls)
	}
	if len(result.SideEffectErrors) != 0 {
		t.Errorf("SideEffectErrors = %v, delivery recovered", result.SideEffectErrors)
	}
}

func TestRun_SideEffectFailureIsIsolated(t *testing.T) {
	j := &journal{}
	statusLog := &fakeNotifier{name: "status_log", journal: j, failures: 100}
	publisher := &fakeNotifier{name: "publish", journal: j}

	cfg := baseConfig(types.ModeBatchSubmit)
	cfg.Batch = &fakeBatch{report: &submit.Report{}}
	cfg.StatusLog = statusLog
	cfg.Publisher = publisher
	cfg.Collector = metrics.NewCollector("mp", "run-001")

	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	result := c.Run(context.Background())

	// Status log exhausted its retries.
	if statusLog.calls != int(fastRetry().MaxAttempts) {
		t.Errorf("status log attempts = %d, want %d", statusLog.calls, fastRetry().MaxAttempts)
	}
	// But the publisher still ran, and the outcome is untouched.
	if publisher.calls != 1 {
		t.Errorf("publisher calls = %d, want 1", publisher.calls)
	}
	if result.Outcome.Status != types.OutcomeSuccess {
		t.Errorf("Status = %q, side effect failures must not change the outcome", result.Outcome.Status)
	}
	if len(result.SideEffectErrors) != 1 {
		t.Fatalf("SideEffectErrors = %v, want 1 entry", result.SideEffectErrors)
	}
	if got := result.SideEffectErrors[0].Error(); got == "" || got[:10] != "status_log" {
		t.Errorf("side effect error = %q, must name the notifier", got)
	}
	if s := cfg.Collector.Snapshot(); s.SideEffectFailures != 1 {
		t.Errorf("collector = %+v", s)
	}
}

func TestNewController_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing meta", func(c *Config) { c.Meta = nil }},
		{"missing source", func(c *Config) { c.Source = nil }},
		{"mp without batch", func(c *Config) { c.Batch = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(types.ModeBatchSubmit)
			cfg.Batch = &fakeBatch{}
			tt.mutate(cfg)
			if _, err := NewController(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewController_BulkRequiresDelivery(t *testing.T) {
	cfg := baseConfig(types.ModeBulkImport)
	if _, err := NewController(cfg); err == nil {
		t.Error("expected validation error for di mode without bulk delivery")
	}
}
