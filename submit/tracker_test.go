package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/types"
)

// fakeSubmitter classifies each payload by its position in the call sequence.
type fakeSubmitter struct {
	calls   []string
	outcome func(call int) types.SubmissionStatus
	err     error
}

func (f *fakeSubmitter) Submit(_ context.Context, payload string) (*types.SubmissionResult, error) {
	f.calls = append(f.calls, payload)
	if f.err != nil {
		return nil, f.err
	}
	status := types.SubmissionSuccess
	if f.outcome != nil {
		status = f.outcome(len(f.calls))
	}
	code := 200
	if status == types.SubmissionFailure {
		code = 500
	}
	return &types.SubmissionResult{Payload: payload, Status: status, Code: code}, nil
}

func rowSet(n int) *types.RowSet {
	rs := &types.RowSet{Columns: []string{"cid", "t"}}
	for i := 0; i < n; i++ {
		rs.Rows = append(rs.Rows, []string{fmt.Sprintf("client-%03d", i), "event"})
	}
	return rs
}

func TestTracker_BatchesOfTwenty(t *testing.T) {
	fake := &fakeSubmitter{}
	tr := NewTracker(fake, nil, 20, testLogger(), nil)

	report, err := tr.Run(context.Background(), rowSet(45))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if report.TotalHits != 45 {
		t.Errorf("TotalHits = %d, want 45", report.TotalHits)
	}
	if report.TotalBatches != 3 {
		t.Errorf("TotalBatches = %d, want 3", report.TotalBatches)
	}

	// 45 hits split as 20, 20, 5 lines per payload.
	wantSizes := []int{20, 20, 5}
	for i, payload := range fake.calls {
		if got := len(strings.Split(payload, "\n")); got != wantSizes[i] {
			t.Errorf("batch %d has %d lines, want %d", i, got, wantSizes[i])
		}
	}
}

func TestTracker_ExactMultipleLeavesNoRemainder(t *testing.T) {
	fake := &fakeSubmitter{}
	tr := NewTracker(fake, nil, 20, testLogger(), nil)

	report, err := tr.Run(context.Background(), rowSet(40))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalBatches != 2 {
		t.Errorf("TotalBatches = %d, want 2", report.TotalBatches)
	}
	if len(fake.calls) != 2 {
		t.Errorf("submitter called %d times, want 2", len(fake.calls))
	}
}

func TestTracker_PartitionsSuccessAndFailure(t *testing.T) {
	// Middle batch of three rejected.
	fake := &fakeSubmitter{outcome: func(call int) types.SubmissionStatus {
		if call == 2 {
			return types.SubmissionFailure
		}
		return types.SubmissionSuccess
	}}
	collector := metrics.NewCollector("mp", "run-p")
	tr := NewTracker(fake, nil, 20, testLogger(), collector)

	report, err := tr.Run(context.Background(), rowSet(45))
	if err != nil {
		t.Fatalf("a rejected batch must not abort the run: %v", err)
	}

	if report.SuccessCount() != 2 {
		t.Errorf("SuccessCount = %d, want 2", report.SuccessCount())
	}
	if report.FailureCount() != 1 {
		t.Errorf("FailureCount = %d, want 1", report.FailureCount())
	}
	if got := report.SuccessCount() + report.FailureCount(); got != report.TotalBatches {
		t.Errorf("success+failure = %d, must equal TotalBatches %d", got, report.TotalBatches)
	}

	// Failed payload is the second batch, kept verbatim.
	if report.FailedPayloads[0] != fake.calls[1] {
		t.Error("FailedPayloads[0] must hold the rejected batch's payload")
	}

	s := collector.Snapshot()
	if s.HitsTotal != 45 || s.BatchesSubmitted != 3 || s.BatchesSucceeded != 2 || s.BatchesFailed != 1 {
		t.Errorf("collector snapshot = %+v", s)
	}
}

func TestTracker_TransportFaultAborts(t *testing.T) {
	faultErr := errors.New("connection reset")
	fake := &fakeSubmitter{err: faultErr}
	tr := NewTracker(fake, nil, 20, testLogger(), nil)

	report, err := tr.Run(context.Background(), rowSet(45))
	if err == nil {
		t.Fatal("expected transport fault to abort the run")
	}
	if !errors.Is(err, faultErr) {
		t.Errorf("err = %v, want wrapped %v", err, faultErr)
	}
	// First batch faulted; no further submissions attempted.
	if len(fake.calls) != 1 {
		t.Errorf("submitter called %d times after fault, want 1", len(fake.calls))
	}
	if report.TotalBatches != 1 {
		t.Errorf("TotalBatches = %d, want 1", report.TotalBatches)
	}
}

func TestTracker_AppliesDefaults(t *testing.T) {
	fake := &fakeSubmitter{}
	defaults := map[string]string{"v": "1", "tid": "UA-1"}
	tr := NewTracker(fake, defaults, 20, testLogger(), nil)

	if _, err := tr.Run(context.Background(), rowSet(1)); err != nil {
		t.Fatalf("run: %v", err)
	}
	payload := fake.calls[0]
	if !strings.Contains(payload, "v=1") || !strings.Contains(payload, "tid=UA-1") {
		t.Errorf("payload %q missing default fields", payload)
	}
	if !strings.Contains(payload, "cid=client-000") {
		t.Errorf("payload %q missing row fields", payload)
	}
}

func TestTracker_EmptyRowSet(t *testing.T) {
	fake := &fakeSubmitter{}
	tr := NewTracker(fake, nil, 20, testLogger(), nil)

	report, err := tr.Run(context.Background(), &types.RowSet{Columns: []string{"cid"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.TotalHits != 0 || report.TotalBatches != 0 {
		t.Errorf("report = %+v, want zero activity", report)
	}
	if len(fake.calls) != 0 {
		t.Errorf("submitter called %d times for empty row set", len(fake.calls))
	}
}
