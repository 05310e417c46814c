package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edgehill-data/gapush/metrics"
	"github.com/edgehill-data/gapush/types"
)

// RunReport is the structured JSON report written by --report.
type RunReport struct {
	RunID      string              `json:"run_id"`
	Mode       string              `json:"mode"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message,omitempty"`
	Timestamp  string              `json:"timestamp"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Batches *ReportBatches    `json:"batches,omitempty"`
	Metrics *metrics.Snapshot `json:"metrics"`

	SideEffectErrors []string `json:"side_effect_errors,omitempty"`
}

// ReportBatches holds batch-submission stats in the report. Failed payloads
// are carried verbatim so the report alone is enough to replay them.
type ReportBatches struct {
	Hits           int      `json:"hits"`
	Total          int      `json:"total"`
	Succeeded      int      `json:"succeeded"`
	Failed         int      `json:"failed"`
	FailedPayloads []string `json:"failed_payloads,omitempty"`
}

// BuildRunReport composes a RunReport from a RunResult and metrics snapshot.
// The exitCode is the process exit code that will be returned to the caller.
func BuildRunReport(result *RunResult, snap metrics.Snapshot, exitCode int) *RunReport {
	report := &RunReport{
		RunID:      result.Meta.RunID,
		Mode:       string(result.Meta.Mode),
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		Timestamp:  result.Outcome.Timestamp,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Metrics:    &snap,
	}

	if result.Report != nil {
		report.Batches = &ReportBatches{
			Hits:           result.Report.TotalHits,
			Total:          result.Report.TotalBatches,
			Succeeded:      result.Report.SuccessCount(),
			Failed:         result.Report.FailureCount(),
			FailedPayloads: result.Report.FailedPayloads,
		}
	}

	for _, err := range result.SideEffectErrors {
		report.SideEffectErrors = append(report.SideEffectErrors, err.Error())
	}

	return report
}

// WriteRunReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRunReport(report *RunReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')

	if path == "-" {
		_, err = os.Stderr.Write(data)
		if err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeReportTo is the io.Writer seam used by tests.
func writeReportTo(report *RunReport, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
