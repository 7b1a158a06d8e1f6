package domain

import "time"

// Status is the outcome of one copy task.
type Status string

const (
	StatusCopied  Status = "copied"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // dry-run: nothing was executed
)

// RunResult records the outcome of a single CopyTask.
type RunResult struct {
	Task    CopyTask
	Status  Status
	SQL     string // the statement that ran (or would run, in dry-run)
	Err     error  // nil unless Status == StatusFailed
	Elapsed time.Duration
}

// Summary aggregates the results of one full run.
type Summary struct {
	RunID          string
	ModifiedCount  int // nodes flagged modified by the selector
	CandidateCount int // of those, incremental models and snapshots
	Results        []RunResult
}

// Copied returns the number of successfully copied tables.
func (s *Summary) Copied() int { return s.count(StatusCopied) }

// FailedResults returns the results for tasks that failed.
func (s *Summary) FailedResults() []RunResult {
	var out []RunResult
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the number of failed copies.
func (s *Summary) Failed() int { return s.count(StatusFailed) }

// Skipped returns the number of dry-run (not executed) tasks.
func (s *Summary) Skipped() int { return s.count(StatusSkipped) }

// OK reports whether the run completed without any failed copy.
func (s *Summary) OK() bool { return s.Failed() == 0 }

func (s *Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}
