package models

import "time"

// RunStatus is the lifecycle state of one model run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunResult records a single execution of a model script. Output and Error
// hold the last characters of stdout and stderr; Error is nil when stderr
// was empty. ExitCode is -1 until the process exits, or when it was killed
// by a signal or never started.
type RunResult struct {
	ID         string     `json:"run_id"`
	Model      string     `json:"model"`
	Status     RunStatus  `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Output     string     `json:"output"`
	Error      *string    `json:"error"`
	Failure    string     `json:"failure,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Done reports whether the run has finished.
func (r RunResult) Done() bool {
	return r.Status != RunRunning
}

// Duration is the wall time of a finished run, or zero.
func (r RunResult) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
