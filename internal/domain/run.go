package domain

import "time"

// RunStatus is the outcome of a discovery run
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// DiscoveryRun records one discovery of one target
type DiscoveryRun struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Profile    string    `json:"profile"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Nodes      int       `json:"nodes"`
	Edges      int       `json:"edges"`
	Stats      RunStats  `json:"stats"`
}

// Duration returns how long the run took
func (r *DiscoveryRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
