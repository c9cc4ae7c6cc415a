package scanner

// Status is the lifecycle state of a scan session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusStopped   Status = "stopped"
	StatusError     Status = "error"
)

// Terminal reports whether the session has ended. A terminal session accepts
// no lifecycle operations other than Cleanup.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusStopped, StatusError:
		return true
	default:
		return false
	}
}

// Progress is a point-in-time snapshot of a running session.
type Progress struct {
	SessionID    string `json:"session_id"`
	Status       Status `json:"status"`
	Processed    int    `json:"processed"`
	Total        int    `json:"total"`
	FindingCount int    `json:"finding_count"`
	ErrorCount   int    `json:"error_count"`
}
