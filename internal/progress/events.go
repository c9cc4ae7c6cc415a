package progress

import "time"

type EventType string

const (
	EventScanStarted  EventType = "scan_started"
	EventScanPaused   EventType = "scan_paused"
	EventScanResumed  EventType = "scan_resumed"
	EventScanFinished EventType = "scan_finished"
	EventFileScanned  EventType = "file_scanned"
	EventFileError    EventType = "file_error"
)

type Event struct {
	Type         EventType `json:"type"`
	At           time.Time `json:"at"`
	SessionID    string    `json:"session_id,omitempty"`
	File         string    `json:"file,omitempty"`
	Status       string    `json:"status,omitempty"`
	Message      string    `json:"message,omitempty"`
	Error        string    `json:"error,omitempty"`
	FindingCount int       `json:"finding_count,omitempty"`
	Processed    int       `json:"processed,omitempty"`
	Total        int       `json:"total,omitempty"`
	DurationMS   int64     `json:"duration_ms,omitempty"`
}
