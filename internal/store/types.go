package store

import "time"

// BuildRecord captures the outcome of one compiler run.
type BuildRecord struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	Sketch    string    `json:"sketch"`
	Board     string    `json:"board"`
	Port      string    `json:"port,omitempty"`
	BuildDir  string    `json:"build_dir,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	ExitCode  int       `json:"exit_code"`
	Duration  string    `json:"duration"`
}

// SerialLog tracks a serial monitor session.
type SerialLog struct {
	ID        string    `json:"id"`
	Port      string    `json:"port"`
	BaudRate  int       `json:"baud_rate"`
	Timestamp time.Time `json:"timestamp"`
}
