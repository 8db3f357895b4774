package client

import "time"

// Service names accepted by the control API.
const (
	ServiceServer   = "server"
	ServiceAutotype = "autotype"
)

// Status mirrors the daemon's lifecycle status.
type Status struct {
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// ServiceStatus is one service's externally visible state.
type ServiceStatus struct {
	Service string `json:"service"`
	Status  Status `json:"status"`
	PID     int    `json:"pid,omitempty"`
}

// Event is the daemon's event envelope. Exactly one payload is non-nil.
type Event struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	StatusUpdate map[string]any `json:"status_update,omitempty"`
	Error        map[string]any `json:"error,omitempty"`
	Notification map[string]any `json:"notification,omitempty"`
}

// LogEntry is one captured line of supervised process output.
type LogEntry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Component string            `json:"component"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

type okResp struct {
	OK  bool `json:"ok"`
	PID int  `json:"pid,omitempty"`
}

type errorResp struct {
	Error string `json:"error"`
}
