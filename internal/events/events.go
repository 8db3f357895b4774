package events

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType identifies which supervised service an event concerns.
type ServiceType string

const (
	ServiceServer   ServiceType = "server"
	ServiceAutotype ServiceType = "autotype"
)

// State is the authoritative lifecycle state of one supervised service.
// Transitions follow the supervisor state machine; Error carries a reason
// and is terminal until an explicit start clears it.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateError    State = "error"
)

// Status pairs a State with its optional error reason.
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

func (s Status) String() string {
	if s.State == StateError && s.Reason != "" {
		return string(s.State) + ": " + s.Reason
	}
	return string(s.State)
}

// Kind discriminates event payloads.
type Kind string

const (
	KindStatusUpdate Kind = "status_update"
	KindError        Kind = "error"
	KindNotification Kind = "notification"
)

// StatusUpdate is emitted on every service state transition.
type StatusUpdate struct {
	Service ServiceType `json:"service"`
	Status  Status      `json:"status"`
	Message string      `json:"message,omitempty"`
	PID     int         `json:"pid,omitempty"`
}

// ErrorEvent reports a supervision fault to UI listeners.
type ErrorEvent struct {
	ErrorType   string `json:"error_type"`
	Message     string `json:"message"`
	Details     string `json:"details,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Source      string `json:"source"`
}

// Notification is an informational user-facing message.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
	Source  string `json:"source"`
}

// Event is the envelope delivered to subscribers. Exactly one payload
// pointer is non-nil, matching Type.
type Event struct {
	ID           string        `json:"id"`
	Type         Kind          `json:"type"`
	Timestamp    time.Time     `json:"timestamp"`
	Status       *StatusUpdate `json:"status_update,omitempty"`
	Error        *ErrorEvent   `json:"error,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

func newEvent(kind Kind) Event {
	return Event{ID: uuid.NewString(), Type: kind, Timestamp: time.Now().UTC()}
}

// NewStatusUpdate builds a status_update event.
func NewStatusUpdate(svc ServiceType, st Status, message string, pid int) Event {
	e := newEvent(KindStatusUpdate)
	e.Status = &StatusUpdate{Service: svc, Status: st, Message: message, PID: pid}
	return e
}

// NewError builds an error event.
func NewError(errorType, message, details, source string, recoverable bool) Event {
	e := newEvent(KindError)
	e.Error = &ErrorEvent{ErrorType: errorType, Message: message, Details: details, Recoverable: recoverable, Source: source}
	return e
}

// NewNotification builds a notification event.
func NewNotification(title, message, level, source string) Event {
	e := newEvent(KindNotification)
	e.Notification = &Notification{Title: title, Message: message, Level: level, Source: source}
	return e
}
