package warden

import "time"

// Level classifies an entry on the wire.
//
// Level instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Level string

const (
	// LevelDebug is an exported constant or variable used by the emission pipeline.
	LevelDebug Level = "debug"
	// LevelInfo is an exported constant or variable used by the emission pipeline.
	LevelInfo Level = "info"
	// LevelError is an exported constant or variable used by the emission pipeline.
	LevelError Level = "error"
	// LevelAudit marks audit-trail entries produced by [Logger.Audit].
	LevelAudit Level = "audit"
)

// EntityUnknown is the entity identifier recorded when an audit event has no
// concrete subject, e.g. an authentication failure before a user is resolved.
const EntityUnknown = "unknown"

// Context is the ambient actor/session/correlation state captured into each
// entry at construction time. Entries hold a value copy, never a live
// reference; later mutation of the ambient scope does not retroactively
// change already-built entries.
//
// IPAddress and Token are kept for in-process consumers but never serialized:
// the controller wire contract carries only the four identifier fields.
type Context struct {
	UserID        string `json:"userId,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
	SessionID     string `json:"sessionId,omitempty"`
	IPAddress     string `json:"-"`
	Token         string `json:"-"`
}

// IsZero reports whether no field of the snapshot is set.
func (c Context) IsZero() bool {
	return c == Context{}
}

// merge returns c with every non-zero field of over applied on top.
func (c Context) merge(over Context) Context {
	if over.UserID != "" {
		c.UserID = over.UserID
	}
	if over.CorrelationID != "" {
		c.CorrelationID = over.CorrelationID
	}
	if over.RequestID != "" {
		c.RequestID = over.RequestID
	}
	if over.SessionID != "" {
		c.SessionID = over.SessionID
	}
	if over.IPAddress != "" {
		c.IPAddress = over.IPAddress
	}
	if over.Token != "" {
		c.Token = over.Token
	}
	return c
}

// ErrorDetail carries the name/message/stack triple extracted from an error
// argument to [Logger.Error].
type ErrorDetail struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Entry is the canonical record handed to sinks. Log entries populate Level,
// Message, and optionally Payload and ErrorDetail; audit entries use
// LevelAudit and populate Action, ResourceType, EntityID, and the
// oldValues/newValues pair. Payload, OldValues, and NewValues are masked
// before the entry is queued, and an entry is immutable once constructed.
type Entry struct {
	ID           string       `json:"id,omitempty"`
	Level        Level        `json:"level"`
	Message      string       `json:"message,omitempty"`
	Action       string       `json:"action,omitempty"`
	ResourceType string       `json:"resourceType,omitempty"`
	EntityID     string       `json:"entityId,omitempty"`
	Context      Context      `json:"context"`
	Timestamp    time.Time    `json:"timestamp"`
	Payload      any          `json:"payload,omitempty"`
	OldValues    any          `json:"oldValues,omitempty"`
	NewValues    any          `json:"newValues,omitempty"`
	ErrorDetail  *ErrorDetail `json:"errorDetail,omitempty"`
}

// IsAudit reports whether the entry was produced by [Logger.Audit].
func (e Entry) IsAudit() bool {
	return e.Level == LevelAudit
}
