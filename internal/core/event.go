package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage notifies a participant about a newly stored message.
	EventMessage EventKind = iota
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message Message
	Error   *CoreError
}
