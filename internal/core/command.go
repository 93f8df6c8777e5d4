package core

// CommandKind describes what the hub should do.
type CommandKind int

const (
	// CommandRegister attaches a client to its user's mailbox.
	CommandRegister CommandKind = iota
	// CommandUnregister detaches a client and closes its event channel.
	CommandUnregister
	// CommandPublish delivers a stored message to both participants.
	CommandPublish
)

// Command is an action for the hub loop.
type Command struct {
	Kind    CommandKind
	Client  *Client
	Message Message
}
