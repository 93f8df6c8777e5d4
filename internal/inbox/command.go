package inbox

// CommandKind describes what a caller wants the reconciler to do.
type CommandKind int

const (
	// CommandLoadAll replaces state with a full payload.
	CommandLoadAll CommandKind = iota
	// CommandIncoming merges one message from push or echo.
	CommandIncoming
	// CommandOptimisticSend shows a draft under a placeholder id.
	CommandOptimisticSend
	// CommandConfirmSend swaps a placeholder for the stored message.
	CommandConfirmSend
	// CommandRollbackSend drops a placeholder after a failed insert.
	CommandRollbackSend
	// CommandSelect opens a counterpart's thread.
	CommandSelect
	// CommandClearSelection closes the open thread.
	CommandClearSelection
	// CommandSnapshot reads the current view.
	CommandSnapshot
)

func (k CommandKind) String() string {
	switch k {
	case CommandLoadAll:
		return "load_all"
	case CommandIncoming:
		return "incoming"
	case CommandOptimisticSend:
		return "optimistic_send"
	case CommandConfirmSend:
		return "confirm_send"
	case CommandRollbackSend:
		return "rollback_send"
	case CommandSelect:
		return "select"
	case CommandClearSelection:
		return "clear_selection"
	case CommandSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// Command is one unit of work for the reconciler loop.
type Command struct {
	Kind          CommandKind
	Messages      []Message
	Message       Message
	Draft         Draft
	PlaceholderID string
	CounterpartID string

	reply chan Result
}

// Result is the reconciler's answer to a command.
type Result struct {
	View View
	// Changed is false when the command left state as it was.
	Changed bool
	// Message is the placeholder for an optimistic send, or the stored message
	// that claimed a placeholder being rolled back.
	Message *Message
	// Draft is the text returned by a rollback.
	Draft Draft
}

// View is an immutable snapshot for presentation.
type View struct {
	Version       uint64
	Conversations []*Conversation
	ActiveID      string
	// Current is the open thread, nil when nothing is open.
	Current *Conversation
	Pending []Message
}
