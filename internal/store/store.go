package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// User represents a registered campus user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	CreatedAt    time.Time
}

// ItemKind tells whether a listing reports a lost or a found object.
type ItemKind string

const (
	ItemKindLost  ItemKind = "lost"
	ItemKindFound ItemKind = "found"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == ItemKindLost || k == ItemKindFound
}

// Item is a lost or found listing that messages can refer to.
type Item struct {
	ID          string
	OwnerID     string
	Kind        ItemKind
	Title       string
	Description string
	Location    string
	CreatedAt   time.Time
}

// Message represents a persisted direct message between two users.
type Message struct {
	ID          string
	ItemID      string
	ItemTitle   string // joined from items, empty if the item is gone
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
	ReadAt      *time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, email, passwordHash, fullName string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUsersByIDs retrieves every known user from ids in one query.
	// Unknown ids are simply absent from the result.
	GetUsersByIDs(ctx context.Context, ids []string) ([]*User, error)

	// UpdateFullName changes the display name of a user.
	UpdateFullName(ctx context.Context, id, fullName string) error
}

// ItemStore handles listing persistence.
type ItemStore interface {
	CreateItem(ctx context.Context, item *Item) (*Item, error)
	GetItemByID(ctx context.Context, id string) (*Item, error)
	// ListItems returns newest listings first, optionally filtered by kind.
	ListItems(ctx context.Context, kind *ItemKind, limit int) ([]*Item, error)
	// ItemTitles maps item ids to titles in one query.
	ItemTitles(ctx context.Context, ids []string) (map[string]string, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// InsertMessage persists a message; the store assigns ID and CreatedAt.
	InsertMessage(ctx context.Context, msg *Message) (*Message, error)

	// GetMessageByID retrieves a single message.
	GetMessageByID(ctx context.Context, id string) (*Message, error)

	// ListMessagesForParticipant returns every message where userID is sender or recipient,
	// newest first.
	ListMessagesForParticipant(ctx context.Context, userID string) ([]*Message, error)

	// MarkRead sets read_at on every unread message from senderID to recipientID.
	MarkRead(ctx context.Context, recipientID, senderID string, at time.Time) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ItemStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
