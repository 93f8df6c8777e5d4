package core

import "time"

// Message is a stored direct message on its way to connected clients.
type Message struct {
	ID          string
	ItemID      string
	ItemTitle   string
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
	ReadAt      *time.Time
}
