package inbox

import (
	"sort"
	"time"
)

// Message is one directed message as the inbox sees it.
type Message struct {
	ID          string
	ItemRef     string
	ItemTitle   string
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
	ReadAt      *time.Time
	// Pending is set only on a local placeholder that the store has not confirmed yet.
	Pending bool
}

// Involves reports whether userID is the sender or the recipient.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.RecipientID == userID
}

// Draft is a message the viewer wants to send, before the store has seen it.
type Draft struct {
	PlaceholderID string
	ItemRef       string
	SenderID      string
	RecipientID   string
	Body          string
	CreatedAt     time.Time
}

// Conversation is the thread between the viewer and one counterpart.
// A published Conversation is never mutated; any change produces a new value.
type Conversation struct {
	Key              string
	CounterpartID    string
	CounterpartLabel string
	// ItemRef is the listing the thread started about; replies reuse it.
	ItemRef     string
	Messages    []Message
	LastMessage Message
}

// Contains reports whether a message with id is part of the thread.
func (c *Conversation) Contains(id string) bool {
	if c == nil {
		return false
	}
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return true
		}
	}
	return false
}

// messageLess orders by creation time, then by id.
func messageLess(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func sortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return messageLess(msgs[i], msgs[j])
	})
}

// buildConversation dedups msgs by id (first occurrence wins), sorts them and
// fills the derived fields.
func buildConversation(counterpartID, viewerID, label string, msgs []Message) *Conversation {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sortMessages(out)

	conv := &Conversation{
		Key:              PairKey(viewerID, counterpartID),
		CounterpartID:    counterpartID,
		CounterpartLabel: label,
		Messages:         out,
	}
	if len(out) > 0 {
		conv.LastMessage = out[len(out)-1]
		conv.ItemRef = out[0].ItemRef
		if conv.ItemRef == "" {
			for _, m := range out {
				if m.ItemRef != "" {
					conv.ItemRef = m.ItemRef
					break
				}
			}
		}
	}
	return conv
}

// sortConversations orders by most recent activity first, ties broken by key.
func sortConversations(convs []*Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := convs[i].LastMessage, convs[j].LastMessage
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.ID != b.ID {
			return a.ID > b.ID
		}
		return convs[i].Key < convs[j].Key
	})
}
