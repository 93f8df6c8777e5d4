package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/core"
	"github.com/vovakirdan/lostfound/internal/inbox"
	"github.com/vovakirdan/lostfound/internal/store"
)

// Common errors for message operations.
var (
	ErrMissingItem      = errors.New("item_id is required")
	ErrMissingRecipient = errors.New("recipient_id is required")
	ErrEmptyBody        = errors.New("message is required")
	ErrBodyTooLong      = errors.New("message is too long")
	ErrSelfMessage      = errors.New("cannot send message to yourself")
	ErrRecipientUnknown = errors.New("recipient not found")
	ErrItemNotFound     = errors.New("item not found")
)

// Publisher pushes stored messages to live clients.
type Publisher interface {
	Publish(msg core.Message)
}

// Service validates, stores and fans out direct messages.
type Service struct {
	store     store.Store
	publisher Publisher
	projector *inbox.Projector
	maxBytes  int
	log       zerolog.Logger
}

// New creates a message service. maxBytes <= 0 disables the length check.
func New(st store.Store, publisher Publisher, labels inbox.LabelResolver, maxBytes int, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		publisher: publisher,
		projector: inbox.NewProjector(labels, logger),
		maxBytes:  maxBytes,
		log:       logger,
	}
}

// Send stores a message from senderID and publishes it to both participants.
func (s *Service) Send(ctx context.Context, senderID, itemID, recipientID, body string) (*store.Message, error) {
	itemID = strings.TrimSpace(itemID)
	recipientID = strings.TrimSpace(recipientID)
	body = strings.TrimSpace(body)

	switch {
	case itemID == "":
		return nil, ErrMissingItem
	case recipientID == "":
		return nil, ErrMissingRecipient
	case body == "":
		return nil, ErrEmptyBody
	case recipientID == senderID:
		return nil, ErrSelfMessage
	case s.maxBytes > 0 && len(body) > s.maxBytes:
		return nil, ErrBodyTooLong
	}

	if _, err := s.store.GetUserByID(ctx, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRecipientUnknown
		}
		return nil, fmt.Errorf("lookup recipient: %w", err)
	}
	if _, err := s.store.GetItemByID(ctx, itemID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("lookup item: %w", err)
	}

	stored, err := s.store.InsertMessage(ctx, &store.Message{
		ItemID:      itemID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ToCore(stored))
	}
	s.log.Debug().Str("message_id", stored.ID).Str("sender_id", senderID).Str("recipient_id", recipientID).Msg("message stored")
	return stored, nil
}

// List returns every message userID sent or received, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]*store.Message, error) {
	msgs, err := s.store.ListMessagesForParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Conversations groups the viewer's messages into threads, most recent first.
func (s *Service) Conversations(ctx context.Context, viewerID string) ([]*inbox.Conversation, error) {
	msgs, err := s.List(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	converted := make([]inbox.Message, 0, len(msgs))
	for _, m := range msgs {
		converted = append(converted, ToInbox(m))
	}
	return s.projector.Project(ctx, converted, viewerID, nil), nil
}

// MarkRead stamps every unread message from counterpartID to viewerID as read.
func (s *Service) MarkRead(ctx context.Context, viewerID, counterpartID string) (int64, error) {
	if strings.TrimSpace(counterpartID) == "" {
		return 0, ErrMissingRecipient
	}
	n, err := s.store.MarkRead(ctx, viewerID, counterpartID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

// ToInbox converts a stored message to the inbox model.
func ToInbox(m *store.Message) inbox.Message {
	return inbox.Message{
		ID:          m.ID,
		ItemRef:     m.ItemID,
		ItemTitle:   m.ItemTitle,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}

// ToCore converts a stored message to the hub model.
func ToCore(m *store.Message) core.Message {
	return core.Message{
		ID:          m.ID,
		ItemID:      m.ItemID,
		ItemTitle:   m.ItemTitle,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
		ReadAt:      m.ReadAt,
	}
}
