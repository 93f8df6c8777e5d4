package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/lostfound/internal/store"
	"github.com/vovakirdan/lostfound/internal/utils"
)

const messageSelect = `
	SELECT m.id, m.item_id, COALESCE(i.title, ''), m.sender_id, m.recipient_id, m.body, m.created_at, m.read_at
	FROM messages m
	LEFT JOIN items i ON i.id = m.item_id
`

// InsertMessage persists a message. The store assigns ID (UUIDv7) and CreatedAt.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *store.Message) (*store.Message, error) {
	if msg == nil {
		return nil, errors.New("message is nil")
	}

	id := utils.NewOrderedID()
	query := `
		INSERT INTO messages (id, item_id, sender_id, recipient_id, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, id, msg.ItemID, msg.SenderID, msg.RecipientID, msg.Body, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	return s.GetMessageByID(ctx, id)
}

// GetMessageByID retrieves a single message with its item title.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id string) (*store.Message, error) {
	row := s.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListMessagesForParticipant returns every message sent or received by userID, newest first.
func (s *SQLiteStore) ListMessagesForParticipant(ctx context.Context, userID string) ([]*store.Message, error) {
	query := messageSelect + `
		WHERE m.sender_id = ? OR m.recipient_id = ?
		ORDER BY m.created_at DESC, m.id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// MarkRead stamps read_at on unread messages from senderID to recipientID.
func (s *SQLiteStore) MarkRead(ctx context.Context, recipientID, senderID string, at time.Time) (int64, error) {
	query := `
		UPDATE messages SET read_at = ?
		WHERE recipient_id = ? AND sender_id = ? AND read_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, at.UTC(), recipientID, senderID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg    store.Message
		readAt sql.NullTime
	)
	if err := row.Scan(
		&msg.ID,
		&msg.ItemID,
		&msg.ItemTitle,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.Body,
		&msg.CreatedAt,
		&readAt,
	); err != nil {
		return nil, err
	}
	if readAt.Valid {
		t := readAt.Time
		msg.ReadAt = &t
	}
	return &msg, nil
}
