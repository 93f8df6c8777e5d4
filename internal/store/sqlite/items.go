package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/lostfound/internal/store"
	"github.com/vovakirdan/lostfound/internal/utils"
)

const itemColumns = `id, owner_id, kind, title, description, location, created_at`

// CreateItem persists a listing; ID and CreatedAt are assigned here.
func (s *SQLiteStore) CreateItem(ctx context.Context, item *store.Item) (*store.Item, error) {
	if item == nil {
		return nil, errors.New("item is nil")
	}

	id := utils.NewOrderedID()
	query := `
		INSERT INTO items (id, owner_id, kind, title, description, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id, item.OwnerID, string(item.Kind), item.Title, item.Description, item.Location, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}

	return s.GetItemByID(ctx, id)
}

// GetItemByID retrieves a listing by ID.
func (s *SQLiteStore) GetItemByID(ctx context.Context, id string) (*store.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = ?`

	var (
		item store.Item
		kind string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.OwnerID, &kind, &item.Title, &item.Description, &item.Location, &item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("item not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query item: %w", err)
	}
	item.Kind = store.ItemKind(kind)
	return &item, nil
}

// ListItems returns newest listings first.
func (s *SQLiteStore) ListItems(ctx context.Context, kind *store.ItemKind, limit int) ([]*store.Item, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		rows *sql.Rows
		err  error
	)
	if kind != nil {
		query := `SELECT ` + itemColumns + ` FROM items WHERE kind = ? ORDER BY created_at DESC, id DESC LIMIT ?`
		rows, err = s.db.QueryContext(ctx, query, string(*kind), limit)
	} else {
		query := `SELECT ` + itemColumns + ` FROM items ORDER BY created_at DESC, id DESC LIMIT ?`
		rows, err = s.db.QueryContext(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]*store.Item, 0)
	for rows.Next() {
		var (
			item store.Item
			k    string
		)
		if err := rows.Scan(&item.ID, &item.OwnerID, &k, &item.Title, &item.Description, &item.Location, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Kind = store.ItemKind(k)
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// ItemTitles maps item ids to titles in one query. Unknown ids are absent.
func (s *SQLiteStore) ItemTitles(ctx context.Context, ids []string) (map[string]string, error) {
	ids = uniqueNonEmpty(ids)
	titles := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	query := `SELECT id, title FROM items WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := s.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query item titles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("scan item title: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item titles: %w", err)
	}
	return titles, nil
}
