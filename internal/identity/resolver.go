// Package identity turns user ids into the labels shown next to conversations.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/vovakirdan/lostfound/internal/store"
)

// Label picks the display label for u: full name, else email, else "".
func Label(u *store.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(u.Email)
}

// Resolver looks labels up in the user store.
type Resolver struct {
	users store.UserStore
}

// NewResolver builds a resolver over users.
func NewResolver(users store.UserStore) *Resolver {
	return &Resolver{users: users}
}

// ResolveLabels returns labels for the ids it knows, in one store query.
// Users without a name or email are left out.
func (r *Resolver) ResolveLabels(ctx context.Context, userIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	users, err := r.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve labels: %w", err)
	}
	for _, u := range users {
		if label := Label(u); label != "" {
			out[u.ID] = label
		}
	}
	return out, nil
}
