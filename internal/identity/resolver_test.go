package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/lostfound/internal/store"
	"github.com/vovakirdan/lostfound/internal/store/sqlite"
)

func TestLabelFallbackChain(t *testing.T) {
	assert.Equal(t, "Alice Ng", Label(&store.User{FullName: " Alice Ng ", Email: "a@campus.edu"}))
	assert.Equal(t, "a@campus.edu", Label(&store.User{Email: "a@campus.edu"}))
	assert.Equal(t, "", Label(&store.User{}))
	assert.Equal(t, "", Label(nil))
}

func TestResolverBatchesStoreLookup(t *testing.T) {
	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice@campus.edu", "hash", "Alice")
	require.NoError(t, err)
	bob, err := st.CreateUser(ctx, "bob@campus.edu", "hash", "")
	require.NoError(t, err)

	labels, err := NewResolver(st).ResolveLabels(ctx, []string{alice.ID, bob.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		alice.ID: "Alice",
		bob.ID:   "bob@campus.edu",
	}, labels)

	empty, err := NewResolver(st).ResolveLabels(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
