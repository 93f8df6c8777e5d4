package inbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionFollowsReplacedConversation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine("u1", nil)
	e.LoadAll(ctx, []Message{msg("m1", "u2", "u1", 1), msg("k1", "u3", "u1", 2)})

	var sel Selection
	require.True(t, sel.Select("u2"))
	assert.False(t, sel.Select("u2"), "selecting the open thread is a no-op")

	before := sel.Current(e.Conversations())
	require.NotNil(t, before)

	e.ApplyIncoming(ctx, msg("m2", "u1", "u2", 3))
	after := sel.Current(e.Conversations())
	require.NotNil(t, after)
	assert.NotSame(t, before, after)
	assert.Equal(t, "u2", after.CounterpartID)
	assert.Equal(t, []string{"m1", "m2"}, ids(after.Messages))

	e.LoadAll(ctx, []Message{msg("m1", "u2", "u1", 1), msg("m2", "u1", "u2", 3), msg("m3", "u2", "u1", 4)})
	current := sel.Current(e.Conversations())
	require.NotNil(t, current)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(current.Messages))
}

func TestSelectionFallsBackToNothing(t *testing.T) {
	var sel Selection
	assert.Nil(t, sel.Current(nil))

	_, ok := sel.Active()
	assert.False(t, ok)

	sel.Select("ghost")
	id, ok := sel.Active()
	assert.True(t, ok)
	assert.Equal(t, "ghost", id)
	assert.Nil(t, sel.Current([]*Conversation{{CounterpartID: "u2"}}))

	sel.Clear()
	_, ok = sel.Active()
	assert.False(t, ok)
	assert.False(t, sel.Select(""))
}
