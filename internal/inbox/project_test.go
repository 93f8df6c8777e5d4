package inbox

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("u2", "u1"), PairKey("u1", "u2"))
	assert.Equal(t, "dm:u1:u2", PairKey("u2", "u1"))
	assert.NotEqual(t, PairKey("u1", "u2"), PairKey("u1", "u3"))
}

func TestCounterpart(t *testing.T) {
	m := msg("m1", "u1", "u2", 1)

	id, ok := Counterpart(m, "u1")
	require.True(t, ok)
	assert.Equal(t, "u2", id)

	id, ok = Counterpart(m, "u2")
	require.True(t, ok)
	assert.Equal(t, "u1", id)

	_, ok = Counterpart(m, "u3")
	assert.False(t, ok)

	_, ok = Counterpart(msg("m2", "u1", "u1", 1), "u1")
	assert.False(t, ok)
}

func TestProjectGroupsSortsAndLabels(t *testing.T) {
	resolver := &fakeResolver{labels: map[string]string{"u2": "Bea", "u3": "cal@campus.edu"}}
	p := NewProjector(resolver, zerolog.Nop())

	input := []Message{
		msg("m4", "u3", "u1", 4),
		msg("m2", "u2", "u1", 2),
		msg("m1", "u1", "u2", 1),
		msg("m3", "u1", "u3", 3),
		msg("m1", "u1", "u2", 1), // duplicate delivery
		msg("x1", "u2", "u3", 5), // not the viewer's thread
		msg("x2", "u1", "u1", 6), // self addressed
	}

	convs := p.Project(context.Background(), input, "u1", nil)
	require.Len(t, convs, 2)

	// most recent thread first
	assert.Equal(t, "u3", convs[0].CounterpartID)
	assert.Equal(t, "cal@campus.edu", convs[0].CounterpartLabel)
	assert.Equal(t, []string{"m3", "m4"}, ids(convs[0].Messages))

	assert.Equal(t, "u2", convs[1].CounterpartID)
	assert.Equal(t, "Bea", convs[1].CounterpartLabel)
	assert.Equal(t, "dm:u1:u2", convs[1].Key)
	assert.Equal(t, []string{"m1", "m2"}, ids(convs[1].Messages))
	assert.Equal(t, "m2", convs[1].LastMessage.ID)
	assert.Equal(t, "item-1", convs[1].ItemRef)

	requireOrdered(t, convs)
	assert.Equal(t, 1, resolver.callCount(), "labels are resolved in one batch")
	assert.Equal(t, []string{"u2", "u3"}, resolver.calls[0], "ids are sent in sorted order")
}

func TestProjectResolvesLabelsInStableOrder(t *testing.T) {
	input := []Message{
		msg("a", "u9", "u1", 1),
		msg("b", "u1", "u5", 2),
		msg("c", "u7", "u1", 3),
		msg("d", "u1", "u3", 4),
	}
	for i := 0; i < 5; i++ {
		resolver := &fakeResolver{}
		NewProjector(resolver, zerolog.Nop()).Project(context.Background(), input, "u1", nil)
		require.Equal(t, 1, resolver.callCount())
		assert.Equal(t, []string{"u3", "u5", "u7", "u9"}, resolver.calls[0])
	}
}

func TestProjectTiesBrokenByID(t *testing.T) {
	p := NewProjector(nil, zerolog.Nop())
	input := []Message{
		msg("b", "u2", "u1", 1),
		msg("a", "u1", "u2", 1),
		msg("c", "u1", "u2", 0),
	}

	convs := p.Project(context.Background(), input, "u1", nil)
	require.Len(t, convs, 1)
	assert.Equal(t, []string{"c", "a", "b"}, ids(convs[0].Messages))
	assert.Equal(t, UnknownLabel, convs[0].CounterpartLabel)
}

func TestProjectPairingCorrectness(t *testing.T) {
	p := NewProjector(nil, zerolog.Nop())
	input := []Message{
		msg("m1", "u1", "u2", 1),
		msg("m2", "u3", "u1", 2),
		msg("m3", "u2", "u1", 3),
		msg("m4", "u1", "u4", 4),
		msg("m5", "u4", "u1", 5),
	}

	convs := p.Project(context.Background(), input, "u1", nil)
	found := make(map[string]int)
	for _, c := range convs {
		for _, m := range c.Messages {
			found[m.ID]++
			assert.Equal(t, PairKey(m.SenderID, m.RecipientID), c.Key, "message %s in wrong thread", m.ID)
		}
	}
	for _, m := range input {
		assert.Equal(t, 1, found[m.ID], "message %s must appear exactly once", m.ID)
	}
}

func TestProjectResolverFailureFallsBack(t *testing.T) {
	resolver := &fakeResolver{err: errBoom}
	p := NewProjector(resolver, zerolog.Nop())

	input := []Message{msg("m1", "u1", "u2", 1), msg("m2", "u3", "u1", 2)}
	convs := p.Project(context.Background(), input, "u1", map[string]string{"u2": "Bea"})
	require.Len(t, convs, 2)

	labels := map[string]string{}
	for _, c := range convs {
		labels[c.CounterpartID] = c.CounterpartLabel
	}
	assert.Equal(t, "Bea", labels["u2"])
	assert.Equal(t, UnknownLabel, labels["u3"])
}

func TestProjectMissingLabelIsUnknown(t *testing.T) {
	resolver := &fakeResolver{labels: map[string]string{}}
	p := NewProjector(resolver, zerolog.Nop())

	convs := p.Project(context.Background(), []Message{msg("m1", "u1", "u2", 1)}, "u1", map[string]string{"u2": "Old"})
	require.Len(t, convs, 1)
	assert.Equal(t, UnknownLabel, convs[0].CounterpartLabel)
}

func TestProjectEmptyInputSkipsResolver(t *testing.T) {
	resolver := &fakeResolver{}
	p := NewProjector(resolver, zerolog.Nop())

	convs := p.Project(context.Background(), nil, "u1", nil)
	assert.Empty(t, convs)
	assert.Zero(t, resolver.callCount())
}
