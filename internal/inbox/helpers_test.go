package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return baseTime.Add(time.Duration(sec) * time.Second)
}

func msg(id, from, to string, sec int) Message {
	return Message{ID: id, ItemRef: "item-1", SenderID: from, RecipientID: to, Body: "body " + id, CreatedAt: at(sec)}
}

type fakeResolver struct {
	mu     sync.Mutex
	labels map[string]string
	err    error
	calls  [][]string
}

func (f *fakeResolver) ResolveLabels(_ context.Context, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string)
	for _, id := range ids {
		if l, ok := f.labels[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (f *fakeResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEngine(viewer string, resolver LabelResolver) *Engine {
	logger := zerolog.Nop()
	e := NewEngine(viewer, NewProjector(resolver, logger), logger)
	e.now = func() time.Time { return at(100) }
	n := 0
	e.newID = func() string {
		n++
		return "local-" + string(rune('0'+n))
	}
	return e
}

func ids(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func requireOrdered(t *testing.T, convs []*Conversation) {
	t.Helper()
	for _, c := range convs {
		for i := 1; i < len(c.Messages); i++ {
			require.False(t, messageLess(c.Messages[i], c.Messages[i-1]),
				"conversation %s out of order at %d", c.Key, i)
		}
		if len(c.Messages) > 0 {
			require.Equal(t, c.Messages[len(c.Messages)-1], c.LastMessage)
		}
	}
}

// fakeSource is an in-memory MessageSource.
type fakeSource struct {
	mu        sync.Mutex
	messages  []Message
	nextID    int
	fetchErr  error
	insertErr error
	// insertHook runs inside InsertMessage before it returns.
	insertHook  func(stored Message)
	subscribers map[int]func(Message)
	subSeq      int
}

func newFakeSource(msgs ...Message) *fakeSource {
	return &fakeSource{messages: msgs, subscribers: make(map[int]func(Message))}
}

func (f *fakeSource) FetchMessagesForParticipant(_ context.Context, userID string) ([]Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]Message, 0, len(f.messages))
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].Involves(userID) {
			out = append(out, f.messages[i])
		}
	}
	return out, nil
}

func (f *fakeSource) InsertMessage(_ context.Context, itemRef, senderID, recipientID, body string) (Message, error) {
	f.mu.Lock()
	if f.insertErr != nil {
		err := f.insertErr
		f.mu.Unlock()
		return Message{}, err
	}
	f.nextID++
	stored := Message{
		ID:          "srv-" + string(rune('0'+f.nextID)),
		ItemRef:     itemRef,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		CreatedAt:   at(200 + f.nextID),
	}
	f.messages = append(f.messages, stored)
	hook := f.insertHook
	f.mu.Unlock()

	if hook != nil {
		hook(stored)
	}
	return stored, nil
}

func (f *fakeSource) SubscribeToInserts(_ context.Context, _ string, onMessage func(Message)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subSeq++
	id := f.subSeq
	f.subscribers[id] = onMessage
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers, id)
	}, nil
}

func (f *fakeSource) push(m Message) {
	f.mu.Lock()
	f.messages = append(f.messages, m)
	subs := make([]func(Message), 0, len(f.subscribers))
	for _, s := range f.subscribers {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s(m)
	}
}

func (f *fakeSource) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

var errBoom = errors.New("boom")
