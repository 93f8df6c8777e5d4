package core

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubPublishReachesBothParticipants(t *testing.T) {
	hub, _ := startHub(t)

	alicePhone := NewClient("a1", "alice")
	aliceLaptop := NewClient("a2", "alice")
	bob := NewClient("b1", "bob")
	carol := NewClient("c1", "carol")
	for _, c := range []*Client{alicePhone, aliceLaptop, bob, carol} {
		hub.RegisterClient(c)
	}

	hub.Publish(Message{ID: "m1", SenderID: "bob", RecipientID: "alice", Body: "found it"})

	for _, c := range []*Client{alicePhone, aliceLaptop, bob} {
		ev := mustEvent(t, c.Events, EventMessage)
		if ev.Message.ID != "m1" || ev.Message.Body != "found it" {
			t.Fatalf("unexpected event for %s: %+v", c.ID, ev)
		}
	}
	mustNoEvent(t, carol.Events)
}

func TestHubUnregisterClosesEvents(t *testing.T) {
	hub, _ := startHub(t)

	alice := NewClient("a1", "alice")
	hub.RegisterClient(alice)
	hub.UnregisterClient(alice)

	select {
	case _, ok := <-alice.Events:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("events channel was not closed")
	}

	// Publishing to a user without clients is fine.
	hub.Publish(Message{ID: "m2", SenderID: "bob", RecipientID: "alice"})
	// Unregistering twice is a no-op.
	hub.UnregisterClient(alice)
}

func TestHubDropsForSlowConsumer(t *testing.T) {
	hub, _ := startHub(t)

	slow := NewClient("s1", "slow")
	hub.RegisterClient(slow)

	for i := 0; i < cap(slow.Events)+5; i++ {
		hub.Publish(Message{ID: "m", SenderID: "other", RecipientID: "slow"})
	}

	fast := NewClient("f1", "other")
	hub.RegisterClient(fast)
	hub.Publish(Message{ID: "last", SenderID: "other", RecipientID: "slow"})
	ev := mustEvent(t, fast.Events, EventMessage)
	if ev.Message.ID != "last" {
		t.Fatalf("hub stalled behind a slow consumer: %+v", ev)
	}
	if len(slow.Events) != cap(slow.Events) {
		t.Fatalf("expected slow buffer to be full, got %d", len(slow.Events))
	}
}

func TestHubStopClosesClientsAndIgnoresLateCommands(t *testing.T) {
	hub, cancel := startHub(t)

	alice := NewClient("a1", "alice")
	hub.RegisterClient(alice)
	hub.Publish(Message{ID: "m1", SenderID: "bob", RecipientID: "alice"})
	mustEvent(t, alice.Events, EventMessage)

	cancel()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop")
	}

	if _, ok := <-alice.Events; ok {
		t.Fatalf("expected closed channel after stop")
	}
	hub.UnregisterClient(alice)
	hub.Publish(Message{ID: "m2"})
}

func TestHubRegisterAfterStopClosesEvents(t *testing.T) {
	hub, cancel := startHub(t)
	cancel()
	select {
	case <-hub.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop")
	}

	late := NewClient("l1", "alice")
	hub.RegisterClient(late)

	select {
	case _, ok := <-late.Events:
		if ok {
			t.Fatalf("expected closed channel for client registered after stop")
		}
	case <-time.After(time.Second):
		t.Fatalf("events of a late client were never closed")
	}
	hub.UnregisterClient(late)
}

func TestHubQueuedRegisterIsClosedOnStop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	queued := NewClient("q1", "bob")
	hub.RegisterClient(queued)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	select {
	case _, ok := <-queued.Events:
		if ok {
			t.Fatalf("unexpected event for queued client")
		}
	case <-time.After(time.Second):
		t.Fatalf("events of a queued client were never closed")
	}
}

func BenchmarkHubPublish(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(zerolog.Nop())
	go hub.Run(ctx)

	target := NewClient("t", "recipient")
	hub.RegisterClient(target)
	for i := 0; i < 50; i++ {
		c := NewClient("o", "sender")
		hub.RegisterClient(c)
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Publish(Message{ID: "m", SenderID: "sender", RecipientID: "recipient", Body: "payload"})
		<-target.Events
	}
}
