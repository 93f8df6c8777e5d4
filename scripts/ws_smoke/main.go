// ws_smoke registers two throwaway accounts against a running server, opens
// the push channel for one and checks that a message from the other arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vovakirdan/lostfound/internal/client"
	"github.com/vovakirdan/lostfound/internal/inbox"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	suffix := uuid.NewString()[:8]
	owner, ownerAcc, err := signUp(ctx, *addr, "owner-"+suffix+"@smoke.test", "Smoke Owner")
	if err != nil {
		return err
	}
	finder, finderAcc, err := signUp(ctx, *addr, "finder-"+suffix+"@smoke.test", "")
	if err != nil {
		return err
	}

	item, err := owner.CreateItem(ctx, "lost", "Smoke test umbrella", "", "Main hall")
	if err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	fmt.Printf("Created item %s (%s)\n", item.ID, item.Title)

	received := make(chan inbox.Message, 1)
	unsubscribe, err := owner.SubscribeToInserts(ctx, ownerAcc.ID, func(m inbox.Message) {
		select {
		case received <- m:
		default:
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsubscribe()

	sent, err := finder.InsertMessage(ctx, item.ID, finderAcc.ID, ownerAcc.ID, *text)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("Sent message %s\n", sent.ID)

	select {
	case m := <-received:
		if m.ID != sent.ID {
			return fmt.Errorf("received %s, expected %s", m.ID, sent.ID)
		}
		fmt.Printf("Push received: item=%q from=%s text=%q at=%s\n", m.ItemTitle, m.SenderID, m.Body, m.CreatedAt.Format(time.RFC3339))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("no push before timeout: %w", ctx.Err())
	}
}

func signUp(ctx context.Context, addr, email, fullName string) (*client.Client, client.Account, error) {
	c, err := client.New(addr, client.Options{})
	if err != nil {
		return nil, client.Account{}, err
	}
	account, err := c.Register(ctx, email, "smoke-password", fullName)
	if err != nil {
		return nil, client.Account{}, fmt.Errorf("register %s: %w", email, err)
	}
	return c, account, nil
}
