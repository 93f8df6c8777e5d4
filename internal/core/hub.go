package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Hub fans stored messages out to the live clients of sender and recipient.
// All mailbox state is owned by the Run goroutine.
type Hub struct {
	commands  chan *Command
	done      chan struct{}
	mailboxes map[string]*Mailbox
	log       zerolog.Logger

	// stopMu lets Run wait out in-flight sends before draining the queue.
	stopMu  sync.RWMutex
	stopped bool
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		commands:  make(chan *Command, 64),
		done:      make(chan struct{}),
		mailboxes: make(map[string]*Mailbox),
		log:       logger,
	}
}

// Run processes commands until ctx is canceled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.closeAll()
		close(h.done)

		h.stopMu.Lock()
		h.stopped = true
		h.stopMu.Unlock()
		h.drain()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.commands:
			h.handle(cmd)
		}
	}
}

// RegisterClient attaches c to its user's mailbox.
func (h *Hub) RegisterClient(c *Client) {
	h.send(&Command{Kind: CommandRegister, Client: c})
}

// UnregisterClient detaches c and closes its event channel.
func (h *Hub) UnregisterClient(c *Client) {
	h.send(&Command{Kind: CommandUnregister, Client: c})
}

// Publish delivers msg to both participants' clients.
func (h *Hub) Publish(msg Message) {
	h.send(&Command{Kind: CommandPublish, Message: msg})
}

// send drops cmd once the hub has stopped.
func (h *Hub) send(cmd *Command) {
	h.stopMu.RLock()
	defer h.stopMu.RUnlock()

	if h.stopped {
		h.drop(cmd)
		return
	}
	select {
	case h.commands <- cmd:
	case <-h.done:
		h.drop(cmd)
	}
}

// drain discards commands queued after Run stopped reading.
func (h *Hub) drain() {
	for {
		select {
		case cmd := <-h.commands:
			h.drop(cmd)
		default:
			return
		}
	}
}

// drop releases what an unprocessed command holds: a client that was never
// registered gets its event channel closed so its writer can exit.
func (h *Hub) drop(cmd *Command) {
	if cmd.Kind == CommandRegister && cmd.Client != nil {
		close(cmd.Client.Events)
	}
}

func (h *Hub) handle(cmd *Command) {
	switch cmd.Kind {
	case CommandRegister:
		mb, ok := h.mailboxes[cmd.Client.UserID]
		if !ok {
			mb = NewMailbox(cmd.Client.UserID)
			h.mailboxes[cmd.Client.UserID] = mb
		}
		if mb.AddClient(cmd.Client) {
			h.log.Debug().Str("client_id", cmd.Client.ID).Str("user_id", cmd.Client.UserID).Msg("client registered")
		}
	case CommandUnregister:
		mb, ok := h.mailboxes[cmd.Client.UserID]
		if !ok || !mb.RemoveClient(cmd.Client) {
			return
		}
		close(cmd.Client.Events)
		if mb.Empty() {
			delete(h.mailboxes, cmd.Client.UserID)
		}
		h.log.Debug().Str("client_id", cmd.Client.ID).Str("user_id", cmd.Client.UserID).Msg("client unregistered")
	case CommandPublish:
		event := &Event{Kind: EventMessage, Message: cmd.Message}
		delivered := 0
		for _, userID := range []string{cmd.Message.SenderID, cmd.Message.RecipientID} {
			if mb, ok := h.mailboxes[userID]; ok {
				delivered += mb.Deliver(event)
			}
		}
		h.log.Debug().Str("message_id", cmd.Message.ID).Int("delivered", delivered).Msg("message published")
	default:
		h.log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown hub command")
	}
}

func (h *Hub) closeAll() {
	for userID, mb := range h.mailboxes {
		for c := range mb.clients {
			close(c.Events)
		}
		delete(h.mailboxes, userID)
	}
}
