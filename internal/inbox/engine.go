package inbox

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/lostfound/internal/utils"
)

type pendingSend struct {
	draft Draft
	msg   Message
}

// Engine holds the canonical conversation state of one viewer.
// It is not safe for concurrent use; Reconciler serializes access to it.
type Engine struct {
	viewerID  string
	projector *Projector
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string

	order         []string // counterpart ids, list order
	byCounterpart map[string]*Conversation

	pending []pendingSend
	// unsettled holds messages accepted outside a bulk load that no payload has
	// contained yet; LoadAll re-merges them so a stale payload cannot drop them.
	unsettled map[string]Message
	// claimed maps placeholder ids to the stored message that replaced them
	// before the send was confirmed.
	claimed map[string]Message
}

// NewEngine builds an empty engine for viewerID.
func NewEngine(viewerID string, projector *Projector, logger zerolog.Logger) *Engine {
	if projector == nil {
		projector = NewProjector(nil, logger)
	}
	return &Engine{
		viewerID:      viewerID,
		projector:     projector,
		log:           logger,
		now:           time.Now,
		newID:         utils.NewLocalID,
		byCounterpart: make(map[string]*Conversation),
		unsettled:     make(map[string]Message),
		claimed:       make(map[string]Message),
	}
}

// ViewerID returns the user whose threads the engine holds.
func (e *Engine) ViewerID() string {
	return e.viewerID
}

// Conversations returns the ordered thread list. The slice is fresh; the
// conversations in it are shared and must not be modified.
func (e *Engine) Conversations() []*Conversation {
	out := make([]*Conversation, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.byCounterpart[id])
	}
	return out
}

// Conversation returns the thread with counterpartID, or nil.
func (e *Engine) Conversation(counterpartID string) *Conversation {
	return e.byCounterpart[counterpartID]
}

// Pending returns unconfirmed placeholders, oldest first.
func (e *Engine) Pending() []Message {
	out := make([]Message, 0, len(e.pending))
	for _, p := range e.pending {
		out = append(out, p.msg)
	}
	return out
}

// LoadAll replaces the state with the projection of messages, then re-applies
// pending placeholders and accepted messages the payload does not contain yet.
func (e *Engine) LoadAll(ctx context.Context, messages []Message) {
	known := e.labels()
	knownIDs := e.messageIDs()

	projected := e.projector.Project(ctx, messages, e.viewerID, known)

	inPayload := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		inPayload[m.ID] = struct{}{}
	}
	for id := range e.unsettled {
		if _, ok := inPayload[id]; ok {
			delete(e.unsettled, id)
		}
	}

	byCounterpart := make(map[string]*Conversation, len(projected))
	for _, c := range projected {
		byCounterpart[c.CounterpartID] = c
	}

	e.claimFromPayload(byCounterpart, knownIDs)

	// Conversations are never deleted: threads missing from the payload stay as they were.
	for id, prev := range e.byCounterpart {
		if _, ok := byCounterpart[id]; ok {
			continue
		}
		byCounterpart[id] = withoutPlaceholders(prev, e.viewerID)
	}

	extras := make(map[string][]Message)
	for _, m := range e.unsettled {
		if id, ok := Counterpart(m, e.viewerID); ok {
			extras[id] = append(extras[id], m)
		}
	}
	for _, p := range e.pending {
		extras[p.draft.RecipientID] = append(extras[p.draft.RecipientID], p.msg)
	}

	for id, msgs := range extras {
		label := known[id]
		var base *Conversation
		if c, ok := byCounterpart[id]; ok {
			label = c.CounterpartLabel
			base = c
		}
		if label == "" {
			label = UnknownLabel
		}
		merged := make([]Message, 0, len(msgs))
		if base != nil {
			merged = append(merged, base.Messages...)
		}
		merged = append(merged, msgs...)
		byCounterpart[id] = rebuild(base, id, e.viewerID, label, merged)
	}

	convs := make([]*Conversation, 0, len(byCounterpart))
	for _, c := range byCounterpart {
		convs = append(convs, c)
	}
	sortConversations(convs)

	e.byCounterpart = byCounterpart
	e.order = e.order[:0]
	for _, c := range convs {
		e.order = append(e.order, c.CounterpartID)
	}

	e.log.Debug().
		Int("messages", len(messages)).
		Int("conversations", len(convs)).
		Int("pending", len(e.pending)).
		Int("unsettled", len(e.unsettled)).
		Msg("state reloaded")
}

// ApplyIncoming merges one message from any channel. It returns false when the
// message was already known or does not belong to one of the viewer's threads.
func (e *Engine) ApplyIncoming(ctx context.Context, msg Message) bool {
	return e.applyIncoming(ctx, msg, true)
}

func (e *Engine) applyIncoming(ctx context.Context, msg Message, claim bool) bool {
	if msg.ID == "" {
		e.log.Debug().Msg("incoming message without id ignored")
		return false
	}
	counterpart, ok := Counterpart(msg, e.viewerID)
	if !ok {
		e.log.Debug().Str("message_id", msg.ID).Msg("incoming message outside viewer threads ignored")
		return false
	}

	conv := e.byCounterpart[counterpart]
	if conv.Contains(msg.ID) {
		return false
	}
	msg.Pending = false

	var drop string
	if claim && msg.SenderID == e.viewerID {
		if i := e.matchPending(msg); i >= 0 {
			p := e.pending[i]
			drop = p.msg.ID
			e.claimed[p.msg.ID] = msg
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			e.log.Debug().Str("placeholder_id", drop).Str("message_id", msg.ID).Msg("placeholder claimed by store echo")
		}
	}
	e.unsettled[msg.ID] = msg

	if conv == nil {
		label := e.projector.label(ctx, counterpart, e.labels())
		e.byCounterpart[counterpart] = buildConversation(counterpart, e.viewerID, label, []Message{msg})
		e.order = append([]string{counterpart}, e.order...)
		return true
	}

	msgs := make([]Message, 0, len(conv.Messages)+1)
	for _, m := range conv.Messages {
		if m.ID != drop {
			msgs = append(msgs, m)
		}
	}
	msgs = append(msgs, msg)
	e.byCounterpart[counterpart] = buildConversation(counterpart, e.viewerID, conv.CounterpartLabel, msgs)
	return true
}

// ApplyOptimisticSend shows draft in its thread immediately under a placeholder id
// and returns the placeholder message.
func (e *Engine) ApplyOptimisticSend(ctx context.Context, draft Draft) Message {
	if draft.PlaceholderID == "" {
		draft.PlaceholderID = e.newID()
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = e.now().UTC()
	}
	if draft.SenderID == "" {
		draft.SenderID = e.viewerID
	}

	msg := Message{
		ID:          draft.PlaceholderID,
		ItemRef:     draft.ItemRef,
		SenderID:    draft.SenderID,
		RecipientID: draft.RecipientID,
		Body:        draft.Body,
		CreatedAt:   draft.CreatedAt,
		Pending:     true,
	}
	e.pending = append(e.pending, pendingSend{draft: draft, msg: msg})

	counterpart := draft.RecipientID
	conv := e.byCounterpart[counterpart]
	if conv == nil {
		label := e.projector.label(ctx, counterpart, e.labels())
		e.byCounterpart[counterpart] = buildConversation(counterpart, e.viewerID, label, []Message{msg})
		e.order = append([]string{counterpart}, e.order...)
		return msg
	}

	msgs := make([]Message, 0, len(conv.Messages)+1)
	msgs = append(msgs, conv.Messages...)
	msgs = append(msgs, msg)
	e.byCounterpart[counterpart] = buildConversation(counterpart, e.viewerID, conv.CounterpartLabel, msgs)
	return msg
}

// ConfirmSend swaps the placeholder for the stored message. Calling it again,
// or after a store echo already replaced the placeholder, changes nothing.
func (e *Engine) ConfirmSend(ctx context.Context, placeholderID string, stored Message) bool {
	delete(e.claimed, placeholderID)
	removed := e.removePlaceholder(placeholderID)
	added := e.applyIncoming(ctx, stored, false)
	return removed || added
}

// RollbackSend removes an unconfirmed placeholder and returns its draft for a retry.
// ok is false when there is no such placeholder; if a store echo already replaced
// it, the stored message is returned as claimedBy.
func (e *Engine) RollbackSend(placeholderID string) (draft Draft, claimedBy *Message, ok bool) {
	if stored, found := e.claimed[placeholderID]; found {
		delete(e.claimed, placeholderID)
		return Draft{}, &stored, false
	}
	for _, p := range e.pending {
		if p.msg.ID == placeholderID {
			draft = p.draft
			break
		}
	}
	if !e.removePlaceholder(placeholderID) {
		return Draft{}, nil, false
	}
	return draft, nil, true
}

// removePlaceholder drops a pending placeholder from the pending set and its thread.
func (e *Engine) removePlaceholder(placeholderID string) bool {
	idx := -1
	for i, p := range e.pending {
		if p.msg.ID == placeholderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	p := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)

	conv := e.byCounterpart[p.draft.RecipientID]
	if conv == nil {
		return true
	}
	msgs := make([]Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		if m.ID != placeholderID {
			msgs = append(msgs, m)
		}
	}
	// A thread emptied by the rollback stays in place so the viewer can retry.
	e.byCounterpart[p.draft.RecipientID] = rebuild(conv, conv.CounterpartID, e.viewerID, conv.CounterpartLabel, msgs)
	return true
}

// rebuild is buildConversation that keeps prev's item ref when msgs carry none.
func rebuild(prev *Conversation, counterpartID, viewerID, label string, msgs []Message) *Conversation {
	conv := buildConversation(counterpartID, viewerID, label, msgs)
	if conv.ItemRef == "" && prev != nil {
		conv.ItemRef = prev.ItemRef
	}
	return conv
}

// withoutPlaceholders returns c minus its pending messages; LoadAll re-adds the live ones.
func withoutPlaceholders(c *Conversation, viewerID string) *Conversation {
	msgs := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if !m.Pending {
			msgs = append(msgs, m)
		}
	}
	if len(msgs) == len(c.Messages) {
		return c
	}
	return rebuild(c, c.CounterpartID, viewerID, c.CounterpartLabel, msgs)
}

// matchPending returns the index of the oldest placeholder that msg is the stored copy of.
func (e *Engine) matchPending(msg Message) int {
	for i, p := range e.pending {
		if p.draft.RecipientID == msg.RecipientID && p.draft.Body == msg.Body && p.draft.ItemRef == msg.ItemRef {
			return i
		}
	}
	return -1
}

// claimFromPayload lets messages that first appear in a bulk payload replace the
// placeholders they were sent for. Only ids the engine has never seen qualify, so
// an older identical message cannot claim a fresh placeholder.
func (e *Engine) claimFromPayload(byCounterpart map[string]*Conversation, knownIDs map[string]struct{}) {
	if len(e.pending) == 0 {
		return
	}
	used := make(map[string]struct{})
	kept := e.pending[:0]
	for _, p := range e.pending {
		var match *Message
		if c := byCounterpart[p.draft.RecipientID]; c != nil {
			for i := range c.Messages {
				m := c.Messages[i]
				if m.SenderID != e.viewerID || m.Body != p.draft.Body || m.ItemRef != p.draft.ItemRef {
					continue
				}
				if _, seen := knownIDs[m.ID]; seen {
					continue
				}
				if _, taken := used[m.ID]; taken {
					continue
				}
				match = &c.Messages[i]
				break
			}
		}
		if match == nil {
			kept = append(kept, p)
			continue
		}
		used[match.ID] = struct{}{}
		e.claimed[p.msg.ID] = *match
		e.log.Debug().Str("placeholder_id", p.msg.ID).Str("message_id", match.ID).Msg("placeholder claimed by refresh")
	}
	e.pending = kept
}

func (e *Engine) labels() map[string]string {
	out := make(map[string]string, len(e.byCounterpart))
	for id, c := range e.byCounterpart {
		out[id] = c.CounterpartLabel
	}
	return out
}

func (e *Engine) messageIDs() map[string]struct{} {
	out := make(map[string]struct{})
	for _, c := range e.byCounterpart {
		for _, m := range c.Messages {
			out[m.ID] = struct{}{}
		}
	}
	return out
}
