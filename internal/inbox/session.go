package inbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MessageSource is the store and realtime channel the inbox reads from and writes to.
type MessageSource interface {
	// FetchMessagesForParticipant returns every message userID sent or received.
	FetchMessagesForParticipant(ctx context.Context, userID string) ([]Message, error)
	// InsertMessage persists a message and returns it with its store-assigned id and time.
	InsertMessage(ctx context.Context, itemRef, senderID, recipientID, body string) (Message, error)
	// SubscribeToInserts calls onMessage for each new message userID sends or receives
	// until the returned function is called.
	SubscribeToInserts(ctx context.Context, userID string, onMessage func(Message)) (func(), error)
}

// SessionConfig tunes a Session. Zero values fall back to defaults.
type SessionConfig struct {
	PollInterval time.Duration
	// SendTimeout bounds one insert call; a send that exceeds it is rolled back.
	SendTimeout time.Duration
	WatchBuffer int
}

const defaultSendTimeout = 15 * time.Second

// Session keeps one viewer's inbox in sync: an initial load, a poll timer, a push
// subscription and the send flow, all feeding one Reconciler.
type Session struct {
	viewerID string
	source   MessageSource
	rec      *Reconciler
	poller   *Poller
	cfg      SessionConfig
	log      zerolog.Logger

	refreshMu sync.Mutex

	mu          sync.Mutex
	started     bool
	used        bool
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewSession builds a session for viewerID.
func NewSession(viewerID string, source MessageSource, resolver LabelResolver, cfg SessionConfig, logger zerolog.Logger) (*Session, error) {
	if strings.TrimSpace(viewerID) == "" {
		return nil, validationError("viewer", ErrMissingParticipant)
	}
	if source == nil {
		return nil, errors.New("message source is required")
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	logger = logger.With().Str("viewer_id", viewerID).Logger()
	engine := NewEngine(viewerID, NewProjector(resolver, logger), logger)

	s := &Session{
		viewerID: viewerID,
		source:   source,
		rec:      NewReconciler(engine, logger),
		cfg:      cfg,
		log:      logger,
	}
	s.poller = NewPoller(cfg.PollInterval, s.Refresh, logger)
	return s, nil
}

// ViewerID returns the session owner.
func (s *Session) ViewerID() string {
	return s.viewerID
}

// Start runs the reconciler, loads the inbox, subscribes to pushes and starts polling.
// A failed initial load or subscription is logged; polling keeps retrying.
// A session can be started once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	if s.used {
		s.mu.Unlock()
		return ErrStopped
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = true
	s.used = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.rec.Run(runCtx)
	}()

	if err := s.Refresh(runCtx); err != nil {
		s.log.Warn().Err(err).Msg("initial load failed")
	}

	unsubscribe, err := s.source.SubscribeToInserts(runCtx, s.viewerID, func(msg Message) {
		if _, err := s.rec.Incoming(runCtx, msg); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrStopped) {
			s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("apply pushed message")
		}
	})
	if err != nil {
		s.log.Warn().Err(&TransportError{Op: "subscribe", Err: err}).Msg("realtime unavailable, relying on polling")
	} else {
		s.mu.Lock()
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
	}

	if err := s.poller.Start(runCtx); err != nil {
		return err
	}
	s.log.Info().Msg("inbox session started")
	return nil
}

// Stop ends polling and the subscription and waits for the reconciler to exit.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	cancel := s.cancel
	s.mu.Unlock()

	if err := s.poller.Stop(); err != nil && !errors.Is(err, ErrPollerNotRunning) {
		s.log.Warn().Err(err).Msg("stop poller")
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	cancel()
	s.wg.Wait()
	s.log.Info().Msg("inbox session stopped")
}

// Refresh fetches the full message list and reloads state. On failure the
// previous state is kept. Refreshes are serialized so responses apply in issue order.
func (s *Session) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	msgs, err := s.source.FetchMessagesForParticipant(ctx, s.viewerID)
	if err != nil {
		return &TransportError{Op: "fetch messages", Err: err}
	}
	if _, err := s.rec.LoadAll(ctx, msgs); err != nil {
		return err
	}
	return nil
}

// Send replies in the thread with counterpartID, reusing the item the thread is about.
func (s *Session) Send(ctx context.Context, counterpartID, body string) (Message, error) {
	view, err := s.rec.Snapshot(ctx)
	if err != nil {
		return Message{}, err
	}
	var itemRef string
	for _, c := range view.Conversations {
		if c.CounterpartID == counterpartID {
			itemRef = c.ItemRef
			break
		}
	}
	return s.SendAbout(ctx, itemRef, counterpartID, body)
}

// SendAbout sends body to counterpartID about the listing itemRef. The message
// shows immediately; if the store rejects it the placeholder is removed and a
// *SendError carrying the draft is returned.
func (s *Session) SendAbout(ctx context.Context, itemRef, counterpartID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	counterpartID = strings.TrimSpace(counterpartID)
	itemRef = strings.TrimSpace(itemRef)

	switch {
	case counterpartID == "":
		return Message{}, validationError("recipient", ErrMissingParticipant)
	case counterpartID == s.viewerID:
		return Message{}, validationError("recipient", ErrSelfMessage)
	case body == "":
		return Message{}, validationError("body", ErrEmptyBody)
	case itemRef == "":
		return Message{}, validationError("item", ErrMissingItemRef)
	}

	placeholder, err := s.rec.OptimisticSend(ctx, Draft{
		ItemRef:     itemRef,
		SenderID:    s.viewerID,
		RecipientID: counterpartID,
		Body:        body,
	})
	if err != nil {
		return Message{}, err
	}

	insertCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	stored, insertErr := s.source.InsertMessage(insertCtx, itemRef, s.viewerID, counterpartID, body)
	cancel()

	// The placeholder must be settled even if the caller gave up.
	settleCtx := context.WithoutCancel(ctx)
	if insertErr == nil {
		if err := s.rec.ConfirmSend(settleCtx, placeholder.ID, stored); err != nil {
			return stored, err
		}
		return stored, nil
	}

	draft, claimedBy, rolledBack, err := s.rec.RollbackSend(settleCtx, placeholder.ID)
	if err != nil {
		return Message{}, err
	}
	if claimedBy != nil {
		// The store echo arrived before the insert call returned, so it did persist.
		s.log.Warn().Err(insertErr).Str("message_id", claimedBy.ID).Msg("insert reported failure after store echo")
		return *claimedBy, nil
	}
	if !rolledBack {
		draft = Draft{PlaceholderID: placeholder.ID, ItemRef: itemRef, SenderID: s.viewerID, RecipientID: counterpartID, Body: body}
	}
	s.log.Warn().Err(insertErr).Str("recipient_id", counterpartID).Msg("send rolled back")
	return Message{}, &SendError{Draft: draft, Err: &TransportError{Op: "insert message", Err: insertErr}}
}

// Select opens counterpartID's thread.
func (s *Session) Select(ctx context.Context, counterpartID string) (View, error) {
	return s.rec.Select(ctx, counterpartID)
}

// ClearSelection closes the open thread.
func (s *Session) ClearSelection(ctx context.Context) (View, error) {
	return s.rec.ClearSelection(ctx)
}

// View returns the current snapshot.
func (s *Session) View(ctx context.Context) (View, error) {
	return s.rec.Snapshot(ctx)
}

// Watch subscribes to state changes.
func (s *Session) Watch() (<-chan View, func()) {
	return s.rec.Watch(s.cfg.WatchBuffer)
}
