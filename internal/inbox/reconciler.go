package inbox

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Reconciler serializes every engine and selection mutation through one goroutine.
// Poll results, push events and sends are submitted as commands and applied in
// arrival order.
type Reconciler struct {
	engine    *Engine
	selection Selection
	log       zerolog.Logger

	commands chan *Command
	done     chan struct{}
	version  uint64

	mu       sync.Mutex
	watchers map[chan View]struct{}
}

// NewReconciler wraps engine. Call Run before submitting commands.
func NewReconciler(engine *Engine, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		engine:   engine,
		log:      logger,
		commands: make(chan *Command, 32),
		done:     make(chan struct{}),
		watchers: make(map[chan View]struct{}),
	}
}

// Run processes commands until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	defer func() {
		close(r.done)
		r.mu.Lock()
		for ch := range r.watchers {
			close(ch)
			delete(r.watchers, ch)
		}
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.commands:
			r.handle(ctx, cmd)
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, cmd *Command) {
	var res Result

	switch cmd.Kind {
	case CommandLoadAll:
		r.engine.LoadAll(ctx, cmd.Messages)
		res.Changed = true
	case CommandIncoming:
		res.Changed = r.engine.ApplyIncoming(ctx, cmd.Message)
	case CommandOptimisticSend:
		msg := r.engine.ApplyOptimisticSend(ctx, cmd.Draft)
		res.Message = &msg
		res.Changed = true
	case CommandConfirmSend:
		res.Changed = r.engine.ConfirmSend(ctx, cmd.PlaceholderID, cmd.Message)
	case CommandRollbackSend:
		draft, claimedBy, ok := r.engine.RollbackSend(cmd.PlaceholderID)
		res.Draft = draft
		res.Message = claimedBy
		res.Changed = ok
	case CommandSelect:
		res.Changed = r.selection.Select(cmd.CounterpartID)
	case CommandClearSelection:
		_, wasOpen := r.selection.Active()
		r.selection.Clear()
		res.Changed = wasOpen
	case CommandSnapshot:
	default:
		r.log.Warn().Int("kind", int(cmd.Kind)).Msg("unknown command")
	}

	if res.Changed {
		r.version++
	}
	res.View = r.view()
	if res.Changed {
		r.publish(res.View)
	}

	if cmd.reply != nil {
		cmd.reply <- res
	}
}

func (r *Reconciler) view() View {
	convs := r.engine.Conversations()
	active, _ := r.selection.Active()
	return View{
		Version:       r.version,
		Conversations: convs,
		ActiveID:      active,
		Current:       r.selection.Current(convs),
		Pending:       r.engine.Pending(),
	}
}

// publish hands v to every watcher, dropping it for watchers that are behind.
func (r *Reconciler) publish(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for ch := range r.watchers {
		select {
		case ch <- v:
		default:
			// Drop if slow consumer; Snapshot always has the latest view.
		}
	}
}

// Watch returns a channel of views published after each state change and a
// function that stops the subscription.
func (r *Reconciler) Watch(buffer int) (<-chan View, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan View, buffer)

	r.mu.Lock()
	select {
	case <-r.done:
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	r.watchers[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.watchers[ch]; ok {
				delete(r.watchers, ch)
				close(ch)
			}
		})
	}
}

// Submit enqueues cmd and waits for its result.
func (r *Reconciler) Submit(ctx context.Context, cmd *Command) (Result, error) {
	cmd.reply = make(chan Result, 1)

	select {
	case r.commands <- cmd:
	case <-r.done:
		return Result{}, ErrStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-r.done:
		// The loop may have answered just before exiting.
		select {
		case res := <-cmd.reply:
			return res, nil
		default:
			return Result{}, ErrStopped
		}
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// LoadAll replaces state with messages.
func (r *Reconciler) LoadAll(ctx context.Context, messages []Message) (View, error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandLoadAll, Messages: messages})
	return res.View, err
}

// Incoming merges one message; changed is false for duplicates.
func (r *Reconciler) Incoming(ctx context.Context, msg Message) (changed bool, err error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandIncoming, Message: msg})
	return res.Changed, err
}

// OptimisticSend shows draft at once and returns its placeholder.
func (r *Reconciler) OptimisticSend(ctx context.Context, draft Draft) (Message, error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandOptimisticSend, Draft: draft})
	if err != nil {
		return Message{}, err
	}
	return *res.Message, nil
}

// ConfirmSend replaces placeholderID with stored.
func (r *Reconciler) ConfirmSend(ctx context.Context, placeholderID string, stored Message) error {
	_, err := r.Submit(ctx, &Command{Kind: CommandConfirmSend, PlaceholderID: placeholderID, Message: stored})
	return err
}

// RollbackSend drops placeholderID. See Engine.RollbackSend.
func (r *Reconciler) RollbackSend(ctx context.Context, placeholderID string) (Draft, *Message, bool, error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandRollbackSend, PlaceholderID: placeholderID})
	return res.Draft, res.Message, res.Changed, err
}

// Select opens counterpartID's thread.
func (r *Reconciler) Select(ctx context.Context, counterpartID string) (View, error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandSelect, CounterpartID: counterpartID})
	return res.View, err
}

// ClearSelection closes the open thread.
func (r *Reconciler) ClearSelection(ctx context.Context) (View, error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandClearSelection})
	return res.View, err
}

// Snapshot returns the current view.
func (r *Reconciler) Snapshot(ctx context.Context) (View, error) {
	res, err := r.Submit(ctx, &Command{Kind: CommandSnapshot})
	return res.View, err
}
