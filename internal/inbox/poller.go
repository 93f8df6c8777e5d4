package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
)

// DefaultPollInterval matches how often the web client refreshed its inbox.
const DefaultPollInterval = 3 * time.Second

// Poller runs a refresh function on a fixed interval. Refreshes never overlap;
// ticks missed during a slow refresh are dropped by the ticker.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		refresh:  refresh,
		logger:   logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}

	var loopCtx context.Context
	loopCtx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.logger.Debug().Dur("interval", p.interval).Msg("poller starting")

	p.wg.Add(1)
	go p.runLoop(loopCtx)
	return nil
}

// Stop halts the polling loop and waits for an in-flight refresh.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug().Msg("poller stopped")
	return nil
}

// IsRunning returns true if the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn().Err(err).Msg("refresh failed")
	}
}
