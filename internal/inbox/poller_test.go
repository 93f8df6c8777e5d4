package inbox

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerStartStop(t *testing.T) {
	var calls atomic.Int32
	p := NewPoller(10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return errBoom
	}, zerolog.Nop())

	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrPollerAlreadyRunning)
	assert.True(t, p.IsRunning())

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.ErrorIs(t, p.Stop(), ErrPollerNotRunning)

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(0, func(context.Context) error { return nil }, zerolog.Nop())
	assert.Equal(t, DefaultPollInterval, p.interval)
}
