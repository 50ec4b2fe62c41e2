package timer

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/roulette/logger"
)

// Ticker is anything advanced once per heartbeat.
type Ticker interface {
	Tick(now time.Time)
}

// TickerFunc adapts a function to Ticker.
type TickerFunc func(now time.Time)

func (f TickerFunc) Tick(now time.Time) { f(now) }

// Heartbeat is the process-wide game clock. Each beat calls Tick on every target
// in registration order; targets must not block.
type Heartbeat struct {
	period  time.Duration
	targets []Ticker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mutex   sync.Mutex
}

func NewHeartbeat(period time.Duration, targets ...Ticker) *Heartbeat {
	return &Heartbeat{period: period, targets: targets}
}

// Start begins beating until ctx ends or Stop is called. Starting twice is a no-op.
func (h *Heartbeat) Start(ctx context.Context) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.cancel != nil {
		return
	}

	ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.run(ctx)
	logger.Log.Infof("heartbeat started, period %v, %d targets", h.period, len(h.targets))
}

// Stop ends the beat loop and waits for the current beat to finish.
func (h *Heartbeat) Stop() {
	h.mutex.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mutex.Unlock()

	if cancel != nil {
		cancel()
		h.wg.Wait()
	}
}

// Fire runs one beat synchronously. Tests drive the game with it instead of the wall clock.
func (h *Heartbeat) Fire(now time.Time) {
	for _, target := range h.targets {
		target.Tick(now)
	}
}

func (h *Heartbeat) run(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			h.Fire(now)
		case <-ctx.Done():
			return
		}
	}
}
