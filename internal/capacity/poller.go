package capacity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher returns capacity snapshots.
type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Poller keeps the latest snapshot in memory, refreshing it on an interval.
// The last good snapshot is kept when a refresh fails.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *zerolog.Logger

	mu   sync.RWMutex
	last *Snapshot
}

func NewPoller(fetcher Fetcher, interval time.Duration, logger *zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{fetcher: fetcher, interval: interval, logger: logger}
}

// Run refreshes immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	snap, err := p.fetcher.Fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn().Err(err).Msg("capacity refresh failed")
		}
		return
	}
	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()
	p.logger.Debug().Int("readings", len(snap.Readings)).Msg("capacity refreshed")
}

// Latest returns the most recent snapshot, nil before the first success.
func (p *Poller) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Fetch serves the in-memory snapshot, falling through to the fetcher
// before the first refresh has landed.
func (p *Poller) Fetch(ctx context.Context) (*Snapshot, error) {
	if snap := p.Latest(); snap != nil {
		return snap, nil
	}
	return p.fetcher.Fetch(ctx)
}
