package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often the background sweeper evicts expired conversations.
const DefaultSweepInterval = 5 * time.Minute

type sweeper struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// StartSweeper evicts expired conversations every interval until ctx is
// cancelled or Close is called. Calling it again while running is a no-op.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	s.sweep.mu.Lock()
	defer s.sweep.mu.Unlock()
	if s.sweep.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.sweep.cancel = cancel
	s.sweep.running = true
	s.sweep.wg.Add(1)
	go s.sweepLoop(ctx, interval)

	s.logger.Info("conversation sweeper started", zap.Duration("interval", interval))
}

func (s *Store) sweepLoop(ctx context.Context, interval time.Duration) {
	defer s.sweep.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.EvictExpired()
		}
	}
}

// Close stops the sweeper and waits for it to exit.
func (s *Store) Close() error {
	s.sweep.mu.Lock()
	if !s.sweep.running {
		s.sweep.mu.Unlock()
		return nil
	}
	s.sweep.cancel()
	s.sweep.running = false
	s.sweep.mu.Unlock()

	s.sweep.wg.Wait()
	s.logger.Info("conversation sweeper stopped")
	return nil
}
