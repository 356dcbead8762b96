package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/osse101/BrandishDuels_Go/internal/worker"
)

// Scheduler enqueues jobs on a worker pool at fixed intervals
type Scheduler struct {
	workerPool *worker.Pool
	clock      clockwork.Clock
	quit       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// New creates a new scheduler. A nil clock uses the wall clock.
func New(pool *worker.Pool, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		workerPool: pool,
		clock:      clock,
		quit:       make(chan struct{}),
	}
}

// Schedule runs job every interval until Stop. A tick that finds the pool queue full is skipped.
func (s *Scheduler) Schedule(name string, interval time.Duration, job worker.Job) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.Chan():
				if !s.workerPool.Enqueue(job) {
					slog.Warn(LogMsgTickSkipped, "job", name, "interval", interval)
				}
			case <-s.quit:
				return
			}
		}
	}()
}

// Stop stops all scheduled jobs. Jobs already queued still run on the pool.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	s.wg.Wait()
}
