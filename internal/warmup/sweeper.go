package warmup

import (
	"context"
	"log"
	"time"

	"github.com/diogenesmendes01/email-gateway/internal/pkg/distlock"
)

// Sweeper periodically runs the completion sweep so domains graduate
// even when nothing queries their limit.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	lock     *distlock.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewSweeper creates a sweeper. lock may be nil for single-instance
// deployments; with a lock, only one instance sweeps per tick. For
// production use an interval of one hour or shorter.
func NewSweeper(svc *Service, interval time.Duration, lock *distlock.Mutex) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, lock: lock}
}

// Start begins the sweep loop in a background goroutine.
func (sw *Sweeper) Start() {
	sw.ctx, sw.cancel = context.WithCancel(context.Background())
	go func() {
		log.Printf("[warmup] sweeper running every %s", sw.interval)

		sw.tick()

		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sw.tick()
			case <-sw.ctx.Done():
				log.Printf("[warmup] sweeper stopped")
				return
			}
		}
	}()
}

// Stop halts the sweep loop.
func (sw *Sweeper) Stop() {
	if sw.cancel != nil {
		sw.cancel()
	}
}

func (sw *Sweeper) tick() {
	ctx, cancel := context.WithTimeout(sw.ctx, 2*time.Minute)
	defer cancel()

	if sw.lock != nil {
		ok, err := sw.lock.TryLock(ctx)
		if err != nil {
			log.Printf("[warmup] sweep lock unavailable: %v", err)
			return
		}
		if !ok {
			return
		}
		defer sw.lock.Unlock(ctx)
	}

	n, err := sw.svc.SweepCompleted(ctx)
	if err != nil {
		log.Printf("[warmup] sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[warmup] sweep graduated %d domains to production", n)
	}
}
