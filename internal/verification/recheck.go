package verification

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RecheckConfig holds background recheck configuration.
type RecheckConfig struct {
	Interval    time.Duration // how often the sweep runs
	MaxAge      time.Duration // records older than this are left to manual checks
	Concurrency int           // simultaneous proof lookups per sweep
	BatchLimit  int           // max records fetched per sweep
}

// recheckLister returns the unresolved records a sweep should re-check.
// *Repository satisfies this interface.
type recheckLister interface {
	ListUnresolved(ctx context.Context, cutoff time.Time, limit int) ([]*Verification, error)
}

// Rechecker periodically re-runs the proof check on pending and failed
// records so a domain owner who publishes their proof late still converges
// to verified without polling the API. Verified records are terminal and
// never swept.
type Rechecker struct {
	lister recheckLister
	svc    *Service
	cfg    RecheckConfig
	logger *zap.Logger
}

// NewRechecker creates a Rechecker.
func NewRechecker(lister recheckLister, svc *Service, cfg RecheckConfig, logger *zap.Logger) *Rechecker {
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 72 * time.Hour
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 10
	}
	if cfg.BatchLimit == 0 {
		cfg.BatchLimit = 500
	}
	return &Rechecker{lister: lister, svc: svc, cfg: cfg, logger: logger}
}

// Start runs the recheck loop until quit is signalled.
func (r *Rechecker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), sweepBudget(r.cfg.Interval))
			r.CheckAll(ctx)
			cancel()
		case <-quit:
			return
		}
	}
}

// sweepBudget bounds one sweep to just under the tick so consecutive sweeps
// never overlap, flooring at half the interval so a short interval still
// leaves a usable budget.
func sweepBudget(interval time.Duration) time.Duration {
	budget := interval - time.Second
	if budget < interval/2 {
		budget = interval / 2
	}
	return budget
}

// CheckAll re-checks every unresolved record in the sweep window with
// bounded concurrency. State transitions and webhook fan-out follow the
// same path as a manual check.
func (r *Rechecker) CheckAll(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.cfg.MaxAge)
	records, err := r.lister.ListUnresolved(ctx, cutoff, r.cfg.BatchLimit)
	if err != nil {
		r.logger.Error("recheck: list unresolved", zap.Error(err))
		return
	}
	if len(records) == 0 {
		return
	}

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, rec := range records {
		wg.Add(1)
		go func(v *Verification) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			scope := Scope{OrganizationID: v.OrganizationID}
			got, err := r.svc.Check(ctx, scope, v.ID)
			if err != nil {
				// Deleted underneath the sweep is fine.
				if !errors.Is(err, ErrNotFound) {
					r.logger.Warn("recheck: check failed",
						zap.String("id", v.ID.String()),
						zap.String("domain", v.Domain),
						zap.Error(err),
					)
				}
				return
			}
			if got.Status == StatusVerified && v.Status != StatusVerified {
				r.logger.Info("recheck: domain verified",
					zap.String("id", v.ID.String()),
					zap.String("domain", v.Domain),
				)
			}
		}(rec)
	}

	wg.Wait()
}
