package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mtx-console/internal/mediamtx"
	"mtx-console/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPollInterval is how often both collections are polled.
	DefaultPollInterval = 10 * time.Second
	minCycleTimeout     = 5 * time.Second
)

// Source is the read side of the control plane.
type Source interface {
	ListPathConfigs(ctx context.Context) ([]mediamtx.PathConfig, error)
	ListLivePaths(ctx context.Context) ([]mediamtx.LivePath, error)
}

// ReconcilerConfig tunes the polling loop. Zero values pick defaults.
type ReconcilerConfig struct {
	Interval time.Duration
	// CycleTimeout bounds one cycle; defaults to 3x Interval, at least 5s.
	CycleTimeout time.Duration
	CatchAll     string
}

// Reconciler polls declared configs and live state, merges them, and publishes
// the result to a Repository. At most one cycle runs at a time.
type Reconciler struct {
	src          Source
	repo         Repository
	log          *slog.Logger
	metrics      *metrics.Metrics
	interval     time.Duration
	cycleTimeout time.Duration
	catchAll     string
	gate         chan struct{}
	now          func() time.Time
}

// NewReconciler returns a Reconciler reading from src and publishing to repo.
// Metrics may be nil.
func NewReconciler(src Source, repo Repository, cfg ReconcilerConfig, log *slog.Logger, m *metrics.Metrics) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = max(3*cfg.Interval, minCycleTimeout)
	}
	if cfg.CatchAll == "" {
		cfg.CatchAll = DefaultCatchAllPath
	}
	return &Reconciler{
		src:          src,
		repo:         repo,
		log:          log.With(slog.String("component", "reconciler")),
		metrics:      m,
		interval:     cfg.Interval,
		cycleTimeout: cfg.CycleTimeout,
		catchAll:     cfg.CatchAll,
		gate:         make(chan struct{}, 1),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Interval returns the polling interval.
func (r *Reconciler) Interval() time.Duration {
	return r.interval
}

// Run polls immediately and then on every tick until ctx is done. A tick that
// finds a cycle still in flight is skipped. Run returns after the last cycle
// it started has settled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.log.Info("polling started", slog.Duration("interval", r.interval))

	var wg sync.WaitGroup
	defer wg.Wait()

	tick := func() {
		if !r.tryAcquire() {
			r.log.Debug("tick skipped, cycle in flight")
			if r.metrics != nil {
				r.metrics.IncPollCycles("skipped")
			}
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.release()
			_, _ = r.cycle(ctx, r.repo.Epoch())
		}()
	}

	tick()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("polling stopped")
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

// Refresh runs an out-of-band cycle and returns its snapshot. If a cycle is in
// flight it waits for it to settle first, then runs a fresh one. The ticker is
// not reset. A non-nil error with ok snapshot means the snapshot is stale.
func (r *Reconciler) Refresh(ctx context.Context) (Snapshot, error) {
	if err := r.acquire(ctx); err != nil {
		return Snapshot{}, err
	}
	defer r.release()
	return r.cycle(ctx, r.repo.Epoch())
}

// Epoch returns the current session epoch of the repository.
func (r *Reconciler) Epoch() uint64 {
	return r.repo.Epoch()
}

// RefreshEpoch is Refresh for the session identified by epoch. Once that
// session has ended it returns ErrStaleEpoch without contacting the control
// plane.
func (r *Reconciler) RefreshEpoch(ctx context.Context, epoch uint64) (Snapshot, error) {
	if r.repo.Epoch() != epoch {
		return Snapshot{}, ErrStaleEpoch
	}
	if err := r.acquire(ctx); err != nil {
		return Snapshot{}, err
	}
	defer r.release()
	return r.cycle(ctx, epoch)
}

func (r *Reconciler) acquire(ctx context.Context) error {
	select {
	case r.gate <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reconciler) tryAcquire() bool {
	select {
	case r.gate <- struct{}{}:
		return true
	default:
		return false
	}
}

func (r *Reconciler) release() {
	<-r.gate
}

// cycle fetches both collections concurrently and applies them for epoch. The
// fetches do not share cancellation so one failing never aborts the other.
func (r *Reconciler) cycle(ctx context.Context, epoch uint64) (Snapshot, error) {
	if !r.repo.BeginCycle(epoch) {
		return Snapshot{}, ErrStaleEpoch
	}

	cctx, cancel := context.WithTimeout(ctx, r.cycleTimeout)
	defer cancel()

	res := CycleResult{CatchAll: r.catchAll}
	var g errgroup.Group
	g.Go(func() error {
		res.Configs, res.ConfigErr = r.src.ListPathConfigs(cctx)
		return nil
	})
	g.Go(func() error {
		res.Live, res.LiveErr = r.src.ListLivePaths(cctx)
		return nil
	})
	_ = g.Wait()
	res.At = r.now()

	if err := ctx.Err(); err != nil {
		r.repo.AbortCycle(epoch)
		r.log.Debug("cycle result discarded", slog.String("reason", err.Error()))
		return Snapshot{}, err
	}

	snap, ok, err := r.repo.Apply(epoch, res)
	if errors.Is(err, ErrStaleEpoch) {
		r.log.Debug("cycle result discarded", slog.Uint64("epoch", epoch))
		return Snapshot{}, err
	}

	st := r.repo.Status()
	if r.metrics != nil {
		if err != nil {
			r.metrics.IncPollCycles("failure")
		} else {
			r.metrics.IncPollCycles("success")
		}
		r.metrics.SetConsecutivePollFailures(st.ConsecutiveFailures)
		if ok {
			r.metrics.SetPathGauges(snap.Summary.TotalPaths, snap.Summary.ActivePaths, snap.Summary.TotalReaders)
		}
	}

	if err != nil {
		r.log.Warn("poll failed",
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", st.ConsecutiveFailures),
			slog.Bool("stale_snapshot", ok))
	} else {
		r.log.Debug("poll merged",
			slog.Int("paths", snap.Summary.TotalPaths),
			slog.Int("active", snap.Summary.ActivePaths),
			slog.Int("readers", snap.Summary.TotalReaders),
			slog.Int("unmatched_live", snap.UnmatchedLive))
	}
	if !ok {
		return Snapshot{}, err
	}
	return snap, err
}
