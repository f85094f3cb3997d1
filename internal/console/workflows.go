package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"mtx-console/internal/mediamtx"
	"mtx-console/internal/platform/metrics"

	"golang.org/x/sync/singleflight"
)

// ErrMutationInFlight is returned when a different mutation for the same path
// is still running.
var ErrMutationInFlight = errors.New("another change to this path is in progress")

// Mutator is the write side of the control plane.
type Mutator interface {
	CreatePathConfig(ctx context.Context, cfg mediamtx.PathConfig) error
	UpdatePathConfig(ctx context.Context, name string, patch mediamtx.PathConfigPatch) error
	DeletePathConfig(ctx context.Context, name string) error
}

// mutationTimeout bounds a mutation and its follow-up refresh once callers
// stop waiting for it.
const mutationTimeout = time.Minute

// Refresher forces an out-of-band reconciliation for the session identified by
// epoch. A refresh for an ended session returns ErrStaleEpoch without polling.
type Refresher interface {
	Epoch() uint64
	RefreshEpoch(ctx context.Context, epoch uint64) (Snapshot, error)
}

// Workflows runs create/update/delete against the control plane, one at a time
// per path name, and refreshes the reconciled view after each success.
type Workflows struct {
	api     Mutator
	refresh Refresher
	log     *slog.Logger
	metrics *metrics.Metrics

	group    singleflight.Group
	mu       sync.Mutex
	inflight map[string]*inflightMutation
	calls    uint64
}

// inflightMutation is owned by the running call; holders counts the callers
// waiting on it.
type inflightMutation struct {
	key     string
	call    string
	holders int
}

// NewWorkflows returns Workflows writing through api and refreshing via refresh.
// Metrics may be nil.
func NewWorkflows(api Mutator, refresh Refresher, log *slog.Logger, m *metrics.Metrics) *Workflows {
	return &Workflows{
		api:      api,
		refresh:  refresh,
		log:      log.With(slog.String("component", "workflows")),
		metrics:  m,
		inflight: make(map[string]*inflightMutation),
	}
}

// Create adds a path config.
func (w *Workflows) Create(ctx context.Context, cfg mediamtx.PathConfig) error {
	return w.run(ctx, "create", cfg.Name, mediamtx.CreatePayload(cfg), func(ctx context.Context) error {
		return w.api.CreatePathConfig(ctx, cfg)
	})
}

// Update patches a path config.
func (w *Workflows) Update(ctx context.Context, name string, patch mediamtx.PathConfigPatch) error {
	return w.run(ctx, "update", name, mediamtx.PatchPayload(patch), func(ctx context.Context) error {
		return w.api.UpdatePathConfig(ctx, name, patch)
	})
}

// Delete removes a path config.
func (w *Workflows) Delete(ctx context.Context, name string) error {
	return w.run(ctx, "delete", name, nil, func(ctx context.Context) error {
		return w.api.DeletePathConfig(ctx, name)
	})
}

// run executes fn unless another mutation holds name. An identical mutation
// (same op, name and payload) joins the running one instead of being rejected.
// The shared call is detached from every caller: a caller whose ctx ends gets
// ctx.Err() while the call finishes for the others.
func (w *Workflows) run(ctx context.Context, op, name string, payload any, fn func(context.Context) error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	key := op + "\x00" + name + "\x00" + string(body)
	epoch := w.refresh.Epoch()

	w.mu.Lock()
	cur, ok := w.inflight[name]
	if ok && cur.key != key {
		w.mu.Unlock()
		w.log.Info("mutation rejected, path busy", slog.String("op", op), slog.String("path", name))
		w.observe(op, ErrMutationInFlight)
		return ErrMutationInFlight
	}
	if !ok {
		// The call id is unique per entry so a new entry never attaches to a
		// call that is already returning.
		w.calls++
		cur = &inflightMutation{key: key, call: key + "\x00" + strconv.FormatUint(w.calls, 10)}
		w.inflight[name] = cur
	}
	cur.holders++
	// Registered under w.mu: the entry is only removed inside the call, so a
	// caller that found it always joins that call.
	ch := w.group.DoChan(cur.call, func() (any, error) {
		defer w.finish(name, cur)
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mutationTimeout)
		defer cancel()
		if err := fn(sctx); err != nil {
			return nil, err
		}
		w.refreshAfter(sctx, epoch, op, name)
		return nil, nil
	})
	w.mu.Unlock()
	defer w.leave(cur)

	var shared bool
	select {
	case res := <-ch:
		err, shared = res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
		w.log.Info("caller stopped waiting, mutation continues",
			slog.String("op", op),
			slog.String("path", name))
		w.observe(op, err)
		return err
	}

	if err != nil {
		w.log.Info("mutation failed",
			slog.String("op", op),
			slog.String("path", name),
			slog.String("kind", mediamtx.KindOf(err).String()),
			slog.String("error", err.Error()))
	} else {
		w.log.Info("mutation applied", slog.String("op", op), slog.String("path", name), slog.Bool("joined", shared))
	}
	w.observe(op, err)
	return err
}

// refreshAfter reconciles after a confirmed write, unless the session that
// issued it has ended. The write is confirmed; a failed refresh only makes the
// view stale.
func (w *Workflows) refreshAfter(ctx context.Context, epoch uint64, op, name string) {
	_, err := w.refresh.RefreshEpoch(ctx, epoch)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleEpoch):
		w.log.Debug("refresh after mutation skipped, session ended", slog.String("op", op), slog.String("path", name))
	default:
		w.log.Warn("refresh after mutation failed",
			slog.String("op", op),
			slog.String("path", name),
			slog.String("error", err.Error()))
	}
}

// finish frees name once the shared call is done.
func (w *Workflows) finish(name string, m *inflightMutation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[name] == m {
		delete(w.inflight, name)
	}
}

func (w *Workflows) leave(m *inflightMutation) {
	w.mu.Lock()
	m.holders--
	w.mu.Unlock()
}

func (w *Workflows) observe(op string, err error) {
	if w.metrics == nil {
		return
	}
	result := "success"
	switch {
	case errors.Is(err, ErrMutationInFlight):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	w.metrics.IncMutations(op, result)
}
