package console

import (
	"errors"
	"sync"
	"time"

	"mtx-console/internal/mediamtx"
)

// Repository defines the concurrency-safe contract for the reconciled view.
// Writers tag every result with the epoch they started in; a result from an
// older epoch is discarded so canceled cycles never mutate state.
type Repository interface {
	// Epoch returns the current epoch.
	Epoch() uint64

	// BeginCycle marks a cycle as fetching if epoch is still current.
	BeginCycle(epoch uint64) bool

	// AbortCycle restores the phase from before BeginCycle when a cycle is
	// abandoned without a result.
	AbortCycle(epoch uint64)

	// Apply merges one cycle's fetch results. A failed side falls back to its
	// last good collection; if either side has never succeeded no snapshot is
	// published. ErrStaleEpoch is returned when the result is discarded.
	Apply(epoch uint64, res CycleResult) (Snapshot, bool, error)

	// Snapshot returns the last published snapshot.
	Snapshot() (Snapshot, bool)

	// Status returns the polling health.
	Status() Status

	// Invalidate advances the epoch so in-flight results are dropped. With
	// reset, the snapshot and fallback collections are cleared as well.
	Invalidate(reset bool)

	// Subscribe returns a channel receiving every published snapshot. Slow
	// subscribers only see the latest one. The func unsubscribes.
	Subscribe() (<-chan Snapshot, func())
}

// ErrStaleEpoch is returned when a cycle result arrives after cancellation.
var ErrStaleEpoch = errors.New("cycle result discarded: owner canceled")

// CycleResult is what one polling cycle fetched from the control plane.
type CycleResult struct {
	Configs   []mediamtx.PathConfig
	ConfigErr error
	Live      []mediamtx.LivePath
	LiveErr   error
	CatchAll  string
	At        time.Time
}

// Err joins both fetch errors.
func (r CycleResult) Err() error {
	return errors.Join(r.ConfigErr, r.LiveErr)
}

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	store  Store
	epoch  uint64
	seq    uint64
	snap   Snapshot
	have   bool
	status Status
	prev   Phase
	subs   map[chan Snapshot]struct{}
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{
		store:  store,
		status: Status{Phase: PhaseIdle},
		prev:   PhaseIdle,
		subs:   make(map[chan Snapshot]struct{}),
	}
}

// Epoch implements Repository.Epoch.
func (r *InMemoryRepository) Epoch() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.epoch
}

// BeginCycle implements Repository.BeginCycle.
func (r *InMemoryRepository) BeginCycle(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch != r.epoch {
		return false
	}
	if r.status.Phase != PhaseFetching {
		r.prev = r.status.Phase
	}
	r.status.Phase = PhaseFetching
	return true
}

// AbortCycle implements Repository.AbortCycle.
func (r *InMemoryRepository) AbortCycle(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if epoch == r.epoch && r.status.Phase == PhaseFetching {
		r.status.Phase = r.prev
	}
}

// Apply implements Repository.Apply.
func (r *InMemoryRepository) Apply(epoch uint64, res CycleResult) (Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return Snapshot{}, false, ErrStaleEpoch
	}

	if res.ConfigErr == nil {
		r.store.SetConfigs(res.Configs)
	}
	if res.LiveErr == nil {
		r.store.SetLivePaths(res.Live)
	}

	err := res.Err()
	if err != nil {
		r.status.Phase = PhaseFailed
		r.status.LastError = err.Error()
		r.status.ConsecutiveFailures++
	} else {
		r.status.Phase = PhaseMerged
		r.status.LastError = ""
		r.status.ConsecutiveFailures = 0
		r.status.LastSuccess = res.At
	}

	configs, okConfigs := r.store.Configs()
	live, okLive := r.store.LivePaths()
	if !okConfigs || !okLive {
		// No earlier good collection to fall back to.
		return Snapshot{}, false, err
	}

	// A stale snapshot keeps the time of the last complete fetch.
	fetchedAt := res.At
	if err != nil && r.have {
		fetchedAt = r.snap.FetchedAt
	}

	paths, unmatched := Merge(configs, live, res.CatchAll)
	r.seq++
	r.snap = Snapshot{
		Paths:         paths,
		Summary:       Summarize(paths),
		UnmatchedLive: unmatched,
		FetchedAt:     fetchedAt,
		Stale:         err != nil,
		Seq:           r.seq,
	}
	r.have = true
	r.status.HasSnapshot = true

	for ch := range r.subs {
		publishLatest(ch, r.snap)
	}
	return r.snap, true, err
}

// Snapshot implements Repository.Snapshot.
func (r *InMemoryRepository) Snapshot() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap, r.have
}

// Status implements Repository.Status.
func (r *InMemoryRepository) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Invalidate implements Repository.Invalidate.
func (r *InMemoryRepository) Invalidate(reset bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
	if r.status.Phase == PhaseFetching {
		r.status.Phase = r.prev
	}
	if !reset {
		return
	}
	r.store.Reset()
	r.snap = Snapshot{}
	r.have = false
	r.status = Status{Phase: PhaseIdle}
	r.prev = PhaseIdle
}

// Subscribe implements Repository.Subscribe.
func (r *InMemoryRepository) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, ch)
			r.mu.Unlock()
		})
	}
}

// publishLatest replaces any undelivered snapshot with snap.
// Caller must hold r.mu in write mode.
func publishLatest(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}
