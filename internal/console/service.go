package console

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"mtx-console/internal/mediamtx"
	"mtx-console/internal/platform/metrics"
)

var (
	// ErrNotAuthenticated is returned when no operator is logged in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPathNotFound is returned when a path is not in the current view.
	ErrPathNotFound = errors.New("path not found")

	// ErrNoSnapshot is returned before the first successful poll.
	ErrNoSnapshot = errors.New("no snapshot yet")
)

// Options configures a Console.
type Options struct {
	HLSURL     string
	Reconciler ReconcilerConfig
	// HTTPClient is used for playlist probes; http.DefaultClient when nil.
	HTTPClient HTTPDoer
}

// Console ties one operator session to the polling loop and the mutation
// workflows. It holds at most one credential at a time.
type Console struct {
	client    *mediamtx.Client
	creds     *mediamtx.CredentialStore
	repo      Repository
	rec       *Reconciler
	flows     *Workflows
	hlsURL    string
	probeHTTP HTTPDoer
	log       *slog.Logger

	mu       sync.Mutex
	stopPoll context.CancelFunc
	pollDone chan struct{}
}

// New returns a Console using client for every control-plane call. Metrics may be nil.
func New(client *mediamtx.Client, repo Repository, opts Options, log *slog.Logger, m *metrics.Metrics) *Console {
	rec := NewReconciler(client, repo, opts.Reconciler, log, m)
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Console{
		client:    client,
		creds:     client.Credentials(),
		repo:      repo,
		rec:       rec,
		flows:     NewWorkflows(client, rec, log, m),
		hlsURL:    strings.TrimRight(opts.HLSURL, "/"),
		probeHTTP: hc,
		log:       log.With(slog.String("component", "console")),
	}
}

// Login validates the credential against the control plane and, only if it is
// accepted, stores it and starts polling. Any previous session is replaced.
func (c *Console) Login(ctx context.Context, principal, secret string) error {
	cred := mediamtx.NewCredential(principal, secret)
	if err := c.client.Probe(ctx, cred); err != nil {
		c.log.Info("login rejected",
			slog.String("principal", principal),
			slog.String("kind", mediamtx.KindOf(err).String()))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollingLocked(true)
	c.creds.Store(cred)
	c.startPollingLocked()
	c.log.Info("operator logged in", slog.String("principal", principal))
	return nil
}

// Logout stops polling, drops in-flight results and clears the credential.
func (c *Console) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	principal := c.creds.Principal()
	c.stopPollingLocked(true)
	c.creds.Clear()
	if principal != "" {
		c.log.Info("operator logged out", slog.String("principal", principal))
	}
}

// Close stops polling but keeps the last snapshot. Used at shutdown.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopPollingLocked(false)
}

// Authenticated reports whether an operator is logged in.
func (c *Console) Authenticated() bool {
	return c.creds.IsAuthenticated()
}

// Principal returns the logged-in operator's name.
func (c *Console) Principal() string {
	return c.creds.Principal()
}

func (c *Console) startPollingLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopPoll = cancel
	c.pollDone = done
	go func() {
		defer close(done)
		_ = c.rec.Run(ctx)
	}()
}

// stopPollingLocked cancels the loop, invalidates in-flight results and waits
// for the loop to return. Caller must hold c.mu.
func (c *Console) stopPollingLocked(reset bool) {
	if c.stopPoll != nil {
		c.stopPoll()
		c.repo.Invalidate(reset)
		<-c.pollDone
		c.stopPoll = nil
		c.pollDone = nil
		return
	}
	c.repo.Invalidate(reset)
}

// Dashboard returns the current view without contacting the control plane.
func (c *Console) Dashboard() (Dashboard, error) {
	if !c.creds.IsAuthenticated() {
		return Dashboard{}, ErrNotAuthenticated
	}
	snap, _ := c.repo.Snapshot()
	return c.dashboard(snap), nil
}

// Refresh forces a reconciliation and returns the resulting view. The error of
// a failed cycle is returned alongside whatever view is still available.
func (c *Console) Refresh(ctx context.Context) (Dashboard, error) {
	if !c.creds.IsAuthenticated() {
		return Dashboard{}, ErrNotAuthenticated
	}
	_, err := c.rec.Refresh(ctx)
	snap, _ := c.repo.Snapshot()
	return c.dashboard(snap), err
}

func (c *Console) dashboard(snap Snapshot) Dashboard {
	paths := snap.Paths
	if paths == nil {
		paths = []MergedPathStatus{}
	}
	return Dashboard{
		Principal: c.creds.Principal(),
		Summary:   snap.Summary,
		Paths:     paths,
		Stale:     snap.Stale,
		FetchedAt: snap.FetchedAt,
		Status:    c.repo.Status(),
	}
}

// Path returns the merged status of one displayed path.
func (c *Console) Path(name string) (MergedPathStatus, error) {
	if !c.creds.IsAuthenticated() {
		return MergedPathStatus{}, ErrNotAuthenticated
	}
	snap, ok := c.repo.Snapshot()
	if !ok {
		return MergedPathStatus{}, ErrNoSnapshot
	}
	p, ok := snap.Path(name)
	if !ok {
		return MergedPathStatus{}, ErrPathNotFound
	}
	return p, nil
}

// CreatePath adds a path config and refreshes the view.
func (c *Console) CreatePath(ctx context.Context, cfg mediamtx.PathConfig) error {
	if !c.creds.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return c.flows.Create(ctx, cfg)
}

// UpdatePath patches a path config and refreshes the view.
func (c *Console) UpdatePath(ctx context.Context, name string, patch mediamtx.PathConfigPatch) error {
	if !c.creds.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return c.flows.Update(ctx, name, patch)
}

// DeletePath removes a path config and refreshes the view.
func (c *Console) DeletePath(ctx context.Context, name string) error {
	if !c.creds.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return c.flows.Delete(ctx, name)
}

// Playback returns the playback URL of a displayed path and whether a player
// should be running for it right now.
func (c *Console) Playback(name string) (Playback, error) {
	p, err := c.Path(name)
	if err != nil {
		return Playback{}, err
	}
	action := PlaybackStop
	if p.IsLive {
		action = PlaybackStart
	}
	return Playback{Name: p.Name, URL: PlaybackURL(c.hlsURL, p.Name), Live: p.IsLive, Action: action}, nil
}

// ProbePlayback fetches the path's playlist to check it is servable.
func (c *Console) ProbePlayback(ctx context.Context, name string) (PlaylistInfo, error) {
	pb, err := c.Playback(name)
	if err != nil {
		return PlaylistInfo{}, err
	}
	return ProbePlaylist(ctx, c.probeHTTP, pb.URL, c.creds.AuthorizationHeaderValue())
}

// NewPlaybackTracker returns a tracker building URLs for this console.
func (c *Console) NewPlaybackTracker() *PlaybackTracker {
	return NewPlaybackTracker(c.hlsURL)
}

// Subscribe streams every published snapshot until cancel is called.
func (c *Console) Subscribe() (<-chan Snapshot, func()) {
	return c.repo.Subscribe()
}

// Snapshot returns the last published snapshot, if any.
func (c *Console) Snapshot() (Snapshot, bool) {
	return c.repo.Snapshot()
}

// DashboardFor builds the operator view of snap.
func (c *Console) DashboardFor(snap Snapshot) Dashboard {
	return c.dashboard(snap)
}

// Summary returns the last snapshot's counters, for metrics scrapes.
func (c *Console) Summary() (Summary, bool) {
	snap, ok := c.Snapshot()
	return snap.Summary, ok
}
