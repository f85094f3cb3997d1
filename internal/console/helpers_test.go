package console

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mtx-console/internal/mediamtx"
	"mtx-console/internal/mediamtx/mediamtxtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeSource serves fixed collections. When gate is set, every call blocks
// until it receives from gate or ctx is done.
type fakeSource struct {
	mu      sync.Mutex
	configs []mediamtx.PathConfig
	live    []mediamtx.LivePath
	cfgErr  error
	liveErr error

	gate        chan struct{}
	calls       atomic.Int32
	configCalls atomic.Int32
}

func (f *fakeSource) set(configs []mediamtx.PathConfig, live []mediamtx.LivePath) {
	f.mu.Lock()
	f.configs, f.live = configs, live
	f.mu.Unlock()
}

func (f *fakeSource) wait(ctx context.Context) error {
	f.calls.Add(1)
	if f.gate == nil {
		return nil
	}
	select {
	case <-f.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeSource) ListPathConfigs(ctx context.Context) ([]mediamtx.PathConfig, error) {
	f.configCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, &mediamtx.Error{Kind: mediamtx.Unreachable, Message: err.Error(), Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs, f.cfgErr
}

func (f *fakeSource) ListLivePaths(ctx context.Context) ([]mediamtx.LivePath, error) {
	if err := f.wait(ctx); err != nil {
		return nil, &mediamtx.Error{Kind: mediamtx.Unreachable, Message: err.Error(), Err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live, f.liveErr
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

const testHLSURL = "http://hls.local:8888"

func newTestConsole(t *testing.T, srv *mediamtxtest.Server) *Console {
	t.Helper()
	client := mediamtx.NewClient(srv.URL, mediamtx.NewCredentialStore(), mediamtx.WithoutRetry())
	c := New(client, NewInMemoryRepository(), Options{
		HLSURL:     testHLSURL,
		Reconciler: ReconcilerConfig{Interval: time.Hour},
	}, testLogger(), nil)
	t.Cleanup(c.Close)
	return c
}

// loggedIn logs in and waits for the first poll, so the background loop is
// idle for the rest of the test.
func loggedIn(t *testing.T, c *Console) {
	t.Helper()
	if err := c.Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("initial Refresh: %v", err)
	}
}
