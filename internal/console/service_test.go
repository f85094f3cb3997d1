package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mtx-console/internal/mediamtx"
	"mtx-console/internal/mediamtx/mediamtxtest"
)

func TestConsole_camera1_scenario(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	srv.AddConfig("camera1", map[string]any{"source": "publisher"})
	srv.AddConfig("all_others", map[string]any{"source": "publisher"})
	c := newTestConsole(t, srv)
	ctx := context.Background()

	loggedIn(t, c)
	d, err := c.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Principal != "admin" || d.Summary != (Summary{TotalPaths: 1}) {
		t.Fatalf("after login: principal=%q summary=%+v", d.Principal, d.Summary)
	}

	srv.SetLive("camera1", true, "rtmpConn", 0)
	d, err = c.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	cam, _ := c.Path("camera1")
	if !cam.IsLive || cam.ReaderCount != 0 || d.Summary.ActivePaths != 1 {
		t.Fatalf("publisher started: %+v summary=%+v", cam, d.Summary)
	}

	srv.SetLive("camera1", true, "rtmpConn", 1)
	d, _ = c.Refresh(ctx)
	cam, _ = c.Path("camera1")
	if cam.ReaderCount != 1 || d.Summary.TotalReaders != 1 {
		t.Fatalf("viewer connected: %+v summary=%+v", cam, d.Summary)
	}

	// A delete while another delete of the same name is pending joins it;
	// a different mutation is rejected.
	release := srv.Hold("/v3/config/paths/delete/")
	before := srv.Requests()
	errc := make(chan error, 2)
	go func() { errc <- c.DeletePath(ctx, "camera1") }()
	waitFor(t, "delete to reach the server", func() bool { return srv.Requests() > before })
	go func() { errc <- c.DeletePath(ctx, "camera1") }()
	waitFor(t, "second delete to join", func() bool { return holders(c.flows, "camera1") == 2 })

	err = c.UpdatePath(ctx, "camera1", mediamtx.PathConfigPatch{Source: mediamtx.String("rtsp://x")})
	if !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("expected concurrent update to be rejected, got %v", err)
	}
	release()
	for i := 0; i < 2; i++ {
		if err := <-errc; err != nil {
			t.Fatalf("delete: %v", err)
		}
	}

	d, _ = c.Dashboard()
	if len(d.Paths) != 0 || d.Summary.TotalPaths != 0 {
		t.Errorf("dangling config after confirmed delete: %+v", d.Paths)
	}
	if names := srv.ConfigNames(); len(names) != 1 || names[0] != "all_others" {
		t.Errorf("unexpected server configs %v", names)
	}
}

func TestConsole_Login_rejected_stores_nothing(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	c := newTestConsole(t, srv)

	err := c.Login(context.Background(), "admin", "wrong")
	if !errors.Is(err, mediamtx.Unauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if c.Authenticated() || c.Principal() != "" {
		t.Error("rejected login must not store a credential")
	}
	if _, err := c.Dashboard(); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestConsole_Login_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := mediamtx.NewClient(url, nil, mediamtx.WithoutRetry())
	c := New(client, NewInMemoryRepository(), Options{}, testLogger(), nil)
	defer c.Close()

	err := c.Login(context.Background(), "admin", "secret")
	if !errors.Is(err, mediamtx.Unreachable) {
		t.Fatalf("expected Unreachable, got %v", err)
	}
	if c.Authenticated() {
		t.Error("unreachable login must not store a credential")
	}
}

func TestConsole_Logout(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	srv.AddConfig("camera1", map[string]any{"source": "publisher"})
	c := newTestConsole(t, srv)
	loggedIn(t, c)

	c.Logout()

	if c.Authenticated() {
		t.Error("still authenticated after logout")
	}
	if _, err := c.Path("camera1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, ok := c.repo.Snapshot(); ok {
		t.Error("snapshot should be dropped at logout")
	}
	if err := c.DeletePath(context.Background(), "camera1"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("mutation after logout: expected ErrNotAuthenticated, got %v", err)
	}
}

func TestConsole_mutation_errors_leave_view_unchanged(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	srv.AddConfig("camera1", map[string]any{"source": "publisher"})
	c := newTestConsole(t, srv)
	loggedIn(t, c)
	before, _ := c.Dashboard()

	err := c.CreatePath(context.Background(), mediamtx.PathConfig{Name: "camera1", Source: "publisher"})
	if !errors.Is(err, mediamtx.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	err = c.UpdatePath(context.Background(), "ghost", mediamtx.PathConfigPatch{Source: mediamtx.String("x")})
	if !errors.Is(err, mediamtx.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	after, _ := c.Dashboard()
	if after.FetchedAt != before.FetchedAt || len(after.Paths) != len(before.Paths) {
		t.Error("failed mutations must not touch the view")
	}
}

func TestConsole_Create_visible_immediately(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	c := newTestConsole(t, srv)
	loggedIn(t, c)

	err := c.CreatePath(context.Background(), mediamtx.PathConfig{Name: "camera2", Source: "rtsp://cam/2", MaxReaders: 0})
	if err != nil {
		t.Fatalf("CreatePath: %v", err)
	}
	p, err := c.Path("camera2")
	if err != nil {
		t.Fatalf("created path not in view after forced refresh: %v", err)
	}
	if p.Config.Source != "rtsp://cam/2" {
		t.Errorf("unexpected config %+v", p.Config)
	}
}

func TestConsole_Playback(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	srv.AddConfig("site/camera1", map[string]any{"source": "publisher"})
	c := newTestConsole(t, srv)
	loggedIn(t, c)

	pb, err := c.Playback("site/camera1")
	if err != nil {
		t.Fatalf("Playback: %v", err)
	}
	if pb.URL != testHLSURL+"/site/camera1/index.m3u8" || pb.Live || pb.Action != PlaybackStop {
		t.Errorf("unexpected idle playback %+v", pb)
	}

	srv.SetLive("site/camera1", true, "rtspSession", 0)
	_, _ = c.Refresh(context.Background())
	pb, _ = c.Playback("site/camera1")
	if !pb.Live || pb.Action != PlaybackStart {
		t.Errorf("unexpected live playback %+v", pb)
	}

	if _, err := c.Playback("missing"); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("expected ErrPathNotFound, got %v", err)
	}
}

func TestConsole_Logout_during_mutation_leaves_state_alone(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	srv.AddConfig("camera1", map[string]any{"source": "publisher"})
	c := newTestConsole(t, srv)
	loggedIn(t, c)

	release := srv.Hold("/v3/config/paths/delete/")
	before := srv.Requests()
	errc := make(chan error, 1)
	go func() { errc <- c.DeletePath(context.Background(), "camera1") }()
	waitFor(t, "delete to reach the server", func() bool { return srv.Requests() > before })

	c.Logout()
	atLogout := srv.Requests()
	release()
	if err := <-errc; err != nil {
		t.Fatalf("delete sent before logout should still be confirmed: %v", err)
	}

	if got := srv.Requests(); got != atLogout {
		t.Errorf("control plane contacted after logout: %d requests, want %d", got, atLogout)
	}
	st := c.repo.Status()
	if st.Phase != PhaseIdle || st.ConsecutiveFailures != 0 || st.LastError != "" || st.HasSnapshot {
		t.Errorf("logged-out state was modified: %+v", st)
	}
}

func TestConsole_Snapshot(t *testing.T) {
	srv := mediamtxtest.New("admin", "secret")
	defer srv.Close()
	srv.AddConfig("camera1", map[string]any{"source": "publisher"})
	srv.SetLive("camera1", true, "rtmpConn", 2)
	c := newTestConsole(t, srv)

	if _, ok := c.Snapshot(); ok {
		t.Fatal("no snapshot expected before login")
	}
	loggedIn(t, c)

	snap, ok := c.Snapshot()
	if !ok {
		t.Fatal("expected a snapshot after the first poll")
	}
	d, _ := c.Dashboard()
	if snap.Summary != d.Summary || len(snap.Paths) != 1 || snap.Paths[0].ReaderCount != 2 {
		t.Errorf("snapshot %+v does not match dashboard %+v", snap, d)
	}
}

func holders(w *Workflows, name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.inflight[name]; ok {
		return m.holders
	}
	return 0
}
