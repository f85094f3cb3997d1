package console

import (
	"bytes"
	"encoding/json"
	"testing"

	"mtx-console/internal/mediamtx"
)

func cfgs(names ...string) []mediamtx.PathConfig {
	out := make([]mediamtx.PathConfig, 0, len(names))
	for _, n := range names {
		out = append(out, mediamtx.PathConfig{Name: n, Source: "publisher"})
	}
	return out
}

func livePath(name string, ready bool, readers int) mediamtx.LivePath {
	lp := mediamtx.LivePath{Name: name, ConfName: name, Ready: ready, BytesReceived: 100, BytesSent: 50}
	if ready {
		lp.Source = &mediamtx.PathSource{Type: "rtmpConn", ID: "x"}
	}
	for i := 0; i < readers; i++ {
		lp.Readers = append(lp.Readers, mediamtx.PathReader{Type: "hlsMuxer", ID: "r"})
	}
	return lp
}

func TestMerge_anchored_on_configs(t *testing.T) {
	configs := cfgs("camera1", "all_others", "camera2")
	live := []mediamtx.LivePath{
		livePath("camera1", true, 2),
		livePath("ephemeral", true, 1),
	}

	paths, unmatched := Merge(configs, live, "all_others")

	if len(paths) != 2 {
		t.Fatalf("expected 2 merged paths, got %d", len(paths))
	}
	if paths[0].Name != "camera1" || paths[1].Name != "camera2" {
		t.Errorf("config order not kept: %s, %s", paths[0].Name, paths[1].Name)
	}
	if !paths[0].IsLive || paths[0].ReaderCount != 2 || paths[0].SourceType != "rtmpConn" || paths[0].BytesReceived != 100 {
		t.Errorf("camera1 not joined with live state: %+v", paths[0])
	}
	if paths[1].IsLive || paths[1].ReaderCount != 0 || paths[1].SourceType != "" {
		t.Errorf("camera2 should be idle: %+v", paths[1])
	}
	if unmatched != 1 {
		t.Errorf("expected 1 unmatched live path, got %d", unmatched)
	}
}

func TestMerge_not_ready_is_not_live(t *testing.T) {
	paths, _ := Merge(cfgs("cam"), []mediamtx.LivePath{livePath("cam", false, 0)}, DefaultCatchAllPath)
	if paths[0].IsLive {
		t.Error("a live entry that is not ready must not be live")
	}
}

func TestMerge_every_config_once(t *testing.T) {
	configs := cfgs("a", "b", "a", "c")
	live := []mediamtx.LivePath{livePath("a", true, 0), livePath("a", false, 0)}

	paths, _ := Merge(configs, live, DefaultCatchAllPath)

	seen := map[string]int{}
	for _, p := range paths {
		seen[p.Name]++
	}
	for _, n := range []string{"a", "b", "c"} {
		if seen[n] != 1 {
			t.Errorf("%s appears %d times", n, seen[n])
		}
	}
	if !paths[0].IsLive {
		t.Error("first live entry for a name should win")
	}
}

func TestMerge_idempotent(t *testing.T) {
	configs := cfgs("camera1", "camera2", "all_others")
	live := []mediamtx.LivePath{livePath("camera2", true, 3), livePath("other", true, 0)}

	p1, u1 := Merge(configs, live, "all_others")
	p2, u2 := Merge(configs, live, "all_others")
	b1, _ := json.Marshal(p1)
	b2, _ := json.Marshal(p2)

	if !bytes.Equal(b1, b2) || u1 != u2 {
		t.Errorf("merge not idempotent:\n%s\n%s", b1, b2)
	}
}

func TestMerge_empty(t *testing.T) {
	paths, unmatched := Merge(nil, nil, DefaultCatchAllPath)
	if paths == nil || len(paths) != 0 || unmatched != 0 {
		t.Errorf("expected empty non-nil result, got %#v %d", paths, unmatched)
	}
}

func TestSummarize(t *testing.T) {
	paths, _ := Merge(cfgs("a", "b", "c"), []mediamtx.LivePath{
		livePath("a", true, 2),
		livePath("b", true, 0),
		livePath("c", false, 1),
	}, DefaultCatchAllPath)

	s := Summarize(paths)
	if s.TotalPaths != 3 || s.ActivePaths != 2 || s.TotalReaders != 3 {
		t.Errorf("unexpected summary %+v", s)
	}
}
