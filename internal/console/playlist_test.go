package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:2
#EXT-X-MEDIA-SEQUENCE:42

#EXTINF:2.0,
/segments/42.ts
#EXTINF:1.5,
/segments/43.ts
`

const multivariantPlaylist = `#EXTM3U
#EXT-X-VERSION:9
#EXT-X-INDEPENDENT-SEGMENTS

#EXT-X-STREAM-INF:BANDWIDTH=1056000,CODECS="avc1.64001f",RESOLUTION=1280x720
video1_stream.m3u8
`

func TestParsePlaylist_media(t *testing.T) {
	info, err := ParsePlaylist(strings.NewReader(mediaPlaylist))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}
	if info.Segments != 2 || info.TargetDuration != 2 || info.MediaSequence != 42 || info.Ended {
		t.Errorf("unexpected info %+v", info)
	}
	if info.TotalDuration != 3.5 {
		t.Errorf("expected total 3.5, got %v", info.TotalDuration)
	}
	if !info.Playable() {
		t.Error("expected playable")
	}
}

func TestParsePlaylist_multivariant(t *testing.T) {
	info, err := ParsePlaylist(strings.NewReader(multivariantPlaylist))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}
	if info.Variants != 1 || info.Segments != 0 || !info.Playable() {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestParsePlaylist_ended_empty(t *testing.T) {
	info, err := ParsePlaylist(strings.NewReader("#EXTM3U\n#EXT-X-TARGETDURATION:1\n#EXT-X-MEDIA-SEQUENCE:0\n#EXT-X-ENDLIST\n"))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}
	if !info.Ended || info.Playable() {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestParsePlaylist_target_duration_from_segments(t *testing.T) {
	info, err := ParsePlaylist(strings.NewReader("#EXTM3U\n#EXTINF:2.2,\na.ts\n#EXTINF:1.0,\nb.ts\n"))
	if err != nil {
		t.Fatalf("ParsePlaylist: %v", err)
	}
	if info.TargetDuration != 3 {
		t.Errorf("expected ceil of max duration 3, got %d", info.TargetDuration)
	}
}

func TestParsePlaylist_invalid(t *testing.T) {
	for name, body := range map[string]string{
		"empty":      "",
		"html":       "<html>not found</html>",
		"bad extinf": "#EXTM3U\n#EXTINF:abc,\na.ts\n",
		"bad target": "#EXTM3U\n#EXT-X-TARGETDURATION:x\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParsePlaylist(strings.NewReader(body)); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := ParsePlaylist(strings.NewReader("nope")); !errors.Is(err, ErrNotPlaylist) {
		t.Errorf("expected ErrNotPlaylist, got %v", err)
	}
}

func TestProbePlaylist(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/camera1/index.m3u8" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = w.Write([]byte(multivariantPlaylist))
	}))
	defer srv.Close()

	info, err := ProbePlaylist(context.Background(), srv.Client(), PlaybackURL(srv.URL, "camera1"), "Basic abc")
	if err != nil {
		t.Fatalf("ProbePlaylist: %v", err)
	}
	if info.Variants != 1 || gotAuth != "Basic abc" {
		t.Errorf("unexpected info=%+v auth=%q", info, gotAuth)
	}

	if _, err := ProbePlaylist(context.Background(), srv.Client(), PlaybackURL(srv.URL, "missing"), ""); err == nil {
		t.Error("expected error for 404")
	}
}
