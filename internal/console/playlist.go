package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
)

const maxPlaylistBytes = 1 << 20

// ErrNotPlaylist is returned when a body does not start with #EXTM3U.
var ErrNotPlaylist = errors.New("not an HLS playlist")

// PlaylistInfo summarizes an HLS playlist as served by MediaMTX.
type PlaylistInfo struct {
	// Variants is the number of #EXT-X-STREAM-INF entries (multivariant playlist).
	Variants       int     `json:"variants"`
	Segments       int     `json:"segments"`
	TargetDuration int     `json:"targetDuration"`
	MediaSequence  int64   `json:"mediaSequence"`
	TotalDuration  float64 `json:"totalDuration"`
	Ended          bool    `json:"ended"`
}

// Playable reports whether a player has anything to load.
func (p PlaylistInfo) Playable() bool {
	return p.Variants > 0 || p.Segments > 0
}

// ParsePlaylist reads a media or multivariant playlist. Unknown tags are ignored.
func ParsePlaylist(r io.Reader) (PlaylistInfo, error) {
	var info PlaylistInfo
	sc := bufio.NewScanner(io.LimitReader(r, maxPlaylistBytes))
	first := true
	maxSegment := 0.0

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			if line != "#EXTM3U" {
				return PlaylistInfo{}, ErrNotPlaylist
			}
			first = false
			continue
		}

		tag, value, _ := strings.Cut(line, ":")
		switch tag {
		case "#EXT-X-STREAM-INF":
			info.Variants++
		case "#EXT-X-TARGETDURATION":
			n, err := strconv.Atoi(value)
			if err != nil {
				return PlaylistInfo{}, fmt.Errorf("target duration %q: %w", value, err)
			}
			info.TargetDuration = n
		case "#EXT-X-MEDIA-SEQUENCE":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return PlaylistInfo{}, fmt.Errorf("media sequence %q: %w", value, err)
			}
			info.MediaSequence = n
		case "#EXTINF":
			durStr, _, _ := strings.Cut(value, ",")
			d, err := strconv.ParseFloat(durStr, 64)
			if err != nil {
				return PlaylistInfo{}, fmt.Errorf("segment duration %q: %w", durStr, err)
			}
			info.Segments++
			info.TotalDuration += d
			maxSegment = math.Max(maxSegment, d)
		case "#EXT-X-ENDLIST":
			info.Ended = true
		}
	}
	if err := sc.Err(); err != nil {
		return PlaylistInfo{}, err
	}
	if first {
		return PlaylistInfo{}, ErrNotPlaylist
	}
	if info.TargetDuration == 0 && maxSegment > 0 {
		info.TargetDuration = int(math.Ceil(maxSegment))
	}
	return info, nil
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProbePlaylist fetches and parses the playlist at url. auth, if set, is sent
// as the Authorization header.
func ProbePlaylist(ctx context.Context, hc HTTPDoer, url, auth string) (PlaylistInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PlaylistInfo{}, err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return PlaylistInfo{}, fmt.Errorf("fetch playlist: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return PlaylistInfo{}, fmt.Errorf("fetch playlist: %s", resp.Status)
	}
	return ParsePlaylist(resp.Body)
}
