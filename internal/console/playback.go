package console

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// PlaybackAction tells a player what to do with a path's stream.
type PlaybackAction string

const (
	PlaybackStart PlaybackAction = "start"
	PlaybackStop  PlaybackAction = "stop"
	PlaybackNone  PlaybackAction = "none"
)

// PlaybackURL builds {base}/{name}/index.m3u8. Each segment of name is escaped.
func PlaybackURL(base, name string) string {
	parts := strings.Split(name, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/") + "/index.m3u8"
}

// Playback is the playback view of a single path.
type Playback struct {
	Name   string         `json:"name"`
	URL    string         `json:"url"`
	Live   bool           `json:"live"`
	Action PlaybackAction `json:"action"`
}

// PlaybackEvent is a start or stop transition for one path.
type PlaybackEvent struct {
	Name   string         `json:"name"`
	URL    string         `json:"url"`
	Action PlaybackAction `json:"action"`
}

// PlaybackTracker turns a sequence of snapshots into start/stop transitions
// for one viewer. A path that disappears from the snapshot is stopped.
type PlaybackTracker struct {
	base string

	mu      sync.Mutex
	playing map[string]bool
}

// NewPlaybackTracker returns a tracker building URLs under base.
func NewPlaybackTracker(base string) *PlaybackTracker {
	return &PlaybackTracker{base: base, playing: make(map[string]bool)}
}

// Observe records the live flag for name and returns the transition, if any.
func (t *PlaybackTracker) Observe(name string, live bool) PlaybackAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observeLocked(name, live)
}

func (t *PlaybackTracker) observeLocked(name string, live bool) PlaybackAction {
	was := t.playing[name]
	switch {
	case live && !was:
		t.playing[name] = true
		return PlaybackStart
	case !live && was:
		delete(t.playing, name)
		return PlaybackStop
	default:
		return PlaybackNone
	}
}

// Sync applies a whole snapshot and returns every transition, sorted by name.
func (t *PlaybackTracker) Sync(snap Snapshot) []PlaybackEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	var events []PlaybackEvent
	present := make(map[string]struct{}, len(snap.Paths))
	for _, p := range snap.Paths {
		present[p.Name] = struct{}{}
		if a := t.observeLocked(p.Name, p.IsLive); a != PlaybackNone {
			events = append(events, PlaybackEvent{Name: p.Name, URL: PlaybackURL(t.base, p.Name), Action: a})
		}
	}
	for name := range t.playing {
		if _, ok := present[name]; !ok {
			delete(t.playing, name)
			events = append(events, PlaybackEvent{Name: name, URL: PlaybackURL(t.base, name), Action: PlaybackStop})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Name < events[j].Name })
	return events
}

// Reset forgets every playing path.
func (t *PlaybackTracker) Reset() {
	t.mu.Lock()
	t.playing = make(map[string]bool)
	t.mu.Unlock()
}
