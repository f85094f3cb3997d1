package console

import (
	"time"

	"mtx-console/internal/mediamtx"
)

// DefaultCatchAllPath is the reserved config name MediaMTX uses for its fallback rule.
const DefaultCatchAllPath = "all_others"

// Phase is where the reconciler is in its current polling cycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseFetching Phase = "fetching"
	PhaseMerged   Phase = "merged"
	PhaseFailed   Phase = "failed"
)

// MergedPathStatus is the per-path view built from one declared config and
// the matching live entry, if any. It is rebuilt wholesale on every cycle.
type MergedPathStatus struct {
	Name          string              `json:"name"`
	Config        mediamtx.PathConfig `json:"config"`
	IsLive        bool                `json:"isLive"`
	SourceType    string              `json:"sourceType,omitempty"`
	ReaderCount   int                 `json:"readerCount"`
	BytesReceived uint64              `json:"bytesReceived"`
	BytesSent     uint64              `json:"bytesSent"`
}

// Summary holds the dashboard counters.
type Summary struct {
	TotalPaths   int `json:"totalPaths"`
	ActivePaths  int `json:"activePaths"`
	TotalReaders int `json:"totalReaders"`
}

// Snapshot is one published result of a reconciliation cycle.
type Snapshot struct {
	Paths   []MergedPathStatus `json:"paths"`
	Summary Summary            `json:"summary"`
	// UnmatchedLive counts live paths with no declared config (ephemeral publishers).
	UnmatchedLive int       `json:"unmatchedLive"`
	FetchedAt     time.Time `json:"fetchedAt"`
	// Stale is set when at least one side was reused from an earlier cycle.
	Stale bool   `json:"stale"`
	Seq   uint64 `json:"seq"`
}

// Path returns the merged entry for name.
func (s Snapshot) Path(name string) (MergedPathStatus, bool) {
	for _, p := range s.Paths {
		if p.Name == name {
			return p, true
		}
	}
	return MergedPathStatus{}, false
}

// Status reports the health of the polling loop.
type Status struct {
	Phase               Phase     `json:"phase"`
	LastError           string    `json:"lastError,omitempty"`
	LastSuccess         time.Time `json:"lastSuccess,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	HasSnapshot         bool      `json:"hasSnapshot"`
}

// Dashboard is what the console exposes to an operator.
type Dashboard struct {
	Principal string             `json:"principal"`
	Summary   Summary            `json:"summary"`
	Paths     []MergedPathStatus `json:"paths"`
	Stale     bool               `json:"stale"`
	FetchedAt time.Time          `json:"fetchedAt,omitempty"`
	Status    Status             `json:"status"`
}
