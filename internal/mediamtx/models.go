package mediamtx

import "time"

// PathConfig is the declared configuration of a path as the control plane stores it.
// Tri-state booleans are pointers so "not set" and "false" stay distinct.
type PathConfig struct {
	Name                       string `json:"name"`
	Source                     string `json:"source"`
	SourceFingerprint          string `json:"sourceFingerprint,omitempty"`
	SourceOnDemand             *bool  `json:"sourceOnDemand,omitempty"`
	SourceOnDemandStartTimeout string `json:"sourceOnDemandStartTimeout,omitempty"`
	SourceOnDemandCloseAfter   string `json:"sourceOnDemandCloseAfter,omitempty"`
	MaxReaders                 int    `json:"maxReaders,omitempty"`
	Record                     *bool  `json:"record,omitempty"`
	RecordPath                 string `json:"recordPath,omitempty"`
	RecordFormat               string `json:"recordFormat,omitempty"`
	RecordPartDuration         string `json:"recordPartDuration,omitempty"`
	RecordSegmentDuration      string `json:"recordSegmentDuration,omitempty"`
	RecordDeleteAfter          string `json:"recordDeleteAfter,omitempty"`
	OverridePublisher          *bool  `json:"overridePublisher,omitempty"`
}

// Recording reports whether the record flag is explicitly enabled.
func (c PathConfig) Recording() bool {
	return c.Record != nil && *c.Record
}

// PathConfigPatch carries a partial update. Nil fields are not sent and stay
// unchanged server-side.
type PathConfigPatch struct {
	Source                     *string `json:"source,omitempty"`
	SourceFingerprint          *string `json:"sourceFingerprint,omitempty"`
	SourceOnDemand             *bool   `json:"sourceOnDemand,omitempty"`
	SourceOnDemandStartTimeout *string `json:"sourceOnDemandStartTimeout,omitempty"`
	SourceOnDemandCloseAfter   *string `json:"sourceOnDemandCloseAfter,omitempty"`
	MaxReaders                 *int    `json:"maxReaders,omitempty"`
	Record                     *bool   `json:"record,omitempty"`
	RecordPath                 *string `json:"recordPath,omitempty"`
	RecordFormat               *string `json:"recordFormat,omitempty"`
	RecordPartDuration         *string `json:"recordPartDuration,omitempty"`
	RecordSegmentDuration      *string `json:"recordSegmentDuration,omitempty"`
	RecordDeleteAfter          *string `json:"recordDeleteAfter,omitempty"`
	OverridePublisher          *bool   `json:"overridePublisher,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p PathConfigPatch) Empty() bool {
	return p == PathConfigPatch{}
}

// PathSource is the publisher or pulled source currently feeding a path.
type PathSource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// PathReader is one consumer currently reading a path.
type PathReader struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// LivePath is the runtime state of a path at polling time.
type LivePath struct {
	Name          string       `json:"name"`
	ConfName      string       `json:"confName"`
	Source        *PathSource  `json:"source"`
	Ready         bool         `json:"ready"`
	ReadyTime     *time.Time   `json:"readyTime"`
	Tracks        []string     `json:"tracks"`
	BytesReceived uint64       `json:"bytesReceived"`
	BytesSent     uint64       `json:"bytesSent"`
	Readers       []PathReader `json:"readers"`
}

// listEnvelope is the paginated list shape shared by both list endpoints.
type listEnvelope[T any] struct {
	ItemCount int `json:"itemCount"`
	PageCount int `json:"pageCount"`
	Items     []T `json:"items"`
}

// Bool returns a pointer to b, for building configs and patches.
func Bool(b bool) *bool { return &b }

// String returns a pointer to s.
func String(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }
