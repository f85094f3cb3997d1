package console

import "mtx-console/internal/mediamtx"

// Store keeps the last good collection of each side so a later failed fetch
// can fall back to it. The Repository guards all access; implementations need
// not be safe for concurrent use.
type Store interface {
	Configs() ([]mediamtx.PathConfig, bool)
	SetConfigs(configs []mediamtx.PathConfig)
	LivePaths() ([]mediamtx.LivePath, bool)
	SetLivePaths(live []mediamtx.LivePath)
	Reset()
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	configs     []mediamtx.PathConfig
	haveConfigs bool
	live        []mediamtx.LivePath
	haveLive    bool
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Configs implements Store.Configs.
func (s *InMemoryStore) Configs() ([]mediamtx.PathConfig, bool) {
	return s.configs, s.haveConfigs
}

// SetConfigs implements Store.SetConfigs.
func (s *InMemoryStore) SetConfigs(configs []mediamtx.PathConfig) {
	s.configs = append([]mediamtx.PathConfig(nil), configs...)
	s.haveConfigs = true
}

// LivePaths implements Store.LivePaths.
func (s *InMemoryStore) LivePaths() ([]mediamtx.LivePath, bool) {
	return s.live, s.haveLive
}

// SetLivePaths implements Store.SetLivePaths.
func (s *InMemoryStore) SetLivePaths(live []mediamtx.LivePath) {
	s.live = append([]mediamtx.LivePath(nil), live...)
	s.haveLive = true
}

// Reset implements Store.Reset.
func (s *InMemoryStore) Reset() {
	*s = InMemoryStore{}
}
