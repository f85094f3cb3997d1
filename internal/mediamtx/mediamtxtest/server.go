// Package mediamtxtest provides an in-process fake of the MediaMTX control-plane
// API for tests. It stores declared configs as raw JSON objects so tests can
// assert exactly which fields a client sent.
package mediamtxtest

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"mtx-console/internal/mediamtx"
)

// Server is a fake control plane backed by httptest.Server.
type Server struct {
	*httptest.Server

	user, pass string

	mu         sync.Mutex
	order      []string
	configs    map[string]map[string]any
	live       map[string]mediamtx.LivePath
	liveOrder  []string
	failConfig int
	failLive   int
	authSeen   []string
	hold       map[string]chan struct{}

	requests atomic.Int64
}

// New starts a fake control plane that accepts user/pass.
func New(user, pass string) *Server {
	s := &Server{
		user:    user,
		pass:    pass,
		configs: make(map[string]map[string]any),
		live:    make(map[string]mediamtx.LivePath),
		hold:    make(map[string]chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/config/global/get", s.handleGlobal)
	mux.HandleFunc("/v3/config/paths/list", s.handleConfigList)
	mux.HandleFunc("/v3/paths/list", s.handleLiveList)
	mux.HandleFunc("/v3/config/paths/add/", s.handleAdd)
	mux.HandleFunc("/v3/config/paths/patch/", s.handlePatch)
	mux.HandleFunc("/v3/config/paths/delete/", s.handleDelete)
	s.Server = httptest.NewServer(mux)
	return s
}

// AddConfig seeds a declared config directly.
func (s *Server) AddConfig(name string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := map[string]any{"name": name}
	for k, v := range fields {
		obj[k] = v
	}
	if _, ok := s.configs[name]; !ok {
		s.order = append(s.order, name)
	}
	s.configs[name] = obj
}

// Config returns the stored raw object for name.
func (s *Server) Config(name string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.configs[name]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}
	return out, true
}

// ConfigNames returns declared names in insertion order.
func (s *Server) ConfigNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// SetLive sets the runtime state of a path. readers is the number of consumers.
func (s *Server) SetLive(name string, ready bool, sourceType string, readers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lp := mediamtx.LivePath{Name: name, ConfName: name, Ready: ready, Readers: []mediamtx.PathReader{}}
	if sourceType != "" {
		lp.Source = &mediamtx.PathSource{Type: sourceType, ID: "src-" + name}
	}
	for i := 0; i < readers; i++ {
		lp.Readers = append(lp.Readers, mediamtx.PathReader{Type: "hlsMuxer", ID: name + "-r" + strconv.Itoa(i)})
	}
	if ready {
		lp.BytesReceived = uint64(1000 * (readers + 1))
		lp.BytesSent = uint64(500 * readers)
	}
	if _, ok := s.live[name]; !ok {
		s.liveOrder = append(s.liveOrder, name)
	}
	s.live[name] = lp
}

// RemoveLive drops the runtime entry for name.
func (s *Server) RemoveLive(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, name)
	s.liveOrder = remove(s.liveOrder, name)
}

// FailConfigList makes config list calls answer with status (0 restores).
func (s *Server) FailConfigList(status int) {
	s.mu.Lock()
	s.failConfig = status
	s.mu.Unlock()
}

// FailLiveList makes live list calls answer with status (0 restores).
func (s *Server) FailLiveList(status int) {
	s.mu.Lock()
	s.failLive = status
	s.mu.Unlock()
}

// Hold blocks requests to the endpoint prefix until the returned func is called.
func (s *Server) Hold(prefix string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold[prefix] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.hold, prefix)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// AuthHeaders returns every Authorization value seen, in order. A request
// without the header records "<absent>".
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authSeen...)
}

// Requests returns how many requests the server has handled.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.requests.Add(1)
	vals, present := r.Header["Authorization"]
	s.mu.Lock()
	if present && len(vals) > 0 {
		s.authSeen = append(s.authSeen, vals[0])
	} else {
		s.authSeen = append(s.authSeen, "<absent>")
	}
	var wait chan struct{}
	for prefix, ch := range s.hold {
		if strings.HasPrefix(r.URL.Path, prefix) {
			wait = ch
		}
	}
	s.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-r.Context().Done():
			return false
		}
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(s.user+":"+s.pass))
	if r.Header.Get("Authorization") != want {
		w.Header().Set("WWW-Authenticate", `Basic realm="mediamtx"`)
		w.WriteHeader(http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) handleGlobal(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logLevel": "info", "api": true})
}

func (s *Server) handleConfigList(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	s.mu.Lock()
	if s.failConfig != 0 {
		code := s.failConfig
		s.mu.Unlock()
		writeError(w, code, "config list unavailable")
		return
	}
	items := make([]any, 0, len(s.order))
	for _, name := range s.order {
		items = append(items, s.configs[name])
	}
	s.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) handleLiveList(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	s.mu.Lock()
	if s.failLive != 0 {
		code := s.failLive
		s.mu.Unlock()
		writeError(w, code, "path list unavailable")
		return
	}
	names := append([]string(nil), s.liveOrder...)
	sort.Strings(names)
	items := make([]any, 0, len(names))
	for _, name := range names {
		items = append(items, s.live[name])
	}
	s.mu.Unlock()
	writePage(w, r, items)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/v3/config/paths/add/")
	var obj map[string]any
	if err := decode(r.Body, &obj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if v, ok := obj["maxReaders"].(float64); ok && v < 0 {
		writeError(w, http.StatusBadRequest, "invalid maxReaders")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[name]; exists {
		writeError(w, http.StatusBadRequest, "path already exists")
		return
	}
	obj["name"] = name
	s.configs[name] = obj
	s.order = append(s.order, name)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/v3/config/paths/patch/")
	var obj map[string]any
	if err := decode(r.Body, &obj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.configs[name]
	if !exists {
		writeError(w, http.StatusNotFound, "path not found")
		return
	}
	for k, v := range obj {
		cur[k] = v
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorize(w, r) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/v3/config/paths/delete/")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.configs[name]; !exists {
		writeError(w, http.StatusNotFound, "path not found")
		return
	}
	delete(s.configs, name)
	s.order = remove(s.order, name)
	w.WriteHeader(http.StatusNoContent)
}

func writePage(w http.ResponseWriter, r *http.Request, items []any) {
	perPage, err := strconv.Atoi(r.URL.Query().Get("itemsPerPage"))
	if err != nil || perPage <= 0 {
		perPage = 100
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageCount := (len(items) + perPage - 1) / perPage
	start := page * perPage
	if start > len(items) {
		start = len(items)
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"itemCount": len(items),
		"pageCount": pageCount,
		"items":     items[start:end],
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func remove(list []string, name string) []string {
	out := list[:0]
	for _, n := range list {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
