package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mtx-console/internal/mediamtx"
	"mtx-console/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Handler exposes the console HTTP API using go-chi.
type Handler struct {
	console  *Console
	sessions *Sessions
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewHandler returns a Handler for c. Metrics may be nil (e.g. in tests).
func NewHandler(c *Console, sessions *Sessions, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{console: c, sessions: sessions, log: log, metrics: m}
}

// Routes registers every console endpoint under /api.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/session", h.Session)
		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Get("/dashboard", h.Dashboard)
			r.Post("/refresh", h.Refresh)
			r.Get("/events", h.Events)
			r.Post("/paths", h.CreatePath)
			r.Route("/paths/{name}", func(r chi.Router) {
				r.Get("/", h.GetPath)
				r.Patch("/", h.UpdatePath)
				r.Delete("/", h.DeletePath)
				r.Get("/playback", h.GetPlayback)
			})
		})
	})
}

// RequireSession rejects requests without the current session cookie.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.sessions.FromRequest(r) || !h.console.Authenticated() {
			writeError(w, http.StatusUnauthorized, ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/login. Body: { "username": "admin", "password": "..." }.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Username) == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.console.Login(r.Context(), req.Username, req.Password); err != nil {
		h.log.Info("login failed", slog.String("principal", req.Username), slog.String("error", err.Error()))
		writeError(w, statusFor(err), err)
		return
	}

	http.SetCookie(w, h.sessions.Cookie(h.sessions.Issue()))
	w.WriteHeader(http.StatusNoContent)
}

// Logout handles POST /api/logout. Without a valid session it only clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.sessions.FromRequest(r) {
		h.sessions.Revoke()
		h.console.Logout()
	}
	http.SetCookie(w, h.sessions.ExpiredCookie())
	w.WriteHeader(http.StatusNoContent)
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Principal     string `json:"principal,omitempty"`
}

// Session handles GET /api/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{}
	if h.sessions.FromRequest(r) && h.console.Authenticated() {
		resp.Authenticated = true
		resp.Principal = h.console.Principal()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Dashboard handles GET /api/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.console.Dashboard()
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Refresh handles POST /api/refresh. A failed poll still answers 200 with the
// last view and the error in its status, unless the credential was rejected.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	d, err := h.console.Refresh(r.Context())
	switch {
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, mediamtx.Unauthorized):
		writeError(w, http.StatusUnauthorized, err)
		return
	case err != nil && r.Context().Err() != nil:
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetPath handles GET /api/paths/{name}.
func (h *Handler) GetPath(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}
	p, err := h.console.Path(name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePath handles POST /api/paths. Body: a PathConfig.
func (h *Handler) CreatePath(w http.ResponseWriter, r *http.Request) {
	var cfg mediamtx.PathConfig
	if err := decodeBody(r, &cfg); err != nil {
		h.log.Debug("invalid path config body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := h.console.CreatePath(r.Context(), cfg); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// UpdatePath handles PATCH /api/paths/{name}. Body: a PathConfigPatch.
func (h *Handler) UpdatePath(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}
	var patch mediamtx.PathConfigPatch
	if err := decodeBody(r, &patch); err != nil {
		h.log.Debug("invalid patch body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, errors.New("patch changes nothing"))
		return
	}
	if err := h.console.UpdatePath(r.Context(), name, patch); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePath handles DELETE /api/paths/{name}.
func (h *Handler) DeletePath(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}
	if err := h.console.DeletePath(r.Context(), name); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type playbackResponse struct {
	Playback
	Playlist *PlaylistInfo `json:"playlist,omitempty"`
}

// GetPlayback handles GET /api/paths/{name}/playback. With ?probe=true the
// playlist of a live path is fetched and summarized; a failed probe is 502.
func (h *Handler) GetPlayback(w http.ResponseWriter, r *http.Request) {
	name, ok := pathName(w, r)
	if !ok {
		return
	}
	pb, err := h.console.Playback(name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := playbackResponse{Playback: pb}
	if probe, _ := strconv.ParseBool(r.URL.Query().Get("probe")); probe && pb.Live {
		info, err := h.console.ProbePlayback(r.Context(), name)
		if err != nil {
			h.log.Warn("playlist probe failed", slog.String("path", name), slog.String("error", err.Error()))
			writeError(w, http.StatusBadGateway, err)
			return
		}
		resp.Playlist = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

// pathName reads {name}; names containing '/' arrive percent-encoded.
func pathName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || name == "" {
		w.WriteHeader(http.StatusBadRequest)
		return "", false
	}
	return name, true
}

// statusFor maps console and control-plane errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPathNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNoSnapshot):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrMutationInFlight):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch mediamtx.KindOf(err) {
	case mediamtx.Unauthorized:
		return http.StatusUnauthorized
	case mediamtx.NotFound:
		return http.StatusNotFound
	case mediamtx.Conflict:
		return http.StatusConflict
	case mediamtx.InvalidConfig:
		return http.StatusBadRequest
	case mediamtx.Unreachable, mediamtx.BadResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	if k := mediamtx.KindOf(err); k != 0 {
		resp.Kind = k.String()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
