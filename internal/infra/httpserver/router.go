package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	appanalysis "github.com/bryanwahyu/aishield/internal/application/analysis"
	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/middleware"
	"github.com/bryanwahyu/aishield/internal/presenter"
)

const maxBodyBytes = middleware.MaxMessageBytes + 1024

// Options wires the router. Only Sessions is required.
type Options struct {
	Sessions       *appanalysis.Sessions
	Hub            *Hub
	Metrics        http.Handler
	Observer       middleware.HTTPObserver
	Health         map[string]middleware.HealthChecker
	AllowedOrigins []string
	APIKeys        map[string]string
}

type Router struct {
	sessions *appanalysis.Sessions
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewRouter(opts Options) http.Handler {
	r := &Router{
		sessions: opts.Sessions,
		hub:      opts.Hub,
		upgrader: newUpgrader(opts.AllowedOrigins),
	}
	if r.hub == nil {
		r.hub = NewHub()
	}

	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware(opts.Observer))
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	mux.Route("/v1/sessions", func(rt chi.Router) {
		rt.Post("/", r.wrap(r.handleCreate))
		rt.Route("/{id}", func(s chi.Router) {
			s.Get("/", r.wrap(r.handleGet))
			s.Delete("/", r.wrap(r.handleDelete))
			s.Post("/analyze", r.wrap(r.handleAnalyze))
			s.Post("/reset", r.wrap(r.handleReset))
			s.Get("/ws", r.wrap(r.handleWS))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks errors caused by the client input.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequest
			switch {
			case errors.Is(err, appanalysis.ErrSessionNotFound):
				writeError(w, http.StatusNotFound, "session not found")
			case errors.As(err, &br):
				writeError(w, http.StatusBadRequest, br.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
		}
	}
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID           string                `json:"id"`
	State        domain.State          `json:"state"`
	Presentation *presenter.Descriptor `json:"presentation,omitempty"`
}

func newSessionView(id string, s domain.State) SessionView {
	v := SessionView{ID: id, State: s}
	if s.Phase == domain.PhaseSucceeded && s.Result != nil {
		if _, ok := presenter.Lookup(s.Result.Classification); ok {
			d := presenter.Present(*s.Result)
			v.Presentation = &d
		}
	}
	return v
}

// POST /v1/sessions
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) error {
	id, ctrl := r.sessions.Create()
	return writeJSON(w, http.StatusCreated, newSessionView(id, ctrl.State()))
}

// GET /v1/sessions/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, ctrl, err := r.lookup(req)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, newSessionView(id, ctrl.State()))
}

// DELETE /v1/sessions/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return badRequest{err}
	}
	if err := r.sessions.Delete(id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/sessions/{id}/analyze
// Body: {"message": "..."}
// 202 with the pending state, or 200 with the unchanged state for blank input.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	id, ctrl, err := r.lookup(req)
	if err != nil {
		return err
	}

	var body struct {
		Message string `json:"message"`
	}
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		return badRequest{fmt.Errorf("invalid body: %w", err)}
	}
	if err := middleware.ValidateMessage(body.Message); err != nil {
		return badRequest{err}
	}

	status := http.StatusOK
	if ctrl.Submit(body.Message) {
		status = http.StatusAccepted
	}
	return writeJSON(w, status, newSessionView(id, ctrl.State()))
}

// POST /v1/sessions/{id}/reset
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) error {
	id, ctrl, err := r.lookup(req)
	if err != nil {
		return err
	}
	ctrl.Reset()
	return writeJSON(w, http.StatusOK, newSessionView(id, ctrl.State()))
}

// GET /v1/sessions/{id}/ws
func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) error {
	id, ctrl, err := r.lookup(req)
	if err != nil {
		return err
	}
	return r.serveWS(w, req, id, ctrl)
}

func (r *Router) lookup(req *http.Request) (string, *appanalysis.Controller, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return "", nil, badRequest{err}
	}
	ctrl, err := r.sessions.Get(id)
	if err != nil {
		return "", nil, err
	}
	return id, ctrl, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"error": msg})
}
