// Package webhook adapts an inbound messaging-provider HTTP callback to the
// dispatcher pipeline (spec §4.1's handle_inbound, fronted by a chi router).
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaymind/conduit/internal/obslog"
)

// Dispatcher is the subset of dispatcher.Dispatcher this package drives.
type Dispatcher interface {
	HandleInbound(ctx context.Context, externalID, handle, text string) error
}

// InboundMessage is the provider-agnostic payload this endpoint accepts.
// A concrete provider integration (WhatsApp Business, Twilio, etc.) is
// expected to normalize its own webhook shape into this before it reaches
// conduit — translating provider wire formats is out of scope (spec
// Non-goals: "messaging-channel I/O primitives").
type InboundMessage struct {
	ExternalID string `json:"external_id"`
	Handle     string `json:"handle"`
	Text       string `json:"text"`
}

type response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server wraps a chi router exposing the webhook endpoint, health check, and
// Prometheus metrics.
type Server struct {
	router     chi.Router
	dispatcher Dispatcher
	log        *obslog.Logger
}

// New builds a webhook Server. basePath is the mount point for the inbound
// endpoint, e.g. "/webhook".
func New(dispatcher Dispatcher, log *obslog.Logger, basePath string) *Server {
	s := &Server{dispatcher: dispatcher, log: log.WithFields("component", "webhook")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post(basePath, s.handleInbound)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var msg InboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, response{OK: false, Error: "invalid json body"})
		return
	}
	if msg.ExternalID == "" || msg.Handle == "" {
		s.writeJSON(w, http.StatusBadRequest, response{OK: false, Error: "external_id and handle are required"})
		return
	}

	if err := s.dispatcher.HandleInbound(r.Context(), msg.ExternalID, msg.Handle, msg.Text); err != nil {
		s.log.Error(r.Context(), "webhook: handle_inbound failed", "error", err, "handle", msg.Handle)
		s.writeJSON(w, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}

	s.writeJSON(w, http.StatusAccepted, response{OK: true})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
