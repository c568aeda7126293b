// Package httpapi exposes the wallet session to page views over HTTP: the
// current state, connect and disconnect actions, the landing/dashboard
// redirect decision and a WebSocket feed of state changes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/creastat/wallet"
	"github.com/creastat/wallet/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes a page view is sent to.
const (
	RouteLanding   = "/"
	RouteDashboard = "/dashboard"
)

// Option configures the router.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handler) {
		h.log = log
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithInsecureWebSocket disables the origin check on /session/events. Dev only.
func WithInsecureWebSocket(insecure bool) Option {
	return func(h *Handler) {
		h.insecureWS = insecure
	}
}

// Handler serves the session API.
type Handler struct {
	mgr        *session.Manager
	log        *slog.Logger
	metrics    http.Handler
	insecureWS bool
}

// SessionResponse is the JSON shape of a session.
type SessionResponse struct {
	session.State
	// DisplayAccount is the EIP-55 checksummed account, when it is a valid address.
	DisplayAccount string `json:"displayAccount,omitempty"`
}

// ErrorResponse is returned by failed actions.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Session SessionResponse `json:"session"`
}

// RouteResponse tells a page view where it belongs.
type RouteResponse struct {
	Route string `json:"route"`
}

// NewRouter builds the HTTP handler.
func NewRouter(mgr *session.Manager, opts ...Option) http.Handler {
	h := &Handler{mgr: mgr, log: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.getSession)
		r.Post("/connect", h.connect)
		r.Post("/disconnect", h.disconnect)
		r.Get("/route", h.route)
		r.Get("/events", h.events)
	})

	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	return r
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(h.mgr.State()))
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	state, err := h.mgr.Connect(r.Context())
	if err != nil {
		h.log.Info("connect request failed", "requestId", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, statusFor(err), ErrorResponse{
			Error:   state.LastError,
			Session: toResponse(state),
		})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(state))
}

func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toResponse(h.mgr.Disconnect(r.Context())))
}

func (h *Handler) route(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RouteResponse{Route: RouteFor(h.mgr.State())})
}

// events streams the session state: once on connect, then on every change.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.insecureWS,
	})
	if err != nil {
		h.log.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Only the newest state matters, so the channel holds one.
	updates := make(chan session.State, 1)
	push := func(s session.State) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	}

	cancel := h.mgr.Watch(push)
	defer cancel()
	push(h.mgr.State())

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case s := <-updates:
			if err := wsjson.Write(ctx, conn, toResponse(s)); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.log.Debug("session events write failed", "error", err)
				}
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// RouteFor returns the view a page should redirect to for state.
func RouteFor(s session.State) string {
	if s.Connected {
		return RouteDashboard
	}
	return RouteLanding
}

func toResponse(s session.State) SessionResponse {
	resp := SessionResponse{State: s}
	if s.Account != "" {
		if display, err := wallet.ChecksumAddress(s.Account); err == nil {
			resp.DisplayAccount = display
		}
	}
	return resp
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrNoAuthorizedAccounts):
		return http.StatusConflict
	case errors.Is(err, session.ErrRequestRejected):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
