// Package relay is the multiplayer websocket relay. Clients are grouped into
// rooms by game code; packets are fanned out to the room without further
// validation.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/mod/semver"

	"github.com/kartrace/kartrace-go/log"
	"github.com/kartrace/kartrace-go/pkg/profile"
	"github.com/kartrace/kartrace-go/pkg/relay/proxy"
	"github.com/kartrace/kartrace-go/pkg/relay/proxy/local"
	"github.com/kartrace/kartrace-go/pkg/track/catalog"
)

// LobbyTopic receives chat packets without a game code.
const LobbyTopic = "lobby"

type (
	Option func(*Server)
	Server struct {
		rooms           *RoomManager
		proxy           proxy.Proxy
		profiles        *profile.Service
		capacity        int
		requiredVersion string
		allowedOrigins  []string
		upgrader        websocket.Upgrader
		numConns        atomic.Int64
		connsMu         sync.Mutex
		conns           map[*conn]struct{}
		reg             metric.Registration
		l               *log.Logger
	}
)

func WithProxy(p proxy.Proxy) Option {
	return func(s *Server) {
		s.proxy = p
	}
}

// WithProfiles enables user_read, user_write and personal best updates.
func WithProfiles(p *profile.Service) Option {
	return func(s *Server) {
		s.profiles = p
	}
}

func WithRoomCapacity(n int) Option {
	return func(s *Server) {
		s.capacity = n
	}
}

// WithRequiredClientVersion rejects create and join packets of older clients.
func WithRequiredClientVersion(v string) Option {
	return func(s *Server) {
		s.requiredVersion = v
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.l = l
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		capacity: 8,
		conns:    make(map[*conn]struct{}),
		l:        log.Default().Named("relay"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.proxy == nil {
		s.proxy = local.NewLocalProxy(local.WithLogger(s.l.Named("proxy")))
	}
	s.rooms = NewRoomManager(s.capacity)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.setupMetrics()
	return s
}

func (s *Server) Rooms() *RoomManager {
	return s.rooms
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 || slices.Contains(s.allowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.allowedOrigins, r.Header.Get("Origin"))
}

// Handler returns the http routes of the relay.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /tracks/{name}", s.handleTrack)
	mux.HandleFunc("GET /{$}", s.handleLobby)
	mux.HandleFunc("/ws", s.handleWS)

	origins := s.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"rooms":       s.rooms.Len(),
		"connections": s.numConns.Load(),
	})
}

func (s *Server) handleLobby(w http.ResponseWriter, _ *http.Request) {
	entries, err := catalog.Entries()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

// handleTrack serves a descriptor; unknown tracks go back to the lobby.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	text, err := catalog.Lookup(r.PathValue("name"))
	if errors.Is(err, catalog.ErrUnknownTrack) {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("websocket upgrade failed", log.ErrorField(err))
		return
	}
	c := newConn(s, ws)
	s.track(c, true)
	defer s.track(c, false)
	s.l.Debug("client connected", log.String("remote", r.RemoteAddr))
	if err := c.subscribe(LobbyTopic); err != nil {
		s.l.Error("could not subscribe to lobby", log.ErrorField(err))
	}
	go c.writePump()
	c.readPump()
}

func (s *Server) track(c *conn, add bool) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	if add {
		s.conns[c] = struct{}{}
	} else {
		delete(s.conns, c)
	}
	s.numConns.Store(int64(len(s.conns)))
}

// Close disconnects all clients and releases the proxy.
func (s *Server) Close() {
	s.connsMu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close()
	}
	if s.reg != nil {
		_ = s.reg.Unregister()
	}
	s.proxy.Close()
}

func (s *Server) versionAccepted(v string) bool {
	if s.requiredVersion == "" || v == "" {
		return true
	}
	got := canonicalVersion(v)
	if !semver.IsValid(got) {
		return false
	}
	return semver.Compare(got, canonicalVersion(s.requiredVersion)) >= 0
}

func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

func (s *Server) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("kartrace.relay")
	rooms, err := meter.Int64ObservableGauge("kartrace.relay.rooms",
		metric.WithDescription("Number of open rooms"),
		metric.WithUnit("{count}"))
	if err != nil {
		s.l.Error("failed to create metric", log.ErrorField(err))
		return
	}
	conns, err := meter.Int64ObservableGauge("kartrace.relay.connections",
		metric.WithDescription("Number of connected clients"),
		metric.WithUnit("{count}"))
	if err != nil {
		s.l.Error("failed to create metric", log.ErrorField(err))
		return
	}
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(rooms, int64(s.rooms.Len()))
		o.ObserveInt64(conns, s.numConns.Load())
		return nil
	}, rooms, conns)
	if err != nil {
		s.l.Error("failed to register metric callback", log.ErrorField(err))
		return
	}
	s.reg = reg
}
