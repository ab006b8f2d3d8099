package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/flagpole/c2/internal/config"
	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/flagpole"
)

// Presser presses a side's button on a node's flagpole.
type Presser interface {
	Press(node string, side contest.Side) error
}

type Server struct {
	source         StatusSource
	broadcaster    *Broadcaster
	presser        Presser
	hostInfo       func(context.Context) (HostInfo, error)
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool
	authToken      string
}

// NewServer builds the status server. presser is nil unless ownership runs
// in hardware mode.
func NewServer(cfg config.ServerConfig, source StatusSource, broadcaster *Broadcaster, presser Presser) *Server {
	s := &Server{
		source:         source,
		broadcaster:    broadcaster,
		presser:        presser,
		hostInfo:       ReadHostInfo,
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
		authToken:      cfg.AuthToken,
	}

	for _, origin := range cfg.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	return s
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/host", s.handleHost)
	mux.HandleFunc("POST /api/nodes/{id}/press", s.handlePress)
}

// Handler returns all routes wrapped in the security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(mux)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Content-Security-Policy", "default-src 'self'")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade error")
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("rejecting websocket client")
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return
	}
	log.Info().Str("remote", r.RemoteAddr).Msg("websocket client connected")

	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Info().Str("remote", r.RemoteAddr).Msg("websocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.broadcaster.snapshot().Payload)
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	info, err := s.hostInfo(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("reading host info")
		http.Error(w, "host info unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handlePress(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if s.presser == nil {
		http.Error(w, "ownership is not in hardware mode", http.StatusConflict)
		return
	}

	side, err := contest.ParseSide(r.URL.Query().Get("side"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	node := r.PathValue("id")
	if err := s.presser.Press(node, side); err != nil {
		if errors.Is(err, flagpole.ErrUnknownNode) {
			http.Error(w, "node not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Info().Str("node", node).Stringer("side", side).Msg("operator press")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("writing response")
	}
}

func (s *Server) authorize(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}

	if r.URL.Query().Get("token") == s.authToken {
		return true
	}

	if r.Header.Get("X-Flagpole-Token") == s.authToken {
		return true
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.authToken {
		return true
	}

	return false
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := parsed.Host
	if host == "" {
		return false
	}

	if host == r.Host {
		return true
	}

	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ListenAndServe serves handler on addr until ctx is done, then shuts the
// server down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("status server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
