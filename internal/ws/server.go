package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/claude-bar/claude-bar/internal/monitor"
	"github.com/claude-bar/claude-bar/internal/session"
	"github.com/claude-bar/claude-bar/internal/transcript"
)

// HealthFunc reports enumerator health for /api/health.
type HealthFunc func() []monitor.SourceHealth

// Server is the read-only HTTP and WebSocket mirror of the session
// snapshot.
type Server struct {
	store       *session.Store
	broadcaster *Broadcaster
	health      HealthFunc
	origins     originPolicy
	token       string
}

func NewServer(store *session.Store, broadcaster *Broadcaster, health HealthFunc, allowedOrigins []string, token string) *Server {
	return &Server{
		store:       store,
		broadcaster: broadcaster,
		health:      health,
		origins:     newOriginPolicy(allowedOrigins),
		token:       token,
	}
}

func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSession)
	mux.HandleFunc("/api/health", s.handleHealth)
}

// Handler returns the routed mux wrapped in the security headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return securityHeaders(requireToken(s.token, mux))
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
	upgrader := websocket.Upgrader{
		CheckOrigin: s.origins.allows,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws_upgrade_failed", slog.String("error", err.Error()))
		return
	}

	c, err := s.broadcaster.AddClient(conn)
	if err != nil {
		log.Warn("ws_client_rejected",
			slog.String("remote", r.RemoteAddr),
			slog.String("error", err.Error()))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	log.Info("ws_client_connected", slog.String("remote", r.RemoteAddr))

	// Clients never send anything useful; reading only detects the close.
	go func() {
		defer func() {
			s.broadcaster.RemoveClient(c)
			log.Info("ws_client_disconnected", slog.String("remote", r.RemoteAddr))
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.store.Snapshot())
}

// handleSession serves /api/sessions/{tty}, where tty is the short form
// (ttys003, pts-4).
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	short, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/sessions/"))
	if err != nil || short == "" || strings.Contains(short, "/") {
		http.Error(w, "invalid tty", http.StatusBadRequest)
		return
	}

	if sess, ok := s.store.Get("/dev/" + short); ok {
		writeJSON(w, sess)
		return
	}
	for _, sess := range s.store.Snapshot() {
		if transcript.ShortTTY(sess.TTY) == short {
			writeJSON(w, sess)
			return
		}
	}
	http.Error(w, "session not found", http.StatusNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var sources []monitor.SourceHealth
	if s.health != nil {
		sources = s.health()
	}
	if sources == nil {
		sources = []monitor.SourceHealth{}
	}
	writeJSON(w, struct {
		Sources     []monitor.SourceHealth `json:"sources"`
		Generation  uint64                 `json:"generation"`
		PublishedAt time.Time              `json:"publishedAt"`
		Clients     int                    `json:"clients"`
	}{
		Sources:     sources,
		Generation:  s.store.Generation(),
		PublishedAt: s.store.PublishedAt(),
		Clients:     s.broadcaster.ClientCount(),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("http_write_failed", slog.String("error", err.Error()))
	}
}

// tokenHeader carries the mirror token for clients that can set headers.
// Browsers opening /ws cannot, so they pass ?token= instead.
const tokenHeader = "X-Claude-Bar-Token"

// requireToken rejects requests that do not carry token. An empty token
// leaves the mirror open, which is the default for a loopback bind.
func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(requestToken(r)), want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestToken returns the first token the request presents: the header,
// then a bearer token, then the query parameter.
func requestToken(r *http.Request) string {
	if v := r.Header.Get(tokenHeader); v != "" {
		return v
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return v
	}
	return r.URL.Query().Get("token")
}

// originPolicy is the set of browser origins allowed to open /ws, keyed
// by normalized scheme://host. An empty policy trusts pages served from
// loopback or from the mirror's own host.
type originPolicy map[string]bool

func newOriginPolicy(origins []string) originPolicy {
	p := make(originPolicy, len(origins))
	for _, o := range origins {
		if key, ok := normalizeOrigin(o); ok {
			p[key] = true
		}
	}
	return p
}

// normalizeOrigin lowercases scheme and host and drops any path.
func normalizeOrigin(origin string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}

func (p originPolicy) allows(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Not a browser.
		return true
	}
	key, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if len(p) > 0 {
		return p[key]
	}

	u, err := url.Parse(key)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http_listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info("http_stopped")
		return nil
	}
}
