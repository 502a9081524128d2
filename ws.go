package main

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// server bundles everything the connection handlers need.
type server struct {
	cfg       *Config
	games     *Registry
	validator TokenValidator
	store     SnapshotStore
	idle      *ShutdownTimer
}

// authenticate resolves the ?token= query parameter to an identity. With no
// validator configured the server runs in insecure local mode and everyone is
// the development host. A missing or invalid token yields no identity; the
// connection proceeds but host actions will be refused.
func (s *server) authenticate(r *http.Request) *AuthResult {
	if s.validator == nil {
		return &AuthResult{UserID: "local-dev", IsHost: true}
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		return nil
	}

	auth, err := s.validator.Validate(token)
	if err != nil {
		logf(s.cfg, "AUTH: Rejected token from %s: %v", realIP(r), err)
		return nil
	}

	return auth
}

func (s *server) serveWebSocket() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		auth := s.authenticate(r)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(s.cfg, "WS: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		c := newClient(conn)
		go c.writePump()

		s.handleConnection(c, auth)
		s.checkIdle()
	}
}

// handleConnection reads the first frame and hands the connection to the role
// handler it names. The role handler runs the connection's whole read loop and
// returns when the peer is gone.
func (s *server) handleConnection(c *client, auth *AuthResult) {
	defer c.shutdown()

	c.startHeartbeat()

	var first ClientMessage
	if err := c.conn.ReadJSON(&first); err != nil {
		return
	}

	switch {
	case first.Host != nil:
		s.handleHostEntry(c, auth, first.Host)
	case first.Team != nil:
		s.handleTeamEntry(c, first.Team)
	case first.Watcher != nil:
		s.handleWatcherEntry(c, first.Watcher)
	default:
		c.trySend(errorMessage("message must contain a host, team, or watcher action"))
	}
}

// checkIdle arms the idle-shutdown countdown when no game has a live host.
func (s *server) checkIdle() {
	if s.cfg.idleShutdown <= 0 {
		return
	}

	s.games.mu.Lock()
	idle := !s.games.anyHostConnected()
	s.games.mu.Unlock()

	if idle {
		s.idle.Start(s.cfg)
	}
}
