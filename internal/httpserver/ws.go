// internal/httpserver/ws.go
//
// Live game view over websockets:
//   - GET /game/{id}/ws upgrades and sends the current view.
//   - Every applied move on that game pushes the new view to all watchers.
//   - Watchers of an evicted game are disconnected.

package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

const wsWriteWait = 5 * time.Second

// hub fans game views out to websocket watchers, per game ID.
// All writes happen under mu, so a connection never sees concurrent writers.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*websocket.Conn]struct{})}
}

// add registers c for id and sends it the first message.
func (h *hub) add(id string, c *websocket.Conn, first any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := write(c, first); err != nil {
		return err
	}
	if h.subs[id] == nil {
		h.subs[id] = make(map[*websocket.Conn]struct{})
	}
	h.subs[id][c] = struct{}{}
	return nil
}

func (h *hub) remove(id string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[id], c)
	if len(h.subs[id]) == 0 {
		delete(h.subs, id)
	}
}

// broadcast sends v to every watcher of id, dropping connections that fail.
func (h *hub) broadcast(id string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[id] {
		if err := write(c, v); err != nil {
			log.Debug().Err(err).Str("gameId", id).Msg("drop watcher")
			delete(h.subs[id], c)
			_ = c.Close()
		}
	}
}

// drop disconnects every watcher of id.
func (h *hub) drop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[id] {
		_ = c.Close()
	}
	delete(h.subs, id)
}

// watchers reports how many connections follow id.
func (h *hub) watchers(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}

func write(c *websocket.Conn, v any) error {
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.WriteJSON(v)
}

// handleWatch upgrades to a websocket that receives the game view now and
// after every applied move. Client messages are read and discarded.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	up := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error
		hlog.FromRequest(r).Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	if err := s.hub.add(id, conn, s.view(g)); err != nil {
		return
	}
	defer s.hub.remove(id, conn)
	hlog.FromRequest(r).Info().Str("gameId", id).Msg("watcher joined")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// checkOrigin accepts same-host requests, non-browser clients and the configured client origin.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || origin == s.cfg.ClientOrigin || origin == "http://"+r.Host || origin == "https://"+r.Host
}
