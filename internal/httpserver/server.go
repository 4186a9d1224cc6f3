// internal/httpserver/server.go
//
// HTTP server wiring for the minesweeper backend.
// Responsibilities:
//   - Router + middleware (request IDs, zerolog access log, panic recovery,
//     timeouts, JSON, CORS).
//   - Public endpoints: "/", "/health", "/presets".
//   - Game endpoints (optional auth): /game/*, live view over /game/{id}/ws.
//   - Daily board endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /games/mine.
//
// Notes:
//   - Live games sit in a store.Store; moves are serialised by Server.mu.
//   - Games untouched for cfg.GameTTL are evicted by the janitor started in Start.
//   - Game rows and user stats are persisted best effort; a database hiccup
//     never fails a move.

package httpserver

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/auth"
	"github.com/robalobadob/minesweeper/internal/config"
	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/presets"
	"github.com/robalobadob/minesweeper/internal/store"
)

// finishHook runs once when a game reaches Won or Lost.
type finishHook func(ctx context.Context, g *game.Game)

// Server bundles router, live-game store, DB handle and auth.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	db      *sql.DB
	auth    *auth.Manager
	presets *presets.Set
	hub     *hub
	daily   *dailyServer
	ttl     time.Duration // idle lifetime of a live game

	mu       sync.Mutex // serialises moves on live games
	onFinish []finishHook
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, ps *presets.Set) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		db:      db,
		presets: ps,
		hub:     newHub(),
		ttl:     cfg.GameTTL,
		auth: auth.NewManager(auth.Config{
			Secret:     cfg.JWTSecret,
			TTL:        cfg.JWTTTL,
			CookieName: cfg.CookieName,
			Secure:     cfg.Production,
		}),
	}
	if s.ttl <= 0 {
		s.ttl = time.Hour
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)  // add X-Request-ID
	s.r.Use(chimw.RealIP)     // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)    // per-request zerolog logger
	s.r.Use(chimw.Recoverer)  // recover from panics
	s.r.Use(s.corsFromConfig) // credentials-friendly CORS

	// Websocket upgrades must not be wrapped by the timeout or access log.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/ws", s.handleWatch)

	s.r.Group(func(r chi.Router) {
		r.Use(hlog.AccessHandler(accessLog))
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"minesweeper-go","endpoints":["/health","/presets","POST /game/new","POST /game/reveal","POST /game/flag","POST /game/chord","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "liveGames": s.store.Len()})
		})
		r.Get("/presets", s.handlePresets)

		// Game endpoints: OPTIONAL AUTH (guests can play)
		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth())
			r.Post("/game/new", s.handleNewGame)
			r.Get("/game/{id}", s.handleGetGame)
			r.Post("/game/reveal", s.handleReveal)
			r.Post("/game/flag", s.handleFlag)
			r.Post("/game/chord", s.handleChord)
			r.Post("/game/replay", s.handleReplay)

			// Daily board: OPTIONAL AUTH (guests can play; results kept on win)
			s.mountDaily(r)
		})

		// Auth + profile/stats
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	return s
}

// Start begins serving HTTP on addr and runs the idle-game janitor until
// the listener stops.
func (s *Server) Start(addr string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.janitor(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// janitor sweeps idle games every quarter TTL.
func (s *Server) janitor(ctx context.Context) {
	t := time.NewTicker(s.ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.sweep(ctx, now); n > 0 {
				log.Info().Int("evicted", n).Int("live", s.store.Len()).Msg("swept idle games")
			}
		}
	}
}

// sweep deletes games unused since now-ttl and disconnects their watchers.
// It returns how many games were removed.
func (s *Server) sweep(ctx context.Context, now time.Time) int {
	ids, err := s.store.Idle(ctx, now.Add(-s.ttl))
	if err != nil {
		log.Warn().Err(err).Msg("list idle games")
		return 0
	}
	n := 0
	for _, id := range ids {
		if err := s.store.Delete(ctx, id); err != nil {
			log.Warn().Err(err).Str("gameId", id).Msg("evict game")
			continue
		}
		s.hub.drop(id)
		n++
	}
	return n
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// requestLogger attaches a logger carrying the request ID to the context,
// so handlers can use hlog.FromRequest / zerolog.Ctx.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := log.With().Str("req_id", chimw.GetReqID(r.Context())).Logger()
		next.ServeHTTP(w, r.WithContext(l.WithContext(r.Context())))
	})
}

// accessLog writes one line per finished request.
func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("dur", d).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromConfig enables credentialed CORS for the configured client origin.
func (s *Server) corsFromConfig(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withOptionalAuth decorates requests with the user if a valid JWT is present.
// It never 401s; used for routes where guests are allowed.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.auth.TokenFrom(r); tok != "" {
				if u, err := s.auth.Parse(tok); err == nil {
					if _, err := s.findUserByID(r.Context(), u.ID); err == nil {
						r = r.WithContext(auth.WithUser(r.Context(), u))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid JWT for an existing user.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.auth.TokenFrom(r)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			u, err := s.auth.Parse(tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			// Ensure user still exists
			if _, err := s.findUserByID(r.Context(), u.ID); err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

const anonCookieName = "mines_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
// Used to associate guest games with a stable identifier.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := auth.GenID()
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.auth.Secure(),
		SameSite: s.auth.SameSite(),
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	// later calls within this request must see the same ID
	r.AddCookie(&http.Cookie{Name: anonCookieName, Value: id})
	return id
}

// playerID returns the user ID when logged in, otherwise the anon cookie ID.
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if me := auth.FromContext(r.Context()); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}
