// internal/httpserver/routes_daily.go
//
// HTTP routes for the daily board.
// Exposes under /daily:
//   - POST /daily/new         start (or resume) today's board
//   - POST /daily/reveal|flag|chord  moves on today's board
//   - GET  /daily/leaderboard fastest wins for today (or ?date=YYYY-MM-DD)
//
// Everyone gets the same layout on a given UTC date (seed = HMAC(salt, date)).
// Each player gets one attempt per day: a finished (won or lost) session
// answers played=true. Wins are persisted with elapsed time. Daily games
// cannot be replayed.

package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/daily"
	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/presets"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	preset   presets.Preset
	now      func() time.Time
	mu       sync.Mutex               // guards sessions and byGame
	sessions map[string]*dailySession // keyed by playerID|date
	byGame   map[string]*dailySession // keyed by game ID
}

// dailySession holds transient state for a daily attempt.
type dailySession struct {
	GameID   string
	PlayerID string
	Date     string
	Seed     uint64
	Start    time.Time
	Finished bool
}

// mountDaily registers all /daily routes and the finish hook recording wins.
func (s *Server) mountDaily(r chi.Router) {
	p, ok := s.presets.Get(s.cfg.DailyPreset)
	if !ok {
		log.Warn().Str("preset", s.cfg.DailyPreset).Msg("unknown daily preset, using default")
		p = s.presets.Default()
	}
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		preset:   p,
		now:      time.Now,
		sessions: make(map[string]*dailySession),
		byGame:   make(map[string]*dailySession),
	}
	s.onFinish = append(s.onFinish, dd.finish)
	s.daily = dd

	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/reveal", dd.handleMove(moveReveal))
		r.Post("/flag", dd.handleMove(moveFlag))
		r.Post("/chord", dd.handleMove(moveChord))
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// dailyNewRes is returned by /daily/new. GameID and View are empty once
// the player already has a result for today.
type dailyNewRes struct {
	GameID string     `json:"gameId"`
	Date   string     `json:"date"`
	Played bool       `json:"played"`
	Preset string     `json:"preset"`
	View   *game.View `json:"view,omitempty"`
}

// handleNew creates or resumes today's daily attempt.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	pid := d.srv.playerID(w, r)
	now := d.now()
	date := daily.DateKey(now)

	if played, err := d.store.AlreadyPlayed(r.Context(), pid, date); err == nil && played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true, Preset: d.preset.Name})
		return
	}

	key := pid + "|" + date
	d.mu.Lock()
	d.pruneLocked(date)
	sess, ok := d.sessions[key]
	finished := ok && sess.Finished
	d.mu.Unlock()

	// A lost attempt still uses up the day.
	if finished {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true, Preset: d.preset.Name})
		return
	}
	if ok {
		if g, err := d.srv.store.Get(r.Context(), sess.GameID); err == nil {
			v := d.srv.view(g)
			writeJSON(w, http.StatusOK, dailyNewRes{GameID: g.ID, Date: date, Preset: d.preset.Name, View: &v})
			return
		}
	}

	seed := daily.Seed(now, d.salt)
	cfg := d.preset.Config()
	cfg.Seed = &seed
	g, err := game.New(cfg)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		writeErr(w, r, err)
		return
	}
	d.srv.insertGame(w, r, g, dailyPrefix+d.preset.Name)

	// An evicted attempt restarts on the same board with the clock still running.
	start := now
	d.mu.Lock()
	if ok {
		delete(d.byGame, sess.GameID)
		start = sess.Start
	}
	ns := &dailySession{GameID: g.ID, PlayerID: pid, Date: date, Seed: seed, Start: start}
	d.sessions[key] = ns
	d.byGame[g.ID] = ns
	d.mu.Unlock()

	v := d.srv.view(g)
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: g.ID, Date: date, Preset: d.preset.Name, View: &v})
}

// handleMove checks the move targets the caller's daily game, then applies it.
func (d *dailyServer) handleMove(kind moveKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeMove(w, r)
		if !ok {
			return
		}
		pid := d.srv.playerID(w, r)
		key := pid + "|" + daily.DateKey(d.now())

		d.mu.Lock()
		sess, ok := d.sessions[key]
		d.mu.Unlock()
		if !ok || sess.GameID != req.GameID {
			writeError(w, http.StatusConflict, "no_session")
			return
		}
		d.srv.applyMove(w, r, req, kind)
	}
}

// finish records a daily win. Losses only close the session.
func (d *dailyServer) finish(ctx context.Context, g *game.Game) {
	d.mu.Lock()
	sess, ok := d.byGame[g.ID]
	if ok {
		sess.Finished = true
	}
	d.mu.Unlock()
	if !ok || g.State() != game.StateWon {
		return
	}

	res := daily.Result{
		UserID:    sess.PlayerID,
		Date:      sess.Date,
		Seed:      sess.Seed,
		Moves:     len(g.History()),
		ElapsedMs: int(d.now().Sub(sess.Start).Milliseconds()),
	}
	if err := d.store.InsertResult(ctx, res); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("gameId", g.ID).Msg("insert daily result")
	}
}

// owns reports whether id is a tracked daily attempt.
func (d *dailyServer) owns(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.byGame[id]
	return ok
}

// pruneLocked forgets sessions from other days. Caller holds d.mu.
func (d *dailyServer) pruneLocked(today string) {
	for k, sess := range d.sessions {
		if sess.Date != today {
			delete(d.sessions, k)
			delete(d.byGame, sess.GameID)
		}
	}
}

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}

