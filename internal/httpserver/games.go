// internal/httpserver/games.go
//
// Game endpoints:
//   - POST /game/new     create a board from a preset or explicit size
//   - GET  /game/{id}    current view
//   - POST /game/reveal  reveal a cell (flood fill on zeros)
//   - POST /game/flag    toggle a flag
//   - POST /game/chord   reveal around a satisfied number
//   - POST /game/replay  same layout, fresh game (not for daily boards)

package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/minesweeper/internal/game"
)

// newGameReq is the payload for POST /game/new.
// Either Preset or Width/Height/Mines selects the board; neither means the
// default preset.
type newGameReq struct {
	Preset         string  `json:"preset"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Mines          int     `json:"mines"`
	Seed           *uint64 `json:"seed"`           // optional, reproducible layouts
	SafeFirstClick *bool   `json:"safeFirstClick"` // default true
}

type newGameRes struct {
	GameID string    `json:"gameId"`
	Preset string    `json:"preset,omitempty"`
	View   game.View `json:"view"`
}

// moveReq is the payload for reveal/flag/chord.
type moveReq struct {
	GameID string `json:"gameId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

type moveRes struct {
	Positions []game.Pos `json:"positions"`
	Flagged   *bool      `json:"flagged,omitempty"`
	State     game.State `json:"state"`
	View      game.View  `json:"view"`
}

type moveKind string

const (
	moveReveal moveKind = "reveal"
	moveFlag   moveKind = "flag"
	moveChord  moveKind = "chord"
)

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default": s.presets.Default().Name,
		"presets": s.presets.All(),
	})
}

// resolveConfig turns a new-game request into an engine config and the
// preset name it came from ("" for custom boards).
func (s *Server) resolveConfig(req newGameReq) (game.Config, string, bool) {
	var (
		cfg  game.Config
		name string
	)
	switch {
	case req.Preset != "":
		p, ok := s.presets.Get(req.Preset)
		if !ok {
			return cfg, "", false
		}
		cfg, name = p.Config(), p.Name
	case req.Width == 0 && req.Height == 0 && req.Mines == 0:
		p := s.presets.Default()
		cfg, name = p.Config(), p.Name
	default:
		cfg = game.Config{Width: req.Width, Height: req.Height, Mines: req.Mines}
	}
	cfg.Seed = req.Seed
	cfg.SafeFirstClick = req.SafeFirstClick == nil || *req.SafeFirstClick
	return cfg, name, true
}

// handleNewGame creates a live game and records its owner row.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_json")
			return
		}
	}
	cfg, preset, ok := s.resolveConfig(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_preset")
		return
	}
	g, err := game.New(cfg)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	s.startGame(w, r, g, preset)
}

// startGame saves g, records its row and answers with its first view.
func (s *Server) startGame(w http.ResponseWriter, r *http.Request, g *game.Game, preset string) {
	if err := s.store.Save(r.Context(), g); err != nil {
		writeErr(w, r, err)
		return
	}
	s.insertGame(w, r, g, preset)
	writeJSON(w, http.StatusOK, newGameRes{GameID: g.ID, Preset: preset, View: s.view(g)})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(g))
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	if req, ok := decodeMove(w, r); ok {
		s.applyMove(w, r, req, moveReveal)
	}
}

func (s *Server) handleFlag(w http.ResponseWriter, r *http.Request) {
	if req, ok := decodeMove(w, r); ok {
		s.applyMove(w, r, req, moveFlag)
	}
}

func (s *Server) handleChord(w http.ResponseWriter, r *http.Request) {
	if req, ok := decodeMove(w, r); ok {
		s.applyMove(w, r, req, moveChord)
	}
}

// handleReplay starts a new game on the layout of an existing one.
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID string `json:"gameId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	old, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	preset := s.gamePreset(r.Context(), old.ID)
	if strings.HasPrefix(preset, dailyPrefix) || (s.daily != nil && s.daily.owns(old.ID)) {
		writeError(w, http.StatusConflict, "daily_replay")
		return
	}
	s.mu.Lock()
	g := old.Replay()
	s.mu.Unlock()
	s.startGame(w, r, g, replayPreset(preset))
}

// replayPreset names a replay after the preset of the game it copies.
func replayPreset(src string) string {
	src = strings.TrimPrefix(src, replayPrefix)
	if src == "" || src == "replay" {
		return "replay"
	}
	return replayPrefix + src
}

func decodeMove(w http.ResponseWriter, r *http.Request) (moveReq, bool) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return req, false
	}
	req.GameID = strings.TrimSpace(req.GameID)
	if req.GameID == "" {
		writeError(w, http.StatusBadRequest, "missing_game_id")
		return req, false
	}
	return req, true
}

// applyMove runs one engine operation under the move lock, then persists
// progress, notifies watchers and answers with the new view.
func (s *Server) applyMove(w http.ResponseWriter, r *http.Request, req moveReq, kind moveKind) {
	g, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	var res moveRes
	s.mu.Lock()
	before := g.State()
	switch kind {
	case moveReveal:
		res.Positions, err = g.Reveal(req.Row, req.Col)
	case moveFlag:
		var on bool
		on, err = g.ToggleFlag(req.Row, req.Col)
		res.Flagged = &on
	case moveChord:
		res.Positions, err = g.Chord(req.Row, req.Col)
	}
	res.State = g.State()
	res.View = g.View(false)
	moves := len(g.History())
	s.mu.Unlock()

	if err != nil {
		writeErr(w, r, err)
		return
	}
	if res.Positions == nil {
		res.Positions = []game.Pos{}
	}

	finished := before == game.StatePlaying && res.State != game.StatePlaying
	s.recordMove(w, r, g.ID, moves, res.State, finished)
	if finished {
		for _, fn := range s.onFinish {
			fn(r.Context(), g)
		}
	}
	s.hub.broadcast(g.ID, res.View)
	writeJSON(w, http.StatusOK, res)
}

// view snapshots g under the move lock.
func (s *Server) view(g *game.Game) game.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return g.View(false)
}
