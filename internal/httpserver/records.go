// internal/httpserver/records.go
//
// SQL persistence behind the HTTP layer: game rows, user rows and stats.
// Game writes are best effort: failures are logged, never surfaced to players.

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/minesweeper/internal/auth"
	"github.com/robalobadob/minesweeper/internal/game"
)

// tsLayout is a fixed-width UTC timestamp, so string order is time order.
const tsLayout = "2006-01-02T15:04:05.000Z"

// Preset prefixes on game rows.
const (
	dailyPrefix  = "daily:"
	replayPrefix = "replay:"
)

var errUsernameTaken = errors.New("username taken")

func nowTS() string { return time.Now().UTC().Format(tsLayout) }

// owner returns the WHERE clause and argument selecting rows of the caller.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, any) {
	if me := auth.FromContext(r.Context()); me != nil {
		return `user_id=?`, me.ID
	}
	return `anonymous_id=?`, s.ensureAnonID(w, r)
}

// insertGame persists the owner row for a new game (either user_id or anonymous_id).
func (s *Server) insertGame(w http.ResponseWriter, r *http.Request, g *game.Game, preset string) {
	var userID, anonID any
	if me := auth.FromContext(r.Context()); me != nil {
		userID = me.ID
	} else {
		anonID = s.ensureAnonID(w, r)
	}
	_, err := s.db.ExecContext(r.Context(),
		`INSERT INTO games (id, user_id, anonymous_id, preset, width, height, mines, seed, status, moves, started_at)
		 VALUES (?,?,?,?,?,?,?,?,?,0,?)`,
		g.ID, userID, anonID, preset, g.Width, g.Height, g.Mines,
		strconv.FormatUint(g.Seed(), 10), string(game.StatePlaying), nowTS())
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
}

// gamePreset returns the preset recorded for game id, or "" when unknown.
func (s *Server) gamePreset(ctx context.Context, id string) string {
	var p sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT preset FROM games WHERE id=?`, id).Scan(&p); err != nil {
		return ""
	}
	return p.String
}

// recordMove updates move counters and, when the game just ended, its status
// and the owner's stats, in one transaction.
func (s *Server) recordMove(w http.ResponseWriter, r *http.Request, id string, moves int, state game.State, finished bool) {
	l := hlog.FromRequest(r)
	clause, arg := s.owner(w, r)

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		l.Warn().Err(err).Msg("begin move tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE games SET moves=? WHERE id=? AND `+clause, moves, id, arg); err != nil {
		l.Warn().Err(err).Msg("update moves")
	}
	if finished {
		if _, err := tx.Exec(`UPDATE games SET status=?, finished_at=? WHERE id=? AND `+clause,
			string(state), nowTS(), id, arg); err != nil {
			l.Warn().Err(err).Msg("finish game")
		}
		if me := auth.FromContext(r.Context()); me != nil {
			if err := bumpStats(tx, me.ID, state == game.StateWon); err != nil {
				l.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		l.Warn().Err(err).Msg("commit move tx")
	}
}

// bumpStats increments games played; updates wins and streak based on result (within tx).
func bumpStats(tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak int
	row := tx.QueryRow(`SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	_, err := tx.Exec(`UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`, gp, wins, streak, userID)
	return err
}

// claimAnonGames transfers any anonymous games to a user account after auth.
func (s *Server) claimAnonGames(ctx context.Context, anonID, userID string) {
	if anonID == "" || userID == "" {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE games SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`, userID, anonID); err != nil {
		log.Warn().Err(err).Msg("claim anon games")
	}
}

// gameRow is one entry of GET /games/mine.
type gameRow struct {
	ID         string `json:"id"`
	Preset     string `json:"preset,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Mines      int    `json:"mines"`
	Status     string `json:"status"`
	Moves      int    `json:"moves"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// recentGames lists the user's latest games, newest first.
func (s *Server) recentGames(ctx context.Context, userID string, limit int) ([]gameRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, preset, width, height, mines, status, moves, started_at, COALESCE(finished_at,'')
		 FROM games WHERE user_id=? ORDER BY started_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gameRow{}
	for rows.Next() {
		var gr gameRow
		if err := rows.Scan(&gr.ID, &gr.Preset, &gr.Width, &gr.Height, &gr.Mines,
			&gr.Status, &gr.Moves, &gr.StartedAt, &gr.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, gr)
	}
	return out, rows.Err()
}

// ------------------------------- users -------------------------------------

// userRow matches the users table shape.
type userRow struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	GamesPlayed  int
	Wins         int
	Streak       int
}

// createUser validates input, checks uniqueness, hashes password, and inserts a new user.
func (s *Server) createUser(ctx context.Context, username, pw string) (*userRow, error) {
	username = auth.NormalizeUsername(username)
	if err := auth.ValidateSignup(username, pw); err != nil {
		return nil, err
	}
	var exists int
	_ = s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE lower(username)=lower(?)`, username).Scan(&exists)
	if exists == 1 {
		return nil, errUsernameTaken
	}
	h, err := auth.HashPassword(pw)
	if err != nil {
		return nil, err
	}
	u := &userRow{ID: auth.GenID(), Username: username, PasswordHash: h, CreatedAt: time.Now().UTC()}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Username, u.PasswordHash, u.CreatedAt.Format(tsLayout)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, errUsernameTaken
		}
		return nil, err
	}
	return u, nil
}

func (s *Server) findUserByUsername(ctx context.Context, username string) (*userRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                                  FROM users WHERE lower(username)=lower(?)`, username)
	return scanUser(row)
}

func (s *Server) findUserByID(ctx context.Context, id string) (*userRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at, games_played, wins, streak
	                                  FROM users WHERE id=?`, id)
	return scanUser(row)
}

// scanUser converts a *sql.Row into a userRow.
func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &created, &u.GamesPlayed, &u.Wins, &u.Streak); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(tsLayout, created)
	return &u, nil
}
