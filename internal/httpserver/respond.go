// internal/httpserver/respond.go
//
// JSON response helpers.
//   - writeJSON / writeError write a status and body.
//   - writeErr maps engine and store errors onto HTTP codes:
//     invalid_configuration 400, out_of_bounds 400, game_over 409,
//     already_revealed 409, not_found 404, anything else 500.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/minesweeper/internal/game"
	"github.com/robalobadob/minesweeper/internal/store"
)

// errorRes is the body of every non-2xx JSON response.
type errorRes struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorRes{Error: code})
}

// writeErr maps engine and store errors to HTTP status codes.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, game.ErrInvalidConfiguration):
		status, code = http.StatusBadRequest, "invalid_configuration"
	case errors.Is(err, game.ErrOutOfBounds):
		status, code = http.StatusBadRequest, "out_of_bounds"
	case errors.Is(err, game.ErrGameOver):
		status, code = http.StatusConflict, "game_over"
	case errors.Is(err, game.ErrAlreadyRevealed):
		status, code = http.StatusConflict, "already_revealed"
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal")
		return
	}
	writeJSON(w, status, errorRes{Error: code, Message: err.Error()})
}
