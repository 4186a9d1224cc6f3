// internal/game/types.go
//
// Core type definitions for the minefield engine.
// Defines:
//   - Pos: a (row, col) coordinate.
//   - CellState / Cell: per-cell mine flag, adjacency count and visibility.
//   - State: playing → won/lost.
//   - PlayType / Play: entries of the move history.
//   - Config: parameters accepted by New.

package game

// Pos addresses a cell by row and column, both zero-based.
type Pos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CellState is the visible state of a single cell.
type CellState string

const (
	CellHidden   CellState = "hidden"
	CellRevealed CellState = "revealed"
	CellFlagged  CellState = "flagged"
)

// Cell holds everything the engine knows about one square of the board.
type Cell struct {
	Pos      Pos
	IsMine   bool
	Adjacent int // mines among the up-to-8 neighbours (0–8); 0 for mines
	State    CellState
}

// State is the lifecycle state of a game.
// Won and Lost are terminal.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// PlayType classifies an entry of the move history.
type PlayType string

const (
	PlayExploded    PlayType = "exploded" // a mine was revealed
	PlaySpread      PlayType = "spread"   // a zero cell flood-filled its region
	PlayNumber      PlayType = "number"   // a single numbered cell was revealed
	PlayNothing     PlayType = "nothing"  // the move changed nothing
	PlayChord       PlayType = "chord"
	PlayFlagAdded   PlayType = "flag_added"
	PlayFlagRemoved PlayType = "flag_removed"
)

// Play records one applied move and the cells it touched.
type Play struct {
	Type      PlayType `json:"type"`
	Positions []Pos    `json:"positions"`
}

// Config describes a board to create.
type Config struct {
	Width  int // columns
	Height int // rows
	Mines  int

	// Seed makes mine placement reproducible. When nil a random seed is
	// drawn and still recorded on the game (see Game.Seed).
	Seed *uint64

	// SafeFirstClick defers mine placement until the first Reveal, which
	// is then guaranteed not to hit a mine.
	SafeFirstClick bool

	// InitialPlay, when set, is kept free of mines and revealed right away.
	InitialPlay *Pos
}

// Game is a single minesweeper board together with its play state.
type Game struct {
	ID     string
	Width  int
	Height int
	Mines  int

	seed    uint64
	cells   []Cell // row-major, len == Width*Height
	placed  bool   // mines placed and counts computed
	state   State
	flags   int
	safeHid int // non-mine cells still hidden or flagged
	history []Play
}
