// internal/game/engine.go
//
// Minefield engine for a single minesweeper board.
// Responsibilities:
//   - Validate board configuration and place mines (seeded, uniform).
//   - Compute adjacency counts once, at placement time.
//   - Apply reveals (with breadth-first flood fill), flags and chords.
//   - Track state transitions: playing → won/lost.
//
// Notes:
//   - The engine is single-threaded; callers serialise access to a Game.
//   - Placement can be deferred until the first reveal that opens a cell
//     (Config.SafeFirstClick).
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
)

// MaxSide bounds either board dimension.
const MaxSide = 256

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrOutOfBounds          = errors.New("position out of bounds")
	ErrGameOver             = errors.New("game is over")
	ErrAlreadyRevealed      = errors.New("cell already revealed")
)

// Validate checks board dimensions and mine count.
// A board needs at least one mine and at least one safe cell.
func Validate(width, height, mines int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: board %dx%d must have positive dimensions",
			ErrInvalidConfiguration, width, height)
	}
	if width > MaxSide || height > MaxSide {
		return fmt.Errorf("%w: board %dx%d exceeds %d per side",
			ErrInvalidConfiguration, width, height, MaxSide)
	}
	total := width * height
	if mines <= 0 || mines >= total {
		return fmt.Errorf("%w: %d mines on %d cells (want 1..%d)",
			ErrInvalidConfiguration, mines, total, total-1)
	}
	return nil
}

// New validates cfg and builds a board.
// Mines are placed immediately unless cfg.SafeFirstClick is set.
func New(cfg Config) (*Game, error) {
	if err := Validate(cfg.Width, cfg.Height, cfg.Mines); err != nil {
		return nil, err
	}
	total := cfg.Width * cfg.Height

	g := &Game{
		ID:      randomID(),
		Width:   cfg.Width,
		Height:  cfg.Height,
		Mines:   cfg.Mines,
		cells:   make([]Cell, total),
		state:   StatePlaying,
		safeHid: total - cfg.Mines,
	}
	for i := range g.cells {
		g.cells[i] = Cell{Pos: g.pos(i), State: CellHidden}
	}
	if cfg.Seed != nil {
		g.seed = *cfg.Seed
	} else {
		g.seed = randomSeed()
	}

	if p := cfg.InitialPlay; p != nil {
		if !g.inside(p.Row, p.Col) {
			return nil, fmt.Errorf("%w: initial play (%d,%d) on %dx%d board",
				ErrOutOfBounds, p.Row, p.Col, g.Width, g.Height)
		}
		g.place(g.index(p.Row, p.Col))
		if _, err := g.Reveal(p.Row, p.Col); err != nil {
			return nil, err
		}
		return g, nil
	}
	if !cfg.SafeFirstClick {
		g.place(-1)
	}
	return g, nil
}

// Replay returns a fresh, playing game with the same mine layout.
// The receiver is left untouched, so finished games stay finished.
func (g *Game) Replay() *Game {
	ng := &Game{
		ID:      randomID(),
		Width:   g.Width,
		Height:  g.Height,
		Mines:   g.Mines,
		seed:    g.seed,
		cells:   make([]Cell, len(g.cells)),
		placed:  g.placed,
		state:   StatePlaying,
		safeHid: len(g.cells) - g.Mines,
	}
	for i, c := range g.cells {
		ng.cells[i] = Cell{Pos: c.Pos, IsMine: c.IsMine, Adjacent: c.Adjacent, State: CellHidden}
	}
	return ng
}

// Reveal opens the cell at (row, col) and returns the newly revealed cells.
//
// Rules:
//   - Revealed or flagged cells are left alone (empty result, no error).
//   - A mine ends the game (Lost) and is the only cell returned.
//   - A zero cell flood-fills its connected zero region plus the numbered
//     cells bordering it. Flagged cells are skipped.
//   - Revealing the last safe cell wins the game.
func (g *Game) Reveal(row, col int) ([]Pos, error) {
	if err := g.check(row, col); err != nil {
		return nil, err
	}
	i := g.index(row, col)
	c := &g.cells[i]
	if c.State != CellHidden {
		return nil, nil
	}
	// Deferred layouts are laid on the first reveal that opens a cell.
	if !g.placed {
		g.place(i)
	}
	if c.IsMine {
		c.State = CellRevealed
		g.state = StateLost
		out := []Pos{c.Pos}
		g.record(PlayExploded, out)
		return out, nil
	}

	out := g.flood(i)
	if c.Adjacent == 0 {
		g.record(PlaySpread, out)
	} else {
		g.record(PlayNumber, out)
	}
	g.settle()
	return out, nil
}

// ToggleFlag flips the flag on a hidden cell and reports whether it is now flagged.
func (g *Game) ToggleFlag(row, col int) (bool, error) {
	if err := g.check(row, col); err != nil {
		return false, err
	}
	c := &g.cells[g.index(row, col)]
	switch c.State {
	case CellRevealed:
		return false, fmt.Errorf("%w: (%d,%d)", ErrAlreadyRevealed, row, col)
	case CellFlagged:
		c.State = CellHidden
		g.flags--
		g.record(PlayFlagRemoved, []Pos{c.Pos})
		return false, nil
	default:
		c.State = CellFlagged
		g.flags++
		g.record(PlayFlagAdded, []Pos{c.Pos})
		return true, nil
	}
}

// Chord reveals the hidden, unflagged neighbours of a revealed numbered
// cell once exactly that many neighbours carry a flag.
// Any other situation is a no-op. A wrongly placed flag loses the game:
// every mine among the targets is revealed and no safe target is opened.
func (g *Game) Chord(row, col int) ([]Pos, error) {
	if err := g.check(row, col); err != nil {
		return nil, err
	}
	i := g.index(row, col)
	c := g.cells[i]
	if c.State != CellRevealed || c.Adjacent == 0 {
		return nil, nil
	}

	flagged := 0
	var targets, mines []int
	g.eachNeighbour(i, func(n int) {
		switch {
		case g.cells[n].State == CellFlagged:
			flagged++
		case g.cells[n].State == CellHidden:
			targets = append(targets, n)
			if g.cells[n].IsMine {
				mines = append(mines, n)
			}
		}
	})
	if flagged != c.Adjacent || len(targets) == 0 {
		return nil, nil
	}

	var out []Pos
	if len(mines) > 0 {
		for _, n := range mines {
			g.cells[n].State = CellRevealed
			out = append(out, g.cells[n].Pos)
		}
		g.state = StateLost
		g.record(PlayExploded, out)
		return out, nil
	}
	for _, n := range targets {
		out = append(out, g.flood(n)...)
	}
	g.record(PlayChord, out)
	g.settle()
	return out, nil
}

// IsWon reports whether every non-mine cell has been revealed.
func (g *Game) IsWon() bool { return g.safeHid == 0 }

// State returns the current lifecycle state.
func (g *Game) State() State { return g.state }

// Over reports whether the game reached a terminal state.
func (g *Game) Over() bool { return g.state != StatePlaying }

// Seed returns the seed the mine layout was (or will be) generated from.
func (g *Game) Seed() uint64 { return g.seed }

// Flags returns the number of flags currently on the board.
func (g *Game) Flags() int { return g.flags }

// RemainingMines is the mine count minus placed flags. It can go negative;
// flags are not checked for correctness.
func (g *Game) RemainingMines() int { return g.Mines - g.flags }

// Cell returns a copy of the cell at (row, col).
func (g *Game) Cell(row, col int) (Cell, error) {
	if !g.inside(row, col) {
		return Cell{}, g.boundsErr(row, col)
	}
	return g.cells[g.index(row, col)], nil
}

// History returns the applied moves, oldest first.
func (g *Game) History() []Play {
	out := make([]Play, len(g.history))
	for i, p := range g.history {
		out[i] = Play{Type: p.Type, Positions: append([]Pos(nil), p.Positions...)}
	}
	return out
}

// Layout returns the board as a matrix: -1 for a mine, otherwise the
// adjacency count. Before deferred placement every entry is 0.
func (g *Game) Layout() [][]int {
	out := make([][]int, g.Height)
	for r := range out {
		out[r] = make([]int, g.Width)
		for c := range out[r] {
			cell := g.cells[g.index(r, c)]
			if cell.IsMine {
				out[r][c] = -1
			} else {
				out[r][c] = cell.Adjacent
			}
		}
	}
	return out
}

// ----------------------------- internals ------------------------------------

// place scatters the mines with a partial Fisher–Yates shuffle over every
// cell except exclude (-1 for none), then computes adjacency counts.
func (g *Game) place(exclude int) {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	candidates := make([]int, 0, len(g.cells))
	for i := range g.cells {
		if i != exclude {
			candidates = append(candidates, i)
		}
	}
	for k := 0; k < g.Mines; k++ {
		j := k + rng.IntN(len(candidates)-k)
		candidates[k], candidates[j] = candidates[j], candidates[k]
	}
	g.lay(candidates[:g.Mines])
}

// lay marks the given cell indices as mines and computes adjacency counts.
func (g *Game) lay(mines []int) {
	for _, i := range mines {
		g.cells[i].IsMine = true
	}
	for i := range g.cells {
		if g.cells[i].IsMine {
			continue
		}
		n := 0
		g.eachNeighbour(i, func(j int) {
			if g.cells[j].IsMine {
				n++
			}
		})
		g.cells[i].Adjacent = n
	}
	g.placed = true
}

// flood reveals start and, while it meets zero cells, their neighbours,
// breadth first. Mines and flagged cells are never opened.
func (g *Game) flood(start int) []Pos {
	var out []Pos
	seen := make([]bool, len(g.cells))
	seen[start] = true
	queue := []int{start}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]

		c := &g.cells[i]
		if c.State != CellHidden || c.IsMine {
			continue
		}
		c.State = CellRevealed
		g.safeHid--
		out = append(out, c.Pos)

		if c.Adjacent != 0 {
			continue
		}
		g.eachNeighbour(i, func(n int) {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		})
	}
	return out
}

// settle moves a playing game to Won once no safe cell is left hidden.
func (g *Game) settle() {
	if g.state == StatePlaying && g.safeHid == 0 {
		g.state = StateWon
	}
}

func (g *Game) record(t PlayType, ps []Pos) {
	g.history = append(g.history, Play{Type: t, Positions: append([]Pos(nil), ps...)})
}

// check rejects moves on finished games and outside the grid.
func (g *Game) check(row, col int) error {
	if g.Over() {
		return fmt.Errorf("%w: game %s is %s", ErrGameOver, g.ID, g.state)
	}
	if !g.inside(row, col) {
		return g.boundsErr(row, col)
	}
	return nil
}

func (g *Game) boundsErr(row, col int) error {
	return fmt.Errorf("%w: (%d,%d) on %dx%d board", ErrOutOfBounds, row, col, g.Width, g.Height)
}

func (g *Game) eachNeighbour(i int, fn func(int)) {
	r, c := i/g.Width, i%g.Width
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			if nr, nc := r+dr, c+dc; g.inside(nr, nc) {
				fn(nr*g.Width + nc)
			}
		}
	}
}

func (g *Game) inside(row, col int) bool {
	return row >= 0 && row < g.Height && col >= 0 && col < g.Width
}

func (g *Game) index(row, col int) int { return row*g.Width + col }

func (g *Game) pos(i int) Pos { return Pos{Row: i / g.Width, Col: i % g.Width} }

// randomID returns a compact 16-hex-char identifier.
func randomID() string {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// randomSeed draws a placement seed from crypto/rand.
func randomSeed() uint64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}
