// internal/game/view.go
//
// Client-facing board snapshot. Counts are shown for revealed cells only;
// mines stay hidden until the game is over (or revealAll is asked for).

package game

// CellView is what a player is allowed to see of one cell.
type CellView struct {
	State CellState `json:"state"`
	Count int       `json:"count,omitempty"` // only for revealed safe cells
	Mine  bool      `json:"mine,omitempty"`
}

// View is a presentation-neutral snapshot of a game, safe to send to clients.
type View struct {
	ID             string       `json:"gameId"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Mines          int          `json:"mines"`
	RemainingMines int          `json:"remainingMines"`
	State          State        `json:"state"`
	Cells          [][]CellView `json:"cells"`
}

// View builds a snapshot of the board. Mines stay hidden while the game is
// playing unless revealAll is set; once the game is over every mine is shown.
func (g *Game) View(revealAll bool) View {
	showMines := revealAll || g.Over()
	v := View{
		ID:             g.ID,
		Width:          g.Width,
		Height:         g.Height,
		Mines:          g.Mines,
		RemainingMines: g.RemainingMines(),
		State:          g.state,
		Cells:          make([][]CellView, g.Height),
	}
	for r := 0; r < g.Height; r++ {
		row := make([]CellView, g.Width)
		for c := 0; c < g.Width; c++ {
			cell := g.cells[g.index(r, c)]
			cv := CellView{State: cell.State}
			if cell.State == CellRevealed && !cell.IsMine {
				cv.Count = cell.Adjacent
			}
			if cell.IsMine && (cell.State == CellRevealed || showMines) {
				cv.Mine = true
			}
			row[c] = cv
		}
		v.Cells[r] = row
	}
	return v
}
