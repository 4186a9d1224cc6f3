package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// fixed builds a board with mines at exactly the given positions.
func fixed(t *testing.T, width, height int, mines ...Pos) *Game {
	t.Helper()
	g, err := New(Config{Width: width, Height: height, Mines: len(mines), SafeFirstClick: true})
	require.NoError(t, err)
	idx := make([]int, len(mines))
	for k, p := range mines {
		idx[k] = g.index(p.Row, p.Col)
	}
	g.lay(idx)
	g.placed = true
	return g
}

func seed(v uint64) *uint64 { return &v }

// countMineNeighbours recomputes an adjacency count from scratch.
func countMineNeighbours(layout [][]int, r, c int) int {
	n := 0
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			nr, nc := r+dr, c+dc
			if nr >= 0 && nr < len(layout) && nc >= 0 && nc < len(layout[0]) && layout[nr][nc] == -1 {
				n++
			}
		}
	}
	return n
}

// EngineSuite groups tests for the minefield engine.
type EngineSuite struct {
	suite.Suite
}

func (s *EngineSuite) TestInvalidConfiguration() {
	cases := []Config{
		{Width: 0, Height: 5, Mines: 1},
		{Width: 5, Height: -1, Mines: 1},
		{Width: 3, Height: 3, Mines: 0},
		{Width: 3, Height: 3, Mines: 9},
		{Width: 3, Height: 3, Mines: 12},
		{Width: MaxSide + 1, Height: 2, Mines: 1},
	}
	for _, cfg := range cases {
		_, err := New(cfg)
		require.Error(s.T(), err)
		require.True(s.T(), errors.Is(err, ErrInvalidConfiguration), "config %+v", cfg)
	}
}

func (s *EngineSuite) TestMineCountAndAdjacency() {
	for sd := uint64(0); sd < 25; sd++ {
		g, err := New(Config{Width: 9, Height: 7, Mines: 15, Seed: seed(sd)})
		require.NoError(s.T(), err)

		layout := g.Layout()
		mines := 0
		for r := range layout {
			for c := range layout[r] {
				if layout[r][c] == -1 {
					mines++
					continue
				}
				require.Equal(s.T(), countMineNeighbours(layout, r, c), layout[r][c], "seed %d cell (%d,%d)", sd, r, c)
			}
		}
		require.Equal(s.T(), 15, mines, "seed %d", sd)
	}
}

func (s *EngineSuite) TestSameSeedSameLayout() {
	a, err := New(Config{Width: 10, Height: 10, Mines: 20, Seed: seed(42)})
	require.NoError(s.T(), err)
	b, err := New(Config{Width: 10, Height: 10, Mines: 20, Seed: seed(42)})
	require.NoError(s.T(), err)
	require.Equal(s.T(), a.Layout(), b.Layout())
	require.Equal(s.T(), uint64(42), a.Seed())
	require.NotEqual(s.T(), a.ID, b.ID)
}

func (s *EngineSuite) TestNearlyFullBoard() {
	g, err := New(Config{Width: 3, Height: 3, Mines: 8, Seed: seed(7)})
	require.NoError(s.T(), err)
	mines := 0
	for _, row := range g.Layout() {
		for _, v := range row {
			if v == -1 {
				mines++
			}
		}
	}
	require.Equal(s.T(), 8, mines)
}

// TestFloodFillThreeByThree: one mine in the corner, revealing the opposite
// corner opens all eight safe cells and wins.
func (s *EngineSuite) TestFloodFillThreeByThree() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})

	got, err := g.Reveal(2, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 8)
	require.NotContains(s.T(), got, Pos{0, 0})
	require.Equal(s.T(), Pos{2, 2}, got[0], "flood starts at the clicked cell")

	for _, p := range []Pos{{0, 1}, {1, 0}, {1, 1}} {
		c, err := g.Cell(p.Row, p.Col)
		require.NoError(s.T(), err)
		require.Equal(s.T(), 1, c.Adjacent)
		require.Equal(s.T(), CellRevealed, c.State)
	}
	require.True(s.T(), g.IsWon())
	require.Equal(s.T(), StateWon, g.State())
}

// TestFloodFillStopsAtNumbers: a wall of mines splits the board; the fill
// covers one side plus the numbered border and never crosses.
func (s *EngineSuite) TestFloodFillStopsAtNumbers() {
	// 5 wide, 4 tall, mines down column 2.
	g := fixed(s.T(), 5, 4, Pos{0, 2}, Pos{1, 2}, Pos{2, 2}, Pos{3, 2})

	got, err := g.Reveal(0, 0)
	require.NoError(s.T(), err)
	require.ElementsMatch(s.T(), []Pos{
		{0, 0}, {1, 0}, {2, 0}, {3, 0},
		{0, 1}, {1, 1}, {2, 1}, {3, 1},
	}, got)
	for r := 0; r < 4; r++ {
		c, _ := g.Cell(r, 3)
		require.Equal(s.T(), CellHidden, c.State)
	}
	require.False(s.T(), g.IsWon())
	require.Equal(s.T(), StatePlaying, g.State())
	require.Equal(s.T(), PlaySpread, g.History()[0].Type)
}

func (s *EngineSuite) TestFloodFillSkipsFlags() {
	g := fixed(s.T(), 4, 4, Pos{3, 3})
	flagged, err := g.ToggleFlag(0, 3)
	require.NoError(s.T(), err)
	require.True(s.T(), flagged)

	got, err := g.Reveal(0, 0)
	require.NoError(s.T(), err)
	require.NotContains(s.T(), got, Pos{0, 3})
	c, _ := g.Cell(0, 3)
	require.Equal(s.T(), CellFlagged, c.State)
	require.False(s.T(), g.IsWon(), "a flagged safe cell is still unrevealed")

	_, err = g.ToggleFlag(0, 3)
	require.NoError(s.T(), err)
	_, err = g.Reveal(0, 3)
	require.NoError(s.T(), err)
	require.True(s.T(), g.IsWon())
}

func (s *EngineSuite) TestRevealNumberedCell() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})
	got, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []Pos{{1, 1}}, got)
	require.Equal(s.T(), PlayNumber, g.History()[0].Type)
}

func (s *EngineSuite) TestRevealNoOps() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})
	_, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)

	got, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), got, "already revealed")

	_, err = g.ToggleFlag(0, 0)
	require.NoError(s.T(), err)
	got, err = g.Reveal(0, 0)
	require.NoError(s.T(), err)
	require.Empty(s.T(), got, "flagged cells are not revealed")
	require.Equal(s.T(), StatePlaying, g.State())
	require.Len(s.T(), g.History(), 2)
}

func (s *EngineSuite) TestRevealMineLoses() {
	g := fixed(s.T(), 3, 3, Pos{1, 1})
	got, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []Pos{{1, 1}}, got)
	require.Equal(s.T(), StateLost, g.State())
	require.False(s.T(), g.IsWon())

	_, err = g.Reveal(0, 0)
	require.True(s.T(), errors.Is(err, ErrGameOver))
	_, err = g.ToggleFlag(0, 0)
	require.True(s.T(), errors.Is(err, ErrGameOver))
	require.Equal(s.T(), StateLost, g.State(), "lost is terminal")
}

func (s *EngineSuite) TestOutOfBounds() {
	g := fixed(s.T(), 3, 2, Pos{0, 0})
	for _, p := range []Pos{{-1, 0}, {0, -1}, {2, 0}, {0, 3}} {
		_, err := g.Reveal(p.Row, p.Col)
		require.True(s.T(), errors.Is(err, ErrOutOfBounds), "reveal %v", p)
		_, err = g.ToggleFlag(p.Row, p.Col)
		require.True(s.T(), errors.Is(err, ErrOutOfBounds), "flag %v", p)
		_, err = g.Chord(p.Row, p.Col)
		require.True(s.T(), errors.Is(err, ErrOutOfBounds), "chord %v", p)
		_, err = g.Cell(p.Row, p.Col)
		require.True(s.T(), errors.Is(err, ErrOutOfBounds), "cell %v", p)
	}
}

func (s *EngineSuite) TestToggleFlag() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})

	on, err := g.ToggleFlag(2, 2)
	require.NoError(s.T(), err)
	require.True(s.T(), on)
	require.Equal(s.T(), 0, g.RemainingMines())

	on, err = g.ToggleFlag(2, 2)
	require.NoError(s.T(), err)
	require.False(s.T(), on)
	require.Equal(s.T(), 1, g.RemainingMines())

	_, err = g.Reveal(1, 1)
	require.NoError(s.T(), err)
	_, err = g.ToggleFlag(1, 1)
	require.True(s.T(), errors.Is(err, ErrAlreadyRevealed))

	h := g.History()
	require.Equal(s.T(), PlayFlagAdded, h[0].Type)
	require.Equal(s.T(), PlayFlagRemoved, h[1].Type)
}

func (s *EngineSuite) TestRemainingMinesCanGoNegative() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})
	for _, p := range []Pos{{0, 1}, {0, 2}} {
		_, err := g.ToggleFlag(p.Row, p.Col)
		require.NoError(s.T(), err)
	}
	require.Equal(s.T(), -1, g.RemainingMines())
	require.Equal(s.T(), 2, g.Flags())
}

// Chord layout (4x3):
//
//	* 1 0 0
//	2 2 0 0
//	* 1 0 0
func (s *EngineSuite) TestChord() {
	g := fixed(s.T(), 4, 3, Pos{0, 0}, Pos{2, 0})

	_, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)

	got, err := g.Chord(1, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), got, "no flags yet")

	_, err = g.ToggleFlag(0, 0)
	require.NoError(s.T(), err)
	got, err = g.Chord(1, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), got, "one flag, count is two")

	_, err = g.ToggleFlag(2, 0)
	require.NoError(s.T(), err)
	got, err = g.Chord(1, 1)
	require.NoError(s.T(), err)
	require.Contains(s.T(), got, Pos{1, 0})
	require.Contains(s.T(), got, Pos{0, 3}, "zero neighbours spread")
	require.True(s.T(), g.IsWon())
	require.Equal(s.T(), PlayChord, g.History()[len(g.History())-1].Type)
}

func (s *EngineSuite) TestChordTooManyFlags() {
	g := fixed(s.T(), 4, 3, Pos{0, 0}, Pos{2, 0})
	_, err := g.Reveal(0, 1)
	require.NoError(s.T(), err)
	for _, p := range []Pos{{0, 0}, {1, 0}} {
		_, err = g.ToggleFlag(p.Row, p.Col)
		require.NoError(s.T(), err)
	}
	got, err := g.Chord(0, 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), got)
}

func (s *EngineSuite) TestChordWrongFlagLoses() {
	g := fixed(s.T(), 4, 3, Pos{0, 0}, Pos{2, 0})
	_, err := g.Reveal(0, 1)
	require.NoError(s.T(), err)
	_, err = g.ToggleFlag(1, 0) // wrong: the mine is at (0,0)
	require.NoError(s.T(), err)

	got, err := g.Chord(0, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), []Pos{{0, 0}}, got)
	require.Equal(s.T(), StateLost, g.State())
	require.False(s.T(), g.IsWon())
}

func (s *EngineSuite) TestSafeFirstClick() {
	for sd := uint64(0); sd < 50; sd++ {
		g, err := New(Config{Width: 4, Height: 4, Mines: 15, Seed: seed(sd), SafeFirstClick: true})
		require.NoError(s.T(), err)

		got, err := g.Reveal(2, 1)
		require.NoError(s.T(), err)
		require.Equal(s.T(), []Pos{{2, 1}}, got)
		require.Equal(s.T(), StateWon, g.State(), "15 mines on 16 cells: the only safe cell wins")
	}
}

func (s *EngineSuite) TestSafeFirstClickIgnoresFlaggedReveal() {
	for sd := uint64(0); sd < 50; sd++ {
		g, err := New(Config{Width: 3, Height: 3, Mines: 8, Seed: seed(sd), SafeFirstClick: true})
		require.NoError(s.T(), err)

		on, err := g.ToggleFlag(0, 0)
		require.NoError(s.T(), err)
		require.True(s.T(), on)
		got, err := g.Reveal(0, 0)
		require.NoError(s.T(), err)
		require.Empty(s.T(), got)

		got, err = g.Reveal(2, 2)
		require.NoError(s.T(), err)
		require.Equal(s.T(), []Pos{{2, 2}}, got)
		require.Equal(s.T(), StateWon, g.State(), "seed %d", sd)
		layout := g.Layout()
		require.Equal(s.T(), -1, layout[0][0], "the flagged cell was not kept free")
		require.Equal(s.T(), 3, layout[2][2])
	}
}

func (s *EngineSuite) TestInitialPlay() {
	g, err := New(Config{Width: 5, Height: 5, Mines: 5, Seed: seed(10), InitialPlay: &Pos{1, 0}})
	require.NoError(s.T(), err)
	require.NotEqual(s.T(), StateLost, g.State())
	c, _ := g.Cell(1, 0)
	require.False(s.T(), c.IsMine)
	require.Equal(s.T(), CellRevealed, c.State)
	require.NotEmpty(s.T(), g.History())

	_, err = New(Config{Width: 5, Height: 5, Mines: 5, InitialPlay: &Pos{5, 0}})
	require.True(s.T(), errors.Is(err, ErrOutOfBounds))
}

func (s *EngineSuite) TestReplayKeepsLayout() {
	g := fixed(s.T(), 3, 3, Pos{1, 1})
	_, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)
	require.Equal(s.T(), StateLost, g.State())

	r := g.Replay()
	require.Equal(s.T(), StatePlaying, r.State())
	require.Equal(s.T(), g.Layout(), r.Layout())
	require.NotEqual(s.T(), g.ID, r.ID)
	require.Empty(s.T(), r.History())
	require.Equal(s.T(), StateLost, g.State(), "source game untouched")

	_, err = r.Reveal(0, 0)
	require.NoError(s.T(), err)
	require.Equal(s.T(), StatePlaying, r.State())
}

func (s *EngineSuite) TestHistoryIsCopy() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})
	_, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)
	h := g.History()
	h[0].Positions[0] = Pos{9, 9}
	require.Equal(s.T(), Pos{1, 1}, g.History()[0].Positions[0])
}

func (s *EngineSuite) TestView() {
	g := fixed(s.T(), 3, 3, Pos{0, 0})
	_, err := g.Reveal(1, 1)
	require.NoError(s.T(), err)

	v := g.View(false)
	require.Equal(s.T(), g.ID, v.ID)
	require.Equal(s.T(), CellRevealed, v.Cells[1][1].State)
	require.Equal(s.T(), 1, v.Cells[1][1].Count)
	require.False(s.T(), v.Cells[0][0].Mine, "mines hidden while playing")
	require.Equal(s.T(), 0, v.Cells[2][2].Count, "hidden counts are not leaked")

	require.True(s.T(), g.View(true).Cells[0][0].Mine)

	_, err = g.Reveal(0, 0)
	require.NoError(s.T(), err)
	v = g.View(false)
	require.Equal(s.T(), StateLost, v.State)
	require.True(s.T(), v.Cells[0][0].Mine)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}
