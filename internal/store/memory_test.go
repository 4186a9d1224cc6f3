package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robalobadob/minesweeper/internal/game"
)

func newGame(t *testing.T) *game.Game {
	t.Helper()
	g, err := game.New(game.Config{Width: 5, Height: 5, Mines: 3})
	require.NoError(t, err)
	return g
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	g := newGame(t)

	require.NoError(t, st.Save(ctx, g))
	got, err := st.Get(ctx, g.ID)
	require.NoError(t, err)
	require.Same(t, g, got)
	require.Equal(t, 1, st.Len())

	require.NoError(t, st.Delete(ctx, g.ID))
	_, err = st.Get(ctx, g.ID)
	require.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, st.Delete(ctx, "missing"))
}

func TestMemoryStoreRejectsNil(t *testing.T) {
	require.Error(t, NewMemoryStore().Save(context.Background(), nil))
}

func TestMemoryStoreConcurrent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	games := make([]*game.Game, 32)
	for i := range games {
		games[i] = newGame(t)
	}
	var wg sync.WaitGroup
	for _, g := range games {
		wg.Add(1)
		go func(g *game.Game) {
			defer wg.Done()
			_ = st.Save(ctx, g)
			_, _ = st.Get(ctx, g.ID)
		}(g)
	}
	wg.Wait()
	require.Equal(t, 32, st.Len())
}

func TestMemoryStoreIdle(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st := &memory{games: make(map[string]entry), now: func() time.Time { return clock }}

	old, fresh := newGame(t), newGame(t)
	require.NoError(t, st.Save(ctx, old))
	require.NoError(t, st.Save(ctx, fresh))

	clock = clock.Add(time.Hour)
	_, err := st.Get(ctx, fresh.ID)
	require.NoError(t, err)

	ids, err := st.Idle(ctx, clock.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, []string{old.ID}, ids)

	ids, err = st.Idle(ctx, clock.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Empty(t, ids)
}
