package daily_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/robalobadob/minesweeper/internal/daily"
	"github.com/robalobadob/minesweeper/internal/db"
)

func TestDateKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	ts := time.Date(2026, 3, 2, 5, 0, 0, 0, loc) // 2026-03-01 19:00 UTC
	require.Equal(t, "2026-03-01", daily.DateKey(ts))
}

func TestSeedIsStablePerDay(t *testing.T) {
	morning := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	nextDay := morning.Add(24 * time.Hour)

	require.Equal(t, daily.Seed(morning, "salt"), daily.Seed(evening, "salt"))
	require.NotEqual(t, daily.Seed(morning, "salt"), daily.Seed(nextDay, "salt"))
	require.NotEqual(t, daily.Seed(morning, "salt"), daily.Seed(morning, "pepper"))
}

// StoreSuite exercises the sqlite result store.
type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *daily.Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	conn, err := db.OpenMigrated(db.Memory)
	require.NoError(s.T(), err)
	s.T().Cleanup(func() { _ = conn.Close() })
	s.store = daily.NewStore(conn)
}

func (s *StoreSuite) TestAlreadyPlayed() {
	played, err := s.store.AlreadyPlayed(s.ctx, "u1", "2026-03-01")
	require.NoError(s.T(), err)
	require.False(s.T(), played)

	require.NoError(s.T(), s.store.InsertResult(s.ctx, daily.Result{
		UserID: "u1", Date: "2026-03-01", Seed: 1 << 63, Moves: 12, ElapsedMs: 5000,
	}))
	played, err = s.store.AlreadyPlayed(s.ctx, "u1", "2026-03-01")
	require.NoError(s.T(), err)
	require.True(s.T(), played)
}

func (s *StoreSuite) TestOneResultPerDay() {
	for _, ms := range []int{9000, 1000} {
		require.NoError(s.T(), s.store.InsertResult(s.ctx, daily.Result{
			UserID: "u1", Date: "2026-03-01", Moves: 5, ElapsedMs: ms,
		}))
	}
	rows, err := s.store.Leaderboard(s.ctx, "2026-03-01", 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 1)
	require.Equal(s.T(), 9000, rows[0].ElapsedMs, "first result wins")
}

func (s *StoreSuite) TestLeaderboardOrder() {
	results := []daily.Result{
		{UserID: "slow", Date: "2026-03-01", Moves: 5, ElapsedMs: 9000},
		{UserID: "fast", Date: "2026-03-01", Moves: 9, ElapsedMs: 1000},
		{UserID: "tie", Date: "2026-03-01", Moves: 4, ElapsedMs: 1000},
		{UserID: "other-day", Date: "2026-03-02", Moves: 1, ElapsedMs: 1},
	}
	for _, r := range results {
		require.NoError(s.T(), s.store.InsertResult(s.ctx, r))
	}

	rows, err := s.store.Leaderboard(s.ctx, "2026-03-01", 0)
	require.NoError(s.T(), err)
	ids := []string{}
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	require.Equal(s.T(), []string{"tie", "fast", "slow"}, ids)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
