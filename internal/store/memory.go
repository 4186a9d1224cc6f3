// internal/store/memory.go
//
// In-memory implementation of the live-game Store.
//
// Characteristics:
//   - Stores *game.Game objects keyed by Game.ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - The map is guarded, the games are not: callers serialise moves on a game.
//   - Save and Get stamp the game as used; Idle lists games not used since a
//     cutoff so the caller can Delete them.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robalobadob/minesweeper/internal/game"
)

// ErrNotFound is returned by Get for unknown game IDs.
var ErrNotFound = errors.New("game not found")

// Store defines the persistence interface for live games.
type Store interface {
	// Save persists or replaces a game.
	Save(ctx context.Context, g *game.Game) error

	// Get retrieves a game by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*game.Game, error)

	// Delete drops a game; unknown IDs are ignored.
	Delete(ctx context.Context, id string) error

	// Len reports how many games are held.
	Len() int

	// Idle lists the IDs of games last saved or fetched before cutoff.
	Idle(ctx context.Context, before time.Time) ([]string, error)
}

type entry struct {
	g    *game.Game
	used time.Time
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu    sync.RWMutex     // guards games map
	games map[string]entry // keyed by Game.ID
	now   func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{games: make(map[string]entry), now: time.Now}
}

func (m *memory) Save(ctx context.Context, g *game.Game) error {
	if g == nil || g.ID == "" {
		return errors.New("store: game without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[g.ID] = entry{g: g, used: m.now()}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.used = m.now()
	m.games[id] = e
	return e.g, nil
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, id)
	return nil
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

func (m *memory) Idle(ctx context.Context, before time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for id, e := range m.games {
		if e.used.Before(before) {
			out = append(out, id)
		}
	}
	return out, nil
}
