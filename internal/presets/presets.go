// internal/presets/presets.go
//
// Difficulty presets for new games.
//
// Initialization behavior (Init):
//   1. If a path is given (MINES_PRESETS_FILE), presets are read from that YAML file.
//   2. Otherwise the embedded assets/presets.yaml is used.
//
// Every preset is validated against the engine rules at load time, so a
// preset that loads can always start a game.
// Initialization is run once (sync.Once).

package presets

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/minesweeper/assets"
	"github.com/robalobadob/minesweeper/internal/game"
)

// Preset is a named board size and mine count.
type Preset struct {
	Name   string `yaml:"name" json:"name"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	Mines  int    `yaml:"mines" json:"mines"`
}

// Config turns the preset into an engine configuration.
func (p Preset) Config() game.Config {
	return game.Config{Width: p.Width, Height: p.Height, Mines: p.Mines}
}

// Set is a loaded, validated collection of presets.
type Set struct {
	order  []Preset
	byName map[string]Preset
	def    string
}

type file struct {
	Default string   `yaml:"default"`
	Presets []Preset `yaml:"presets"`
}

var (
	initOnce   sync.Once
	loaded     *Set
	initialErr error
)

// Init loads presets exactly once, from path when non-empty or from the
// embedded defaults otherwise.
func Init(path string) error {
	initOnce.Do(func() {
		data := assets.PresetsYAML
		if path != "" {
			b, err := os.ReadFile(path)
			if err != nil {
				initialErr = fmt.Errorf("presets: read %s: %w", path, err)
				return
			}
			data = b
		}
		loaded, initialErr = Parse(data)
	})
	return initialErr
}

// Parse decodes and validates a presets document.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("presets: decode: %w", err)
	}
	if len(f.Presets) == 0 {
		return nil, errors.New("presets: no presets defined")
	}

	s := &Set{byName: make(map[string]Preset, len(f.Presets))}
	for _, p := range f.Presets {
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		if p.Name == "" {
			return nil, errors.New("presets: preset without a name")
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, fmt.Errorf("presets: duplicate preset %q", p.Name)
		}
		if err := game.Validate(p.Width, p.Height, p.Mines); err != nil {
			return nil, fmt.Errorf("presets: %s: %w", p.Name, err)
		}
		s.byName[p.Name] = p
		s.order = append(s.order, p)
	}

	s.def = strings.ToLower(strings.TrimSpace(f.Default))
	if s.def == "" {
		s.def = s.order[0].Name
	}
	if _, ok := s.byName[s.def]; !ok {
		return nil, fmt.Errorf("presets: default %q is not defined", s.def)
	}
	return s, nil
}

// Get looks up a preset by case-insensitive name.
func (s *Set) Get(name string) (Preset, bool) {
	p, ok := s.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// All returns the presets in file order.
func (s *Set) All() []Preset { return append([]Preset(nil), s.order...) }

// Names lists preset names in file order.
func (s *Set) Names() []string {
	out := make([]string, len(s.order))
	for i, p := range s.order {
		out[i] = p.Name
	}
	return out
}

// Default returns the preset used when a request names none.
func (s *Set) Default() Preset { return s.byName[s.def] }

// Loaded returns the set installed by Init, or nil before a successful Init.
func Loaded() *Set { return loaded }
