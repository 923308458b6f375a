package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/KirkDiggler/tabletop/internal/schema"
)

// GameDefinition describes an abstract game that sessions are created from
type GameDefinition struct {
	// ID is the unique identifier for the game
	ID string

	// Name is the unique display name of the game
	Name string

	// MinPlayers is the fewest players a session needs to start
	MinPlayers int

	// MaxPlayers is the most players a session can hold
	MaxPlayers int

	// StateSchema is a JSON Schema every session state must satisfy. Empty means unconstrained.
	StateSchema json.RawMessage

	// CreatedAt is when the game was defined
	CreatedAt time.Time

	// UpdatedAt is when the definition was last edited
	UpdatedAt time.Time
}

// Validate checks the definition invariants and returns a *DefinitionError
// naming every offending field
func (g *GameDefinition) Validate() error {
	verr := &DefinitionError{}

	if strings.TrimSpace(g.Name) == "" {
		verr.add("name", "must not be empty")
	}

	if g.MinPlayers <= 0 {
		verr.add("min_players", "must be positive")
	}

	if g.MaxPlayers <= 0 {
		verr.add("max_players", "must be positive")
	} else if g.MaxPlayers < g.MinPlayers {
		verr.add("max_players", "must be greater than or equal to min_players")
	}

	if _, err := schema.Compile(g.StateSchema); err != nil {
		verr.add("state_schema", err.Error())
	}

	if len(verr.Fields) > 0 {
		return verr
	}

	return nil
}

// ValidatePlayerBounds checks a min/max pair on its own, used for per-session overrides
func ValidatePlayerBounds(minPlayers, maxPlayers int) error {
	verr := &DefinitionError{}

	if minPlayers < 1 {
		verr.add("min_players", "must be at least 1")
	}
	if maxPlayers < 1 {
		verr.add("max_players", "must be at least 1")
	} else if maxPlayers < minPlayers {
		verr.add("max_players", "must be greater than or equal to min_players")
	}

	if len(verr.Fields) > 0 {
		return verr
	}

	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
