package game

import "github.com/KirkDiggler/tabletop/internal/models"

// GameError is a custom error type for game catalog errors
type GameError string

// Error implements the error interface
func (e GameError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrGameNotFound      GameError = "game not found"
	ErrGameNameTaken     GameError = "a game with this name already exists"
	ErrNilConfig         GameError = "config cannot be nil"
	ErrNilGameRepo       GameError = "game repository cannot be nil"
	ErrNilSessionService GameError = "session service cannot be nil"
	ErrNilClock          GameError = "clock cannot be nil"
	ErrNilUUIDGenerator  GameError = "UUID generator cannot be nil"
)

// ErrInvalidDefinition is matched by the *models.DefinitionError returned on bad input
const ErrInvalidDefinition = models.ErrInvalidDefinition
