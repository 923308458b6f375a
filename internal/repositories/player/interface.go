package player

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/tabletop/internal/repositories/player Repository

import (
	"context"

	"github.com/KirkDiggler/tabletop/internal/models"
)

// Repository defines the interface for player data persistence
type Repository interface {
	// SavePlayer persists a player. It returns ErrUserLinked when the
	// player's user is already linked to a different player.
	SavePlayer(ctx context.Context, input *SavePlayerInput) error

	// GetPlayer retrieves a player by ID
	GetPlayer(ctx context.Context, input *GetPlayerInput) (*models.Player, error)

	// GetPlayerByUserID retrieves the player linked to an external user
	GetPlayerByUserID(ctx context.Context, input *GetPlayerByUserIDInput) (*models.Player, error)

	// GetPlayers retrieves several players at once, skipping unknown ids
	GetPlayers(ctx context.Context, input *GetPlayersInput) (*GetPlayersOutput, error)
}
