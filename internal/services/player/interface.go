package player

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/tabletop/internal/services/player Service

import "context"

// Service manages the identities that create and join sessions
type Service interface {
	// RegisterPlayer creates a player, or renames it when the ID or UserID is already known
	RegisterPlayer(ctx context.Context, input *RegisterPlayerInput) (*RegisterPlayerOutput, error)

	// GetPlayer retrieves a player by ID
	GetPlayer(ctx context.Context, input *GetPlayerInput) (*GetPlayerOutput, error)

	// GetPlayers retrieves players in the given order, skipping unknown ids
	GetPlayers(ctx context.Context, input *GetPlayersInput) (*GetPlayersOutput, error)
}
