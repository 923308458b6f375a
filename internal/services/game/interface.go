package game

//go:generate mockgen -package=mocks -destination=mocks/mock_service.go github.com/KirkDiggler/tabletop/internal/services/game Service

import "context"

// Service defines the game catalog operations
type Service interface {
	// CreateGame defines a new game
	CreateGame(ctx context.Context, input *CreateGameInput) (*CreateGameOutput, error)

	// GetGame retrieves a game by ID
	GetGame(ctx context.Context, input *GetGameInput) (*GetGameOutput, error)

	// GetGameByName retrieves a game by name
	GetGameByName(ctx context.Context, input *GetGameByNameInput) (*GetGameOutput, error)

	// ListGames lists every game
	ListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error)

	// UpdateGame edits a game. Existing session state is not revalidated.
	UpdateGame(ctx context.Context, input *UpdateGameInput) (*UpdateGameOutput, error)

	// DeleteGame removes a game together with all of its sessions
	DeleteGame(ctx context.Context, input *DeleteGameInput) (*DeleteGameOutput, error)
}
