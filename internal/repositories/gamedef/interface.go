package gamedef

//go:generate mockgen -package=mocks -destination=mocks/mock_repository.go github.com/KirkDiggler/tabletop/internal/repositories/gamedef Repository

import (
	"context"

	"github.com/KirkDiggler/tabletop/internal/models"
)

// Repository defines the interface for game definition persistence
type Repository interface {
	// CreateGame inserts a new game definition
	CreateGame(ctx context.Context, input *CreateGameInput) error

	// GetGame retrieves a game definition by ID
	GetGame(ctx context.Context, input *GetGameInput) (*models.GameDefinition, error)

	// GetGameByName retrieves a game definition by its unique name
	GetGameByName(ctx context.Context, input *GetGameByNameInput) (*models.GameDefinition, error)

	// ListGames returns every game definition ordered by name
	ListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error)

	// UpdateGame replaces the editable fields of a game definition
	UpdateGame(ctx context.Context, input *UpdateGameInput) error

	// DeleteGame removes a game definition
	DeleteGame(ctx context.Context, input *DeleteGameInput) error
}
