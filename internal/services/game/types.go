package game

import (
	"encoding/json"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/models"
	gameRepo "github.com/KirkDiggler/tabletop/internal/repositories/gamedef"
	sessionService "github.com/KirkDiggler/tabletop/internal/services/session"
	"go.uber.org/zap"
)

// Config holds configuration for the game catalog service
type Config struct {
	GameRepo gameRepo.Repository

	// SessionService removes sessions when their game is deleted
	SessionService sessionService.Service

	Clock         clock.Clock
	UUIDGenerator uuid.UUID

	Logger *zap.Logger
}

type CreateGameInput struct {
	Name        string
	MinPlayers  int
	MaxPlayers  int
	StateSchema json.RawMessage
}

type CreateGameOutput struct {
	Game *models.GameDefinition
}

type GetGameInput struct {
	GameID string
}

type GetGameByNameInput struct {
	Name string
}

type GetGameOutput struct {
	Game *models.GameDefinition
}

type ListGamesInput struct {
}

type ListGamesOutput struct {
	Games []*models.GameDefinition
}

// UpdateGameInput changes only the fields that are set
type UpdateGameInput struct {
	GameID      string
	Name        *string
	MinPlayers  *int
	MaxPlayers  *int
	StateSchema *json.RawMessage
}

type UpdateGameOutput struct {
	Game *models.GameDefinition
}

type DeleteGameInput struct {
	GameID string
}

type DeleteGameOutput struct {
	DeletedSessions int
}
