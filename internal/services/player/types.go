package player

import (
	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/models"
	playerRepo "github.com/KirkDiggler/tabletop/internal/repositories/player"
	"go.uber.org/zap"
)

// Config holds configuration for the player service
type Config struct {
	PlayerRepo    playerRepo.Repository
	Clock         clock.Clock
	UUIDGenerator uuid.UUID
	Logger        *zap.Logger
}

// RegisterPlayerInput identifies a player by ID, by UserID, or neither for a new one
type RegisterPlayerInput struct {
	PlayerID string
	UserID   string
	Name     string
}

type RegisterPlayerOutput struct {
	Player *models.Player

	// Created is false when an existing player was found
	Created bool
}

type GetPlayerInput struct {
	PlayerID string
}

type GetPlayerOutput struct {
	Player *models.Player
}

type GetPlayersInput struct {
	PlayerIDs []string
}

type GetPlayersOutput struct {
	Players []*models.Player
}
