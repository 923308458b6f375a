package player

import "github.com/KirkDiggler/tabletop/internal/models"

type SavePlayerInput struct {
	Player *models.Player
}

type GetPlayerInput struct {
	PlayerID string
}

type GetPlayerByUserIDInput struct {
	UserID string
}

type GetPlayersInput struct {
	PlayerIDs []string
}

type GetPlayersOutput struct {
	Players []*models.Player
}
