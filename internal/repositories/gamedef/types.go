package gamedef

import "github.com/KirkDiggler/tabletop/internal/models"

type CreateGameInput struct {
	Game *models.GameDefinition
}

type GetGameInput struct {
	GameID string
}

type GetGameByNameInput struct {
	Name string
}

type ListGamesInput struct {
}

type ListGamesOutput struct {
	Games []*models.GameDefinition
}

type UpdateGameInput struct {
	Game *models.GameDefinition
}

type DeleteGameInput struct {
	GameID string
}
