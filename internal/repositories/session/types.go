package session

import (
	"time"

	"github.com/KirkDiggler/tabletop/internal/models"
)

type GetSessionInput struct {
	SessionID string
}

type SaveSessionInput struct {
	Session *models.Session
}

type DeleteSessionInput struct {
	SessionID string

	// ExpectedVersion guards the delete when non-zero
	ExpectedVersion int64
}

type FindStaleSessionsInput struct {
	Status models.SessionStatus
	Cutoff time.Time
}

type FindStaleSessionsOutput struct {
	Sessions []*models.Session
}

type ListSessionsByGameInput struct {
	GameID string
}

type ListSessionsByGameOutput struct {
	Sessions []*models.Session
}
