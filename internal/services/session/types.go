package session

import (
	"encoding/json"
	"time"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/keylock"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/models"
	gameRepo "github.com/KirkDiggler/tabletop/internal/repositories/gamedef"
	playerRepo "github.com/KirkDiggler/tabletop/internal/repositories/player"
	sessionRepo "github.com/KirkDiggler/tabletop/internal/repositories/session"
	"github.com/KirkDiggler/tabletop/internal/schema"
	"go.uber.org/zap"
)

const (
	defaultConflictRetries = 3
	defaultRetryInterval   = 10 * time.Millisecond
)

// StateValidator checks a state document against a game's state schema
type StateValidator interface {
	Validate(schemaDoc, state json.RawMessage) ([]schema.Violation, error)
}

// Config holds configuration for the session service
type Config struct {
	// Repository dependencies
	SessionRepo sessionRepo.Repository
	GameRepo    gameRepo.Repository
	PlayerRepo  playerRepo.Repository

	// Service dependencies
	Validator     StateValidator
	Clock         clock.Clock
	UUIDGenerator uuid.UUID

	// Locker serializes mutations per session. A fresh one is created when nil.
	Locker *keylock.Locker

	// ConflictRetries is how often a save that lost a concurrent race is retried. Zero means 3.
	ConflictRetries uint64

	// RetryInterval is the pause between conflict retries. Zero means 10ms.
	RetryInterval time.Duration

	Logger *zap.Logger
}

type CreateSessionInput struct {
	GameID    string
	CreatorID string

	// MinPlayers and MaxPlayers override the game's bounds when set
	MinPlayers *int
	MaxPlayers *int
}

type CreateSessionOutput struct {
	Session *models.Session
}

type JoinSessionInput struct {
	SessionID string
	PlayerID  string
}

type JoinSessionOutput struct {
	Session *models.Session
}

type LeaveSessionInput struct {
	SessionID string
	PlayerID  string
}

type LeaveSessionOutput struct {
	Session *models.Session

	// Reset is true when the last player left and the session went back to waiting
	Reset bool
}

type StartSessionInput struct {
	SessionID          string
	RequestingPlayerID string
}

type StartSessionOutput struct {
	Session *models.Session
}

type AdvanceTurnInput struct {
	SessionID string

	// ActingPlayerID, when set, must be in the roster and, on an active
	// session, hold the current turn
	ActingPlayerID string
}

type AdvanceTurnOutput struct {
	Session  *models.Session
	Advanced bool
}

type UpdateSessionStateInput struct {
	SessionID          string
	RequestingPlayerID string
	State              json.RawMessage
}

type UpdateSessionStateOutput struct {
	Session      *models.Session
	StateUpdated bool
	TurnAdvanced bool
}

type FinishSessionInput struct {
	SessionID string

	// ActingPlayerID, when set, must be in the roster
	ActingPlayerID string
}

type FinishSessionOutput struct {
	Session  *models.Session
	Finished bool
}

type CleanupSessionsInput struct {
	Cutoff time.Time
}

type CleanupSessionsOutput struct {
	Deleted    int
	SessionIDs []string
}

type GetSessionInput struct {
	SessionID string
}

type GetSessionOutput struct {
	Session *models.Session
}

type ListGameSessionsInput struct {
	GameID string
}

type ListGameSessionsOutput struct {
	Sessions []*models.Session
}

type DeleteSessionInput struct {
	SessionID string
}

type DeleteSessionOutput struct {
}
