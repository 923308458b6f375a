package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/keylock"
	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/models"
	gameRepo "github.com/KirkDiggler/tabletop/internal/repositories/gamedef"
	playerRepo "github.com/KirkDiggler/tabletop/internal/repositories/player"
	sessionRepo "github.com/KirkDiggler/tabletop/internal/repositories/session"
	"github.com/KirkDiggler/tabletop/internal/schema"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	sessionRepo     sessionRepo.Repository
	gameRepo        gameRepo.Repository
	playerRepo      playerRepo.Repository
	validator       StateValidator
	clock           clock.Clock
	uuidGenerator   uuid.UUID
	locker          *keylock.Locker
	conflictRetries uint64
	retryInterval   time.Duration
	logger          *zap.Logger
}

// New creates a new session service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.SessionRepo == nil {
		return nil, ErrNilSessionRepo
	}

	if cfg.GameRepo == nil {
		return nil, ErrNilGameRepo
	}

	if cfg.PlayerRepo == nil {
		return nil, ErrNilPlayerRepo
	}

	if cfg.Validator == nil {
		return nil, ErrNilValidator
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.UUIDGenerator == nil {
		return nil, ErrNilUUIDGenerator
	}

	locker := cfg.Locker
	if locker == nil {
		locker = keylock.New()
	}

	retries := cfg.ConflictRetries
	if retries == 0 {
		retries = defaultConflictRetries
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	return &service{
		sessionRepo:     cfg.SessionRepo,
		gameRepo:        cfg.GameRepo,
		playerRepo:      cfg.PlayerRepo,
		validator:       cfg.Validator,
		clock:           cfg.Clock,
		uuidGenerator:   cfg.UUIDGenerator,
		locker:          locker,
		conflictRetries: retries,
		retryInterval:   interval,
		logger:          logging.OrNop(cfg.Logger),
	}, nil
}

// CreateSession opens a new waiting session of a game
func (s *service) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil || input.GameID == "" || input.CreatorID == "" {
		return nil, errors.New("input, game ID and creator ID are required")
	}

	if err := s.requirePlayer(ctx, input.CreatorID); err != nil {
		return nil, err
	}

	game, err := s.loadGame(ctx, input.GameID)
	if err != nil {
		return nil, err
	}

	minPlayers, maxPlayers := game.MinPlayers, game.MaxPlayers
	if input.MinPlayers != nil {
		minPlayers = *input.MinPlayers
	}
	if input.MaxPlayers != nil {
		maxPlayers = *input.MaxPlayers
	}
	if input.MinPlayers != nil || input.MaxPlayers != nil {
		if err := models.ValidatePlayerBounds(minPlayers, maxPlayers); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	session := &models.Session{
		ID:         s.uuidGenerator.NewUUID(),
		GameID:     game.ID,
		CreatorID:  input.CreatorID,
		Status:     models.SessionStatusWaiting,
		MinPlayers: minPlayers,
		MaxPlayers: maxPlayers,
		PlayerIDs:  []string{},
		State:      json.RawMessage(`{}`),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.sessionRepo.SaveSession(ctx, &sessionRepo.SaveSessionInput{
		Session: session,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	// the game may have been deleted while this session was being saved
	if _, err := s.loadGame(ctx, game.ID); err != nil {
		if !errors.Is(err, ErrGameNotFound) {
			return nil, err
		}

		derr := s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{
			SessionID: session.ID,
		})
		if derr != nil && !errors.Is(derr, sessionRepo.ErrSessionNotFound) {
			s.logger.Warn("failed to remove session of deleted game",
				zap.String("session_id", session.ID),
				zap.Error(derr),
			)
		}

		return nil, ErrGameNotFound
	}

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("game_id", game.ID),
		zap.String("creator_id", input.CreatorID),
	)

	return &CreateSessionOutput{
		Session: session,
	}, nil
}

// JoinSession adds a player to a waiting session
func (s *service) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	if input == nil || input.SessionID == "" || input.PlayerID == "" {
		return nil, errors.New("input, session ID and player ID are required")
	}

	if err := s.requirePlayer(ctx, input.PlayerID); err != nil {
		return nil, err
	}

	session, err := s.mutate(ctx, input.SessionID, func(session *models.Session) (bool, error) {
		roster := NewRoster(session)
		if err := roster.Admit(input.PlayerID); err != nil {
			return false, err
		}
		roster.Add(input.PlayerID)

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player joined session",
		zap.String("session_id", session.ID),
		zap.String("player_id", input.PlayerID),
		zap.Int("players", len(session.PlayerIDs)),
	)

	return &JoinSessionOutput{
		Session: session,
	}, nil
}

// LeaveSession removes a player. When the roster empties the session goes
// back to waiting whatever its status was.
func (s *service) LeaveSession(ctx context.Context, input *LeaveSessionInput) (*LeaveSessionOutput, error) {
	if input == nil || input.SessionID == "" || input.PlayerID == "" {
		return nil, errors.New("input, session ID and player ID are required")
	}

	var reset bool
	session, err := s.mutate(ctx, input.SessionID, func(session *models.Session) (bool, error) {
		reset = false

		roster := NewRoster(session)
		if !roster.Remove(input.PlayerID) {
			return false, ErrPlayerNotInSession
		}

		if roster.IsEmpty() {
			reset = session.Status != models.SessionStatusWaiting
			session.Status = models.SessionStatusWaiting
			session.CurrentPlayerIndex = nil
		}

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player left session",
		zap.String("session_id", session.ID),
		zap.String("player_id", input.PlayerID),
		zap.Bool("reset", reset),
	)

	return &LeaveSessionOutput{
		Session: session,
		Reset:   reset,
	}, nil
}

// StartSession moves a waiting session with enough players to active. The
// requesting player takes the first turn.
func (s *service) StartSession(ctx context.Context, input *StartSessionInput) (*StartSessionOutput, error) {
	if input == nil || input.SessionID == "" || input.RequestingPlayerID == "" {
		return nil, errors.New("input, session ID and requesting player ID are required")
	}

	session, err := s.mutate(ctx, input.SessionID, func(session *models.Session) (bool, error) {
		if err := session.Status.CanTransitionTo(models.SessionStatusActive); err != nil {
			return false, fmt.Errorf("%w: %w", ErrInvalidGameStart, err)
		}

		roster := NewRoster(session)
		count := roster.Count()
		if count < session.MinPlayers || count > session.MaxPlayers {
			return false, &PlayerCountError{
				Current: count,
				Min:     session.MinPlayers,
				Max:     session.MaxPlayers,
			}
		}

		idx := roster.IndexOf(input.RequestingPlayerID)
		if idx < 0 {
			return false, ErrPlayerNotInSession
		}

		session.Status = models.SessionStatusActive
		session.CurrentPlayerIndex = &idx

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.String("started_by", input.RequestingPlayerID),
	)

	return &StartSessionOutput{
		Session: session,
	}, nil
}

// AdvanceTurn passes the turn on. Sessions that are not active are left
// untouched. With an acting player the check runs against the same load the
// save is based on, so a repeated pass by one player cannot advance twice.
func (s *service) AdvanceTurn(ctx context.Context, input *AdvanceTurnInput) (*AdvanceTurnOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID are required")
	}

	var advanced bool
	session, err := s.mutate(ctx, input.SessionID, func(session *models.Session) (bool, error) {
		advanced = false

		if input.ActingPlayerID != "" {
			if !NewRoster(session).Contains(input.ActingPlayerID) {
				return false, ErrForbidden
			}
			if session.Status == models.SessionStatusActive && session.CurrentPlayerID() != input.ActingPlayerID {
				return false, ErrNotYourTurn
			}
		}

		advanced = advanceTurn(session)
		return advanced, nil
	})
	if err != nil {
		return nil, err
	}

	return &AdvanceTurnOutput{
		Session:  session,
		Advanced: advanced,
	}, nil
}

// UpdateSessionState validates the new state against the game's current
// schema, stores it, and passes the turn when the session is active. Both
// steps land in a single save.
func (s *service) UpdateSessionState(ctx context.Context, input *UpdateSessionStateInput) (*UpdateSessionStateOutput, error) {
	if input == nil || input.SessionID == "" || input.RequestingPlayerID == "" {
		return nil, errors.New("input, session ID and requesting player ID are required")
	}

	if !json.Valid(input.State) {
		return nil, &StateError{Reason: "state is not valid JSON"}
	}

	var turnAdvanced bool
	session, err := s.mutate(ctx, input.SessionID, func(session *models.Session) (bool, error) {
		turnAdvanced = false

		if session.Status == models.SessionStatusFinished {
			return false, ErrSessionFinished
		}

		if !NewRoster(session).Contains(input.RequestingPlayerID) {
			return false, ErrForbidden
		}

		game, err := s.loadGame(ctx, session.GameID)
		if err != nil {
			return false, err
		}

		violations, err := s.validator.Validate(game.StateSchema, input.State)
		if err != nil {
			if errors.Is(err, schema.ErrSchemaParse) {
				return false, &StateError{Reason: err.Error()}
			}
			return false, fmt.Errorf("failed to validate state: %w", err)
		}
		if len(violations) > 0 {
			return false, &StateError{Violations: violations}
		}

		session.State = append(json.RawMessage(nil), input.State...)
		turnAdvanced = advanceTurn(session)

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session state updated",
		zap.String("session_id", session.ID),
		zap.String("player_id", input.RequestingPlayerID),
		zap.Bool("turn_advanced", turnAdvanced),
	)

	return &UpdateSessionStateOutput{
		Session:      session,
		StateUpdated: true,
		TurnAdvanced: turnAdvanced,
	}, nil
}

// FinishSession ends an active session. Other statuses are left untouched.
func (s *service) FinishSession(ctx context.Context, input *FinishSessionInput) (*FinishSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID are required")
	}

	var finished bool
	session, err := s.mutate(ctx, input.SessionID, func(session *models.Session) (bool, error) {
		finished = false

		if input.ActingPlayerID != "" && !NewRoster(session).Contains(input.ActingPlayerID) {
			return false, ErrForbidden
		}

		if session.Status != models.SessionStatusActive {
			return false, nil
		}
		if err := session.Status.CanTransitionTo(models.SessionStatusFinished); err != nil {
			return false, err
		}

		session.Status = models.SessionStatusFinished
		session.CurrentPlayerIndex = nil
		finished = true

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if finished {
		s.logger.Info("session finished", zap.String("session_id", session.ID))
	}

	return &FinishSessionOutput{
		Session:  session,
		Finished: finished,
	}, nil
}

// CleanupSessions deletes waiting sessions with no players created before
// the cutoff. Each candidate is re-checked under its lock so a session that
// gained a player since the scan survives.
func (s *service) CleanupSessions(ctx context.Context, input *CleanupSessionsInput) (*CleanupSessionsOutput, error) {
	if input == nil || input.Cutoff.IsZero() {
		return nil, errors.New("input and cutoff are required")
	}

	stale, err := s.sessionRepo.FindStaleSessions(ctx, &sessionRepo.FindStaleSessionsInput{
		Status: models.SessionStatusWaiting,
		Cutoff: input.Cutoff,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find stale sessions: %w", err)
	}

	output := &CleanupSessionsOutput{
		SessionIDs: []string{},
	}

	var errs []error
	for _, candidate := range stale.Sessions {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		deleted, err := s.deleteIfStale(ctx, candidate.ID, input.Cutoff)
		if err != nil {
			s.logger.Warn("failed to clean up session",
				zap.String("session_id", candidate.ID),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}

		if deleted {
			output.Deleted++
			output.SessionIDs = append(output.SessionIDs, candidate.ID)
		}
	}

	return output, errors.Join(errs...)
}

func (s *service) deleteIfStale(ctx context.Context, sessionID string, cutoff time.Time) (bool, error) {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	session, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reload session %s: %w", sessionID, err)
	}

	if !isStale(session, cutoff) {
		return false, nil
	}

	// another process may join between the check and the delete
	err = s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{
		SessionID:       sessionID,
		ExpectedVersion: session.Version,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) || errors.Is(err, sessionRepo.ErrSessionConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	return true, nil
}

func isStale(session *models.Session, cutoff time.Time) bool {
	return session.Status == models.SessionStatusWaiting &&
		len(session.PlayerIDs) == 0 &&
		session.CreatedAt.Before(cutoff)
}

// GetSession loads one session
func (s *service) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID are required")
	}

	session, err := s.loadSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	return &GetSessionOutput{
		Session: session,
	}, nil
}

// ListGameSessions lists every session of a game, oldest first
func (s *service) ListGameSessions(ctx context.Context, input *ListGameSessionsInput) (*ListGameSessionsOutput, error) {
	if input == nil || input.GameID == "" {
		return nil, errors.New("input and game ID are required")
	}

	output, err := s.sessionRepo.ListSessionsByGame(ctx, &sessionRepo.ListSessionsByGameInput{
		GameID: input.GameID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return &ListGameSessionsOutput{
		Sessions: output.Sessions,
	}, nil
}

// DeleteSession removes a session under its lock
func (s *service) DeleteSession(ctx context.Context, input *DeleteSessionInput) (*DeleteSessionOutput, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID are required")
	}

	unlock := s.locker.Lock(input.SessionID)
	defer unlock()

	err := s.sessionRepo.DeleteSession(ctx, &sessionRepo.DeleteSessionInput{
		SessionID: input.SessionID,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("session deleted", zap.String("session_id", input.SessionID))

	return &DeleteSessionOutput{}, nil
}

// mutate runs load, apply and save for one session while holding its lock.
// apply reports whether it changed the session; unchanged sessions are not
// saved. A save that loses a race with another process is retried from a
// fresh load.
func (s *service) mutate(ctx context.Context, sessionID string, apply func(*models.Session) (bool, error)) (*models.Session, error) {
	unlock := s.locker.Lock(sessionID)
	defer unlock()

	attempt := func() (*models.Session, error) {
		session, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		changed, err := apply(session)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !changed {
			return session, nil
		}

		session.UpdatedAt = s.clock.Now()

		err = s.sessionRepo.SaveSession(ctx, &sessionRepo.SaveSessionInput{
			Session: session,
		})
		if err != nil {
			if errors.Is(err, sessionRepo.ErrSessionConflict) {
				return nil, err
			}
			return nil, backoff.Permanent(fmt.Errorf("failed to save session: %w", err))
		}

		return session, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retryInterval), s.conflictRetries),
		ctx,
	)

	session, err := backoff.RetryNotifyWithData(attempt, policy, func(err error, next time.Duration) {
		s.logger.Debug("retrying session save after conflict",
			zap.String("session_id", sessionID),
			zap.Duration("backoff", next),
		)
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionConflict) {
			s.logger.Warn("giving up on session save after conflicts", zap.String("session_id", sessionID))
			return nil, ErrConflict
		}
		return nil, err
	}

	return session, nil
}

func (s *service) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessionRepo.GetSession(ctx, &sessionRepo.GetSessionInput{
		SessionID: sessionID,
	})
	if err != nil {
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (s *service) loadGame(ctx context.Context, gameID string) (*models.GameDefinition, error) {
	game, err := s.gameRepo.GetGame(ctx, &gameRepo.GetGameInput{
		GameID: gameID,
	})
	if err != nil {
		if errors.Is(err, gameRepo.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (s *service) requirePlayer(ctx context.Context, playerID string) error {
	_, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{
		PlayerID: playerID,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return ErrPlayerNotFound
		}
		return fmt.Errorf("failed to get player: %w", err)
	}

	return nil
}

// advanceTurn moves the turn pointer one step in join order. It does
// nothing unless the session is active with players.
func advanceTurn(session *models.Session) bool {
	count := len(session.PlayerIDs)
	if session.Status != models.SessionStatusActive || count == 0 {
		return false
	}

	current := 0
	if session.CurrentPlayerIndex != nil {
		current = *session.CurrentPlayerIndex
	}

	next := (current + 1) % count
	session.CurrentPlayerIndex = &next

	return true
}
