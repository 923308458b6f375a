package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/models"
	gameRepo "github.com/KirkDiggler/tabletop/internal/repositories/gamedef"
	sessionService "github.com/KirkDiggler/tabletop/internal/services/session"
	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	gameRepo       gameRepo.Repository
	sessionService sessionService.Service
	clock          clock.Clock
	uuidGenerator  uuid.UUID
	logger         *zap.Logger
}

// New creates a new game catalog service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.GameRepo == nil {
		return nil, ErrNilGameRepo
	}

	if cfg.SessionService == nil {
		return nil, ErrNilSessionService
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.UUIDGenerator == nil {
		return nil, ErrNilUUIDGenerator
	}

	return &service{
		gameRepo:       cfg.GameRepo,
		sessionService: cfg.SessionService,
		clock:          cfg.Clock,
		uuidGenerator:  cfg.UUIDGenerator,
		logger:         logging.OrNop(cfg.Logger),
	}, nil
}

// CreateGame validates and stores a new game definition
func (s *service) CreateGame(ctx context.Context, input *CreateGameInput) (*CreateGameOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	now := s.clock.Now()
	game := &models.GameDefinition{
		Name:        strings.TrimSpace(input.Name),
		MinPlayers:  input.MinPlayers,
		MaxPlayers:  input.MaxPlayers,
		StateSchema: input.StateSchema,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := game.Validate(); err != nil {
		return nil, err
	}

	game.ID = s.uuidGenerator.NewUUID()

	err := s.gameRepo.CreateGame(ctx, &gameRepo.CreateGameInput{
		Game: game,
	})
	if err != nil {
		if errors.Is(err, gameRepo.ErrGameNameTaken) {
			return nil, ErrGameNameTaken
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	s.logger.Info("game created",
		zap.String("game_id", game.ID),
		zap.String("name", game.Name),
		zap.Int("min_players", game.MinPlayers),
		zap.Int("max_players", game.MaxPlayers),
	)

	return &CreateGameOutput{
		Game: game,
	}, nil
}

// GetGame retrieves a game by ID
func (s *service) GetGame(ctx context.Context, input *GetGameInput) (*GetGameOutput, error) {
	if input == nil || input.GameID == "" {
		return nil, errors.New("input and game ID are required")
	}

	game, err := s.gameRepo.GetGame(ctx, &gameRepo.GetGameInput{
		GameID: input.GameID,
	})
	if err != nil {
		return nil, translateNotFound(err)
	}

	return &GetGameOutput{
		Game: game,
	}, nil
}

// GetGameByName retrieves a game by name
func (s *service) GetGameByName(ctx context.Context, input *GetGameByNameInput) (*GetGameOutput, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("input and name are required")
	}

	game, err := s.gameRepo.GetGameByName(ctx, &gameRepo.GetGameByNameInput{
		Name: input.Name,
	})
	if err != nil {
		return nil, translateNotFound(err)
	}

	return &GetGameOutput{
		Game: game,
	}, nil
}

// ListGames lists every game ordered by name
func (s *service) ListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error) {
	output, err := s.gameRepo.ListGames(ctx, &gameRepo.ListGamesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}

	return &ListGamesOutput{
		Games: output.Games,
	}, nil
}

// UpdateGame applies the set fields and revalidates the definition
func (s *service) UpdateGame(ctx context.Context, input *UpdateGameInput) (*UpdateGameOutput, error) {
	if input == nil || input.GameID == "" {
		return nil, errors.New("input and game ID are required")
	}

	game, err := s.gameRepo.GetGame(ctx, &gameRepo.GetGameInput{
		GameID: input.GameID,
	})
	if err != nil {
		return nil, translateNotFound(err)
	}

	if input.Name != nil {
		game.Name = strings.TrimSpace(*input.Name)
	}
	if input.MinPlayers != nil {
		game.MinPlayers = *input.MinPlayers
	}
	if input.MaxPlayers != nil {
		game.MaxPlayers = *input.MaxPlayers
	}
	if input.StateSchema != nil {
		game.StateSchema = *input.StateSchema
	}

	if err := game.Validate(); err != nil {
		return nil, err
	}

	game.UpdatedAt = s.clock.Now()

	err = s.gameRepo.UpdateGame(ctx, &gameRepo.UpdateGameInput{
		Game: game,
	})
	if err != nil {
		if errors.Is(err, gameRepo.ErrGameNameTaken) {
			return nil, ErrGameNameTaken
		}
		return nil, translateNotFound(err)
	}

	s.logger.Info("game updated", zap.String("game_id", game.ID))

	return &UpdateGameOutput{
		Game: game,
	}, nil
}

// DeleteGame deletes every session of the game, then the game itself. A
// session created while the cascade ran is picked up by a second sweep once
// the definition is gone.
func (s *service) DeleteGame(ctx context.Context, input *DeleteGameInput) (*DeleteGameOutput, error) {
	if input == nil || input.GameID == "" {
		return nil, errors.New("input and game ID are required")
	}

	if _, err := s.GetGame(ctx, &GetGameInput{GameID: input.GameID}); err != nil {
		return nil, err
	}

	deleted, err := s.deleteSessions(ctx, input.GameID)
	if err != nil {
		return nil, err
	}

	err = s.gameRepo.DeleteGame(ctx, &gameRepo.DeleteGameInput{
		GameID: input.GameID,
	})
	if err != nil {
		return nil, translateNotFound(err)
	}

	stragglers, err := s.deleteSessions(ctx, input.GameID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("game deleted",
		zap.String("game_id", input.GameID),
		zap.Int("sessions_deleted", deleted+stragglers),
		zap.Int("stragglers", stragglers),
	)

	return &DeleteGameOutput{
		DeletedSessions: deleted + stragglers,
	}, nil
}

// deleteSessions removes every session currently listed for the game
func (s *service) deleteSessions(ctx context.Context, gameID string) (int, error) {
	sessions, err := s.sessionService.ListGameSessions(ctx, &sessionService.ListGameSessionsInput{
		GameID: gameID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions for game: %w", err)
	}

	deleted := 0
	for _, session := range sessions.Sessions {
		_, err := s.sessionService.DeleteSession(ctx, &sessionService.DeleteSessionInput{
			SessionID: session.ID,
		})
		if err != nil {
			if errors.Is(err, sessionService.ErrSessionNotFound) {
				continue
			}
			return deleted, fmt.Errorf("failed to delete session %s: %w", session.ID, err)
		}
		deleted++
	}

	return deleted, nil
}

func translateNotFound(err error) error {
	if errors.Is(err, gameRepo.ErrGameNotFound) {
		return ErrGameNotFound
	}

	return fmt.Errorf("game repository: %w", err)
}
