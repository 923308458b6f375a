package player

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"github.com/KirkDiggler/tabletop/internal/common/uuid"
	"github.com/KirkDiggler/tabletop/internal/models"
	playerRepo "github.com/KirkDiggler/tabletop/internal/repositories/player"
	"go.uber.org/zap"
)

// service implements the Service interface
type service struct {
	playerRepo    playerRepo.Repository
	clock         clock.Clock
	uuidGenerator uuid.UUID
	logger        *zap.Logger
}

// New creates a new player service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	if cfg.PlayerRepo == nil {
		return nil, ErrNilPlayerRepo
	}

	if cfg.Clock == nil {
		return nil, ErrNilClock
	}

	if cfg.UUIDGenerator == nil {
		return nil, ErrNilUUIDGenerator
	}

	return &service{
		playerRepo:    cfg.PlayerRepo,
		clock:         cfg.Clock,
		uuidGenerator: cfg.UUIDGenerator,
		logger:        logging.OrNop(cfg.Logger),
	}, nil
}

// RegisterPlayer upserts a player. Repeated calls with the same ID or UserID
// return the same player and only refresh its display name.
func (s *service) RegisterPlayer(ctx context.Context, input *RegisterPlayerInput) (*RegisterPlayerOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidPlayerName
	}

	existing, err := s.findExisting(ctx, input)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Name != name {
			existing.Name = name
			if err := s.save(ctx, existing); err != nil {
				return nil, err
			}
		}

		return &RegisterPlayerOutput{
			Player:  existing,
			Created: false,
		}, nil
	}

	player := &models.Player{
		ID:        input.PlayerID,
		Name:      name,
		UserID:    input.UserID,
		CreatedAt: s.clock.Now(),
	}
	if player.ID == "" {
		player.ID = s.uuidGenerator.NewUUID()
	}

	if err := s.save(ctx, player); err != nil {
		if !errors.Is(err, playerRepo.ErrUserLinked) {
			return nil, err
		}

		// a concurrent registration for the same user got the link first
		winner, err := s.playerRepo.GetPlayerByUserID(ctx, &playerRepo.GetPlayerByUserIDInput{
			UserID: player.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get player by user: %w", err)
		}

		return &RegisterPlayerOutput{
			Player:  winner,
			Created: false,
		}, nil
	}

	s.logger.Info("player registered",
		zap.String("player_id", player.ID),
		zap.String("user_id", player.UserID),
	)

	return &RegisterPlayerOutput{
		Player:  player,
		Created: true,
	}, nil
}

// GetPlayer retrieves a player by ID
func (s *service) GetPlayer(ctx context.Context, input *GetPlayerInput) (*GetPlayerOutput, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("input and player ID are required")
	}

	player, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{
		PlayerID: input.PlayerID,
	})
	if err != nil {
		if errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &GetPlayerOutput{
		Player: player,
	}, nil
}

// GetPlayers retrieves several players
func (s *service) GetPlayers(ctx context.Context, input *GetPlayersInput) (*GetPlayersOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	if len(input.PlayerIDs) == 0 {
		return &GetPlayersOutput{Players: []*models.Player{}}, nil
	}

	output, err := s.playerRepo.GetPlayers(ctx, &playerRepo.GetPlayersInput{
		PlayerIDs: input.PlayerIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}

	return &GetPlayersOutput{
		Players: output.Players,
	}, nil
}

// findExisting looks the player up by ID first, then by external user
func (s *service) findExisting(ctx context.Context, input *RegisterPlayerInput) (*models.Player, error) {
	if input.PlayerID != "" {
		player, err := s.playerRepo.GetPlayer(ctx, &playerRepo.GetPlayerInput{
			PlayerID: input.PlayerID,
		})
		if err == nil {
			return player, nil
		}
		if !errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, fmt.Errorf("failed to get player: %w", err)
		}
	}

	if input.UserID != "" {
		player, err := s.playerRepo.GetPlayerByUserID(ctx, &playerRepo.GetPlayerByUserIDInput{
			UserID: input.UserID,
		})
		if err == nil {
			return player, nil
		}
		if !errors.Is(err, playerRepo.ErrPlayerNotFound) {
			return nil, fmt.Errorf("failed to get player by user: %w", err)
		}
	}

	return nil, nil
}

func (s *service) save(ctx context.Context, player *models.Player) error {
	err := s.playerRepo.SavePlayer(ctx, &playerRepo.SavePlayerInput{
		Player: player,
	})
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}

	return nil
}
