package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	playerKeyPrefix     = "player:"
	userPlayerKeyPrefix = "user_player:"
)

var (
	// ErrPlayerNotFound is returned when a player is not found
	ErrPlayerNotFound = errors.New("player not found")

	// ErrUserLinked is returned when the user is already linked to another player
	ErrUserLinked = errors.New("user is linked to another player")
)

// maxLinkAttempts bounds retries when the user link changes under a save
const maxLinkAttempts = 3

// Config holds configuration for the Redis player repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed player repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	// Validate config
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

// SavePlayer persists a player and its user link. The link is claimed under
// WATCH, so a user can only ever point at one player; a user already linked
// elsewhere gets ErrUserLinked and nothing is written.
func (r *redisRepository) SavePlayer(ctx context.Context, input *SavePlayerInput) error {
	if input == nil || input.Player == nil {
		return errors.New("input and player cannot be nil")
	}

	player := input.Player

	// Ensure the player has an ID
	if player.ID == "" {
		return errors.New("player ID cannot be empty")
	}

	// Marshal the player to JSON
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	playerKey := playerKeyPrefix + player.ID

	// Players without a user link need no claim
	if player.UserID == "" {
		if err := r.client.Set(ctx, playerKey, playerJSON, 0).Err(); err != nil {
			return fmt.Errorf("failed to save player: %w", err)
		}
		return nil
	}

	linkKey := userPlayerKeyPrefix + player.UserID
	txf := func(tx *redis.Tx) error {
		// Check who holds the link now
		linked, err := tx.Get(ctx, linkKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to read user link: %w", err)
		}
		if err == nil && linked != player.ID {
			return ErrUserLinked
		}

		// Write the record and the link together
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey, playerJSON, 0)
			pipe.Set(ctx, linkKey, player.ID, 0)
			return nil
		})
		return err
	}

	// Retry only when the link changed between the read and the write
	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		err = r.client.Watch(ctx, txf, linkKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUserLinked):
		return ErrUserLinked
	default:
		return fmt.Errorf("failed to save player: %w", err)
	}
}

// GetPlayer retrieves a player by ID from Redis
func (r *redisRepository) GetPlayer(ctx context.Context, input *GetPlayerInput) (*models.Player, error) {
	if input == nil || input.PlayerID == "" {
		return nil, errors.New("input and player ID cannot be empty")
	}

	// Get the player from Redis
	playerJSON, err := r.client.Get(ctx, playerKeyPrefix+input.PlayerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	// Unmarshal the player from JSON
	var player models.Player
	if err := json.Unmarshal(playerJSON, &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

// GetPlayerByUserID follows the user link to the player record
func (r *redisRepository) GetPlayerByUserID(ctx context.Context, input *GetPlayerByUserIDInput) (*models.Player, error) {
	if input == nil || input.UserID == "" {
		return nil, errors.New("input and user ID cannot be empty")
	}

	// Resolve the link to a player ID
	playerID, err := r.client.Get(ctx, userPlayerKeyPrefix+input.UserID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player ID for user: %w", err)
	}

	// Load the linked record
	return r.GetPlayer(ctx, &GetPlayerInput{
		PlayerID: playerID,
	})
}

// GetPlayers retrieves players in one pipeline, keeping the requested order
func (r *redisRepository) GetPlayers(ctx context.Context, input *GetPlayersInput) (*GetPlayersOutput, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	// If there are no players, return an empty slice
	if len(input.PlayerIDs) == 0 {
		return &GetPlayersOutput{
			Players: []*models.Player{},
		}, nil
	}

	// Get all player records using a pipeline
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(input.PlayerIDs))
	for i, playerID := range input.PlayerIDs {
		cmds[i] = pipe.Get(ctx, playerKeyPrefix+playerID)
	}

	// Execute the pipeline, a missing player shows up as redis.Nil on its command
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get players: %w", err)
	}

	// Collect the players that exist, in the requested order
	players := make([]*models.Player, 0, len(input.PlayerIDs))
	for i, cmd := range cmds {
		playerJSON, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get player %s: %w", input.PlayerIDs[i], err)
		}

		var player models.Player
		if err := json.Unmarshal(playerJSON, &player); err != nil {
			return nil, fmt.Errorf("failed to unmarshal player %s: %w", input.PlayerIDs[i], err)
		}

		players = append(players, &player)
	}

	return &GetPlayersOutput{
		Players: players,
	}, nil
}
