package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// Key prefixes for Redis
	sessionKeyPrefix      = "session:"
	statusSessionsPrefix  = "sessions_by_status:"
	gameSessionsKeyPrefix = "game_sessions:"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionConflict is returned when the stored session changed since it was loaded
	ErrSessionConflict = errors.New("session was modified concurrently")

	// ErrDuplicatePlayer is returned when a roster lists the same player twice
	ErrDuplicatePlayer = errors.New("session roster contains a duplicate player")
)

var allStatuses = []models.SessionStatus{
	models.SessionStatusWaiting,
	models.SessionStatusActive,
	models.SessionStatusFinished,
}

// Config holds configuration for the Redis session repository
type Config struct {
	// Redis client
	RedisClient *redis.Client
}

// redisRepository implements the Repository interface using Redis
type redisRepository struct {
	client *redis.Client
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *Config) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisRepository{
		client: cfg.RedisClient,
	}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func statusKey(status models.SessionStatus) string {
	return statusSessionsPrefix + string(status)
}

func gameSessionsKey(gameID string) string {
	return gameSessionsKeyPrefix + gameID
}

// GetSession retrieves a session by ID from Redis
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil || input.SessionID == "" {
		return nil, errors.New("input and session ID cannot be empty")
	}

	data, err := r.client.Get(ctx, sessionKey(input.SessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// SaveSession writes the session inside a WATCH transaction. The write only
// goes through when the stored version equals the caller's version, a new
// session is expected to carry version 0.
func (r *redisRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil {
		return errors.New("input and session cannot be nil")
	}

	session := input.Session
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if !session.Status.Valid() {
		return fmt.Errorf("invalid session status %q", session.Status)
	}
	if hasDuplicates(session.PlayerIDs) {
		return ErrDuplicatePlayer
	}

	next := session.Clone()
	next.Version = session.Version + 1

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := sessionKey(next.ID)
	txf := func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if session.Version != 0 {
				// deleted since it was loaded
				return ErrSessionConflict
			}
		case err != nil:
			return fmt.Errorf("failed to read session: %w", err)
		default:
			var current models.Session
			if err := json.Unmarshal(stored, &current); err != nil {
				return fmt.Errorf("failed to unmarshal session: %w", err)
			}
			if current.Version != session.Version {
				return ErrSessionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)

			for _, status := range allStatuses {
				if status != next.Status {
					pipe.ZRem(ctx, statusKey(status), next.ID)
				}
			}
			pipe.ZAdd(ctx, statusKey(next.Status), redis.Z{
				Score:  float64(next.CreatedAt.UnixMilli()),
				Member: next.ID,
			})

			if next.GameID != "" {
				pipe.SAdd(ctx, gameSessionsKey(next.GameID), next.ID)
			}

			return nil
		})

		return err
	}

	err = r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrSessionConflict):
		return ErrSessionConflict
	default:
		return fmt.Errorf("failed to save session: %w", err)
	}

	session.Version = next.Version

	return nil
}

// DeleteSession removes a session and its index entries. With an
// ExpectedVersion the delete runs under WATCH and only goes through while the
// stored version still matches.
func (r *redisRepository) DeleteSession(ctx context.Context, input *DeleteSessionInput) error {
	if input == nil || input.SessionID == "" {
		return errors.New("input and session ID cannot be empty")
	}

	key := sessionKey(input.SessionID)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("failed to read session: %w", err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		if input.ExpectedVersion != 0 && session.Version != input.ExpectedVersion {
			return ErrSessionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			for _, status := range allStatuses {
				pipe.ZRem(ctx, statusKey(status), session.ID)
			}
			if session.GameID != "" {
				pipe.SRem(ctx, gameSessionsKey(session.GameID), session.ID)
			}
			return nil
		})

		return err
	}

	err := r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, ErrSessionConflict):
		return ErrSessionConflict
	default:
		return fmt.Errorf("failed to delete session: %w", err)
	}
}

// FindStaleSessions returns the sessions in a status created strictly before the cutoff
func (r *redisRepository) FindStaleSessions(ctx context.Context, input *FindStaleSessionsInput) (*FindStaleSessionsOutput, error) {
	if input == nil || !input.Status.Valid() {
		return nil, errors.New("input and a valid status are required")
	}

	ids, err := r.client.ZRangeByScore(ctx, statusKey(input.Status), &redis.ZRangeBy{
		Min: "-inf",
		// inclusive, scores are whole milliseconds and the filter below is exact
		Max: strconv.FormatInt(input.Cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}

	sessions, err := r.getMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	// the index may lag behind the blobs, trust the loaded values
	stale := make([]*models.Session, 0, len(sessions))
	for _, session := range sessions {
		if session.Status == input.Status && session.CreatedAt.Before(input.Cutoff) {
			stale = append(stale, session)
		}
	}

	return &FindStaleSessionsOutput{
		Sessions: stale,
	}, nil
}

// ListSessionsByGame returns the game's sessions, oldest first
func (r *redisRepository) ListSessionsByGame(ctx context.Context, input *ListSessionsByGameInput) (*ListSessionsByGameOutput, error) {
	if input == nil || input.GameID == "" {
		return nil, errors.New("input and game ID cannot be empty")
	}

	ids, err := r.client.SMembers(ctx, gameSessionsKey(input.GameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session IDs for game: %w", err)
	}

	sessions, err := r.getMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return &ListSessionsByGameOutput{
		Sessions: sessions,
	}, nil
}

// getMany loads sessions in one pipeline, skipping ids whose blob is gone
func (r *redisRepository) getMany(ctx context.Context, ids []string) ([]*models.Session, error) {
	if len(ids) == 0 {
		return []*models.Session{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, sessionKey(id))
	}

	// a missing key fails the pipeline with redis.Nil, handled per command below
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to get session %s: %w", ids[i], err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session %s: %w", ids[i], err)
		}
		sessions = append(sessions, &session)
	}

	return sessions, nil
}

func hasDuplicates(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}

	return false
}
