package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisRepositoryTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	repo    Repository
	ctx     context.Context
	testNow time.Time
}

func (s *RedisRepositoryTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	repo, err := NewRedis(&Config{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.ctx = context.Background()
	s.testNow = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
}

func (s *RedisRepositoryTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RedisRepositoryTestSuite))
}

func (s *RedisRepositoryTestSuite) TestSaveAndGetPlayer() {
	player := &models.Player{
		ID:        "player-1",
		Name:      "Test Player",
		UserID:    "discord-1",
		CreatedAt: s.testNow,
	}

	err := s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: player})
	s.Require().NoError(err)

	retrieved, err := s.repo.GetPlayer(s.ctx, &GetPlayerInput{PlayerID: "player-1"})
	s.Require().NoError(err)
	s.Equal("Test Player", retrieved.Name)
	s.Equal("discord-1", retrieved.UserID)
	s.Equal(s.testNow.Unix(), retrieved.CreatedAt.Unix())

	byUser, err := s.repo.GetPlayerByUserID(s.ctx, &GetPlayerByUserIDInput{UserID: "discord-1"})
	s.Require().NoError(err)
	s.Equal("player-1", byUser.ID)
}

func (s *RedisRepositoryTestSuite) TestGetPlayerNotFound() {
	_, err := s.repo.GetPlayer(s.ctx, &GetPlayerInput{PlayerID: "missing"})
	s.ErrorIs(err, ErrPlayerNotFound)

	_, err = s.repo.GetPlayerByUserID(s.ctx, &GetPlayerByUserIDInput{UserID: "missing"})
	s.ErrorIs(err, ErrPlayerNotFound)
}

func (s *RedisRepositoryTestSuite) TestGetPlayers() {
	for _, p := range []*models.Player{
		{ID: "player-1", Name: "One"},
		{ID: "player-2", Name: "Two"},
	} {
		s.Require().NoError(s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: p}))
	}

	output, err := s.repo.GetPlayers(s.ctx, &GetPlayersInput{
		PlayerIDs: []string{"player-2", "unknown", "player-1"},
	})
	s.Require().NoError(err)
	s.Require().Len(output.Players, 2)
	s.Equal("player-2", output.Players[0].ID)
	s.Equal("player-1", output.Players[1].ID)

	empty, err := s.repo.GetPlayers(s.ctx, &GetPlayersInput{})
	s.Require().NoError(err)
	s.Empty(empty.Players)
}

func (s *RedisRepositoryTestSuite) TestSavePlayerValidation() {
	s.Error(s.repo.SavePlayer(s.ctx, nil))
	s.Error(s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: &models.Player{Name: "no id"}}))
}

func (s *RedisRepositoryTestSuite) TestSavePlayerKeepsFirstUserLink() {
	first := &models.Player{ID: "player-1", Name: "First", UserID: "discord-1", CreatedAt: s.testNow}
	s.Require().NoError(s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: first}))

	second := &models.Player{ID: "player-2", Name: "Second", UserID: "discord-1", CreatedAt: s.testNow}
	err := s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: second})
	s.ErrorIs(err, ErrUserLinked)

	// nothing of the losing save is stored
	_, err = s.repo.GetPlayer(s.ctx, &GetPlayerInput{PlayerID: "player-2"})
	s.ErrorIs(err, ErrPlayerNotFound)

	// the owner can still update its record
	first.Name = "Renamed"
	s.Require().NoError(s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: first}))

	byUser, err := s.repo.GetPlayerByUserID(s.ctx, &GetPlayerByUserIDInput{UserID: "discord-1"})
	s.Require().NoError(err)
	s.Equal("player-1", byUser.ID)
	s.Equal("Renamed", byUser.Name)
}

func (s *RedisRepositoryTestSuite) TestConcurrentSavesLinkUserOnce() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()

			err := s.repo.SavePlayer(s.ctx, &SavePlayerInput{Player: &models.Player{
				ID:     id,
				Name:   id,
				UserID: "discord-1",
			}})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, id)
			case errors.Is(err, ErrUserLinked):
			default:
				s.Failf("unexpected save error", "%s: %v", id, err)
			}
		}(fmt.Sprintf("player-%d", i))
	}
	wg.Wait()

	s.Require().Len(winners, 1)

	byUser, err := s.repo.GetPlayerByUserID(s.ctx, &GetPlayerByUserIDInput{UserID: "discord-1"})
	s.Require().NoError(err)
	s.Equal(winners[0], byUser.ID)
}
