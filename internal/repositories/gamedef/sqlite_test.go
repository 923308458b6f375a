package gamedef

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/stretchr/testify/suite"
)

type SQLiteRepositoryTestSuite struct {
	suite.Suite
	db      *sql.DB
	repo    Repository
	ctx     context.Context
	testNow time.Time
}

func (s *SQLiteRepositoryTestSuite) SetupTest() {
	db, err := Open(filepath.Join(s.T().TempDir(), "games.db"))
	s.Require().NoError(err)
	s.db = db

	repo, err := NewSQLite(&Config{
		DB: s.db,
	})
	s.Require().NoError(err)
	s.repo = repo

	s.ctx = context.Background()
	s.testNow = time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
}

func (s *SQLiteRepositoryTestSuite) TearDownTest() {
	s.db.Close()
}

func TestSQLiteRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(SQLiteRepositoryTestSuite))
}

func (s *SQLiteRepositoryTestSuite) newGame(id, name string) *models.GameDefinition {
	return &models.GameDefinition{
		ID:          id,
		Name:        name,
		MinPlayers:  2,
		MaxPlayers:  4,
		StateSchema: json.RawMessage(`{"type":"object"}`),
		CreatedAt:   s.testNow,
		UpdatedAt:   s.testNow,
	}
}

func (s *SQLiteRepositoryTestSuite) TestCreateAndGetGame() {
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-1", "Hearts")}))

	game, err := s.repo.GetGame(s.ctx, &GetGameInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Equal("Hearts", game.Name)
	s.Equal(2, game.MinPlayers)
	s.Equal(4, game.MaxPlayers)
	s.JSONEq(`{"type":"object"}`, string(game.StateSchema))
	s.True(s.testNow.Equal(game.CreatedAt))

	byName, err := s.repo.GetGameByName(s.ctx, &GetGameByNameInput{Name: " Hearts "})
	s.Require().NoError(err)
	s.Equal("game-1", byName.ID)
}

func (s *SQLiteRepositoryTestSuite) TestEmptySchemaRoundTripsAsNil() {
	game := s.newGame("game-1", "Tag")
	game.StateSchema = nil
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: game}))

	loaded, err := s.repo.GetGame(s.ctx, &GetGameInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Nil(loaded.StateSchema)
}

func (s *SQLiteRepositoryTestSuite) TestGetGameNotFound() {
	_, err := s.repo.GetGame(s.ctx, &GetGameInput{GameID: "missing"})
	s.ErrorIs(err, ErrGameNotFound)

	_, err = s.repo.GetGameByName(s.ctx, &GetGameByNameInput{Name: "missing"})
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *SQLiteRepositoryTestSuite) TestNameIsUnique() {
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-1", "Hearts")}))

	err := s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-2", "Hearts")})
	s.ErrorIs(err, ErrGameNameTaken)

	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-2", "Spades")}))
	renamed := s.newGame("game-2", "Hearts")
	err = s.repo.UpdateGame(s.ctx, &UpdateGameInput{Game: renamed})
	s.ErrorIs(err, ErrGameNameTaken)
}

func (s *SQLiteRepositoryTestSuite) TestListGamesOrderedByName() {
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-1", "Spades")}))
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-2", "Hearts")}))

	output, err := s.repo.ListGames(s.ctx, &ListGamesInput{})
	s.Require().NoError(err)
	s.Require().Len(output.Games, 2)
	s.Equal("Hearts", output.Games[0].Name)
	s.Equal("Spades", output.Games[1].Name)
}

func (s *SQLiteRepositoryTestSuite) TestUpdateGame() {
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-1", "Hearts")}))

	updated := s.newGame("game-1", "Hearts Deluxe")
	updated.MaxPlayers = 6
	updated.StateSchema = nil
	updated.UpdatedAt = s.testNow.Add(time.Hour)
	s.Require().NoError(s.repo.UpdateGame(s.ctx, &UpdateGameInput{Game: updated}))

	loaded, err := s.repo.GetGame(s.ctx, &GetGameInput{GameID: "game-1"})
	s.Require().NoError(err)
	s.Equal("Hearts Deluxe", loaded.Name)
	s.Equal(6, loaded.MaxPlayers)
	s.Nil(loaded.StateSchema)
	s.True(s.testNow.Equal(loaded.CreatedAt))
	s.True(s.testNow.Add(time.Hour).Equal(loaded.UpdatedAt))

	err = s.repo.UpdateGame(s.ctx, &UpdateGameInput{Game: s.newGame("missing", "Nope")})
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *SQLiteRepositoryTestSuite) TestDeleteGame() {
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-1", "Hearts")}))

	s.Require().NoError(s.repo.DeleteGame(s.ctx, &DeleteGameInput{GameID: "game-1"}))

	_, err := s.repo.GetGame(s.ctx, &GetGameInput{GameID: "game-1"})
	s.ErrorIs(err, ErrGameNotFound)

	err = s.repo.DeleteGame(s.ctx, &DeleteGameInput{GameID: "game-1"})
	s.ErrorIs(err, ErrGameNotFound)
}

func (s *SQLiteRepositoryTestSuite) TestMigrationsAreIdempotent() {
	_, err := NewSQLite(&Config{DB: s.db})
	s.Require().NoError(err)
}

func (s *SQLiteRepositoryTestSuite) TestMigrationsRollBack() {
	s.Require().NoError(s.repo.CreateGame(s.ctx, &CreateGameInput{Game: s.newGame("game-1", "Hearts")}))

	migrator, err := NewMigrator(s.db)
	s.Require().NoError(err)

	reverted, err := migrator.Down(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(1, reverted)

	_, err = s.repo.ListGames(s.ctx, &ListGamesInput{})
	s.Error(err)

	// a fresh repository brings the schema back, empty
	repo, err := NewSQLite(&Config{DB: s.db})
	s.Require().NoError(err)

	output, err := repo.ListGames(s.ctx, &ListGamesInput{})
	s.Require().NoError(err)
	s.Empty(output.Games)
}

func (s *SQLiteRepositoryTestSuite) TestNewSQLiteValidatesConfig() {
	_, err := NewSQLite(nil)
	s.Error(err)

	_, err = NewSQLite(&Config{})
	s.Error(err)

	_, err = Open("  ")
	s.Error(err)
}
