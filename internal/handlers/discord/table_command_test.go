package discord

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/KirkDiggler/tabletop/internal/models"
	gameService "github.com/KirkDiggler/tabletop/internal/services/game"
	gameMocks "github.com/KirkDiggler/tabletop/internal/services/game/mocks"
	playerService "github.com/KirkDiggler/tabletop/internal/services/player"
	playerMocks "github.com/KirkDiggler/tabletop/internal/services/player/mocks"
	sessionService "github.com/KirkDiggler/tabletop/internal/services/session"
	sessionMocks "github.com/KirkDiggler/tabletop/internal/services/session/mocks"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type TableCommandTestSuite struct {
	suite.Suite
	mockCtrl           *gomock.Controller
	mockSessionService *sessionMocks.MockService
	mockGameService    *gameMocks.MockService
	mockPlayerService  *playerMocks.MockService
	command            *TableCommand
	ctx                context.Context

	alice *models.Player
	bob   *models.Player
	game  *models.GameDefinition
}

func (s *TableCommandTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockSessionService = sessionMocks.NewMockService(s.mockCtrl)
	s.mockGameService = gameMocks.NewMockService(s.mockCtrl)
	s.mockPlayerService = playerMocks.NewMockService(s.mockCtrl)
	s.ctx = context.Background()

	s.alice = &models.Player{ID: "p-alice", Name: "Alice", UserID: "u-alice"}
	s.bob = &models.Player{ID: "p-bob", Name: "Bob", UserID: "u-bob"}
	s.game = &models.GameDefinition{ID: "g1", Name: "Chess", MinPlayers: 2, MaxPlayers: 2}

	cmd, err := NewTableCommand(&TableCommandConfig{
		SessionService: s.mockSessionService,
		GameService:    s.mockGameService,
		PlayerService:  s.mockPlayerService,
	})
	s.Require().NoError(err)
	s.command = cmd
}

func (s *TableCommandTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func TestTableCommandTestSuite(t *testing.T) {
	suite.Run(t, new(TableCommandTestSuite))
}

func (s *TableCommandTestSuite) expectRegister(player *models.Player) {
	s.mockPlayerService.EXPECT().
		RegisterPlayer(gomock.Any(), &playerService.RegisterPlayerInput{UserID: player.UserID, Name: player.Name}).
		Return(&playerService.RegisterPlayerOutput{Player: player}, nil)
}

func (s *TableCommandTestSuite) expectView(players ...*models.Player) {
	s.mockGameService.EXPECT().
		GetGame(gomock.Any(), &gameService.GetGameInput{GameID: s.game.ID}).
		Return(&gameService.GetGameOutput{Game: s.game}, nil)
	s.mockPlayerService.EXPECT().
		GetPlayers(gomock.Any(), gomock.Any()).
		Return(&playerService.GetPlayersOutput{Players: players}, nil)
}

func (s *TableCommandTestSuite) request(sub string, user *models.Player, strs map[string]string) *tableRequest {
	return &tableRequest{
		Subcommand: sub,
		UserID:     user.UserID,
		UserName:   user.Name,
		Strings:    strs,
		Ints:       map[string]int64{},
	}
}

func (s *TableCommandTestSuite) activeSession(current int) *models.Session {
	return &models.Session{
		ID:                 "s1",
		GameID:             s.game.ID,
		Status:             models.SessionStatusActive,
		MinPlayers:         2,
		MaxPlayers:         2,
		PlayerIDs:          []string{s.alice.ID, s.bob.ID},
		CurrentPlayerIndex: &current,
		State:              json.RawMessage(`{}`),
	}
}

func (s *TableCommandTestSuite) TestNewTableCommandRequiresServices() {
	_, err := NewTableCommand(&TableCommandConfig{SessionService: s.mockSessionService})
	s.Error(err)
}

func (s *TableCommandTestSuite) TestCreateSeatsCreator() {
	s.expectRegister(s.alice)
	s.mockGameService.EXPECT().
		GetGameByName(gomock.Any(), &gameService.GetGameByNameInput{Name: "Chess"}).
		Return(&gameService.GetGameOutput{Game: s.game}, nil)
	s.mockSessionService.EXPECT().
		CreateSession(gomock.Any(), &sessionService.CreateSessionInput{GameID: "g1", CreatorID: s.alice.ID}).
		Return(&sessionService.CreateSessionOutput{Session: &models.Session{ID: "s1", GameID: "g1"}}, nil)
	s.mockSessionService.EXPECT().
		JoinSession(gomock.Any(), &sessionService.JoinSessionInput{SessionID: "s1", PlayerID: s.alice.ID}).
		Return(&sessionService.JoinSessionOutput{Session: &models.Session{
			ID:        "s1",
			GameID:    "g1",
			Status:    models.SessionStatusWaiting,
			PlayerIDs: []string{s.alice.ID},
			State:     json.RawMessage(`{}`),
		}}, nil)
	s.expectView(s.alice)

	resp, err := s.command.Execute(s.ctx, s.request("create", s.alice, map[string]string{"game": "Chess"}))
	s.Require().NoError(err)
	s.Require().Len(resp.Embeds, 1)
	s.Equal("Chess", resp.Embeds[0].Title)
	s.Contains(resp.Embeds[0].Fields[2].Value, "Alice")
	s.Len(resp.Components, 1)
}

func (s *TableCommandTestSuite) TestCreatePassesOverrides() {
	s.expectRegister(s.alice)
	s.mockGameService.EXPECT().
		GetGameByName(gomock.Any(), gomock.Any()).
		Return(&gameService.GetGameOutput{Game: s.game}, nil)
	s.mockSessionService.EXPECT().
		CreateSession(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input *sessionService.CreateSessionInput) (*sessionService.CreateSessionOutput, error) {
			s.Require().NotNil(input.MaxPlayers)
			s.Equal(4, *input.MaxPlayers)
			s.Nil(input.MinPlayers)
			return nil, models.ErrInvalidDefinition
		})

	req := s.request("create", s.alice, map[string]string{"game": "Chess"})
	req.Ints["max"] = 4

	_, err := s.command.Execute(s.ctx, req)
	s.ErrorIs(err, sessionService.ErrInvalidDefinition)
}

func (s *TableCommandTestSuite) TestJoinRendersRoster() {
	s.expectRegister(s.bob)
	s.mockSessionService.EXPECT().
		JoinSession(gomock.Any(), &sessionService.JoinSessionInput{SessionID: "s1", PlayerID: s.bob.ID}).
		Return(&sessionService.JoinSessionOutput{Session: &models.Session{
			ID:         "s1",
			GameID:     "g1",
			Status:     models.SessionStatusWaiting,
			MinPlayers: 2,
			MaxPlayers: 2,
			PlayerIDs:  []string{s.alice.ID, s.bob.ID},
			State:      json.RawMessage(`{}`),
		}}, nil)
	s.expectView(s.alice, s.bob)

	resp, err := s.command.Execute(s.ctx, s.request("join", s.bob, map[string]string{"session": "s1"}))
	s.Require().NoError(err)
	s.Equal("Bob joined.", resp.Content)
	s.Equal("2 (2-2)", resp.Embeds[0].Fields[1].Value)
}

func (s *TableCommandTestSuite) TestJoinFullSession() {
	s.expectRegister(s.bob)
	s.mockSessionService.EXPECT().
		JoinSession(gomock.Any(), gomock.Any()).
		Return(nil, sessionService.ErrSessionFull)

	_, err := s.command.Execute(s.ctx, s.request("join", s.bob, map[string]string{"session": "s1"}))
	s.ErrorIs(err, sessionService.ErrSessionFull)

	msg, expected := friendlyError(err)
	s.True(expected)
	s.Equal("That session is full.", msg)
}

func (s *TableCommandTestSuite) TestMissingSessionOption() {
	s.expectRegister(s.bob)

	_, err := s.command.Execute(s.ctx, s.request("join", s.bob, map[string]string{}))
	s.ErrorIs(err, errBadOption)

	msg, _ := friendlyError(err)
	s.Equal("session is required", msg)
}

func (s *TableCommandTestSuite) TestMoveRejectsMalformedJSON() {
	s.expectRegister(s.alice)

	_, err := s.command.Execute(s.ctx, s.request("move", s.alice, map[string]string{"session": "s1", "state": "{oops"}))
	s.ErrorIs(err, errBadOption)
}

func (s *TableCommandTestSuite) TestMoveForwardsState() {
	s.expectRegister(s.alice)
	s.mockSessionService.EXPECT().
		UpdateSessionState(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input *sessionService.UpdateSessionStateInput) (*sessionService.UpdateSessionStateOutput, error) {
			s.Equal(s.alice.ID, input.RequestingPlayerID)
			s.JSONEq(`{"board":"e4"}`, string(input.State))
			return &sessionService.UpdateSessionStateOutput{Session: s.activeSession(1), StateUpdated: true, TurnAdvanced: true}, nil
		})
	s.expectView(s.alice, s.bob)

	resp, err := s.command.Execute(s.ctx, s.request("move", s.alice, map[string]string{"session": "s1", "state": `{"board":"e4"}`}))
	s.Require().NoError(err)
	s.Equal("Alice made a move.", resp.Content)
}

func (s *TableCommandTestSuite) TestPassRequiresTurn() {
	s.expectRegister(s.bob)
	s.mockSessionService.EXPECT().
		AdvanceTurn(gomock.Any(), &sessionService.AdvanceTurnInput{SessionID: "s1", ActingPlayerID: s.bob.ID}).
		Return(nil, sessionService.ErrNotYourTurn)

	_, err := s.command.Execute(s.ctx, s.request("pass", s.bob, map[string]string{"session": "s1"}))
	s.ErrorIs(err, sessionService.ErrNotYourTurn)

	msg, expected := friendlyError(err)
	s.True(expected)
	s.Equal("It is not your turn.", msg)
}

func (s *TableCommandTestSuite) TestPassAdvances() {
	s.expectRegister(s.alice)
	s.mockSessionService.EXPECT().
		AdvanceTurn(gomock.Any(), &sessionService.AdvanceTurnInput{SessionID: "s1", ActingPlayerID: s.alice.ID}).
		Return(&sessionService.AdvanceTurnOutput{Session: s.activeSession(1), Advanced: true}, nil)
	s.expectView(s.alice, s.bob)

	resp, err := s.command.Execute(s.ctx, s.request("pass", s.alice, map[string]string{"session": "s1"}))
	s.Require().NoError(err)
	s.Equal("Alice passed.", resp.Content)
}

func (s *TableCommandTestSuite) TestPassOnInactiveSession() {
	waiting := s.activeSession(0)
	waiting.Status = models.SessionStatusWaiting
	waiting.CurrentPlayerIndex = nil

	s.expectRegister(s.alice)
	s.mockSessionService.EXPECT().
		AdvanceTurn(gomock.Any(), gomock.Any()).
		Return(&sessionService.AdvanceTurnOutput{Session: waiting, Advanced: false}, nil)
	s.expectView(s.alice, s.bob)

	resp, err := s.command.Execute(s.ctx, s.request("pass", s.alice, map[string]string{"session": "s1"}))
	s.Require().NoError(err)
	s.Equal("Only an active session has turns to pass.", resp.Content)
}

func (s *TableCommandTestSuite) TestFinishRequiresMembership() {
	outsider := &models.Player{ID: "p-carol", Name: "Carol", UserID: "u-carol"}
	s.expectRegister(outsider)
	s.mockSessionService.EXPECT().
		FinishSession(gomock.Any(), &sessionService.FinishSessionInput{SessionID: "s1", ActingPlayerID: outsider.ID}).
		Return(nil, sessionService.ErrForbidden)

	_, err := s.command.Execute(s.ctx, s.request("finish", outsider, map[string]string{"session": "s1"}))
	s.ErrorIs(err, sessionService.ErrForbidden)
}

func (s *TableCommandTestSuite) TestNewGame() {
	s.expectRegister(s.alice)
	s.mockGameService.EXPECT().
		CreateGame(gomock.Any(), &gameService.CreateGameInput{
			Name:        "Chess",
			MinPlayers:  2,
			MaxPlayers:  2,
			StateSchema: json.RawMessage(`{"type":"object"}`),
		}).
		Return(&gameService.CreateGameOutput{Game: s.game}, nil)

	req := s.request("newgame", s.alice, map[string]string{"name": "Chess", "schema": `{"type":"object"}`})
	req.Ints["min"] = 2
	req.Ints["max"] = 2

	resp, err := s.command.Execute(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("Added **Chess**.", resp.Content)
}

func (s *TableCommandTestSuite) TestViewDegradesWhenLookupsFail() {
	s.expectRegister(s.alice)
	s.mockSessionService.EXPECT().
		GetSession(gomock.Any(), gomock.Any()).
		Return(&sessionService.GetSessionOutput{Session: s.activeSession(0)}, nil)
	s.mockGameService.EXPECT().
		GetGame(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("sqlite busy"))
	s.mockPlayerService.EXPECT().
		GetPlayers(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("redis down"))

	resp, err := s.command.Execute(s.ctx, s.request("show", s.alice, map[string]string{"session": "s1"}))
	s.Require().NoError(err)
	s.Equal("Session", resp.Embeds[0].Title)
	s.Contains(resp.Embeds[0].Fields[2].Value, s.alice.ID)
}

func (s *TableCommandTestSuite) TestUnknownSubcommand() {
	s.expectRegister(s.alice)

	_, err := s.command.Execute(s.ctx, s.request("shuffle", s.alice, map[string]string{"session": "s1"}))
	s.ErrorIs(err, errBadOption)
}
