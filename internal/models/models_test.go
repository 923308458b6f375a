package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ModelsTestSuite struct {
	suite.Suite
}

func TestModelsTestSuite(t *testing.T) {
	suite.Run(t, new(ModelsTestSuite))
}

func (s *ModelsTestSuite) TestGameDefinitionValidate() {
	testCases := []struct {
		name       string
		game       GameDefinition
		wantFields []string
	}{
		{
			name: "valid without schema",
			game: GameDefinition{Name: "Chess", MinPlayers: 2, MaxPlayers: 2},
		},
		{
			name: "valid with schema",
			game: GameDefinition{
				Name:        "Hearts",
				MinPlayers:  3,
				MaxPlayers:  4,
				StateSchema: json.RawMessage(`{"type": "object", "required": ["trick"]}`),
			},
		},
		{
			name:       "blank name",
			game:       GameDefinition{Name: "  ", MinPlayers: 1, MaxPlayers: 1},
			wantFields: []string{"name"},
		},
		{
			name:       "non-positive bounds",
			game:       GameDefinition{Name: "Solo", MinPlayers: 0, MaxPlayers: -1},
			wantFields: []string{"min_players", "max_players"},
		},
		{
			name:       "max below min",
			game:       GameDefinition{Name: "Bridge", MinPlayers: 4, MaxPlayers: 2},
			wantFields: []string{"max_players"},
		},
		{
			name: "malformed schema",
			game: GameDefinition{
				Name:        "Go",
				MinPlayers:  2,
				MaxPlayers:  2,
				StateSchema: json.RawMessage(`{"type": 5}`),
			},
			wantFields: []string{"state_schema"},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			err := tc.game.Validate()
			if len(tc.wantFields) == 0 {
				s.NoError(err)
				return
			}

			s.Require().Error(err)
			s.True(errors.Is(err, ErrInvalidDefinition))

			var defErr *DefinitionError
			s.Require().True(errors.As(err, &defErr))
			s.Len(defErr.Fields, len(tc.wantFields))
			for _, field := range tc.wantFields {
				s.Contains(defErr.Fields, field)
			}
		})
	}
}

func (s *ModelsTestSuite) TestMalformedSchemaNamesKeyAndValue() {
	game := GameDefinition{Name: "Go", MinPlayers: 2, MaxPlayers: 2, StateSchema: json.RawMessage(`{"type": 5}`)}

	err := game.Validate()
	s.Require().Error(err)
	s.Contains(err.Error(), `"type"`)
	s.Contains(err.Error(), "5")
}

func (s *ModelsTestSuite) TestValidatePlayerBounds() {
	s.NoError(ValidatePlayerBounds(1, 1))
	s.NoError(ValidatePlayerBounds(2, 6))
	s.ErrorIs(ValidatePlayerBounds(0, 2), ErrInvalidDefinition)
	s.ErrorIs(ValidatePlayerBounds(3, 2), ErrInvalidDefinition)
}

func (s *ModelsTestSuite) TestCanTransitionTo() {
	allowed := map[SessionStatus]SessionStatus{
		SessionStatusWaiting: SessionStatusActive,
		SessionStatusActive:  SessionStatusFinished,
	}
	statuses := []SessionStatus{SessionStatusWaiting, SessionStatusActive, SessionStatusFinished}

	for _, from := range statuses {
		for _, to := range statuses {
			err := from.CanTransitionTo(to)
			if allowed[from] == to {
				s.NoError(err, "%s -> %s", from, to)
				continue
			}

			s.Require().Error(err, "%s -> %s", from, to)
			s.True(errors.Is(err, ErrInvalidTransition))

			var tErr *TransitionError
			s.Require().True(errors.As(err, &tErr))
			s.Equal(from, tErr.From)
			s.Equal(to, tErr.To)
		}
	}
}

func (s *ModelsTestSuite) TestSessionStatusValid() {
	s.True(SessionStatusWaiting.Valid())
	s.True(SessionStatusFinished.Valid())
	s.False(SessionStatus("completed").Valid())
}

func (s *ModelsTestSuite) TestCurrentPlayerID() {
	idx := 1
	session := &Session{PlayerIDs: []string{"p1", "p2"}, CurrentPlayerIndex: &idx}
	s.Equal("p2", session.CurrentPlayerID())

	session.CurrentPlayerIndex = nil
	s.Equal("", session.CurrentPlayerID())

	outOfRange := 5
	session.CurrentPlayerIndex = &outOfRange
	s.Equal("", session.CurrentPlayerID())
}

func (s *ModelsTestSuite) TestCloneIsDeep() {
	idx := 0
	original := &Session{
		ID:                 "s1",
		PlayerIDs:          []string{"p1"},
		CurrentPlayerIndex: &idx,
		State:              json.RawMessage(`{"a":1}`),
	}

	clone := original.Clone()
	clone.PlayerIDs[0] = "changed"
	*clone.CurrentPlayerIndex = 3
	clone.State[1] = 'b'

	s.Equal("p1", original.PlayerIDs[0])
	s.Equal(0, *original.CurrentPlayerIndex)
	s.Equal(`{"a":1}`, string(original.State))
}
