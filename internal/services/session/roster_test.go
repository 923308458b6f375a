package session

import (
	"testing"

	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/stretchr/testify/suite"
)

type RosterTestSuite struct {
	suite.Suite
	session *models.Session
	roster  *Roster
}

func (s *RosterTestSuite) SetupTest() {
	s.session = &models.Session{
		ID:         "session-1",
		Status:     models.SessionStatusWaiting,
		MinPlayers: 2,
		MaxPlayers: 3,
		PlayerIDs:  []string{},
	}
	s.roster = NewRoster(s.session)
}

func TestRosterTestSuite(t *testing.T) {
	suite.Run(t, new(RosterTestSuite))
}

func (s *RosterTestSuite) activeWith(ids []string, current int) {
	s.session.Status = models.SessionStatusActive
	s.session.PlayerIDs = ids
	s.session.CurrentPlayerIndex = &current
}

func (s *RosterTestSuite) TestAddKeepsJoinOrder() {
	s.True(s.roster.Add("a"))
	s.True(s.roster.Add("b"))
	s.True(s.roster.Add("c"))

	s.Equal([]string{"a", "b", "c"}, s.session.PlayerIDs)
	s.Equal(1, s.roster.IndexOf("b"))

	id, ok := s.roster.At(2)
	s.True(ok)
	s.Equal("c", id)

	_, ok = s.roster.At(3)
	s.False(ok)
}

func (s *RosterTestSuite) TestAdmitReasonsInOrder() {
	s.NoError(s.roster.Admit("a"))

	s.roster.Add("a")
	s.ErrorIs(s.roster.Admit("a"), ErrAlreadyJoined)

	s.roster.Add("b")
	s.roster.Add("c")
	s.True(s.roster.IsFull())
	// capacity is checked before membership
	s.ErrorIs(s.roster.Admit("a"), ErrSessionFull)
	s.ErrorIs(s.roster.Admit("d"), ErrSessionFull)

	s.session.Status = models.SessionStatusActive
	s.ErrorIs(s.roster.Admit("d"), ErrSessionNotJoinable)
}

func (s *RosterTestSuite) TestAddRejects() {
	s.True(s.roster.Add("a"))
	s.False(s.roster.Add("a"))
	s.Equal(1, s.roster.Count())

	s.session.Status = models.SessionStatusFinished
	s.False(s.roster.Add("b"))
	s.Equal(1, s.roster.Count())
}

func (s *RosterTestSuite) TestRemoveUnknown() {
	s.roster.Add("a")
	s.False(s.roster.Remove("z"))
	s.Equal(1, s.roster.Count())
}

func (s *RosterTestSuite) TestRemoveBeforeCurrentShiftsIndex() {
	s.activeWith([]string{"a", "b", "c"}, 2)

	s.True(s.roster.Remove("a"))

	s.Equal([]string{"b", "c"}, s.session.PlayerIDs)
	s.Equal("c", s.session.CurrentPlayerID())
}

func (s *RosterTestSuite) TestRemoveAfterCurrentKeepsIndex() {
	s.activeWith([]string{"a", "b", "c"}, 0)

	s.True(s.roster.Remove("c"))

	s.Equal(0, *s.session.CurrentPlayerIndex)
	s.Equal("a", s.session.CurrentPlayerID())
}

func (s *RosterTestSuite) TestRemoveCurrentPassesToNext() {
	s.activeWith([]string{"a", "b", "c"}, 1)

	s.True(s.roster.Remove("b"))

	s.Equal("c", s.session.CurrentPlayerID())
}

func (s *RosterTestSuite) TestRemoveLastCurrentWrapsToFirst() {
	s.activeWith([]string{"a", "b", "c"}, 2)

	s.True(s.roster.Remove("c"))

	s.Equal("a", s.session.CurrentPlayerID())
}

func (s *RosterTestSuite) TestRemoveOnlyPlayerClearsIndex() {
	s.activeWith([]string{"a"}, 0)

	s.True(s.roster.Remove("a"))

	s.True(s.roster.IsEmpty())
	s.Nil(s.session.CurrentPlayerIndex)
}

func (s *RosterTestSuite) TestRemoveDoesNotAliasOldSlice() {
	ids := []string{"a", "b", "c"}
	s.session.PlayerIDs = ids

	s.roster.Remove("a")

	s.Equal([]string{"a", "b", "c"}, ids)
}
