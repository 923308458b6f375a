package session

import "github.com/KirkDiggler/tabletop/internal/models"

// Roster manages the ordered player list of a session. It mutates the
// session it wraps.
type Roster struct {
	session *models.Session
}

// NewRoster wraps a session's player list
func NewRoster(session *models.Session) *Roster {
	return &Roster{session: session}
}

// Admit reports why a player could not join, checking status, capacity and
// membership in that order
func (r *Roster) Admit(playerID string) error {
	if r.session.Status != models.SessionStatusWaiting {
		return ErrSessionNotJoinable
	}

	if r.IsFull() {
		return ErrSessionFull
	}

	if r.IndexOf(playerID) >= 0 {
		return ErrAlreadyJoined
	}

	return nil
}

// Add appends the player in join order. It returns false when Admit would fail.
func (r *Roster) Add(playerID string) bool {
	if r.Admit(playerID) != nil {
		return false
	}

	r.session.PlayerIDs = append(r.session.PlayerIDs, playerID)

	return true
}

// Remove drops the player and keeps the turn pointer on a valid slot.
// Players after the leaver shift down one place. When the acting player
// leaves, the turn goes to whoever followed them in join order.
func (r *Roster) Remove(playerID string) bool {
	idx := r.IndexOf(playerID)
	if idx < 0 {
		return false
	}

	ids := r.session.PlayerIDs
	r.session.PlayerIDs = append(ids[:idx:idx], ids[idx+1:]...)

	current := r.session.CurrentPlayerIndex
	if current == nil {
		return true
	}

	count := r.Count()
	switch {
	case count == 0:
		r.session.CurrentPlayerIndex = nil
	case idx < *current:
		next := *current - 1
		r.session.CurrentPlayerIndex = &next
	case idx == *current && *current >= count:
		next := 0
		r.session.CurrentPlayerIndex = &next
	}

	return true
}

// IndexOf returns the join position of the player or -1
func (r *Roster) IndexOf(playerID string) int {
	for i, id := range r.session.PlayerIDs {
		if id == playerID {
			return i
		}
	}

	return -1
}

// Contains reports whether the player is on the roster
func (r *Roster) Contains(playerID string) bool {
	return r.IndexOf(playerID) >= 0
}

// At returns the player id at a join position
func (r *Roster) At(idx int) (string, bool) {
	if idx < 0 || idx >= len(r.session.PlayerIDs) {
		return "", false
	}

	return r.session.PlayerIDs[idx], true
}

// Count is the number of seated players
func (r *Roster) Count() int {
	return len(r.session.PlayerIDs)
}

// IsEmpty reports whether nobody is seated
func (r *Roster) IsEmpty() bool {
	return r.Count() == 0
}

// IsFull reports whether the session has reached its maximum player count
func (r *Roster) IsFull() bool {
	return r.Count() >= r.session.MaxPlayers
}
