package models

import (
	"encoding/json"
	"time"
)

// SessionStatus represents where a session is in its lifecycle
type SessionStatus string

const (
	// SessionStatusWaiting indicates a session is collecting players
	SessionStatusWaiting SessionStatus = "waiting"

	// SessionStatusActive indicates a session is being played
	SessionStatusActive SessionStatus = "active"

	// SessionStatusFinished indicates a session has ended
	SessionStatusFinished SessionStatus = "finished"
)

var sessionTransitions = map[SessionStatus]SessionStatus{
	SessionStatusWaiting: SessionStatusActive,
	SessionStatusActive:  SessionStatusFinished,
}

// Valid reports whether the status is one of the known values
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusWaiting, SessionStatusActive, SessionStatusFinished:
		return true
	}

	return false
}

// CanTransitionTo returns a *TransitionError unless to is the single status
// that follows s. Staying in place is rejected too.
func (s SessionStatus) CanTransitionTo(to SessionStatus) error {
	if next, ok := sessionTransitions[s]; ok && next == to {
		return nil
	}

	return &TransitionError{From: s, To: to}
}

// Session is one play-through of a game definition
type Session struct {
	// ID is the unique identifier for the session
	ID string

	// GameID is the definition this session was created from
	GameID string

	// CreatorID is the player who created the session
	CreatorID string

	// Status is the current lifecycle status
	Status SessionStatus

	// MinPlayers and MaxPlayers are snapshotted from the game at creation
	MinPlayers int
	MaxPlayers int

	// PlayerIDs is the roster in join order
	PlayerIDs []string

	// CurrentPlayerIndex points into PlayerIDs while the session is active
	CurrentPlayerIndex *int

	// State is the game-specific state document
	State json.RawMessage

	// Version increases on every save and guards against lost updates
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CurrentPlayerID returns the id of the player whose turn it is, or "" when nobody is acting
func (s *Session) CurrentPlayerID() string {
	if s.CurrentPlayerIndex == nil {
		return ""
	}

	idx := *s.CurrentPlayerIndex
	if idx < 0 || idx >= len(s.PlayerIDs) {
		return ""
	}

	return s.PlayerIDs[idx]
}

// Clone returns a deep copy so callers can mutate without touching the original
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	out := *s
	out.PlayerIDs = append([]string(nil), s.PlayerIDs...)
	if s.CurrentPlayerIndex != nil {
		idx := *s.CurrentPlayerIndex
		out.CurrentPlayerIndex = &idx
	}
	if s.State != nil {
		out.State = append(json.RawMessage(nil), s.State...)
	}

	return &out
}
