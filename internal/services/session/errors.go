package session

import (
	"fmt"
	"strings"

	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/KirkDiggler/tabletop/internal/schema"
)

// SessionError is a custom error type for session-related errors
type SessionError string

// Error implements the error interface
func (e SessionError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrSessionNotFound             SessionError = "session not found"
	ErrGameNotFound                SessionError = "game not found"
	ErrPlayerNotFound              SessionError = "player not found"
	ErrSessionNotJoinable          SessionError = "session is not accepting players"
	ErrSessionFull                 SessionError = "session is at maximum capacity"
	ErrAlreadyJoined               SessionError = "player already in session"
	ErrPlayerNotInSession          SessionError = "player not in session"
	ErrInsufficientOrExcessPlayers SessionError = "player count outside the allowed range"
	ErrInvalidState                SessionError = "invalid session state"
	ErrForbidden                   SessionError = "player may not act on this session"
	ErrConflict                    SessionError = "session was modified concurrently, try again"
	ErrInvalidGameStart            SessionError = "session can only be started while waiting"
	ErrSessionFinished             SessionError = "session is finished"
	ErrNotYourTurn                 SessionError = "it is not the player's turn"
	ErrNilConfig                   SessionError = "config cannot be nil"
	ErrNilSessionRepo              SessionError = "session repository cannot be nil"
	ErrNilGameRepo                 SessionError = "game repository cannot be nil"
	ErrNilPlayerRepo               SessionError = "player repository cannot be nil"
	ErrNilValidator                SessionError = "state validator cannot be nil"
	ErrNilClock                    SessionError = "clock cannot be nil"
	ErrNilUUIDGenerator            SessionError = "UUID generator cannot be nil"
	ErrNilService                  SessionError = "session service cannot be nil"
)

// Definition and transition failures are raised by the models package
const (
	ErrInvalidDefinition = models.ErrInvalidDefinition
	ErrInvalidTransition = models.ErrInvalidTransition
)

// PlayerCountError reports a roster size outside the session bounds
type PlayerCountError struct {
	Current int
	Min     int
	Max     int
}

func (e *PlayerCountError) Error() string {
	return fmt.Sprintf("%s: have %d, need %d to %d", ErrInsufficientOrExcessPlayers, e.Current, e.Min, e.Max)
}

// Is lets errors.Is(err, ErrInsufficientOrExcessPlayers) match
func (e *PlayerCountError) Is(target error) bool {
	return target == ErrInsufficientOrExcessPlayers
}

// StateError carries the schema violations behind an ErrInvalidState
type StateError struct {
	Violations []schema.Violation
	Reason     string
}

func (e *StateError) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("%s: %s", ErrInvalidState, e.Reason)
	}

	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.String())
	}

	return fmt.Sprintf("%s: %s", ErrInvalidState, strings.Join(msgs, "; "))
}

// Is lets errors.Is(err, ErrInvalidState) match
func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
