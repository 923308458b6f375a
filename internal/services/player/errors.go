package player

// PlayerError represents player service errors
type PlayerError string

func (e PlayerError) Error() string {
	return string(e)
}

const (
	// ErrPlayerNotFound is returned when a player does not exist
	ErrPlayerNotFound PlayerError = "player not found"

	// ErrInvalidPlayerName is returned when a player has no display name
	ErrInvalidPlayerName PlayerError = "player name must not be empty"

	// ErrNilConfig is returned when a nil config is provided
	ErrNilConfig PlayerError = "config cannot be nil"

	// ErrNilPlayerRepo is returned when a nil player repository is provided
	ErrNilPlayerRepo PlayerError = "player repository cannot be nil"

	// ErrNilClock is returned when a nil clock is provided
	ErrNilClock PlayerError = "clock cannot be nil"

	// ErrNilUUIDGenerator is returned when a nil UUID generator is provided
	ErrNilUUIDGenerator PlayerError = "UUID generator cannot be nil"
)
