package models

import (
	"time"
)

// Player is an identity that can create and join sessions
type Player struct {
	// ID is the unique identifier of the player
	ID string

	// Name is the display name of the player
	Name string

	// UserID links the player to an external account, such as a Discord user
	UserID string

	CreatedAt time.Time
}
