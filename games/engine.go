// games/engine.go
package games

import (
	"encoding/json"
	"errors"
)

var (
	ErrUnknownGame   = errors.New("Unknown game.")
	ErrComingSoon    = errors.New("That game is coming soon.")
	ErrNotEnough     = errors.New("Not enough players to start.")
	ErrTooMany       = errors.New("Too many players to start.")
	ErrInvalidState  = errors.New("invalid game state")
	ErrDuplicateGame = errors.New("game already registered")
)

// Info is the display metadata every catalog entry exposes, playable or not.
type Info struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
	ComingSoon bool   `json:"comingSoon"`
	BannerKey  string `json:"bannerKey"`
}

// Seat is one participant handed to Init, in turn order.
type Seat struct {
	ID   string
	Role string
}

// State is opaque to the room; it only needs to know when a game is over.
type State interface {
	WinnerID() string
	IsDraw() bool
}

// Engine is a pure rules implementation for one mini-game.
// ApplyMove must not mutate the state it is given.
type Engine interface {
	Info() Info
	Init(players []Seat) (State, error)
	ApplyMove(state State, move json.RawMessage, playerID string) (State, error)
}

// MoveError is a rule violation reported by an engine. Its message is shown
// to the mover as is.
type MoveError struct {
	Message string
}

func (e *MoveError) Error() string {
	return e.Message
}

func moveError(msg string) error {
	return &MoveError{Message: msg}
}

// Finished reports whether the state has a winner or ended in a draw.
func Finished(s State) bool {
	if s == nil {
		return false
	}
	return s.WinnerID() != "" || s.IsDraw()
}
