// models/view.go
package models

import "time"

// Public shapes sent to clients. Nothing here carries device or seat tokens.

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Theme     string `json:"theme"`
	Role      Role   `json:"role"`
	Score     int    `json:"score"`
	GamesWon  int    `json:"gamesWon"`
	Connected bool   `json:"connected"`
}

type SeatsView struct {
	Host  *PlayerView `json:"host"`
	Guest *PlayerView `json:"guest"`
}

// Holds reports whether playerID occupies one of the two seats.
func (v SeatsView) Holds(playerID string) bool {
	if playerID == "" {
		return false
	}
	return (v.Host != nil && v.Host.ID == playerID) || (v.Guest != nil && v.Guest.ID == playerID)
}

type RoundView struct {
	Status           string  `json:"status"`
	HostGameID       *string `json:"hostGameId"`
	GuestGameID      *string `json:"guestGameId"`
	ResolvedGameID   *string `json:"resolvedGameId"`
	PickerID         *string `json:"pickerId"`
	FirstPlayerID    *string `json:"firstPlayerId"`
	ShuffleAt        *int64  `json:"shuffleAt"`
	HasPickedStarter bool    `json:"hasPickedStarter"`
}

type GameView struct {
	ID    string `json:"id"`
	State any    `json:"state"`
}

type EndRequestView struct {
	ByID string `json:"byId"`
	At   int64  `json:"at"`
}

// GameInfoView mirrors games.Info; models stays free of engine imports.
type GameInfoView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
	ComingSoon bool   `json:"comingSoon"`
	BannerKey  string `json:"bannerKey"`
}

// RoomView is the full public snapshot broadcast after every mutation.
type RoomView struct {
	Code       string          `json:"code"`
	CreatedAt  int64           `json:"createdAt"`
	UpdatedAt  int64           `json:"updatedAt"`
	Players    SeatsView       `json:"players"`
	Spectators []PlayerView    `json:"spectators"`
	Round      *RoundView      `json:"round"`
	EndRequest *EndRequestView `json:"endRequest"`
	Game       *GameView       `json:"game"`
	Games      []GameInfoView  `json:"games"`
}

// Includes reports whether playerID is seated or spectating in this snapshot.
func (v RoomView) Includes(playerID string) bool {
	if v.Players.Holds(playerID) {
		return true
	}
	for _, s := range v.Spectators {
		if playerID != "" && s.ID == playerID {
			return true
		}
	}
	return false
}

// YouView tells one connection who it is inside the snapshot.
type YouView struct {
	ClientID string  `json:"clientId"`
	PlayerID *string `json:"playerId"`
	Role     *Role   `json:"role"`
	RoomCode *string `json:"roomCode"`
}

// PreviewView answers validate_room without touching the room.
type PreviewView struct {
	Code        string    `json:"code"`
	Players     SeatsView `json:"players"`
	IsFull      bool      `json:"isFull"`
	CanRejoin   bool      `json:"canRejoin"`
	RejoinRole  *Role     `json:"rejoinRole"`
	TakenThemes []string  `json:"takenThemes"`
}

// RoomSummary is the admin listing entry.
type RoomSummary struct {
	Code      string    `json:"code"`
	Players   int       `json:"players"`
	Connected int       `json:"connected"`
	Status    string    `json:"status"`
	GameID    string    `json:"gameId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Millis converts a timestamp to the epoch milliseconds clients expect.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// OptString maps "" to JSON null.
func OptString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
