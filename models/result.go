// models/result.go
package models

import "time"

// Outcome of a finished game from the room's point of view.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeDraw Outcome = "draw"
)

// ResultPlayer is one participant of a finished game.
type ResultPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Theme    string `json:"theme"`
	Role     Role   `json:"role"`
	Outcome  string `json:"outcome"` // win/lose/draw
	Score    int    `json:"score"`
}

// GameResult is emitted once per naturally finished game.
type GameResult struct {
	RoomCode   string         `json:"room_code"`
	GameID     string         `json:"game_id"`
	Outcome    Outcome        `json:"outcome"`
	WinnerID   string         `json:"winner_id,omitempty"`
	StarterID  string         `json:"starter_id"`
	Players    []ResultPlayer `json:"players"`
	FinalState any            `json:"final_state"`
	FinishedAt time.Time      `json:"finished_at"`
}

// GameStats aggregates recorded results for one game id.
type GameStats struct {
	GameID      string           `json:"game_id"`
	Played      int64            `json:"played"`
	Draws       int64            `json:"draws"`
	WinsByTheme map[string]int64 `json:"wins_by_theme"`
}
