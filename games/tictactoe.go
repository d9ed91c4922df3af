// games/tictactoe.go
package games

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const TicTacToeID = "tic_tac_toe"

var ticTacToeLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type TicTacToeMove struct {
	PlayerID string `json:"playerId"`
	Index    int    `json:"index"`
}

// TicTacToeState is the board as sent to clients. Empty cells are "".
type TicTacToeState struct {
	Board        [9]string         `json:"board"`
	PlayerOrder  [2]string         `json:"playerOrder"`
	Symbols      map[string]string `json:"symbols"`
	NextPlayerID string            `json:"nextPlayerId"`
	Winner       string            `json:"winnerId"`
	Draw         bool              `json:"draw"`
	History      []TicTacToeMove   `json:"history"`
}

func (s *TicTacToeState) WinnerID() string { return s.Winner }
func (s *TicTacToeState) IsDraw() bool     { return s.Draw }

type TicTacToe struct{}

func NewTicTacToe() *TicTacToe {
	return &TicTacToe{}
}

func (TicTacToe) Info() Info {
	return Info{
		ID:         TicTacToeID,
		Name:       "Tic Tac Toe",
		MinPlayers: 2,
		MaxPlayers: 2,
		BannerKey:  TicTacToeID,
	}
}

// Init seats the first player as X; X moves first.
func (TicTacToe) Init(players []Seat) (State, error) {
	if len(players) != 2 {
		return nil, ErrNotEnough
	}
	first, second := players[0].ID, players[1].ID
	return &TicTacToeState{
		PlayerOrder:  [2]string{first, second},
		Symbols:      map[string]string{first: "X", second: "O"},
		NextPlayerID: first,
		History:      []TicTacToeMove{},
	}, nil
}

func (TicTacToe) ApplyMove(state State, move json.RawMessage, playerID string) (State, error) {
	s, ok := state.(*TicTacToeState)
	if !ok || s == nil {
		return nil, ErrInvalidState
	}
	if s.Winner != "" || s.Draw {
		return nil, moveError("Game is already finished.")
	}
	if playerID != s.NextPlayerID {
		return nil, moveError("Not your turn.")
	}
	index, ok := parseCellIndex(move)
	if !ok || index < 0 || index > 8 {
		return nil, moveError("Invalid move.")
	}
	if s.Board[index] != "" {
		return nil, moveError("That space is already taken.")
	}

	next := *s
	next.Board[index] = s.Symbols[playerID]
	next.History = make([]TicTacToeMove, len(s.History), len(s.History)+1)
	copy(next.History, s.History)
	next.History = append(next.History, TicTacToeMove{PlayerID: playerID, Index: index})

	next.Winner = ticTacToeWinner(next.Board, s.Symbols)
	next.Draw = next.Winner == "" && boardFull(next.Board)
	switch {
	case next.Winner != "" || next.Draw:
		next.NextPlayerID = ""
	case playerID == s.PlayerOrder[0]:
		next.NextPlayerID = s.PlayerOrder[1]
	default:
		next.NextPlayerID = s.PlayerOrder[0]
	}
	return &next, nil
}

func ticTacToeWinner(board [9]string, symbols map[string]string) string {
	for _, line := range ticTacToeLines {
		mark := board[line[0]]
		if mark == "" || mark != board[line[1]] || mark != board[line[2]] {
			continue
		}
		for id, symbol := range symbols {
			if symbol == mark {
				return id
			}
		}
	}
	return ""
}

func boardFull(board [9]string) bool {
	for _, cell := range board {
		if cell == "" {
			return false
		}
	}
	return true
}

// parseCellIndex accepts {"index": 4} as well as {"index": "4"}.
func parseCellIndex(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var payload struct {
		Index any `json:"index"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return 0, false
	}
	switch v := payload.Index.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}
