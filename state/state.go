package state

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/wfunc/partyroom/models"
)

// Status is where a round is in its select → resolve → play cycle.
type Status string

const (
	StatusWaitingGame Status = "waiting_game"
	StatusShuffling   Status = "shuffling"
	StatusPlaying     Status = "playing"
)

// ErrTransitionNotAllowed is returned when a status change is not in the table.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// fromStatus -> allowed toStatus
var transitions = map[Status]map[Status]bool{
	StatusWaitingGame: {StatusWaitingGame: true, StatusShuffling: true, StatusPlaying: true},
	StatusShuffling:   {StatusPlaying: true, StatusWaitingGame: true},
	StatusPlaying:     {StatusWaitingGame: true},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// NormalizeStatus folds historical values ("waiting", "ready", ...) into the
// three canonical statuses. Anything unrecognised is treated as waiting.
func NormalizeStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusShuffling:
		return StatusShuffling
	case StatusPlaying:
		return StatusPlaying
	default:
		return StatusWaitingGame
	}
}

// UnmarshalJSON is the decode boundary for statuses read off the wire, so
// frames from older servers land on the canonical set.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeStatus(raw)
	return nil
}

// Round is the per-selection sub-state of a room. PickerID and FirstPlayerID
// always hold the same player; both are kept for the wire format.
type Round struct {
	Status           Status
	HostGameID       string
	GuestGameID      string
	ResolvedGameID   string
	PickerID         string
	FirstPlayerID    string
	ShuffleAt        time.Time
	HasPickedStarter bool
	// LastStarterID survives resets so the next resolution can alternate.
	LastStarterID string

	// alternation memory from before the last Resolve
	prevHasPicked   bool
	prevLastStarter string
}

func NewRound() *Round {
	return &Round{Status: StatusWaitingGame}
}

// ChangeStatus moves the round to a new status if the table allows it.
func (r *Round) ChangeStatus(to Status) error {
	if !CanTransition(r.Status, to) {
		return ErrTransitionNotAllowed
	}
	r.Status = to
	return nil
}

// Reset forgets everything, including who started last. Used when the
// opponent changes.
func (r *Round) Reset() {
	*r = Round{Status: StatusWaitingGame}
}

// ResetKeepingStarter starts a fresh selection but remembers the previous
// starter so the next resolution alternates instead of re-randomising.
func (r *Round) ResetKeepingStarter() {
	*r = Round{
		Status:           StatusWaitingGame,
		HasPickedStarter: r.HasPickedStarter,
		LastStarterID:    r.LastStarterID,
	}
}

// Choose records one seat's game choice for the upcoming round.
func (r *Round) Choose(seat models.Role, gameID string) error {
	if r.Status != StatusWaitingGame {
		return ErrTransitionNotAllowed
	}
	switch seat {
	case models.RoleHost:
		r.HostGameID = gameID
	case models.RoleGuest:
		r.GuestGameID = gameID
	default:
		return ErrTransitionNotAllowed
	}
	return nil
}

// Consensus returns the game both seats agreed on. When the choices differ
// the host's choice wins.
func (r *Round) Consensus() (string, bool) {
	if r.HostGameID == "" || r.GuestGameID == "" {
		return "", false
	}
	return r.HostGameID, true
}

// Resolve fixes the game and the starter. The first resolution of a room is
// a coin flip followed by a shuffle; every later one alternates and goes
// straight to playing. intn must return a value in [0, n).
func (r *Round) Resolve(hostID, guestID string, now time.Time, intn func(n int) int) (shuffle bool, err error) {
	gameID, ok := r.Consensus()
	if !ok || r.Status != StatusWaitingGame {
		return false, ErrTransitionNotAllowed
	}

	var starter string
	switch {
	case r.HasPickedStarter && r.LastStarterID == hostID:
		starter = guestID
	case r.HasPickedStarter && r.LastStarterID == guestID:
		starter = hostID
	default:
		shuffle = true
		starter = hostID
		if intn(2) == 1 {
			starter = guestID
		}
	}

	next := StatusPlaying
	if shuffle {
		next = StatusShuffling
		r.ShuffleAt = now
	}
	if err := r.ChangeStatus(next); err != nil {
		return false, err
	}

	r.prevHasPicked, r.prevLastStarter = r.HasPickedStarter, r.LastStarterID
	r.ResolvedGameID = gameID
	r.PickerID = starter
	r.FirstPlayerID = starter
	r.LastStarterID = starter
	r.HasPickedStarter = true
	return shuffle, nil
}

// AbortResolve returns to game selection after a resolution whose game
// could not be started. The starter memory goes back to what it was before
// Resolve, so the failed attempt does not count as a turn.
func (r *Round) AbortResolve() {
	*r = Round{
		Status:           StatusWaitingGame,
		HasPickedStarter: r.prevHasPicked,
		LastStarterID:    r.prevLastStarter,
	}
}

// AdvanceShuffle ends the shuffle started at `at`. A stale call from an
// older shuffle is a no-op.
func (r *Round) AdvanceShuffle(at time.Time) bool {
	if r.Status != StatusShuffling || !r.ShuffleAt.Equal(at) {
		return false
	}
	return r.ChangeStatus(StatusPlaying) == nil
}
