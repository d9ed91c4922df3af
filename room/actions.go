package room

import (
	"encoding/json"
	"time"

	"github.com/wfunc/partyroom/games"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/state"
)

// JoinRequest carries everything a client may present when entering a room.
type JoinRequest struct {
	IdentityID  string
	DeviceToken string
	SeatToken   string
}

// JoinResult tells the caller which seat they hold and whether it was a
// reclaim of an existing seat.
type JoinResult struct {
	Player    *Player
	Reclaimed bool
}

// Join reclaims a seat by token or seats a new guest.
func (r *Room) Join(req JoinRequest) (JoinResult, error) {
	if p := r.findByToken(req.SeatToken, req.DeviceToken); p != nil {
		p.Connected = true
		if req.DeviceToken != "" {
			p.Token = req.DeviceToken
		}
		r.touch()
		return JoinResult{Player: p, Reclaimed: true}, nil
	}

	identity, ok := models.LookupIdentity(req.IdentityID)
	if !ok {
		return JoinResult{}, ErrPickIdentity
	}
	if r.themeTaken(identity.Theme) {
		return JoinResult{}, ErrIdentityTaken
	}
	if r.full() {
		return JoinResult{}, ErrRoomFull
	}

	guest := newPlayer(identity, models.RoleGuest, req.DeviceToken)
	r.Seats.Guest = guest
	// new opponent, new alternation
	r.Round.Reset()
	r.Game = nil
	r.EndRequest = nil
	r.touch()
	return JoinResult{Player: guest}, nil
}

// Preview is the read-only answer to validate_room.
func (r *Room) Preview(deviceToken, seatToken string) models.PreviewView {
	view := models.PreviewView{
		Code: r.Code,
		Players: models.SeatsView{
			Host:  r.Seats.Host.view(),
			Guest: r.Seats.Guest.view(),
		},
		IsFull:      r.full(),
		TakenThemes: make([]string, 0, 2),
	}
	for _, p := range r.Players() {
		view.TakenThemes = append(view.TakenThemes, p.Theme)
	}
	if p := r.findByToken(seatToken, deviceToken); p != nil {
		role := p.Role
		view.CanRejoin = true
		view.RejoinRole = &role
	}
	return view
}

// SelectResult describes what a game choice led to.
type SelectResult struct {
	Resolved  bool
	Shuffling bool
	ShuffleAt time.Time
}

// SelectGame records a seat's choice and resolves the round once both seats
// have chosen.
func (r *Room) SelectGame(playerID, gameID string) (SelectResult, error) {
	p := r.seated(playerID)
	if p == nil {
		return SelectResult{}, ErrSpectatorPick
	}
	if !r.full() {
		return SelectResult{}, ErrWaitingForOpponent
	}
	if r.gameUnfinished() {
		return SelectResult{}, ErrGameInProgress
	}
	if r.Round.Status == state.StatusShuffling {
		return SelectResult{}, ErrShuffling
	}
	if _, err := r.env.catalog.Lookup(gameID); err != nil {
		return SelectResult{}, err
	}

	if r.Game != nil || r.Round.Status != state.StatusWaitingGame {
		r.clearGame()
	}
	if err := r.Round.Choose(p.Role, gameID); err != nil {
		return SelectResult{}, err
	}
	r.touch()

	if _, ok := r.Round.Consensus(); !ok {
		return SelectResult{}, nil
	}
	now := r.env.clock.Now()
	shuffle, err := r.Round.Resolve(r.Seats.Host.ID, r.Seats.Guest.ID, now, r.env.intn)
	if err != nil {
		return SelectResult{}, err
	}
	if shuffle {
		return SelectResult{Resolved: true, Shuffling: true, ShuffleAt: now}, nil
	}
	if err := r.startGame(); err != nil {
		return SelectResult{}, err
	}
	return SelectResult{Resolved: true}, nil
}

// AdvanceShuffle ends the shuffle that began at `at` and puts the resolved
// game on the table. It reports false when the shuffle was superseded.
func (r *Room) AdvanceShuffle(at time.Time) (bool, error) {
	if !r.Round.AdvanceShuffle(at) {
		return false, nil
	}
	if err := r.startGame(); err != nil {
		return false, err
	}
	r.touch()
	return true, nil
}

// startGame initialises the resolved game with the starter in the first seat.
func (r *Room) startGame() error {
	first, second := r.Seats.Host, r.Seats.Guest
	if r.Round.FirstPlayerID == second.ID {
		first, second = second, first
	}
	st, err := r.env.catalog.Start(r.Round.ResolvedGameID, []games.Seat{
		{ID: first.ID, Role: string(first.Role)},
		{ID: second.ID, Role: string(second.Role)},
	})
	if err != nil {
		r.Round.AbortResolve()
		return err
	}
	r.Game = &ActiveGame{ID: r.Round.ResolvedGameID, State: st}
	r.EndRequest = nil
	return nil
}

// clearGame drops the table and starts a new selection. The last starter
// is kept so the next resolution alternates.
func (r *Room) clearGame() {
	r.Game = nil
	r.EndRequest = nil
	r.Round.ResetKeepingStarter()
}

// NewRound returns the room to game selection.
func (r *Room) NewRound(playerID string) error {
	if r.seated(playerID) == nil {
		return ErrSpectatorRound
	}
	if r.gameUnfinished() {
		return ErrGameInProgress
	}
	if r.Round.Status == state.StatusShuffling {
		return ErrShuffling
	}
	r.clearGame()
	r.touch()
	return nil
}

// Move applies a move for playerID. When the move finishes the game a
// result is returned for recording.
func (r *Room) Move(playerID string, move json.RawMessage) (*models.GameResult, error) {
	if r.Game == nil {
		return nil, ErrNoGame
	}
	p := r.seated(playerID)
	if p == nil {
		return nil, ErrSpectatorPlay
	}
	engine, err := r.env.catalog.Lookup(r.Game.ID)
	if err != nil {
		return nil, err
	}
	prevWinner := r.Game.State.WinnerID()
	next, err := engine.ApplyMove(r.Game.State, move, p.ID)
	if err != nil {
		return nil, err
	}
	r.Game.State = next

	winner := next.WinnerID()
	if winner != "" && prevWinner == "" {
		if w := r.Player(winner); w != nil {
			w.Score++
			w.GamesWon++
		}
	}
	r.touch()
	if !games.Finished(next) {
		return nil, nil
	}
	r.EndRequest = nil
	return r.result(), nil
}

func (r *Room) result() *models.GameResult {
	res := &models.GameResult{
		RoomCode:   r.Code,
		GameID:     r.Game.ID,
		Outcome:    models.OutcomeDraw,
		WinnerID:   r.Game.State.WinnerID(),
		StarterID:  r.Round.FirstPlayerID,
		FinalState: r.Game.State,
		FinishedAt: r.UpdatedAt,
	}
	if res.WinnerID != "" {
		res.Outcome = models.OutcomeWin
	}
	for _, p := range r.Players() {
		outcome := "draw"
		switch {
		case res.WinnerID == p.ID:
			outcome = "win"
		case res.WinnerID != "":
			outcome = "lose"
		}
		res.Players = append(res.Players, models.ResultPlayer{
			PlayerID: p.ID,
			Name:     p.Name,
			Theme:    p.Theme,
			Role:     p.Role,
			Outcome:  outcome,
			Score:    p.Score,
		})
	}
	return res
}

// RequestEnd asks the opponent to abandon the running game.
func (r *Room) RequestEnd(playerID string) error {
	p := r.seated(playerID)
	if p == nil {
		return ErrSpectatorEnd
	}
	if !r.gameUnfinished() {
		return ErrNoActiveGame
	}
	if r.EndRequest != nil {
		return ErrEndPending
	}
	r.touch()
	r.EndRequest = &EndRequest{ByID: p.ID, At: r.UpdatedAt}
	return nil
}

// AgreeEnd accepts the opponent's end request.
func (r *Room) AgreeEnd(playerID string) error {
	p := r.seated(playerID)
	if p == nil {
		return ErrSpectatorEnd
	}
	if r.EndRequest == nil {
		return ErrNoEndRequest
	}
	if r.EndRequest.ByID == p.ID {
		return ErrOwnEndRequest
	}
	r.clearGame()
	r.touch()
	return nil
}

// Leave marks the player away. The seat stays reserved for a reclaim.
// Unknown players leave the room untouched.
func (r *Room) Leave(playerID string) {
	p := r.Player(playerID)
	if p == nil {
		return
	}
	p.Connected = false
	r.EndRequest = nil
	r.touch()
}

// Disconnect is a dropped socket: only the presence flag changes.
func (r *Room) Disconnect(playerID string) {
	if p := r.Player(playerID); p != nil {
		p.Connected = false
		r.touch()
	}
}
