// room/room.go
package room

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/partyroom/games"
	"github.com/wfunc/partyroom/models"
	"github.com/wfunc/partyroom/state"
)

// Player occupies a seat for the lifetime of the room. Disconnecting only
// clears Connected.
type Player struct {
	ID        string
	Name      string
	Emoji     string
	Theme     string
	Role      models.Role
	Score     int
	GamesWon  int
	Token     string // latest device token
	SeatToken string // minted once per seat claim
	Connected bool
}

func newPlayer(identity models.Identity, role models.Role, deviceToken string) *Player {
	return &Player{
		ID:        "player_" + uuid.NewString(),
		Name:      identity.Name,
		Emoji:     identity.Emoji,
		Theme:     identity.Theme,
		Role:      role,
		Token:     deviceToken,
		SeatToken: "seat_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Connected: true,
	}
}

func (p *Player) view() *models.PlayerView {
	if p == nil {
		return nil
	}
	return &models.PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		Emoji:     p.Emoji,
		Theme:     p.Theme,
		Role:      p.Role,
		Score:     p.Score,
		GamesWon:  p.GamesWon,
		Connected: p.Connected,
	}
}

// Seats are the two playing positions of a room.
type Seats struct {
	Host  *Player
	Guest *Player
}

// ActiveGame is the game on the table. State belongs to the engine.
type ActiveGame struct {
	ID    string
	State games.State
}

// EndRequest is a pending ask to abandon the current game.
type EndRequest struct {
	ByID string
	At   time.Time
}

// Room is the aggregate every operation in this package works on. It holds
// no lock of its own; callers serialise access.
type Room struct {
	Code       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Seats      Seats
	Spectators []*Player
	Round      *state.Round
	Game       *ActiveGame
	EndRequest *EndRequest

	// ShuffleTask is the timer id of the pending shuffle advance, 0 if none.
	ShuffleTask int64

	env *env
}

func newRoom(code string, host *Player, env *env) *Room {
	now := env.clock.Now()
	return &Room{
		Code:       code,
		CreatedAt:  now,
		UpdatedAt:  now,
		Seats:      Seats{Host: host},
		Spectators: []*Player{},
		Round:      state.NewRound(),
		env:        env,
	}
}

func (r *Room) touch() {
	r.UpdatedAt = r.env.clock.Now()
}

// Players returns the seated players, host first.
func (r *Room) Players() []*Player {
	players := make([]*Player, 0, 2)
	if r.Seats.Host != nil {
		players = append(players, r.Seats.Host)
	}
	if r.Seats.Guest != nil {
		players = append(players, r.Seats.Guest)
	}
	return players
}

// Player finds a seated player by id.
func (r *Room) Player(id string) *Player {
	if id == "" {
		return nil
	}
	for _, p := range r.Players() {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// seated returns the caller if they hold the host or guest seat.
func (r *Room) seated(playerID string) *Player {
	p := r.Player(playerID)
	if p == nil || !p.Role.Seated() {
		return nil
	}
	return p
}

// findByToken matches the seat token first; device tokens can collide or
// rotate across browser storage, seat tokens cannot.
func (r *Room) findByToken(seatToken, deviceToken string) *Player {
	if seatToken != "" {
		for _, p := range r.Players() {
			if p.SeatToken == seatToken {
				return p
			}
		}
	}
	if deviceToken != "" {
		for _, p := range r.Players() {
			if p.Token == deviceToken {
				return p
			}
		}
	}
	return nil
}

func (r *Room) themeTaken(theme string) bool {
	for _, p := range r.Players() {
		if p.Theme == theme {
			return true
		}
	}
	return false
}

func (r *Room) full() bool {
	return r.Seats.Host != nil && r.Seats.Guest != nil
}

// gameUnfinished reports whether a game is on the table and still running.
func (r *Room) gameUnfinished() bool {
	return r.Game != nil && !games.Finished(r.Game.State)
}

// Expired reports whether the room has been idle longer than ttl.
func (r *Room) Expired(now time.Time, ttl time.Duration) bool {
	return r.UpdatedAt.Before(now.Add(-ttl))
}

// View is the public snapshot: no device or seat tokens.
func (r *Room) View() models.RoomView {
	view := models.RoomView{
		Code:      r.Code,
		CreatedAt: models.Millis(r.CreatedAt),
		UpdatedAt: models.Millis(r.UpdatedAt),
		Players: models.SeatsView{
			Host:  r.Seats.Host.view(),
			Guest: r.Seats.Guest.view(),
		},
		Spectators: make([]models.PlayerView, 0, len(r.Spectators)),
		Games:      catalogView(r.env.catalog),
	}
	for _, s := range r.Spectators {
		view.Spectators = append(view.Spectators, *s.view())
	}
	if r.Round != nil {
		round := &models.RoundView{
			Status:           string(r.Round.Status),
			HostGameID:       models.OptString(r.Round.HostGameID),
			GuestGameID:      models.OptString(r.Round.GuestGameID),
			ResolvedGameID:   models.OptString(r.Round.ResolvedGameID),
			PickerID:         models.OptString(r.Round.PickerID),
			FirstPlayerID:    models.OptString(r.Round.FirstPlayerID),
			HasPickedStarter: r.Round.HasPickedStarter,
		}
		if !r.Round.ShuffleAt.IsZero() {
			at := models.Millis(r.Round.ShuffleAt)
			round.ShuffleAt = &at
		}
		view.Round = round
	}
	if r.EndRequest != nil {
		view.EndRequest = &models.EndRequestView{ByID: r.EndRequest.ByID, At: models.Millis(r.EndRequest.At)}
	}
	if r.Game != nil {
		view.Game = &models.GameView{ID: r.Game.ID, State: r.Game.State}
	}
	return view
}

// Summary is the short form used by admin listings.
func (r *Room) Summary() models.RoomSummary {
	s := models.RoomSummary{
		Code:      r.Code,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, p := range r.Players() {
		s.Players++
		if p.Connected {
			s.Connected++
		}
	}
	if r.Round != nil {
		s.Status = string(r.Round.Status)
	}
	if r.Game != nil {
		s.GameID = r.Game.ID
	}
	return s
}

func catalogView(c *games.Catalog) []models.GameInfoView {
	list := c.List()
	out := make([]models.GameInfoView, 0, len(list))
	for _, info := range list {
		out = append(out, models.GameInfoView{
			ID:         info.ID,
			Name:       info.Name,
			MinPlayers: info.MinPlayers,
			MaxPlayers: info.MaxPlayers,
			ComingSoon: info.ComingSoon,
			BannerKey:  info.BannerKey,
		})
	}
	return out
}
