// games/catalog.go
package games

import "fmt"

type entry struct {
	info   Info
	engine Engine
}

// Catalog is the registry of selectable games. It is built once at startup
// and only read afterwards.
type Catalog struct {
	order   []string
	entries map[string]entry
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]entry)}
}

// Default returns the catalog served to clients.
func Default() *Catalog {
	c := NewCatalog()
	_ = c.Register(NewTicTacToe())
	_ = c.Announce(Info{ID: "battleships", Name: "Battleships", MinPlayers: 2, MaxPlayers: 2})
	_ = c.Announce(Info{ID: "zombie_dice", Name: "Zombie Dice", MinPlayers: 2, MaxPlayers: 2})
	return c
}

// Register adds a playable engine.
func (c *Catalog) Register(e Engine) error {
	info := e.Info()
	info.ComingSoon = false
	return c.add(info, e)
}

// Announce lists a game for discovery without making it selectable.
func (c *Catalog) Announce(info Info) error {
	info.ComingSoon = true
	return c.add(info, nil)
}

func (c *Catalog) add(info Info, e Engine) error {
	if _, exists := c.entries[info.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, info.ID)
	}
	if info.BannerKey == "" {
		info.BannerKey = info.ID
	}
	c.entries[info.ID] = entry{info: info, engine: e}
	c.order = append(c.order, info.ID)
	return nil
}

// List returns every entry in registration order.
func (c *Catalog) List() []Info {
	out := make([]Info, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id].info)
	}
	return out
}

// Lookup returns the engine for a selectable game.
func (c *Catalog) Lookup(id string) (Engine, error) {
	e, ok := c.entries[id]
	if !ok {
		return nil, ErrUnknownGame
	}
	if e.info.ComingSoon || e.engine == nil {
		return nil, ErrComingSoon
	}
	return e.engine, nil
}

// Start checks the player bounds of a game and initialises it.
func (c *Catalog) Start(id string, players []Seat) (State, error) {
	e, err := c.Lookup(id)
	if err != nil {
		return nil, err
	}
	info := e.Info()
	if len(players) < info.MinPlayers {
		return nil, ErrNotEnough
	}
	if info.MaxPlayers > 0 && len(players) > info.MaxPlayers {
		return nil, ErrTooMany
	}
	return e.Init(players)
}
