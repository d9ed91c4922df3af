// models/identity.go
package models

import "strings"

// Identity is one of the selectable cosmetic personas. Theme is what must
// differ between the two seats of a room.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Theme string `json:"theme"`
}

var identities = map[string]Identity{
	"yellow": {ID: "yellow", Name: "Mr Yellow", Emoji: "🍌", Theme: "yellow"},
	"red":    {ID: "red", Name: "Mr Red", Emoji: "🍓", Theme: "red"},
	"green":  {ID: "green", Name: "Mr Green", Emoji: "🥝", Theme: "green"},
	"blue":   {ID: "blue", Name: "Mr Blue", Emoji: "🫐", Theme: "blue"},
}

// older clients still send fruit ids
var legacyIdentityAliases = map[string]string{
	"banana":     "yellow",
	"strawberry": "red",
	"kiwi":       "green",
	"blueberry":  "blue",
}

// LookupIdentity resolves an identity id or legacy fruit id.
func LookupIdentity(raw string) (Identity, bool) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := legacyIdentityAliases[id]; ok {
		id = alias
	}
	identity, ok := identities[id]
	return identity, ok
}

// Identities lists the catalog in a stable order.
func Identities() []Identity {
	return []Identity{identities["yellow"], identities["red"], identities["green"], identities["blue"]}
}
