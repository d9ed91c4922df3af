// models/models.go
package models

// Role is the part a connection plays in a room.
type Role string

const (
	RoleHost      Role = "host"
	RoleGuest     Role = "guest"
	RoleSpectator Role = "spectator"
)

// Seated reports whether the role holds one of the two playing seats.
func (r Role) Seated() bool {
	return r == RoleHost || r == RoleGuest
}
