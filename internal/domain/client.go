// Package domain contains entity without logic, just meta-data
package domain

import "errors"

// ClientID is the identifier a client presents in the websocket path.
type ClientID string

// Role is declared by the client at registration time; it is never
// inferred from the id.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

var ErrUnknownRole = errors.New("unknown role")

// ParseRole accepts the handshake role values, including the legacy
// camera/viewer spellings used by existing pushers.
func ParseRole(s string) (Role, error) {
	switch s {
	case "publisher", "camera":
		return RolePublisher, nil
	case "subscriber", "viewer":
		return RoleSubscriber, nil
	}
	return "", ErrUnknownRole
}

func (r Role) String() string { return string(r) }
