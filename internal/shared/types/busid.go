package types

import "fmt"

// BusType tags the origin of a bus identity.
type BusType string

const (
	BusNamed BusType = "named"
	BusAnon  BusType = "anon"
)

// BusID identifies a caller or subscriber on the message bus. Named
// identities are stable service names; anonymous identities are minted per
// connection and only compare equal to themselves.
type BusID struct {
	Type BusType `json:"type"`
	ID   string  `json:"id,omitempty"`
}

// NamedBusID returns the identity for a registered service name.
func NamedBusID(id string) BusID {
	return BusID{Type: BusNamed, ID: id}
}

// AnonBusID returns an anonymous identity for a bus connection token.
func AnonBusID(token string) BusID {
	return BusID{Type: BusAnon, ID: token}
}

// IsAnon reports whether the identity is anonymous.
func (b BusID) IsAnon() bool {
	return b.Type == BusAnon
}

// String renders the identity for logs and name-table keys.
func (b BusID) String() string {
	if b.IsAnon() {
		return fmt.Sprintf("anon-%s", b.ID)
	}
	return b.ID
}
