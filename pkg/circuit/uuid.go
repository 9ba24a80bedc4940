package circuit

import "github.com/google/uuid"

// UUID is the stable, randomly-generated identity minted the first time a
// component or sheet is created and never reused (spec.md 3, "Identity and
// lifecycle"). It is an opaque string so it round-trips through KiCad
// files, which write UUIDs as bare (unquoted) symbols.
type UUID string

// NewUUID mints a fresh stable identity, the way jtomasevic-synapse mints
// its own EventID from uuid.New() (pck/event_network/synapse.go).
func NewUUID() UUID {
	return UUID(uuid.New().String())
}
