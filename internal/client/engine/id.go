package engine

import (
	"strings"

	"github.com/google/uuid"
)

// localPrefix marks the string form of ids that have not been persisted.
// Server ids are uuids and never carry it.
const localPrefix = "local:"

// ID identifies an item in the working set. It is either Local, assigned
// on creation before any network round-trip, or Persisted, assigned by the
// server. The zero ID identifies nothing.
type ID struct {
	value string
	local bool
}

// NewLocalID returns a fresh Local id.
func NewLocalID() ID {
	return ID{value: uuid.NewString(), local: true}
}

// PersistedID wraps a server-assigned id.
func PersistedID(v string) ID {
	return ID{value: v}
}

// ParseID reverses String. It is meant for ids typed by a user or read
// back from output; the engine itself never inspects prefixes.
func ParseID(s string) ID {
	if v, ok := strings.CutPrefix(s, localPrefix); ok {
		return ID{value: v, local: true}
	}
	return PersistedID(s)
}

// IsLocal reports whether the server has not yet acknowledged the item.
func (id ID) IsLocal() bool { return id.local }

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool { return id.value == "" }

func (id ID) String() string {
	if id.local {
		return localPrefix + id.value
	}
	return id.value
}
