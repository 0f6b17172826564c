// ABOUTME: Record identifier generators for every dashboard collection
// ABOUTME: UUIDv7 based, with type prefixes such as "bg-" for stored backgrounds
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// BackgroundPrefix marks identifiers that live in the backgrounds collection.
// Background references starting with it are resolved through a lookup.
const BackgroundPrefix = "bg-"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing time-sortable RFC 9562 UUIDs.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Short truncates the IDs of gen to n characters, dropping dashes first.
func Short(n int, gen Generator) Generator {
	return func() string {
		id := strings.ReplaceAll(gen(), "-", "")
		if len(id) > n {
			// the tail of a v7 UUID is random, the head is the timestamp
			return id[len(id)-n:]
		}
		return id
	}
}

// Default generators used by the feature stores.
var (
	Task       = UUIDv7()
	Tile       = UUIDv7()
	Background = Prefixed(BackgroundPrefix, Short(16, UUIDv7()))
)
