// Package enums holds the string-backed states persisted on orders, payments
// and outbox rows, plus the transitions allowed between them.
package enums

import (
	"fmt"
	"slices"
)

// members lists every value of a string enum.
type members[T ~string] []T

func (m members[T]) has(v T) bool { return slices.Contains(m, v) }

func (m members[T]) parse(kind, raw string) (T, error) {
	if v := T(raw); m.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}

// edges maps a state to the states it may move to.
type edges[T ~string] map[T][]T

func (e edges[T]) allows(from, to T) bool { return slices.Contains(e[from], to) }
