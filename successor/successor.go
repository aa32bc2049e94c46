// Package successor implements a deterministic-successor cache: an
// append-only map recording that joint choice j, taken from joint machine
// state M, always transitions to M'. It is a per-process runtime
// optimisation (never persisted across runs) that lets a Q-value lookup
// bootstrap V(s, M') instead of recomputing Q(s, M, j) from tile-coded
// features whenever the machine's structure makes the successor certain.
package successor

import "strings"

// JoinLabel renders a joint machine state (ordered per-agent labels) as a
// single map key. Labels are opaque bounded strings that never contain the
// separator by construction of the embedding machine runtime; a
// length-prefixed join would be needed if that ever stopped holding, but a
// hierarchical machine's labels are guaranteed stable and already distinct,
// so the simple join is sufficient.
func JoinLabel(m []string) string {
	return strings.Join(m, "\x1f")
}

type entryKey struct {
	m string
	j int
}

// ErrIntegrityViolation is returned when a new observation (M, j, M') would
// overwrite an existing entry with a different M': the supplied hierarchical
// machine violated its declared determinism, a fatal bug in the embedding
// machine, not in this cache.
type ErrIntegrityViolation struct {
	M        []string
	J        int
	Existing []string
	New      []string
}

func (e *ErrIntegrityViolation) Error() string {
	return "successor: deterministic map conflict: (M, j) previously recorded a different successor"
}

// Cache is the deterministic (M, j) -> M' map.
type Cache struct {
	entries map[entryKey][]string
}

// NewCache returns an empty deterministic-successor cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[entryKey][]string)}
}

// Lookup returns the recorded successor for (m, j), if any.
func (c *Cache) Lookup(m []string, j int) (successor []string, ok bool) {
	successor, ok = c.entries[entryKey{m: JoinLabel(m), j: j}]
	return
}

// Record appends a new (m, j) -> successor observation. A second, conflicting
// observation for the same (m, j) is a fatal integrity violation; repeating
// the same observation is a no-op.
func (c *Cache) Record(m []string, j int, successor []string) error {
	key := entryKey{m: JoinLabel(m), j: j}
	existing, ok := c.entries[key]
	if !ok {
		cp := append([]string(nil), successor...)
		c.entries[key] = cp
		return nil
	}
	if JoinLabel(existing) != JoinLabel(successor) {
		return &ErrIntegrityViolation{M: m, J: j, Existing: existing, New: successor}
	}
	return nil
}

// Len returns the number of recorded (M, j) entries.
func (c *Cache) Len() int { return len(c.entries) }
