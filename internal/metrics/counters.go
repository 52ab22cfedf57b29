package metrics

import "sort"

// Well-known counter keys. They are backed by typed fields; any other key is an
// ad hoc counter created on first use.
const (
	KeyGenerated      = "generated"
	KeyControlPackets = "control_packets"
	KeyCollisions     = "collisions"
)

// Counters is a named integer counter store. Well-known keys and ad hoc keys
// share one lookup path.
type Counters struct {
	generated      int64
	controlPackets int64
	collisions     int64
	adhoc          map[string]int64
}

// NewCounters returns an empty store.
func NewCounters() *Counters {
	return &Counters{adhoc: make(map[string]int64)}
}

func (c *Counters) field(key string) *int64 {
	switch key {
	case KeyGenerated:
		return &c.generated
	case KeyControlPackets:
		return &c.controlPackets
	case KeyCollisions:
		return &c.collisions
	}
	return nil
}

// Count adds delta to key and returns the new value.
func (c *Counters) Count(key string, delta int64) int64 {
	if f := c.field(key); f != nil {
		*f += delta
		return *f
	}
	if c.adhoc == nil {
		c.adhoc = make(map[string]int64)
	}
	c.adhoc[key] += delta
	return c.adhoc[key]
}

// Value returns the counter for key. Well-known keys always exist; ad hoc keys
// that were never counted return def.
func (c *Counters) Value(key string, def int64) int64 {
	if f := c.field(key); f != nil {
		return *f
	}
	if v, ok := c.adhoc[key]; ok {
		return v
	}
	return def
}

// Keys lists every known key, well-known first, then ad hoc keys sorted.
func (c *Counters) Keys() []string {
	keys := []string{KeyGenerated, KeyControlPackets, KeyCollisions}
	extra := make([]string, 0, len(c.adhoc))
	for k := range c.adhoc {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// Snapshot copies all counters into a map.
func (c *Counters) Snapshot() map[string]int64 {
	out := make(map[string]int64, 3+len(c.adhoc))
	for _, k := range c.Keys() {
		out[k] = c.Value(k, 0)
	}
	return out
}
