package metrics

import (
	"reflect"
	"testing"
)

func TestCountersAdHoc(t *testing.T) {
	c := NewCounters()
	c.Count("retransmits", 3)
	if got := c.Count("retransmits", 2); got != 5 {
		t.Fatalf("Count returned %d, want 5", got)
	}
	if got := c.Value("retransmits", 0); got != 5 {
		t.Fatalf("Value(retransmits) = %d, want 5", got)
	}
	if got := c.Value("foo", 0); got != 0 {
		t.Fatalf("Value(foo) = %d, want 0", got)
	}
	if got := c.Value("foo", 7); got != 7 {
		t.Fatalf("Value(foo, 7) = %d, want 7", got)
	}
}

func TestCountersWellKnownShareLookup(t *testing.T) {
	c := NewCounters()
	c.Count(KeyCollisions, 4)
	c.Count(KeyCollisions, -1)
	if got := c.Value(KeyCollisions, 99); got != 3 {
		t.Fatalf("collisions = %d, want 3", got)
	}
	// well-known keys exist from the start, the default is not used
	if got := c.Value(KeyControlPackets, 99); got != 0 {
		t.Fatalf("control packets = %d, want 0", got)
	}
	if _, ok := c.adhoc[KeyCollisions]; ok {
		t.Fatalf("well-known key leaked into ad hoc map")
	}
}

func TestCountersZeroValueUsable(t *testing.T) {
	var c Counters
	if got := c.Count("x", 1); got != 1 {
		t.Fatalf("Count on zero Counters = %d, want 1", got)
	}
}

func TestCountersKeysAndSnapshot(t *testing.T) {
	c := NewCounters()
	c.Count("zeta", 1)
	c.Count("alpha", 2)
	c.Count(KeyGenerated, 3)
	want := []string{KeyGenerated, KeyControlPackets, KeyCollisions, "alpha", "zeta"}
	if got := c.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys = %v, want %v", got, want)
	}
	snap := c.Snapshot()
	if snap["alpha"] != 2 || snap[KeyGenerated] != 3 || snap[KeyCollisions] != 0 {
		t.Fatalf("unexpected snapshot %v", snap)
	}
}
