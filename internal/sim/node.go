package sim

import (
	"math/rand/v2"
)

// maxDrones is the number of mobile relays at the tail of the node list.
const maxDrones = 5

// Role distinguishes fixed sensor nodes from mobile relay drones.
type Role int

const (
	RoleSensor Role = iota
	RoleDrone
)

func (r Role) String() string {
	if r == RoleDrone {
		return "mobile relay"
	}
	return "fixed"
}

// MarshalText renders the role label in JSON output.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Node is one network participant. Nodes are built once per run and never
// changed afterwards.
type Node struct {
	ID              int     `json:"id"`
	Role            Role    `json:"role"`
	Speed           float64 `json:"speed"`
	ComputeCapacity float64 `json:"compute_capacity"`
}

// NodeSpec carries the population parameters for BuildNodes.
type NodeSpec struct {
	Count         int
	Heterogeneous bool
	Speed         float64
	SpeedMin      int
	SpeedMax      int
	CapacityMin   float64
	CapacityMax   float64
}

// BuildNodes creates the node population. The last min(5, Count) nodes are
// drones, the rest fixed sensors. Speeds are constant unless the population is
// heterogeneous, in which case each node draws an integer speed from
// [SpeedMin, SpeedMax].
func BuildNodes(spec NodeSpec, rng *rand.Rand) []Node {
	n := spec.Count
	if n <= 0 {
		return nil
	}
	firstDrone := n - min(maxDrones, n)
	nodes := make([]Node, n)
	for i := range nodes {
		speed := spec.Speed
		if spec.Heterogeneous {
			speed = float64(spec.SpeedMin + rng.IntN(spec.SpeedMax-spec.SpeedMin+1))
		}
		role := RoleSensor
		if i >= firstDrone {
			role = RoleDrone
		}
		nodes[i] = Node{
			ID:              i,
			Role:            role,
			Speed:           speed,
			ComputeCapacity: spec.CapacityMin + rng.Float64()*(spec.CapacityMax-spec.CapacityMin),
		}
	}
	return nodes
}

// Drones returns the mobile relays among nodes.
func Drones(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		if n.Role == RoleDrone {
			out = append(out, n)
		}
	}
	return out
}
