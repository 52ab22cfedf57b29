// Packet records produced by traffic sources.
package packet

import "time"

// Type labels the payload class of a data packet.
type Type string

// Built-in packet types.
const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

// Record describes one generated data packet. It is created once, at
// generation, and never changed afterwards.
type Record struct {
	ID          uint64        `json:"id"`
	Type        Type          `json:"type"`
	SizeMB      float64       `json:"size_mb"`
	Priority    int           `json:"priority"` // 0 is highest
	GeneratedAt time.Duration `json:"generated_at"`
}

// Profile is the sampled part of a Record.
type Profile struct {
	Type     Type    `json:"type"`
	SizeMB   float64 `json:"size_mb"`
	Priority int     `json:"priority"`
}

// Record stamps the profile with an id and a generation time.
func (p Profile) Record(id uint64, at time.Duration) Record {
	return Record{
		ID:          id,
		Type:        p.Type,
		SizeMB:      p.SizeMB,
		Priority:    p.Priority,
		GeneratedAt: at,
	}
}

// TypeWeight pairs a packet type with its probability weight.
type TypeWeight struct {
	Type   Type
	Weight float64
}
