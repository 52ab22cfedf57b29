package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DelayUnit is the display unit for delay figures.
type DelayUnit string

const (
	UnitMicroseconds DelayUnit = "us"
	UnitMilliseconds DelayUnit = "ms"
	UnitSeconds      DelayUnit = "s"
)

// ParseDelayUnit accepts "us", "ms" or "s"; the empty string means ms.
func ParseDelayUnit(s string) (DelayUnit, error) {
	switch DelayUnit(strings.ToLower(s)) {
	case "", UnitMilliseconds:
		return UnitMilliseconds, nil
	case UnitMicroseconds:
		return UnitMicroseconds, nil
	case UnitSeconds:
		return UnitSeconds, nil
	}
	return "", fmt.Errorf("unknown delay unit %q", s)
}

// Scale converts d to a float in the unit.
func (u DelayUnit) Scale(d time.Duration) float64 {
	switch u {
	case UnitMicroseconds:
		return float64(d) / float64(time.Microsecond)
	case UnitSeconds:
		return d.Seconds()
	default:
		return float64(d) / float64(time.Millisecond)
	}
}

// PriorityDelay summarises one priority bucket.
type PriorityDelay struct {
	Priority int   `json:"priority"`
	Samples  int   `json:"samples"`
	Mean     Value `json:"mean"`
}

// Summary holds the derived figures of a run.
type Summary struct {
	Generated         int              `json:"generated"`
	Delivered         int              `json:"delivered"`
	PDR               Value            `json:"pdr_percent"`
	AvgE2EDelay       Value            `json:"avg_e2e_delay"`
	DelayUnit         DelayUnit        `json:"delay_unit"`
	RoutingLoad       Value            `json:"routing_load"`
	AvgThroughputKbps Value            `json:"avg_throughput_kbps"`
	AvgHopCount       Value            `json:"avg_hop_count"`
	Collisions        int64            `json:"collisions"`
	ControlPackets    int64            `json:"control_packets"`
	AvgMACDelayMs     Value            `json:"avg_mac_delay_ms"`
	QueueSamples      int              `json:"queue_samples"`
	Priorities        []PriorityDelay  `json:"priority_delays,omitempty"`
	Counters          map[string]int64 `json:"counters"`
}

// Line is one labelled figure of the human-readable report.
type Line struct {
	Label string
	Value string
	Unit  string // appended verbatim after a defined value
}

func (l Line) String() string {
	if l.Value == Undefined.String() {
		return l.Label + " " + l.Value
	}
	return l.Label + " " + l.Value + l.Unit
}

// Lines returns the report lines shared by the console and the results log.
func (s Summary) Lines() []Line {
	return []Line{
		{Label: "Total Arrived is:", Value: strconv.Itoa(s.Delivered)},
		{Label: "Totally sent:", Value: strconv.Itoa(s.Generated), Unit: " data packets"},
		{Label: "Packet delivery ratio is:", Value: s.PDR.String(), Unit: "%"},
		{Label: "Average end-to-end delay is:", Value: s.AvgE2EDelay.String(), Unit: " " + string(s.DelayUnit)},
		{Label: "Routing load is:", Value: s.RoutingLoad.String()},
		{Label: "Average throughput is:", Value: s.AvgThroughputKbps.String(), Unit: " Kbps"},
		{Label: "Average hop count is:", Value: s.AvgHopCount.String()},
		{Label: "Collision num is:", Value: strconv.FormatInt(s.Collisions, 10)},
		{Label: "Average MAC delay is:", Value: s.AvgMACDelayMs.String(), Unit: " ms"},
	}
}

// String renders the report lines, one per line.
func (s Summary) String() string {
	var b strings.Builder
	for _, l := range s.Lines() {
		b.WriteString(l.String())
		b.WriteByte('\n')
	}
	for _, p := range s.Priorities {
		fmt.Fprintf(&b, "Priority %d delay: %s %s (%d samples)\n", p.Priority, p.Mean, s.DelayUnit, p.Samples)
	}
	return b.String()
}
