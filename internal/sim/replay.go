package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"fanet-sim/internal/metrics"
)

// ReplayTrace applies every event from a JSONL trace to eng, in file order,
// and returns the number of events applied. Arrivals for unknown packets are
// skipped; a duplicate packet id stops the replay.
func ReplayTrace(r io.Reader, eng *metrics.Engine) (int, error) {
	dec := json.NewDecoder(r)
	applied := 0
	for line := 1; ; line++ {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return applied, nil
			}
			return applied, fmt.Errorf("trace record %d: %w", line, err)
		}
		if err := Apply(eng, ev); err != nil {
			if errors.Is(err, metrics.ErrUnknownPacket) {
				continue
			}
			return applied, fmt.Errorf("trace record %d: %w", line, err)
		}
		applied++
	}
}

// ReplayTraceFile opens a file and replays its events.
func ReplayTraceFile(path string, eng *metrics.Engine) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayTrace(f, eng)
}
