package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID marks a packet id that was generated twice.
	ErrDuplicateID = errors.New("duplicate packet id")
	// ErrUnknownPacket marks an arrival for a packet that was never generated.
	ErrUnknownPacket = errors.New("unknown packet")
	// ErrReservedCounter marks a write to a counter the engine derives itself.
	ErrReservedCounter = errors.New("reserved counter")
	// ErrSinkWrite marks a failed report write.
	ErrSinkWrite = errors.New("report sink write failed")
)

// DuplicateIDError is returned by RegisterGenerated for a reused id.
type DuplicateIDError struct {
	ID uint64
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("packet %d: %v", e.ID, ErrDuplicateID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// UnknownPacketError is returned by RegisterArrived for an id with no
// generation record.
type UnknownPacketError struct {
	ID uint64
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("packet %d: %v", e.ID, ErrUnknownPacket)
}

func (e *UnknownPacketError) Unwrap() error { return ErrUnknownPacket }

// SinkWriteError wraps a failure of one report sink.
type SinkWriteError struct {
	Sink string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Sink, e.Err)
}

// Is reports ErrSinkWrite so callers can match the class of failure.
func (e *SinkWriteError) Is(target error) bool { return target == ErrSinkWrite }

func (e *SinkWriteError) Unwrap() error { return e.Err }
