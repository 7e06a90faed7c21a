package shipping

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWeight means a line item or aggregated partition weight
	// is not positive. Rejected before any network call.
	ErrInvalidWeight = errors.New("weight must be positive")

	// ErrPartitionFrozen means the partition's fee can no longer change
	// because a shipment already exists for it.
	ErrPartitionFrozen = errors.New("partition fee is frozen")

	// ErrStalePartitionWrite means an optimistic-concurrency conflict:
	// the partition changed underneath the write, which was discarded.
	ErrStalePartitionWrite = errors.New("stale partition write")

	// ErrInvalidTransition means a status change that the partition
	// state machine does not allow.
	ErrInvalidTransition = errors.New("invalid partition status transition")

	// ErrNoTracking means the partition has no shipment yet, so there is
	// nothing to track.
	ErrNoTracking = errors.New("partition has no tracking reference")
)

// ShipmentCreationError wraps the last carrier failure when creating an
// actual shipment. It is surfaced to the caller as a hard failure: a real
// shipment must never be silently substituted with a guess.
type ShipmentCreationError struct {
	PartitionID string
	Carrier     string
	Attempts    int
	Cause       error
}

func (e *ShipmentCreationError) Error() string {
	return fmt.Sprintf("shipment creation failed for partition %s via %s after %d attempt(s): %v",
		e.PartitionID, e.Carrier, e.Attempts, e.Cause)
}

func (e *ShipmentCreationError) Unwrap() error {
	return e.Cause
}
