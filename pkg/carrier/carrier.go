// Package carrier provides an abstraction layer for shipping carriers.
package carrier

import (
	"context"
	"time"
)

// Call time bounds. No carrier call may block past these; a timed-out
// call is reported as an unreachable carrier.
const (
	FeeTimeout      = 10 * time.Second
	ShipmentTimeout = 30 * time.Second
	TrackingTimeout = 10 * time.Second
)

// Carrier defines the interface that all shipping carriers must implement.
// Administrative-area codes differ between carriers; each implementation
// owns the mapping from the normalized Route to its own wire format.
type Carrier interface {
	// Name returns the carrier identifier (e.g., "ghn", "ghtk").
	Name() string

	// CalculateFee returns the shipping fee for a route, weight, and service type.
	CalculateFee(ctx context.Context, req *FeeRequest) (*FeeQuote, error)

	// CreateShipment creates a shipment with the carrier. Callers pass a stable
	// ClientOrderID so that a retried call does not create a second shipment.
	CreateShipment(ctx context.Context, req *ShipmentRequest) (*Shipment, error)

	// GetTracking returns the current status and event history of a shipment.
	GetTracking(ctx context.Context, trackingID string) (*Tracking, error)
}
