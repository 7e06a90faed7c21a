// Package mock provides a configurable mock carrier for testing.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/shopspring/decimal"
)

// Carrier is a mock carrier for testing. Behavior can be overridden per
// call with the On* hooks; call counts are tracked for assertions on
// caching and priority behavior.
type Carrier struct {
	name string

	OnCalculateFee   func(ctx context.Context, req *carrier.FeeRequest) (*carrier.FeeQuote, error)
	OnCreateShipment func(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error)
	OnGetTracking    func(ctx context.Context, trackingID string) (*carrier.Tracking, error)

	feeCalls      atomic.Int64
	shipmentCalls atomic.Int64
	trackingCalls atomic.Int64
}

// New creates a new mock carrier.
func New(name string) *Carrier {
	return &Carrier{name: name}
}

// Name returns the carrier name.
func (c *Carrier) Name() string {
	return c.name
}

// FeeCalls returns how many times CalculateFee was invoked.
func (c *Carrier) FeeCalls() int64 { return c.feeCalls.Load() }

// ShipmentCalls returns how many times CreateShipment was invoked.
func (c *Carrier) ShipmentCalls() int64 { return c.shipmentCalls.Load() }

// TrackingCalls returns how many times GetTracking was invoked.
func (c *Carrier) TrackingCalls() int64 { return c.trackingCalls.Load() }

// CalculateFee returns a mock fee quote.
func (c *Carrier) CalculateFee(ctx context.Context, req *carrier.FeeRequest) (*carrier.FeeQuote, error) {
	c.feeCalls.Add(1)
	if c.OnCalculateFee != nil {
		return c.OnCalculateFee(ctx, req)
	}
	return &carrier.FeeQuote{
		Carrier:       c.name,
		ServiceType:   req.ServiceType,
		Fee:           decimal.NewFromInt(25000),
		EstimatedDays: 3,
		Source:        carrier.SourceCarrier,
		ObtainedAt:    time.Now(),
	}, nil
}

// CreateShipment creates a mock shipment.
func (c *Carrier) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	c.shipmentCalls.Add(1)
	if c.OnCreateShipment != nil {
		return c.OnCreateShipment(ctx, req)
	}
	return &carrier.Shipment{
		TrackingID:    fmt.Sprintf("%s-%s", c.name, req.ClientOrderID),
		Carrier:       c.name,
		Fee:           decimal.NewFromInt(25000),
		EstimatedDays: 3,
	}, nil
}

// GetTracking returns mock tracking information.
func (c *Carrier) GetTracking(ctx context.Context, trackingID string) (*carrier.Tracking, error) {
	c.trackingCalls.Add(1)
	if c.OnGetTracking != nil {
		return c.OnGetTracking(ctx, trackingID)
	}
	now := time.Now()
	return &carrier.Tracking{
		TrackingID: trackingID,
		Carrier:    c.name,
		Status:     carrier.StateInTransit,
		Events: []carrier.TrackingEvent{
			{Timestamp: now.Add(-24 * time.Hour), Status: carrier.StatePickedUp, Description: "Picked up from warehouse", Location: "Quận 1, Hồ Chí Minh"},
			{Timestamp: now.Add(-2 * time.Hour), Status: carrier.StateInTransit, Description: "Departed sorting facility", Location: "Thủ Đức, Hồ Chí Minh"},
		},
	}, nil
}

var _ carrier.Carrier = (*Carrier)(nil)
