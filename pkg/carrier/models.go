package carrier

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceType represents the shipping service type.
type ServiceType string

const (
	ServiceStandard ServiceType = "standard"
	ServiceExpress  ServiceType = "express"
)

// ShipmentState represents the normalized status of a shipment.
type ShipmentState string

const (
	StateCreated   ShipmentState = "created"
	StatePickedUp  ShipmentState = "picked_up"
	StateInTransit ShipmentState = "in_transit"
	StateDelivered ShipmentState = "delivered"
	StateReturned  ShipmentState = "returned"
	StateCancelled ShipmentState = "cancelled"
	StateException ShipmentState = "exception"
)

// QuoteSource identifies where a fee quote came from.
type QuoteSource string

const (
	// SourceCarrier marks a quote obtained from a carrier API.
	SourceCarrier QuoteSource = "carrier"
	// SourceFallback marks a quote computed locally when no carrier answered.
	SourceFallback QuoteSource = "fallback"
)

// Location represents an administrative area in a shipping route.
// Carriers address areas differently: GHN uses numeric district IDs and
// ward codes, GHTK uses province/district names. Both representations
// are carried so each adapter can pick what it understands.
type Location struct {
	Province     string // e.g. "Hồ Chí Minh"
	ProvinceCode string // GSO province code, e.g. "79"
	District     string // e.g. "Quận 1"
	DistrictID   int    // GHN district ID, e.g. 1442
	Ward         string
	WardCode     string // GHN ward code, e.g. "21012"
	Address      string // street address, free-form
}

// Route is the origin/destination pair used to price a shipment.
type Route struct {
	Origin      Location
	Destination Location
}

// FeeRequest is the request for a shipping fee calculation.
type FeeRequest struct {
	Route       Route
	WeightGrams int
	ServiceType ServiceType
	// InsuranceValue is the declared value of the goods, if any.
	InsuranceValue decimal.Decimal
}

// FeeQuote is a normalized fee answer from a carrier or the fallback estimator.
type FeeQuote struct {
	Carrier       string
	ServiceType   ServiceType
	Fee           decimal.Decimal
	EstimatedDays int
	Source        QuoteSource
	ObtainedAt    time.Time
}

// ShipmentItem describes one item inside a shipment.
type ShipmentItem struct {
	Name        string
	Quantity    int
	WeightGrams int
}

// ShipmentRequest is the request for creating a shipment.
type ShipmentRequest struct {
	// ClientOrderID is the caller-side idempotency key. Carriers that
	// support client order codes must not create a second shipment for
	// a repeated ClientOrderID.
	ClientOrderID string
	Route         Route
	WeightGrams   int
	ServiceType   ServiceType
	Items         []ShipmentItem
	CODAmount     decimal.Decimal
	RecipientName string
	RecipientTel  string
	Note          string
}

// Shipment is the normalized result of a shipment creation.
type Shipment struct {
	TrackingID    string
	Carrier       string
	Fee           decimal.Decimal
	EstimatedDays int
}

// TrackingEvent represents a single tracking event.
type TrackingEvent struct {
	Timestamp   time.Time
	Status      ShipmentState
	Description string
	Location    string
}

// Tracking is the normalized tracking answer for a shipment.
type Tracking struct {
	TrackingID string
	Carrier    string
	Status     ShipmentState
	Events     []TrackingEvent
}
