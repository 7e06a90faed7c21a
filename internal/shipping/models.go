package shipping

import (
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/shopspring/decimal"
)

// PartitionStatus is the lifecycle state of a shipment partition.
type PartitionStatus string

const (
	StatusDrafted         PartitionStatus = "drafted"
	StatusFeeQuoted       PartitionStatus = "fee_quoted"
	StatusShipmentCreated PartitionStatus = "shipment_created"
	StatusInTransit       PartitionStatus = "in_transit"
	StatusDelivered       PartitionStatus = "delivered"
	StatusFailed          PartitionStatus = "failed"
	StatusCancelled       PartitionStatus = "cancelled"
)

// transitions is the closed set of legal status moves. Recomputation keeps
// a partition in fee_quoted, so that self-edge is legal too.
var transitions = map[PartitionStatus][]PartitionStatus{
	StatusDrafted:         {StatusFeeQuoted, StatusCancelled},
	StatusFeeQuoted:       {StatusFeeQuoted, StatusShipmentCreated, StatusFailed, StatusCancelled},
	StatusShipmentCreated: {StatusInTransit, StatusDelivered, StatusFailed},
	StatusInTransit:       {StatusDelivered, StatusFailed},
}

// CanTransition reports whether moving to the given status is legal.
func (s PartitionStatus) CanTransition(to PartitionStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Frozen reports whether the partition's fee is frozen: once a shipment
// exists, no recomputation may overwrite the fee.
func (s PartitionStatus) Frozen() bool {
	switch s {
	case StatusShipmentCreated, StatusInTransit, StatusDelivered:
		return true
	}
	return false
}

// Seller holds the warehouse location a seller ships from. Identity is
// stable for the lifetime of the platform account.
type Seller struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string
	Warehouse carrier.Location `gorm:"embedded;embeddedPrefix:warehouse_"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product carries the subset of catalog data shipping needs: the owning
// seller and the unit weight. A zero weight means the catalog has no
// weight data and the configured placeholder applies.
type Product struct {
	ID              string `gorm:"primaryKey;type:uuid"`
	SellerID        string `gorm:"type:uuid;index"`
	Name            string
	UnitWeightGrams int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineItem is one order line. UnitWeightGrams is resolved at order
// creation from the product record or the placeholder default.
type LineItem struct {
	ID              uint   `gorm:"primaryKey"`
	OrderID         string `gorm:"type:uuid;index"`
	ProductID       string `gorm:"type:uuid"`
	SellerID        string `gorm:"type:uuid;index"`
	ProductName     string
	Quantity        int
	UnitWeightGrams int
}

// Order owns an ordered set of line items and a single destination.
// The destination is mutable only while no partition has a shipment.
type Order struct {
	ID          string           `gorm:"primaryKey;type:uuid"`
	Items       []LineItem       `gorm:"foreignKey:OrderID"`
	Destination carrier.Location `gorm:"embedded;embeddedPrefix:dest_"`
	Recipient   string
	Phone       string
	Subtotal    decimal.Decimal `gorm:"type:numeric(15,2)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Partition is the persisted per-seller shipping unit of an order.
// Exactly one exists per (order, seller) pair. Version drives optimistic
// concurrency: every write must match the version it read.
type Partition struct {
	ID            string `gorm:"primaryKey;type:uuid"`
	OrderID       string `gorm:"type:uuid;uniqueIndex:idx_order_seller"`
	SellerID      string `gorm:"type:uuid;uniqueIndex:idx_order_seller"`
	WeightGrams   int
	Origin        carrier.Location    `gorm:"embedded;embeddedPrefix:origin_"`
	Destination   carrier.Location    `gorm:"embedded;embeddedPrefix:dest_"`
	Fee           decimal.Decimal     `gorm:"type:numeric(15,2)"`
	FeeSource     carrier.QuoteSource `gorm:"type:varchar(16)"`
	CarrierName   string
	EstimatedDays int
	TrackingID    string
	Status        PartitionStatus `gorm:"type:varchar(32)"`
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Route returns the partition's origin/destination pair.
func (p *Partition) Route() carrier.Route {
	return carrier.Route{Origin: p.Origin, Destination: p.Destination}
}

// Quote returns the partition's persisted fee as a FeeQuote. Used when a
// resolve call hits a frozen partition and must answer with the stored
// value.
func (p *Partition) Quote() *carrier.FeeQuote {
	return &carrier.FeeQuote{
		Carrier:       p.CarrierName,
		Fee:           p.Fee,
		EstimatedDays: p.EstimatedDays,
		Source:        p.FeeSource,
		ObtainedAt:    p.UpdatedAt,
	}
}

// PartitionDraft is the in-memory result of partitioning an order, before
// a fee is resolved or anything is persisted.
type PartitionDraft struct {
	OrderID     string
	SellerID    string
	WeightGrams int
	Route       carrier.Route
	Items       []LineItem
	ServiceType carrier.ServiceType
}
