package shipping

import (
	"fmt"

	"github.com/owlscommerce/shipping/pkg/carrier"
)

// PartitionBuilder groups an order's line items by seller and computes the
// per-partition route and aggregated weight. It is pure computation.
type PartitionBuilder struct {
	// DefaultUnitWeightGrams is used for line items whose product record
	// carries no weight.
	DefaultUnitWeightGrams int
	// ServiceType applied to every partition draft.
	ServiceType carrier.ServiceType
}

// NewPartitionBuilder creates a partition builder with the given
// placeholder weight.
func NewPartitionBuilder(defaultUnitWeightGrams int) *PartitionBuilder {
	return &PartitionBuilder{
		DefaultUnitWeightGrams: defaultUnitWeightGrams,
		ServiceType:            carrier.ServiceStandard,
	}
}

// SellerLookup resolves a seller's warehouse location.
type SellerLookup func(sellerID string) (carrier.Location, error)

// Build partitions an order into one draft per distinct seller, in the
// order sellers first appear among the line items. Weight is the sum of
// unit weight times quantity over the seller's items. An invalid line
// item or aggregate weight fails the whole build before any network call.
func (b *PartitionBuilder) Build(order *Order, warehouseOf SellerLookup) ([]*PartitionDraft, error) {
	drafts := make([]*PartitionDraft, 0)
	bySeller := make(map[string]*PartitionDraft)

	for _, item := range order.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("line item %s: quantity must be positive", item.ProductID)
		}

		unitWeight := item.UnitWeightGrams
		if unitWeight == 0 {
			unitWeight = b.DefaultUnitWeightGrams
		}
		if unitWeight <= 0 {
			return nil, fmt.Errorf("line item %s: %w", item.ProductID, ErrInvalidWeight)
		}

		draft, ok := bySeller[item.SellerID]
		if !ok {
			warehouse, err := warehouseOf(item.SellerID)
			if err != nil {
				return nil, fmt.Errorf("seller %s: %w", item.SellerID, err)
			}
			draft = &PartitionDraft{
				OrderID:     order.ID,
				SellerID:    item.SellerID,
				Route:       carrier.Route{Origin: warehouse, Destination: order.Destination},
				ServiceType: b.ServiceType,
			}
			bySeller[item.SellerID] = draft
			drafts = append(drafts, draft)
		}

		resolved := item
		resolved.UnitWeightGrams = unitWeight
		draft.Items = append(draft.Items, resolved)
		draft.WeightGrams += unitWeight * item.Quantity
	}

	for _, draft := range drafts {
		if draft.WeightGrams <= 0 {
			return nil, fmt.Errorf("seller %s: %w", draft.SellerID, ErrInvalidWeight)
		}
	}
	return drafts, nil
}
