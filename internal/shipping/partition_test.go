package shipping_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlscommerce/shipping/internal/shipping"
	"github.com/owlscommerce/shipping/pkg/carrier"
)

func staticWarehouses(locations map[string]carrier.Location) shipping.SellerLookup {
	return func(sellerID string) (carrier.Location, error) {
		loc, ok := locations[sellerID]
		if !ok {
			return carrier.Location{}, fmt.Errorf("seller %s: %w", sellerID, shipping.ErrNotFound)
		}
		return loc, nil
	}
}

func TestPartitionBuilder_GroupsBySeller(t *testing.T) {
	builder := shipping.NewPartitionBuilder(500)

	order := &shipping.Order{
		ID:          "order-1",
		Destination: carrier.Location{Province: "Hà Nội", ProvinceCode: "01"},
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "seller-a", Quantity: 2, UnitWeightGrams: 300},
			{ProductID: "p2", SellerID: "seller-b", Quantity: 1, UnitWeightGrams: 1000},
			{ProductID: "p3", SellerID: "seller-a", Quantity: 1, UnitWeightGrams: 400},
		},
	}

	drafts, err := builder.Build(order, staticWarehouses(map[string]carrier.Location{
		"seller-a": {Province: "Hồ Chí Minh", ProvinceCode: "79"},
		"seller-b": {Province: "Đà Nẵng", ProvinceCode: "48"},
	}))

	require.NoError(t, err)
	require.Len(t, drafts, 2)

	// Partitions appear in first-appearance order of their sellers.
	assert.Equal(t, "seller-a", drafts[0].SellerID)
	assert.Equal(t, "seller-b", drafts[1].SellerID)

	// seller-a: 2*300 + 1*400 = 1000
	assert.Equal(t, 1000, drafts[0].WeightGrams)
	assert.Equal(t, 1000, drafts[1].WeightGrams)

	assert.Equal(t, "79", drafts[0].Route.Origin.ProvinceCode)
	assert.Equal(t, "01", drafts[0].Route.Destination.ProvinceCode)
	assert.Len(t, drafts[0].Items, 2)
}

func TestPartitionBuilder_StableOrderAcrossRuns(t *testing.T) {
	builder := shipping.NewPartitionBuilder(500)

	order := &shipping.Order{
		ID: "order-1",
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "seller-c", Quantity: 1, UnitWeightGrams: 100},
			{ProductID: "p2", SellerID: "seller-a", Quantity: 1, UnitWeightGrams: 100},
			{ProductID: "p3", SellerID: "seller-b", Quantity: 1, UnitWeightGrams: 100},
		},
	}

	lookup := staticWarehouses(map[string]carrier.Location{
		"seller-a": {}, "seller-b": {}, "seller-c": {},
	})

	for i := 0; i < 20; i++ {
		drafts, err := builder.Build(order, lookup)
		require.NoError(t, err)
		require.Len(t, drafts, 3)
		assert.Equal(t, "seller-c", drafts[0].SellerID)
		assert.Equal(t, "seller-a", drafts[1].SellerID)
		assert.Equal(t, "seller-b", drafts[2].SellerID)
	}
}

func TestPartitionBuilder_DefaultWeightApplied(t *testing.T) {
	builder := shipping.NewPartitionBuilder(500)

	order := &shipping.Order{
		ID: "order-1",
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "seller-a", Quantity: 3, UnitWeightGrams: 0},
		},
	}

	drafts, err := builder.Build(order, staticWarehouses(map[string]carrier.Location{"seller-a": {}}))

	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, 1500, drafts[0].WeightGrams)
	assert.Equal(t, 500, drafts[0].Items[0].UnitWeightGrams)
}

func TestPartitionBuilder_InvalidQuantity(t *testing.T) {
	builder := shipping.NewPartitionBuilder(500)

	order := &shipping.Order{
		ID: "order-1",
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "seller-a", Quantity: 0, UnitWeightGrams: 100},
		},
	}

	_, err := builder.Build(order, staticWarehouses(map[string]carrier.Location{"seller-a": {}}))
	assert.Error(t, err)
}

func TestPartitionBuilder_NegativeWeightRejected(t *testing.T) {
	builder := shipping.NewPartitionBuilder(500)

	order := &shipping.Order{
		ID: "order-1",
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "seller-a", Quantity: 1, UnitWeightGrams: -200},
		},
	}

	_, err := builder.Build(order, staticWarehouses(map[string]carrier.Location{"seller-a": {}}))
	assert.ErrorIs(t, err, shipping.ErrInvalidWeight)
}

func TestPartitionBuilder_UnknownSeller(t *testing.T) {
	builder := shipping.NewPartitionBuilder(500)

	order := &shipping.Order{
		ID: "order-1",
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "ghost", Quantity: 1, UnitWeightGrams: 100},
		},
	}

	_, err := builder.Build(order, staticWarehouses(nil))
	assert.ErrorIs(t, err, shipping.ErrNotFound)
}
