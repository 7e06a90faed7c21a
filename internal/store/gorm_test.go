package store_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/owlscommerce/shipping/internal/shipping"
	"github.com/owlscommerce/shipping/internal/store"
	"github.com/owlscommerce/shipping/pkg/carrier"
)

func newSQLiteStore(t *testing.T) *store.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	st, err := store.NewGormStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Exec("DELETE FROM partitions")
		db.Exec("DELETE FROM orders")
		db.Exec("DELETE FROM line_items")
		db.Exec("DELETE FROM sellers")
		db.Exec("DELETE FROM products")
	})
	return st
}

func TestGormStore_PartitionRoundTrip(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	p := newPartition("11111111-1111-1111-1111-111111111111", "order-1", "seller-a")
	require.NoError(t, st.Create(ctx, p))
	assert.Equal(t, 1, p.Version)

	loaded, err := st.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller-a", loaded.SellerID)
	assert.True(t, loaded.Fee.Equal(decimal.NewFromInt(35000)))

	byPair, err := st.GetByOrderAndSeller(ctx, "order-1", "seller-a")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byPair.ID)
}

func TestGormStore_UpdateVersionedConflict(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	p := newPartition("22222222-2222-2222-2222-222222222222", "order-1", "seller-a")
	require.NoError(t, st.Create(ctx, p))

	first, err := st.GetByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := st.GetByID(ctx, p.ID)
	require.NoError(t, err)

	first.Fee = decimal.NewFromInt(40000)
	require.NoError(t, st.UpdateVersioned(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Fee = decimal.NewFromInt(99000)
	err = st.UpdateVersioned(ctx, second)
	assert.ErrorIs(t, err, shipping.ErrStalePartitionWrite)

	stored, err := st.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), stored.Fee.IntPart())
}

func TestGormStore_UpdateVersionedReplacesRoute(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	p := newPartition("55555555-5555-5555-5555-555555555555", "order-1", "seller-a")
	p.Origin = carrier.Location{Province: "Hồ Chí Minh", ProvinceCode: "79", District: "Quận 1", DistrictID: 1442, WardCode: "21012"}
	p.Destination = carrier.Location{Province: "Hà Nội", ProvinceCode: "01", District: "Hoàn Kiếm", DistrictID: 1484}
	require.NoError(t, st.Create(ctx, p))

	// A destination edit triggers a recompute; the new route must replace
	// the stored one along with the fee.
	p.Destination = carrier.Location{Province: "Đà Nẵng", ProvinceCode: "48", District: "Hải Châu", DistrictID: 1526}
	p.Fee = decimal.NewFromInt(42000)
	require.NoError(t, st.UpdateVersioned(ctx, p))

	stored, err := st.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Đà Nẵng", stored.Destination.Province)
	assert.Equal(t, "48", stored.Destination.ProvinceCode)
	assert.Equal(t, 1526, stored.Destination.DistrictID)
	assert.Equal(t, "Hồ Chí Minh", stored.Origin.Province)
	assert.Equal(t, int64(42000), stored.Fee.IntPart())
	assert.Equal(t, 2, stored.Version)
}

func TestGormStore_OrderWithItems(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	order := &shipping.Order{
		ID: "33333333-3333-3333-3333-333333333333",
		Items: []shipping.LineItem{
			{ProductID: "p1", SellerID: "seller-a", ProductName: "Áo thun", Quantity: 2, UnitWeightGrams: 300},
			{ProductID: "p2", SellerID: "seller-b", ProductName: "Giày", Quantity: 1, UnitWeightGrams: 800},
		},
		Subtotal: decimal.NewFromInt(450000),
	}
	require.NoError(t, st.SaveOrder(ctx, order))

	loaded, err := st.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 2)

	_, err = st.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, shipping.ErrNotFound)
}

func TestGormStore_Delete(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()

	p := newPartition("44444444-4444-4444-4444-444444444444", "order-1", "seller-a")
	require.NoError(t, st.Create(ctx, p))
	require.NoError(t, st.Delete(ctx, p.ID))

	_, err := st.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, shipping.ErrNotFound)
}
