// Package store provides persistence for shipping partitions, orders and
// catalog data behind the interfaces declared in internal/shipping.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/owlscommerce/shipping/internal/shipping"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the shipping schema.
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewGormStore(db)
}

// NewGormStore wraps an existing gorm.DB and migrates the shipping
// schema. Tests use this with a SQLite database.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&shipping.Seller{},
		&shipping.Product{},
		&shipping.Order{},
		&shipping.LineItem{},
		&shipping.Partition{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormStore{db: db}, nil
}

// DB returns the underlying gorm handle.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Create inserts a new partition with version 1.
func (s *GormStore) Create(ctx context.Context, p *shipping.Partition) error {
	p.Version = 1
	return s.db.WithContext(ctx).Create(p).Error
}

// GetByID finds a partition by its ID.
func (s *GormStore) GetByID(ctx context.Context, id string) (*shipping.Partition, error) {
	var p shipping.Partition
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipping.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByOrderAndSeller finds the single partition of an (order, seller) pair.
func (s *GormStore) GetByOrderAndSeller(ctx context.Context, orderID, sellerID string) (*shipping.Partition, error) {
	var p shipping.Partition
	if err := s.db.WithContext(ctx).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipping.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByOrder returns all partitions of an order, oldest first.
func (s *GormStore) ListByOrder(ctx context.Context, orderID string) ([]shipping.Partition, error) {
	var partitions []shipping.Partition
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Find(&partitions).Error; err != nil {
		return nil, err
	}
	return partitions, nil
}

// UpdateVersioned saves a partition with optimistic locking. The caller's
// p.Version must be the version it read; the row is updated only if the
// stored version still matches, and the version is bumped in the same
// statement. Every mutable column is written, including the embedded
// route: a recompute after a destination edit must replace the stored
// route, not just the fee.
func (s *GormStore) UpdateVersioned(ctx context.Context, p *shipping.Partition) error {
	result := s.db.WithContext(ctx).
		Model(&shipping.Partition{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"weight_grams":         p.WeightGrams,
			"origin_province":      p.Origin.Province,
			"origin_province_code": p.Origin.ProvinceCode,
			"origin_district":      p.Origin.District,
			"origin_district_id":   p.Origin.DistrictID,
			"origin_ward":          p.Origin.Ward,
			"origin_ward_code":     p.Origin.WardCode,
			"origin_address":       p.Origin.Address,
			"dest_province":        p.Destination.Province,
			"dest_province_code":   p.Destination.ProvinceCode,
			"dest_district":        p.Destination.District,
			"dest_district_id":     p.Destination.DistrictID,
			"dest_ward":            p.Destination.Ward,
			"dest_ward_code":       p.Destination.WardCode,
			"dest_address":         p.Destination.Address,
			"fee":                  p.Fee,
			"fee_source":           p.FeeSource,
			"carrier_name":         p.CarrierName,
			"estimated_days":       p.EstimatedDays,
			"tracking_id":          p.TrackingID,
			"status":               p.Status,
			"version":              p.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shipping.ErrStalePartitionWrite
	}
	p.Version++
	return nil
}

// Delete removes a partition.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&shipping.Partition{}, "id = ?", id).Error
}

// GetOrder loads an order with its line items.
func (s *GormStore) GetOrder(ctx context.Context, id string) (*shipping.Order, error) {
	var order shipping.Order
	if err := s.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipping.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// SaveOrder upserts an order and its line items.
func (s *GormStore) SaveOrder(ctx context.Context, order *shipping.Order) error {
	return s.db.WithContext(ctx).Save(order).Error
}

// GetSeller finds a seller by ID.
func (s *GormStore) GetSeller(ctx context.Context, id string) (*shipping.Seller, error) {
	var seller shipping.Seller
	if err := s.db.WithContext(ctx).First(&seller, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipping.ErrNotFound
		}
		return nil, err
	}
	return &seller, nil
}

// SaveSeller upserts a seller.
func (s *GormStore) SaveSeller(ctx context.Context, seller *shipping.Seller) error {
	return s.db.WithContext(ctx).Save(seller).Error
}

// GetProducts loads the given products keyed by ID. Missing IDs are
// absent from the map, not an error.
func (s *GormStore) GetProducts(ctx context.Context, ids []string) (map[string]shipping.Product, error) {
	var products []shipping.Product
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	result := make(map[string]shipping.Product, len(products))
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// SaveProduct upserts a product.
func (s *GormStore) SaveProduct(ctx context.Context, product *shipping.Product) error {
	return s.db.WithContext(ctx).Save(product).Error
}

var _ shipping.Store = (*GormStore)(nil)
