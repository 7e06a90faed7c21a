package store

import (
	"context"
	"sync"
	"time"

	"github.com/owlscommerce/shipping/internal/shipping"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Semantics mirror the GORM store, including optimistic versioning.
type MemoryStore struct {
	mu         sync.RWMutex
	partitions map[string]shipping.Partition
	orders     map[string]shipping.Order
	sellers    map[string]shipping.Seller
	products   map[string]shipping.Product
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		partitions: make(map[string]shipping.Partition),
		orders:     make(map[string]shipping.Order),
		sellers:    make(map[string]shipping.Seller),
		products:   make(map[string]shipping.Product),
	}
}

// Create inserts a new partition with version 1.
func (s *MemoryStore) Create(ctx context.Context, p *shipping.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Version = 1
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.partitions[p.ID] = *p
	return nil
}

// GetByID finds a partition by its ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*shipping.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.partitions[id]; ok {
		return &p, nil
	}
	return nil, shipping.ErrNotFound
}

// GetByOrderAndSeller finds the single partition of an (order, seller) pair.
func (s *MemoryStore) GetByOrderAndSeller(ctx context.Context, orderID, sellerID string) (*shipping.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.partitions {
		if p.OrderID == orderID && p.SellerID == sellerID {
			found := p
			return &found, nil
		}
	}
	return nil, shipping.ErrNotFound
}

// ListByOrder returns all partitions of an order, oldest first.
func (s *MemoryStore) ListByOrder(ctx context.Context, orderID string) ([]shipping.Partition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]shipping.Partition, 0)
	for _, p := range s.partitions {
		if p.OrderID == orderID {
			result = append(result, p)
		}
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].CreatedAt.Before(result[j-1].CreatedAt); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result, nil
}

// UpdateVersioned saves a partition if its stored version still matches
// the version the caller read.
func (s *MemoryStore) UpdateVersioned(ctx context.Context, p *shipping.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.partitions[p.ID]
	if !ok {
		return shipping.ErrNotFound
	}
	if current.Version != p.Version {
		return shipping.ErrStalePartitionWrite
	}
	p.Version++
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now()
	s.partitions[p.ID] = *p
	return nil
}

// Delete removes a partition.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partitions, id)
	return nil
}

// GetOrder loads an order.
func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*shipping.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[id]; ok {
		found := o
		found.Items = append([]shipping.LineItem(nil), o.Items...)
		return &found, nil
	}
	return nil, shipping.ErrNotFound
}

// SaveOrder upserts an order.
func (s *MemoryStore) SaveOrder(ctx context.Context, order *shipping.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *order
	stored.Items = append([]shipping.LineItem(nil), order.Items...)
	s.orders[order.ID] = stored
	return nil
}

// GetSeller finds a seller by ID.
func (s *MemoryStore) GetSeller(ctx context.Context, id string) (*shipping.Seller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seller, ok := s.sellers[id]; ok {
		found := seller
		return &found, nil
	}
	return nil, shipping.ErrNotFound
}

// SaveSeller upserts a seller.
func (s *MemoryStore) SaveSeller(ctx context.Context, seller *shipping.Seller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sellers[seller.ID] = *seller
	return nil
}

// GetProducts loads the given products keyed by ID.
func (s *MemoryStore) GetProducts(ctx context.Context, ids []string) (map[string]shipping.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]shipping.Product)
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

// SaveProduct upserts a product.
func (s *MemoryStore) SaveProduct(ctx context.Context, product *shipping.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ID] = *product
	return nil
}

var _ shipping.Store = (*MemoryStore)(nil)
