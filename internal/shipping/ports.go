package shipping

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PartitionStore is the read/write contract on shipment partition
// records. UpdateVersioned implements optimistic concurrency: the write
// succeeds only if the stored version still matches the version the
// caller read, otherwise ErrStalePartitionWrite is returned and nothing
// changes.
type PartitionStore interface {
	Create(ctx context.Context, p *Partition) error
	GetByID(ctx context.Context, id string) (*Partition, error)
	GetByOrderAndSeller(ctx context.Context, orderID, sellerID string) (*Partition, error)
	ListByOrder(ctx context.Context, orderID string) ([]Partition, error)
	UpdateVersioned(ctx context.Context, p *Partition) error
	Delete(ctx context.Context, id string) error
}

// OrderStore is the read/write contract on order records owned by the
// external order-placement flow.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
	SaveOrder(ctx context.Context, order *Order) error
}

// SellerStore resolves seller warehouse locations.
type SellerStore interface {
	GetSeller(ctx context.Context, id string) (*Seller, error)
	SaveSeller(ctx context.Context, seller *Seller) error
}

// Catalog is the boundary to the product catalog: shipping only needs
// the owning seller and the unit weight per product.
type Catalog interface {
	GetProducts(ctx context.Context, ids []string) (map[string]Product, error)
	SaveProduct(ctx context.Context, product *Product) error
}

// Store bundles the persistence ports a deployment provides together.
type Store interface {
	PartitionStore
	OrderStore
	SellerStore
	Catalog
}
