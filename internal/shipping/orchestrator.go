package shipping

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/owlscommerce/shipping/internal/cache"
	"github.com/owlscommerce/shipping/internal/telemetry"
	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ServiceOptions tunes the orchestration service.
type ServiceOptions struct {
	// Workers bounds concurrent per-partition fee resolutions within one
	// order.
	Workers int
	// ShipmentRetries is the number of extra attempts after the first
	// when a carrier is unreachable during shipment creation. Rejections
	// are never retried.
	ShipmentRetries int
	// WeightBucketGrams is the cache-key weight granularity. Weights are
	// rounded up to the next bucket so near-identical partitions share a
	// cached quote.
	WeightBucketGrams int
	// FreeShippingThreshold is the order subtotal at or above which the
	// buyer-facing shipping total is waived.
	FreeShippingThreshold decimal.Decimal
}

func (o ServiceOptions) withDefaults() ServiceOptions {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.ShipmentRetries < 0 {
		o.ShipmentRetries = 0
	}
	if o.WeightBucketGrams <= 0 {
		o.WeightBucketGrams = 500
	}
	return o
}

// Service orchestrates fee resolution, partition persistence, shipment
// creation and tracking across all registered carriers.
//
// Fee resolution never fails outright: when every carrier is unreachable
// or rejects the request, the deterministic fallback estimator answers.
// Shipment creation is the opposite: a real shipment either exists at the
// carrier or the call fails loudly.
type Service struct {
	store    Store
	cache    cache.FeeCache
	registry *carrier.Registry
	builder  *PartitionBuilder
	fallback *FallbackEstimator
	logger   *otelzap.Logger
	metrics  *telemetry.Metrics
	opts     ServiceOptions
}

// NewService creates the orchestration service.
func NewService(
	store Store,
	feeCache cache.FeeCache,
	registry *carrier.Registry,
	builder *PartitionBuilder,
	fallback *FallbackEstimator,
	logger *otelzap.Logger,
	metrics *telemetry.Metrics,
	opts ServiceOptions,
) *Service {
	return &Service{
		store:    store,
		cache:    feeCache,
		registry: registry,
		builder:  builder,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
		opts:     opts.withDefaults(),
	}
}

// OrderShipping is the persisted result of resolving an order's shipping.
type OrderShipping struct {
	OrderID      string
	Partitions   []Partition
	Total        decimal.Decimal
	FreeShipping bool
}

// quoteKey identifies a cacheable fee computation. Weight is rounded up
// to the configured bucket; two partitions in the same bucket on the same
// route share a quote.
func (s *Service) quoteKey(route carrier.Route, weightGrams int, serviceType carrier.ServiceType) string {
	bucket := s.opts.WeightBucketGrams
	bucketed := ((weightGrams + bucket - 1) / bucket) * bucket
	return fmt.Sprintf("%s:%d:%s|%s:%d:%s:%s|%d|%s",
		route.Origin.ProvinceCode, route.Origin.DistrictID, route.Origin.District,
		route.Destination.ProvinceCode, route.Destination.DistrictID, route.Destination.District, route.Destination.WardCode,
		bucketed, serviceType)
}

// resolveQuote answers a fee for a route and weight, consulting the cache
// first. On a miss it asks each registered carrier in priority order and
// takes the first success; when all carriers fail it answers with the
// fallback estimate. Concurrent callers for the same key share one
// computation.
func (s *Service) resolveQuote(ctx context.Context, route carrier.Route, weightGrams int, serviceType carrier.ServiceType) (*carrier.FeeQuote, error) {
	key := s.quoteKey(route, weightGrams, serviceType)
	quote, cached, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) (*carrier.FeeQuote, error) {
		return s.computeQuote(ctx, route, weightGrams, serviceType), nil
	})
	if err != nil {
		return nil, err
	}
	if cached {
		s.metrics.RecordCache("hit")
	} else {
		s.metrics.RecordCache("miss")
	}
	return quote, nil
}

// computeQuote walks the carrier priority list. Both failure kinds
// advance to the next carrier; only exhaustion reaches the fallback.
func (s *Service) computeQuote(ctx context.Context, route carrier.Route, weightGrams int, serviceType carrier.ServiceType) *carrier.FeeQuote {
	req := &carrier.FeeRequest{
		Route:       route,
		WeightGrams: weightGrams,
		ServiceType: serviceType,
	}

	for _, c := range s.registry.InPriorityOrder() {
		start := time.Now()
		quote, err := c.CalculateFee(ctx, req)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			s.metrics.RecordFee(c.Name(), "error", elapsed)
			s.metrics.RecordCarrierError(c.Name(), failureKind(err))
			s.logger.Ctx(ctx).Warn("Carrier fee calculation failed",
				zap.String("carrier", c.Name()),
				zap.String("kind", failureKind(err)),
				zap.Error(err),
			)
			continue
		}
		s.metrics.RecordFee(c.Name(), "success", elapsed)
		return quote
	}

	s.metrics.FallbackTotal.Inc()
	s.logger.Ctx(ctx).Warn("All carriers failed, using fallback estimate",
		zap.String("dest_province", route.Destination.Province),
		zap.Int("weight_grams", weightGrams),
	)
	return s.fallback.Estimate(route.Destination, weightGrams, serviceType)
}

func failureKind(err error) string {
	switch {
	case carrier.IsRejected(err):
		return string(carrier.KindRejected)
	case carrier.IsUnreachable(err):
		return string(carrier.KindUnreachable)
	}
	return "unknown"
}

// ResolveFee resolves and persists the fee for one partition draft.
// A partition whose shipment already exists is never touched: its stored
// fee is the answer. New partitions are created in fee_quoted; existing
// ones are updated under their version, and a conflicting write against a
// concurrently frozen partition yields the frozen record instead of an
// error.
func (s *Service) ResolveFee(ctx context.Context, draft *PartitionDraft) (*Partition, error) {
	existing, err := s.store.GetByOrderAndSeller(ctx, draft.OrderID, draft.SellerID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("loading partition: %w", err)
	}
	if existing != nil && existing.Status.Frozen() {
		return existing, nil
	}

	quote, err := s.resolveQuote(ctx, draft.Route, draft.WeightGrams, draft.ServiceType)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		p := &Partition{
			ID:            uuid.NewString(),
			OrderID:       draft.OrderID,
			SellerID:      draft.SellerID,
			WeightGrams:   draft.WeightGrams,
			Origin:        draft.Route.Origin,
			Destination:   draft.Route.Destination,
			Fee:           quote.Fee,
			FeeSource:     quote.Source,
			CarrierName:   quote.Carrier,
			EstimatedDays: quote.EstimatedDays,
			Status:        StatusFeeQuoted,
		}
		if err := s.store.Create(ctx, p); err != nil {
			// A concurrent resolve may have created the row first.
			if fresh, rerr := s.store.GetByOrderAndSeller(ctx, draft.OrderID, draft.SellerID); rerr == nil {
				return s.updateQuoted(ctx, fresh, draft, quote)
			}
			return nil, fmt.Errorf("creating partition: %w", err)
		}
		return p, nil
	}
	return s.updateQuoted(ctx, existing, draft, quote)
}

func (s *Service) updateQuoted(ctx context.Context, existing *Partition, draft *PartitionDraft, quote *carrier.FeeQuote) (*Partition, error) {
	if existing.Status.Frozen() {
		return existing, nil
	}
	if !existing.Status.CanTransition(StatusFeeQuoted) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, StatusFeeQuoted)
	}

	updated := *existing
	updated.WeightGrams = draft.WeightGrams
	updated.Origin = draft.Route.Origin
	updated.Destination = draft.Route.Destination
	updated.Fee = quote.Fee
	updated.FeeSource = quote.Source
	updated.CarrierName = quote.Carrier
	updated.EstimatedDays = quote.EstimatedDays
	updated.Status = StatusFeeQuoted

	if err := s.store.UpdateVersioned(ctx, &updated); err != nil {
		if errors.Is(err, ErrStalePartitionWrite) {
			fresh, rerr := s.store.GetByID(ctx, existing.ID)
			if rerr == nil && fresh.Status.Frozen() {
				// Lost the race to a shipment creation; the frozen fee
				// stands.
				return fresh, nil
			}
			return nil, err
		}
		return nil, fmt.Errorf("saving partition: %w", err)
	}
	return &updated, nil
}

// ResolveOrderShipping partitions an order by seller, resolves each
// partition's fee concurrently, persists the results and returns the
// order's shipping total, which is always the exact sum of the persisted
// partition fees re-read after all writes. Partition resolutions do not
// cancel each other; every draft is attempted even when a sibling fails.
func (s *Service) ResolveOrderShipping(ctx context.Context, orderID string) (*OrderShipping, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", orderID, err)
	}

	drafts, err := s.builder.Build(order, s.warehouseLookup(ctx))
	if err != nil {
		return nil, fmt.Errorf("partitioning order %s: %w", orderID, err)
	}

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for _, draft := range drafts {
		g.Go(func() error {
			if _, err := s.ResolveFee(ctx, draft); err != nil {
				return fmt.Errorf("seller %s: %w", draft.SellerID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolving order %s: %w", orderID, err)
	}

	if err := s.pruneRemovedSellers(ctx, orderID, drafts); err != nil {
		return nil, err
	}
	return s.orderShipping(ctx, order)
}

// GetOrderShipping returns an order's stored partitions and total without
// recomputing, persisting or pruning anything. The read-only counterpart
// of ResolveOrderShipping.
func (s *Service) GetOrderShipping(ctx context.Context, orderID string) (*OrderShipping, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", orderID, err)
	}
	return s.orderShipping(ctx, order)
}

// pruneRemovedSellers deletes partitions whose seller no longer appears
// among the order's line items. A frozen partition cannot be pruned: the
// item edit conflicts with an existing shipment and must fail.
func (s *Service) pruneRemovedSellers(ctx context.Context, orderID string, drafts []*PartitionDraft) error {
	wanted := make(map[string]struct{}, len(drafts))
	for _, d := range drafts {
		wanted[d.SellerID] = struct{}{}
	}

	existing, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("listing partitions: %w", err)
	}
	for _, p := range existing {
		if _, ok := wanted[p.SellerID]; ok {
			continue
		}
		if p.Status.Frozen() {
			return fmt.Errorf("seller %s removed from order %s: %w", p.SellerID, orderID, ErrPartitionFrozen)
		}
		if err := s.store.Delete(ctx, p.ID); err != nil {
			return fmt.Errorf("deleting partition %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *Service) orderShipping(ctx context.Context, order *Order) (*OrderShipping, error) {
	partitions, err := s.store.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}

	total := decimal.Zero
	for _, p := range partitions {
		if p.Status == StatusCancelled {
			continue
		}
		total = total.Add(p.Fee)
	}

	return &OrderShipping{
		OrderID:      order.ID,
		Partitions:   partitions,
		Total:        total,
		FreeShipping: s.freeShipping(order.Subtotal),
	}, nil
}

func (s *Service) freeShipping(subtotal decimal.Decimal) bool {
	return s.opts.FreeShippingThreshold.IsPositive() &&
		subtotal.GreaterThanOrEqual(s.opts.FreeShippingThreshold)
}

func (s *Service) warehouseLookup(ctx context.Context) SellerLookup {
	// Cached per call so an order with many items per seller hits the
	// store once per seller.
	seen := make(map[string]carrier.Location)
	var mu sync.Mutex
	return func(sellerID string) (carrier.Location, error) {
		mu.Lock()
		defer mu.Unlock()
		if loc, ok := seen[sellerID]; ok {
			return loc, nil
		}
		seller, err := s.store.GetSeller(ctx, sellerID)
		if err != nil {
			return carrier.Location{}, err
		}
		seen[sellerID] = seller.Warehouse
		return seller.Warehouse, nil
	}
}

// PreviewItem is one cart line in a checkout preview.
type PreviewItem struct {
	ProductID string
	Quantity  int
}

// PreviewRequest asks for shipping fees on a cart that has no order yet.
type PreviewRequest struct {
	Items       []PreviewItem
	Destination carrier.Location
	// Subtotal is the cart's merchandise subtotal, used for the
	// free-shipping threshold.
	Subtotal decimal.Decimal
}

// PreviewEntry is the per-seller line of a shipping preview.
type PreviewEntry struct {
	SellerID      string
	WeightGrams   int
	Fee           decimal.Decimal
	Carrier       string
	EstimatedDays int
	Source        carrier.QuoteSource
}

// Preview is a stateless shipping estimate for a cart. When the subtotal
// meets the free-shipping threshold, Total is zero but the per-seller
// entries keep their real fees.
type Preview struct {
	Sellers      []PreviewEntry
	Total        decimal.Decimal
	FreeShipping bool
}

// PreviewShipping computes per-seller shipping fees for a cart without
// persisting anything. Product weights and owning sellers come from the
// catalog; unknown products fail the preview.
func (s *Service) PreviewShipping(ctx context.Context, req *PreviewRequest) (*Preview, error) {
	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}

	order := &Order{Destination: req.Destination, Subtotal: req.Subtotal}
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, ErrNotFound)
		}
		order.Items = append(order.Items, LineItem{
			ProductID:       product.ID,
			SellerID:        product.SellerID,
			ProductName:     product.Name,
			Quantity:        item.Quantity,
			UnitWeightGrams: product.UnitWeightGrams,
		})
	}

	drafts, err := s.builder.Build(order, s.warehouseLookup(ctx))
	if err != nil {
		return nil, fmt.Errorf("partitioning cart: %w", err)
	}

	entries := make([]PreviewEntry, len(drafts))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, draft := range drafts {
		g.Go(func() error {
			quote, err := s.resolveQuote(ctx, draft.Route, draft.WeightGrams, draft.ServiceType)
			if err != nil {
				return err
			}
			entries[i] = PreviewEntry{
				SellerID:      draft.SellerID,
				WeightGrams:   draft.WeightGrams,
				Fee:           quote.Fee,
				Carrier:       quote.Carrier,
				EstimatedDays: quote.EstimatedDays,
				Source:        quote.Source,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Fee)
	}

	preview := &Preview{Sellers: entries, Total: total}
	if s.freeShipping(req.Subtotal) {
		preview.FreeShipping = true
		preview.Total = decimal.Zero
	}
	return preview, nil
}

// CreateShipment creates the carrier shipment for a fee-quoted partition
// and freezes its fee. The call is idempotent: a partition that already
// has a shipment is returned as-is. Unreachable carriers are retried up
// to the configured budget with the partition ID as the client order
// code, so a retry never creates a second shipment; a rejection fails
// immediately. Failures surface as ShipmentCreationError and leave the
// partition in fee_quoted.
func (s *Service) CreateShipment(ctx context.Context, partitionID string) (*Partition, error) {
	p, err := s.store.GetByID(ctx, partitionID)
	if err != nil {
		return nil, fmt.Errorf("loading partition %s: %w", partitionID, err)
	}
	if p.Status.Frozen() {
		return p, nil
	}
	if !p.Status.CanTransition(StatusShipmentCreated) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusShipmentCreated)
	}

	c, err := s.shipmentCarrier(p)
	if err != nil {
		return nil, err
	}

	req, err := s.shipmentRequest(ctx, p)
	if err != nil {
		return nil, err
	}

	attempts := 0
	var shipment *carrier.Shipment
	var lastErr error
	for attempts <= s.opts.ShipmentRetries {
		attempts++
		shipment, lastErr = c.CreateShipment(ctx, req)
		if lastErr == nil {
			break
		}
		s.metrics.RecordCarrierError(c.Name(), failureKind(lastErr))
		if carrier.IsRejected(lastErr) {
			break
		}
	}
	if lastErr != nil {
		s.metrics.RecordShipment(c.Name(), "error")
		s.logger.Ctx(ctx).Error("Shipment creation failed",
			zap.String("partition_id", p.ID),
			zap.String("carrier", c.Name()),
			zap.Int("attempts", attempts),
			zap.Error(lastErr),
		)
		return nil, &ShipmentCreationError{
			PartitionID: p.ID,
			Carrier:     c.Name(),
			Attempts:    attempts,
			Cause:       lastErr,
		}
	}

	// The shipment now exists at the carrier; the tracking reference must
	// be recorded even if a concurrent recompute bumped the version, so a
	// stale write re-reads and retries rather than dropping it.
	updated := *p
	for {
		updated.CarrierName = c.Name()
		updated.TrackingID = shipment.TrackingID
		if shipment.EstimatedDays > 0 {
			updated.EstimatedDays = shipment.EstimatedDays
		}
		updated.Status = StatusShipmentCreated

		err := s.store.UpdateVersioned(ctx, &updated)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrStalePartitionWrite) {
			return nil, fmt.Errorf("saving shipment for partition %s: %w", p.ID, err)
		}
		fresh, rerr := s.store.GetByID(ctx, p.ID)
		if rerr != nil {
			return nil, fmt.Errorf("saving shipment for partition %s: %w", p.ID, err)
		}
		if fresh.Status.Frozen() {
			return fresh, nil
		}
		updated = *fresh
	}

	s.metrics.RecordShipment(c.Name(), "success")
	s.logger.Ctx(ctx).Info("Shipment created",
		zap.String("partition_id", p.ID),
		zap.String("carrier", c.Name()),
		zap.String("tracking_id", shipment.TrackingID),
	)
	return &updated, nil
}

// shipmentCarrier picks the carrier a shipment goes through: the one that
// quoted the fee when it is registered, otherwise the highest-priority
// registered carrier (a fallback-quoted partition has no quoting carrier).
func (s *Service) shipmentCarrier(p *Partition) (carrier.Carrier, error) {
	if p.FeeSource == carrier.SourceCarrier && p.CarrierName != "" {
		if c, err := s.registry.Get(p.CarrierName); err == nil {
			return c, nil
		}
	}
	carriers := s.registry.InPriorityOrder()
	if len(carriers) == 0 {
		return nil, carrier.ErrCarrierNotFound
	}
	return carriers[0], nil
}

func (s *Service) shipmentRequest(ctx context.Context, p *Partition) (*carrier.ShipmentRequest, error) {
	order, err := s.store.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", p.OrderID, err)
	}

	var items []carrier.ShipmentItem
	for _, item := range order.Items {
		if item.SellerID != p.SellerID {
			continue
		}
		items = append(items, carrier.ShipmentItem{
			Name:        item.ProductName,
			Quantity:    item.Quantity,
			WeightGrams: item.UnitWeightGrams,
		})
	}

	return &carrier.ShipmentRequest{
		ClientOrderID: p.ID,
		Route:         p.Route(),
		WeightGrams:   p.WeightGrams,
		ServiceType:   carrier.ServiceStandard,
		Items:         items,
		RecipientName: order.Recipient,
		RecipientTel:  order.Phone,
	}, nil
}

// GetTracking returns the carrier's tracking state for a partition and
// opportunistically syncs the partition status with it. The sync is best
// effort: a version conflict or illegal transition never fails the read.
func (s *Service) GetTracking(ctx context.Context, partitionID string) (*carrier.Tracking, error) {
	p, err := s.store.GetByID(ctx, partitionID)
	if err != nil {
		return nil, fmt.Errorf("loading partition %s: %w", partitionID, err)
	}
	if p.TrackingID == "" {
		return nil, fmt.Errorf("partition %s: %w", partitionID, ErrNoTracking)
	}

	c, err := s.registry.Get(p.CarrierName)
	if err != nil {
		return nil, err
	}
	tracking, err := c.GetTracking(ctx, p.TrackingID)
	if err != nil {
		s.metrics.RecordCarrierError(c.Name(), failureKind(err))
		return nil, err
	}

	s.syncStatus(ctx, p, tracking.Status)
	return tracking, nil
}

func (s *Service) syncStatus(ctx context.Context, p *Partition, state carrier.ShipmentState) {
	next, ok := partitionStatusFor(state)
	if !ok || next == p.Status || !p.Status.CanTransition(next) {
		return
	}
	updated := *p
	updated.Status = next
	if err := s.store.UpdateVersioned(ctx, &updated); err != nil {
		s.logger.Ctx(ctx).Warn("Partition status sync skipped",
			zap.String("partition_id", p.ID),
			zap.String("status", string(next)),
			zap.Error(err),
		)
	}
}

func partitionStatusFor(state carrier.ShipmentState) (PartitionStatus, bool) {
	switch state {
	case carrier.StatePickedUp, carrier.StateInTransit:
		return StatusInTransit, true
	case carrier.StateDelivered:
		return StatusDelivered, true
	case carrier.StateReturned, carrier.StateCancelled, carrier.StateException:
		return StatusFailed, true
	}
	return "", false
}

// CancelPartition cancels a partition that has no shipment yet.
func (s *Service) CancelPartition(ctx context.Context, partitionID string) (*Partition, error) {
	p, err := s.store.GetByID(ctx, partitionID)
	if err != nil {
		return nil, fmt.Errorf("loading partition %s: %w", partitionID, err)
	}
	if p.Status.Frozen() {
		return nil, fmt.Errorf("partition %s: %w", partitionID, ErrPartitionFrozen)
	}
	if !p.Status.CanTransition(StatusCancelled) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, StatusCancelled)
	}

	updated := *p
	updated.Status = StatusCancelled
	if err := s.store.UpdateVersioned(ctx, &updated); err != nil {
		return nil, fmt.Errorf("cancelling partition %s: %w", partitionID, err)
	}
	return &updated, nil
}
