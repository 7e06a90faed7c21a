// Package ghn provides integration with the Giao Hàng Nhanh shipping API.
package ghn

import (
	"context"
	"errors"
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "ghn"

// GHN service type IDs.
const (
	serviceTypeExpress  = 1
	serviceTypeStandard = 2
)

// Config holds GHN configuration.
type Config struct {
	Token   string
	ShopID  string
	BaseURL string
	UseMock bool
}

// Client is the GHN carrier client. It implements the carrier.Carrier
// interface and delegates API calls to the underlying APIClient.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new GHN client. If cfg.UseMock is true, it uses a mock
// API client instead of the real HTTP gateway.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			Token:   cfg.Token,
			ShopID:  cfg.ShopID,
			Timeout: 30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// NewWithAPIClient creates a new GHN client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CalculateFee returns the GHN shipping fee for a route and weight.
// GHN addresses routes by numeric district IDs and ward codes; a route
// that carries no GHN codes cannot be priced and is rejected.
func (c *Client) CalculateFee(ctx context.Context, req *carrier.FeeRequest) (*carrier.FeeQuote, error) {
	if req.WeightGrams <= 0 {
		return nil, carrier.Rejected(carrierName, "INVALID_WEIGHT", "weight must be positive")
	}

	apiReq, err := feeRequestToAPI(req)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Calculating GHN fee",
		zap.Int("from_district", apiReq.FromDistrictID),
		zap.Int("to_district", apiReq.ToDistrictID),
		zap.Int("weight_grams", req.WeightGrams),
	)

	ctx, cancel := context.WithTimeout(ctx, carrier.FeeTimeout)
	defer cancel()

	data, err := c.apiClient.CalculateFee(ctx, apiReq)
	if err != nil {
		return nil, c.wrapError("CALCULATE_FEE", err)
	}

	return &carrier.FeeQuote{
		Carrier:       carrierName,
		ServiceType:   req.ServiceType,
		Fee:           decimal.NewFromInt(data.Total),
		EstimatedDays: estimatedDays(req.ServiceType),
		Source:        carrier.SourceCarrier,
		ObtainedAt:    time.Now(),
	}, nil
}

// CreateShipment creates a GHN shipping order. The caller's ClientOrderID
// becomes GHN's client_order_code, which GHN deduplicates on.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	dest := req.Route.Destination
	if dest.DistrictID == 0 || dest.WardCode == "" {
		return nil, carrier.Rejected(carrierName, "UNMAPPED_ROUTE", "destination has no GHN district/ward codes")
	}

	c.logger.Info("Creating GHN order",
		zap.String("client_order_code", req.ClientOrderID),
		zap.Int("to_district", dest.DistrictID),
	)

	items := make([]OrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = OrderItem{Name: it.Name, Quantity: it.Quantity, Weight: it.WeightGrams}
	}

	apiReq := &OrderRequest{
		ClientOrderCode: req.ClientOrderID,
		ToName:          req.RecipientName,
		ToPhone:         req.RecipientTel,
		ToAddress:       dest.Address,
		ToDistrictID:    dest.DistrictID,
		ToWardCode:      dest.WardCode,
		FromDistrictID:  req.Route.Origin.DistrictID,
		FromWardCode:    req.Route.Origin.WardCode,
		ServiceTypeID:   serviceTypeID(req.ServiceType),
		PaymentTypeID:   1, // shop pays the fee
		WeightGrams:     req.WeightGrams,
		CODAmount:       req.CODAmount.IntPart(),
		Note:            req.Note,
		RequiredNote:    "KHONGCHOXEMHANG",
		Items:           items,
	}

	ctx, cancel := context.WithTimeout(ctx, carrier.ShipmentTimeout)
	defer cancel()

	data, err := c.apiClient.CreateOrder(ctx, apiReq)
	if err != nil {
		return nil, c.wrapError("CREATE_ORDER", err)
	}

	return &carrier.Shipment{
		TrackingID:    data.OrderCode,
		Carrier:       carrierName,
		Fee:           decimal.NewFromInt(data.TotalFee),
		EstimatedDays: estimatedDays(req.ServiceType),
	}, nil
}

// GetTracking retrieves order status and history from GHN.
func (c *Client) GetTracking(ctx context.Context, trackingID string) (*carrier.Tracking, error) {
	ctx, cancel := context.WithTimeout(ctx, carrier.TrackingTimeout)
	defer cancel()

	detail, err := c.apiClient.GetOrderDetail(ctx, trackingID)
	if err != nil {
		return nil, c.wrapError("GET_ORDER_DETAIL", err)
	}

	events := make([]carrier.TrackingEvent, 0, len(detail.Log))
	for _, entry := range detail.Log {
		ts, _ := time.Parse(time.RFC3339, entry.UpdatedDate)
		events = append(events, carrier.TrackingEvent{
			Timestamp:   ts,
			Status:      mapStatus(entry.Status),
			Description: entry.Status,
		})
	}

	return &carrier.Tracking{
		TrackingID: detail.OrderCode,
		Carrier:    carrierName,
		Status:     mapStatus(detail.Status),
		Events:     events,
	}, nil
}

// wrapError classifies an API failure: an envelope error is an explicit
// refusal, everything else (DNS, timeout, connection reset) is transient.
func (c *Client) wrapError(op string, err error) error {
	c.logger.Error("GHN API error", zap.String("operation", op), zap.Error(err))

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return carrier.Rejected(carrierName, op, apiErr.Message).WithCause(err)
	}
	return carrier.Unreachable(carrierName, op, "ghn api request failed").WithCause(err)
}

// ============================================================================
// Conversion helpers
// ============================================================================

func feeRequestToAPI(req *carrier.FeeRequest) (*FeeRequest, error) {
	origin, dest := req.Route.Origin, req.Route.Destination
	if origin.DistrictID == 0 || dest.DistrictID == 0 || dest.WardCode == "" {
		return nil, carrier.Rejected(carrierName, "UNMAPPED_ROUTE", "route has no GHN district/ward codes")
	}

	return &FeeRequest{
		FromDistrictID: origin.DistrictID,
		FromWardCode:   origin.WardCode,
		ToDistrictID:   dest.DistrictID,
		ToWardCode:     dest.WardCode,
		ServiceTypeID:  serviceTypeID(req.ServiceType),
		WeightGrams:    req.WeightGrams,
		InsuranceValue: req.InsuranceValue.IntPart(),
	}, nil
}

func serviceTypeID(st carrier.ServiceType) int {
	if st == carrier.ServiceExpress {
		return serviceTypeExpress
	}
	return serviceTypeStandard
}

func estimatedDays(st carrier.ServiceType) int {
	if st == carrier.ServiceExpress {
		return 1
	}
	return 3
}

func mapStatus(status string) carrier.ShipmentState {
	switch status {
	case "ready_to_pick", "picking":
		return carrier.StateCreated
	case "picked", "storing", "sorting":
		return carrier.StatePickedUp
	case "transporting", "delivering":
		return carrier.StateInTransit
	case "delivered":
		return carrier.StateDelivered
	case "return", "returning", "returned":
		return carrier.StateReturned
	case "cancel":
		return carrier.StateCancelled
	default:
		return carrier.StateException
	}
}

var _ carrier.Carrier = (*Client)(nil)
