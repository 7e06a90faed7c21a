// Package ghtk provides integration with the Giao Hàng Tiết Kiệm shipping API.
package ghtk

import (
	"context"
	"errors"
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "ghtk"

// GHTK transport modes.
const (
	transportRoad = "road"
	transportFly  = "fly"
)

// Config holds GHTK configuration.
type Config struct {
	Token   string
	BaseURL string
	UseMock bool
}

// Client is the GHTK carrier client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new GHTK client. If cfg.UseMock is true, it uses a mock
// API client instead of the real HTTP gateway.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: cfg.BaseURL,
			Token:   cfg.Token,
			Timeout: 30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// NewWithAPIClient creates a new GHTK client with a custom API client.
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

// CalculateFee returns the GHTK shipping fee for a route and weight.
// GHTK addresses routes by province and district names; a route without
// names cannot be priced and is rejected.
func (c *Client) CalculateFee(ctx context.Context, req *carrier.FeeRequest) (*carrier.FeeQuote, error) {
	if req.WeightGrams <= 0 {
		return nil, carrier.Rejected(carrierName, "INVALID_WEIGHT", "weight must be positive")
	}

	origin, dest := req.Route.Origin, req.Route.Destination
	if origin.Province == "" || origin.District == "" || dest.Province == "" || dest.District == "" {
		return nil, carrier.Rejected(carrierName, "UNMAPPED_ROUTE", "route has no province/district names")
	}

	c.logger.Info("Calculating GHTK fee",
		zap.String("pick_province", origin.Province),
		zap.String("province", dest.Province),
		zap.Int("weight_grams", req.WeightGrams),
	)

	ctx, cancel := context.WithTimeout(ctx, carrier.FeeTimeout)
	defer cancel()

	info, err := c.apiClient.CalculateFee(ctx, &FeeRequest{
		PickProvince:  origin.Province,
		PickDistrict:  origin.District,
		Province:      dest.Province,
		District:      dest.District,
		Address:       dest.Address,
		WeightGrams:   req.WeightGrams,
		Value:         req.InsuranceValue.IntPart(),
		Transport:     transport(req.ServiceType),
		DeliverOption: "none",
	})
	if err != nil {
		return nil, c.wrapError("CALCULATE_FEE", err)
	}
	if !info.Delivery {
		return nil, carrier.Rejected(carrierName, "ROUTE_NOT_SERVED", "ghtk does not deliver to this route")
	}

	return &carrier.FeeQuote{
		Carrier:       carrierName,
		ServiceType:   req.ServiceType,
		Fee:           decimal.NewFromInt(info.Fee),
		EstimatedDays: estimatedDays(req.ServiceType),
		Source:        carrier.SourceCarrier,
		ObtainedAt:    time.Now(),
	}, nil
}

// CreateShipment registers a GHTK shipping order. The caller's
// ClientOrderID becomes GHTK's partner order ID, which GHTK deduplicates
// on: posting the same ID twice returns the existing order.
func (c *Client) CreateShipment(ctx context.Context, req *carrier.ShipmentRequest) (*carrier.Shipment, error) {
	origin, dest := req.Route.Origin, req.Route.Destination

	c.logger.Info("Creating GHTK order",
		zap.String("partner_id", req.ClientOrderID),
		zap.String("province", dest.Province),
	)

	products := make([]OrderProduct, len(req.Items))
	for i, it := range req.Items {
		products[i] = OrderProduct{
			Name:     it.Name,
			WeightKG: float64(it.WeightGrams) / 1000,
			Quantity: it.Quantity,
		}
	}

	apiReq := &OrderRequest{
		Products: products,
		Order: OrderInfoRequest{
			ID:           req.ClientOrderID,
			PickProvince: origin.Province,
			PickDistrict: origin.District,
			PickWard:     origin.Ward,
			PickAddress:  origin.Address,
			Name:         req.RecipientName,
			Province:     dest.Province,
			District:     dest.District,
			Ward:         dest.Ward,
			Address:      dest.Address,
			Tel:          req.RecipientTel,
			Hamlet:       "Khác",
			IsFreeship:   1,
			PickMoney:    req.CODAmount.IntPart(),
			Note:         req.Note,
			Transport:    transport(req.ServiceType),
		},
	}

	ctx, cancel := context.WithTimeout(ctx, carrier.ShipmentTimeout)
	defer cancel()

	info, err := c.apiClient.CreateOrder(ctx, apiReq)
	if err != nil {
		return nil, c.wrapError("CREATE_ORDER", err)
	}

	return &carrier.Shipment{
		TrackingID:    info.Label,
		Carrier:       carrierName,
		Fee:           decimal.NewFromInt(info.Fee),
		EstimatedDays: estimatedDays(req.ServiceType),
	}, nil
}

// GetTracking retrieves the order status from GHTK. GHTK's status
// endpoint returns only the current state, so the history holds a single
// event.
func (c *Client) GetTracking(ctx context.Context, trackingID string) (*carrier.Tracking, error) {
	ctx, cancel := context.WithTimeout(ctx, carrier.TrackingTimeout)
	defer cancel()

	info, err := c.apiClient.GetStatus(ctx, trackingID)
	if err != nil {
		return nil, c.wrapError("GET_STATUS", err)
	}

	state := mapStatus(info.Status)
	ts, _ := time.Parse("2006-01-02 15:04:05", info.Modified)

	return &carrier.Tracking{
		TrackingID: trackingID,
		Carrier:    carrierName,
		Status:     state,
		Events: []carrier.TrackingEvent{
			{Timestamp: ts, Status: state, Description: info.StatusText},
		},
	}, nil
}

func (c *Client) wrapError(op string, err error) error {
	c.logger.Error("GHTK API error", zap.String("operation", op), zap.Error(err))

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return carrier.Rejected(carrierName, op, apiErr.Message).WithCause(err)
	}
	return carrier.Unreachable(carrierName, op, "ghtk api request failed").WithCause(err)
}

func transport(st carrier.ServiceType) string {
	if st == carrier.ServiceExpress {
		return transportFly
	}
	return transportRoad
}

func estimatedDays(st carrier.ServiceType) int {
	if st == carrier.ServiceExpress {
		return 2
	}
	return 4
}

// mapStatus maps GHTK numeric status codes to normalized shipment states.
func mapStatus(status int) carrier.ShipmentState {
	switch status {
	case 1, 2, 12:
		return carrier.StateCreated
	case 3, 13:
		return carrier.StatePickedUp
	case 4, 14:
		return carrier.StateInTransit
	case 5, 6:
		return carrier.StateDelivered
	case 9, 10, 15:
		return carrier.StateReturned
	case -1, 7:
		return carrier.StateCancelled
	default:
		return carrier.StateException
	}
}

var _ carrier.Carrier = (*Client)(nil)
