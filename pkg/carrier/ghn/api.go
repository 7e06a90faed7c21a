package ghn

import (
	"context"
	"fmt"
)

// APIClient defines the interface for GHN API operations. The abstraction
// allows mock implementations during testing and the real HTTP client in
// production.
type APIClient interface {
	// CalculateFee fetches the shipping fee for a route and weight.
	CalculateFee(ctx context.Context, req *FeeRequest) (*FeeData, error)

	// CreateOrder creates a new shipping order. GHN deduplicates on
	// ClientOrderCode, so a repeated call returns the existing order.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderData, error)

	// GetOrderDetail retrieves order status and its tracking log.
	GetOrderDetail(ctx context.Context, orderCode string) (*OrderDetail, error)
}

// ============================================================================
// API Request/Response Types (match the GHN JSON API structure)
// ============================================================================

// FeeRequest represents a GHN fee calculation request.
type FeeRequest struct {
	FromDistrictID int    `json:"from_district_id"`
	FromWardCode   string `json:"from_ward_code,omitempty"`
	ToDistrictID   int    `json:"to_district_id"`
	ToWardCode     string `json:"to_ward_code"`
	ServiceTypeID  int    `json:"service_type_id"`
	WeightGrams    int    `json:"weight"`
	Length         int    `json:"length,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	InsuranceValue int64  `json:"insurance_value"`
}

// FeeData is the data payload of a GHN fee response.
type FeeData struct {
	Total        int64 `json:"total"`
	ServiceFee   int64 `json:"service_fee"`
	InsuranceFee int64 `json:"insurance_fee"`
}

// OrderItem is an item inside a GHN order.
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Weight   int    `json:"weight"`
}

// OrderRequest represents a GHN order creation request.
type OrderRequest struct {
	ClientOrderCode  string      `json:"client_order_code"`
	ToName           string      `json:"to_name"`
	ToPhone          string      `json:"to_phone"`
	ToAddress        string      `json:"to_address"`
	ToDistrictID     int         `json:"to_district_id"`
	ToWardCode       string      `json:"to_ward_code"`
	FromDistrictID   int         `json:"from_district_id"`
	FromWardCode     string      `json:"from_ward_code,omitempty"`
	ServiceTypeID    int         `json:"service_type_id"`
	PaymentTypeID    int         `json:"payment_type_id"`
	WeightGrams      int         `json:"weight"`
	CODAmount        int64       `json:"cod_amount"`
	Note             string      `json:"note,omitempty"`
	RequiredNote     string      `json:"required_note"`
	Items            []OrderItem `json:"items"`
}

// OrderData is the data payload of a GHN order creation response.
type OrderData struct {
	OrderCode            string `json:"order_code"`
	TotalFee             int64  `json:"total_fee"`
	ExpectedDeliveryTime string `json:"expected_delivery_time"`
}

// OrderLogEntry is one entry in a GHN order tracking log.
type OrderLogEntry struct {
	Status      string `json:"status"`
	UpdatedDate string `json:"updated_date"`
}

// OrderDetail is the data payload of a GHN order detail response.
type OrderDetail struct {
	OrderCode string          `json:"order_code"`
	Status    string          `json:"status"`
	Leadtime  string          `json:"leadtime"`
	Log       []OrderLogEntry `json:"log"`
}

// APIError represents an error reported by the GHN API envelope.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghn api error %d: %s", e.Code, e.Message)
}
