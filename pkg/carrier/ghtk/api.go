package ghtk

import (
	"context"
	"fmt"
)

// APIClient defines the interface for GHTK API operations.
type APIClient interface {
	// CalculateFee fetches the shipping fee for a route and weight.
	CalculateFee(ctx context.Context, req *FeeRequest) (*FeeInfo, error)

	// CreateOrder registers a new shipping order.
	CreateOrder(ctx context.Context, req *OrderRequest) (*OrderInfo, error)

	// GetStatus retrieves the current status of an order by its label.
	GetStatus(ctx context.Context, label string) (*StatusInfo, error)
}

// ============================================================================
// API Request/Response Types (match the GHTK JSON API structure)
// ============================================================================

// FeeRequest represents a GHTK fee calculation request. GHTK addresses
// routes by province and district names.
type FeeRequest struct {
	PickProvince  string `json:"pick_province"`
	PickDistrict  string `json:"pick_district"`
	Province      string `json:"province"`
	District      string `json:"district"`
	Address       string `json:"address,omitempty"`
	WeightGrams   int    `json:"weight"`
	Value         int64  `json:"value"`
	Transport     string `json:"transport"`
	DeliverOption string `json:"deliver_option"`
}

// FeeInfo is the fee payload of a GHTK fee response.
type FeeInfo struct {
	Name         string `json:"name"`
	Fee          int64  `json:"fee"`
	InsuranceFee int64  `json:"insurance_fee"`
	Delivery     bool   `json:"delivery"`
}

// OrderProduct is one product inside a GHTK order.
type OrderProduct struct {
	Name     string  `json:"name"`
	WeightKG float64 `json:"weight"`
	Quantity int     `json:"quantity"`
}

// OrderInfoRequest is the order section of a GHTK order request.
type OrderInfoRequest struct {
	ID           string `json:"id"`
	PickName     string `json:"pick_name"`
	PickProvince string `json:"pick_province"`
	PickDistrict string `json:"pick_district"`
	PickWard     string `json:"pick_ward,omitempty"`
	PickAddress  string `json:"pick_address,omitempty"`
	PickTel      string `json:"pick_tel,omitempty"`
	Name         string `json:"name"`
	Province     string `json:"province"`
	District     string `json:"district"`
	Ward         string `json:"ward,omitempty"`
	Address      string `json:"address"`
	Tel          string `json:"tel"`
	Hamlet       string `json:"hamlet"`
	IsFreeship   int    `json:"is_freeship"`
	PickMoney    int64  `json:"pick_money"`
	Note         string `json:"note,omitempty"`
	Transport    string `json:"transport"`
	Value        int64  `json:"value"`
}

// OrderRequest represents a GHTK order creation request.
type OrderRequest struct {
	Products []OrderProduct   `json:"products"`
	Order    OrderInfoRequest `json:"order"`
}

// OrderInfo is the order payload of a GHTK order creation response.
type OrderInfo struct {
	Label                string `json:"label"`
	PartnerID            string `json:"partner_id"`
	Fee                  int64  `json:"fee"`
	InsuranceFee         int64  `json:"insurance_fee"`
	EstimatedPickTime    string `json:"estimated_pick_time"`
	EstimatedDeliverTime string `json:"estimated_deliver_time"`
}

// StatusInfo is the order payload of a GHTK status response.
type StatusInfo struct {
	LabelID    string `json:"label_id"`
	Status     int    `json:"status"`
	StatusText string `json:"status_text"`
	Modified   string `json:"modified"`
	Message    string `json:"message"`
}

// APIError represents an error reported by the GHTK API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ghtk api error: %s", e.Message)
}
