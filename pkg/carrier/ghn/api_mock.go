package ghn

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalculateFee   func(ctx context.Context, req *FeeRequest) (*FeeData, error)
	OnCreateOrder    func(ctx context.Context, req *OrderRequest) (*OrderData, error)
	OnGetOrderDetail func(ctx context.Context, orderCode string) (*OrderDetail, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CalculateFee returns a mock shipping fee.
func (m *MockAPIClient) CalculateFee(ctx context.Context, req *FeeRequest) (*FeeData, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: 400, Message: "Simulated API error"}
	}

	if m.OnCalculateFee != nil {
		return m.OnCalculateFee(ctx, req)
	}

	return &FeeData{
		Total:        35000,
		ServiceFee:   35000,
		InsuranceFee: 0,
	}, nil
}

// CreateOrder creates a mock order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderData, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: 400, Message: "Simulated API error"}
	}

	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &OrderData{
		OrderCode:            "GHN" + uuid.New().String()[:8],
		TotalFee:             35000,
		ExpectedDeliveryTime: time.Now().AddDate(0, 0, 3).Format(time.RFC3339),
	}, nil
}

// GetOrderDetail returns mock order detail with a tracking log.
func (m *MockAPIClient) GetOrderDetail(ctx context.Context, orderCode string) (*OrderDetail, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Code: 400, Message: "Simulated API error"}
	}

	if m.OnGetOrderDetail != nil {
		return m.OnGetOrderDetail(ctx, orderCode)
	}

	now := time.Now()
	return &OrderDetail{
		OrderCode: orderCode,
		Status:    "transporting",
		Log: []OrderLogEntry{
			{Status: "picked", UpdatedDate: now.Add(-48 * time.Hour).Format(time.RFC3339)},
			{Status: "transporting", UpdatedDate: now.Add(-12 * time.Hour).Format(time.RFC3339)},
		},
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
