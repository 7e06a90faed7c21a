package ghtk

import (
	"context"
	"fmt"
	"time"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalculateFee func(ctx context.Context, req *FeeRequest) (*FeeInfo, error)
	OnCreateOrder  func(ctx context.Context, req *OrderRequest) (*OrderInfo, error)
	OnGetStatus    func(ctx context.Context, label string) (*StatusInfo, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// CalculateFee returns a mock shipping fee.
func (m *MockAPIClient) CalculateFee(ctx context.Context, req *FeeRequest) (*FeeInfo, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Message: "Simulated API error"}
	}

	if m.OnCalculateFee != nil {
		return m.OnCalculateFee(ctx, req)
	}

	return &FeeInfo{
		Name:     "area1",
		Fee:      30000,
		Delivery: true,
	}, nil
}

// CreateOrder registers a mock order.
func (m *MockAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderInfo, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Message: "Simulated API error"}
	}

	if m.OnCreateOrder != nil {
		return m.OnCreateOrder(ctx, req)
	}

	return &OrderInfo{
		Label:                fmt.Sprintf("S1.%s", req.Order.ID),
		PartnerID:            req.Order.ID,
		Fee:                  30000,
		EstimatedPickTime:    "Sáng " + time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		EstimatedDeliverTime: "Chiều " + time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
	}, nil
}

// GetStatus returns a mock order status.
func (m *MockAPIClient) GetStatus(ctx context.Context, label string) (*StatusInfo, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Message: "Simulated API error"}
	}

	if m.OnGetStatus != nil {
		return m.OnGetStatus(ctx, label)
	}

	return &StatusInfo{
		LabelID:    label,
		Status:     4,
		StatusText: "Đang giao hàng",
		Modified:   time.Now().Format("2006-01-02 15:04:05"),
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
