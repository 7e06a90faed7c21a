package ghtk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using the
// GHTK JSON services gateway.
type HTTPAPIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// feeResponse is the GHTK fee endpoint envelope.
type feeResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Fee     FeeInfo `json:"fee"`
}

// orderResponse is the GHTK order endpoint envelope.
type orderResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Order   OrderInfo `json:"order"`
}

// statusResponse is the GHTK status endpoint envelope.
type statusResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Order   StatusInfo `json:"order"`
}

// CalculateFee fetches the shipping fee from the GHTK API.
// GHTK exposes the fee endpoint over GET with query parameters.
func (c *HTTPAPIClient) CalculateFee(ctx context.Context, req *FeeRequest) (*FeeInfo, error) {
	q := url.Values{}
	q.Set("pick_province", req.PickProvince)
	q.Set("pick_district", req.PickDistrict)
	q.Set("province", req.Province)
	q.Set("district", req.District)
	if req.Address != "" {
		q.Set("address", req.Address)
	}
	q.Set("weight", fmt.Sprintf("%d", req.WeightGrams))
	q.Set("value", fmt.Sprintf("%d", req.Value))
	q.Set("transport", req.Transport)
	q.Set("deliver_option", req.DeliverOption)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/services/shipment/fee?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env feeResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env.Fee, nil
}

// CreateOrder registers a new shipping order via the GHTK API.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderInfo, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/services/shipment/order", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env.Order, nil
}

// GetStatus retrieves the current order status via the GHTK API.
func (c *HTTPAPIClient) GetStatus(ctx context.Context, label string) (*StatusInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/services/shipment/v2/"+url.PathEscape(label), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env.Order, nil
}

func (c *HTTPAPIClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
}

var _ APIClient = (*HTTPAPIClient)(nil)
