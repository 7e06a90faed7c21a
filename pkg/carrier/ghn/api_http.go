package ghn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using the
// GHN public JSON gateway.
type HTTPAPIClient struct {
	baseURL    string
	token      string
	shopID     string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	Token   string
	ShopID  string
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
		shopID:  cfg.ShopID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// envelope is the JSON envelope every GHN response is wrapped in.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CalculateFee fetches the shipping fee from the GHN API.
func (c *HTTPAPIClient) CalculateFee(ctx context.Context, req *FeeRequest) (*FeeData, error) {
	var data FeeData
	if err := c.post(ctx, "/v2/shipping-order/fee", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CreateOrder creates a new shipping order via the GHN API.
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, req *OrderRequest) (*OrderData, error) {
	var data OrderData
	if err := c.post(ctx, "/v2/shipping-order/create", req, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetOrderDetail retrieves order status and tracking log via the GHN API.
func (c *HTTPAPIClient) GetOrderDetail(ctx context.Context, orderCode string) (*OrderDetail, error) {
	var data OrderDetail
	body := map[string]string{"order_code": orderCode}
	if err := c.post(ctx, "/v2/shipping-order/detail", body, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (c *HTTPAPIClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", c.token)
	req.Header.Set("ShopId", c.shopID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// GHN reports errors inside the envelope, not only via HTTP status.
	if env.Code != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
		}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

var _ APIClient = (*HTTPAPIClient)(nil)
