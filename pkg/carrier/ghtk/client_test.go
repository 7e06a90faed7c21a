package ghtk_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/owlscommerce/shipping/pkg/carrier/ghtk"
)

func newTestClient(mockAPI *ghtk.MockAPIClient) *ghtk.Client {
	logger := otelzap.New(zap.NewNop())
	return ghtk.NewWithAPIClient(ghtk.Config{}, mockAPI, logger)
}

func namedRoute() carrier.Route {
	return carrier.Route{
		Origin: carrier.Location{
			Province: "Hồ Chí Minh", District: "Quận 1",
			Address: "132 Nguyễn Huệ",
		},
		Destination: carrier.Location{
			Province: "Đà Nẵng", District: "Quận Hải Châu",
			Ward: "Phường Thạch Thang", Address: "1 Trần Phú",
		},
	}
}

func TestClient_CalculateFee_Success(t *testing.T) {
	client := newTestClient(ghtk.NewMockAPIClient())

	quote, err := client.CalculateFee(context.Background(), &carrier.FeeRequest{
		Route:       namedRoute(),
		WeightGrams: 1200,
		ServiceType: carrier.ServiceStandard,
	})

	require.NoError(t, err)
	assert.Equal(t, "ghtk", quote.Carrier)
	assert.Equal(t, int64(30000), quote.Fee.IntPart())
	assert.Equal(t, carrier.SourceCarrier, quote.Source)
}

func TestClient_CalculateFee_RequestMapping(t *testing.T) {
	mockAPI := ghtk.NewMockAPIClient()
	var captured *ghtk.FeeRequest
	mockAPI.OnCalculateFee = func(ctx context.Context, req *ghtk.FeeRequest) (*ghtk.FeeInfo, error) {
		captured = req
		return &ghtk.FeeInfo{Fee: 28000, Delivery: true}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.CalculateFee(context.Background(), &carrier.FeeRequest{
		Route:       namedRoute(),
		WeightGrams: 2500,
		ServiceType: carrier.ServiceExpress,
	})

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "Hồ Chí Minh", captured.PickProvince)
	assert.Equal(t, "Đà Nẵng", captured.Province)
	assert.Equal(t, 2500, captured.WeightGrams)
	assert.Equal(t, "fly", captured.Transport)
}

func TestClient_CalculateFee_MissingNamesRejected(t *testing.T) {
	client := newTestClient(ghtk.NewMockAPIClient())

	route := namedRoute()
	route.Destination.Province = ""

	_, err := client.CalculateFee(context.Background(), &carrier.FeeRequest{
		Route:       route,
		WeightGrams: 1000,
	})

	assert.True(t, carrier.IsRejected(err))
}

func TestClient_CalculateFee_RouteNotServed(t *testing.T) {
	mockAPI := ghtk.NewMockAPIClient()
	mockAPI.OnCalculateFee = func(ctx context.Context, req *ghtk.FeeRequest) (*ghtk.FeeInfo, error) {
		return &ghtk.FeeInfo{Fee: 0, Delivery: false}, nil
	}
	client := newTestClient(mockAPI)

	_, err := client.CalculateFee(context.Background(), &carrier.FeeRequest{
		Route:       namedRoute(),
		WeightGrams: 1000,
	})

	require.Error(t, err)
	assert.True(t, carrier.IsRejected(err))
}

func TestClient_CalculateFee_NetworkErrorIsUnreachable(t *testing.T) {
	mockAPI := ghtk.NewMockAPIClient()
	mockAPI.OnCalculateFee = func(ctx context.Context, req *ghtk.FeeRequest) (*ghtk.FeeInfo, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	}
	client := newTestClient(mockAPI)

	_, err := client.CalculateFee(context.Background(), &carrier.FeeRequest{
		Route:       namedRoute(),
		WeightGrams: 1000,
	})

	require.Error(t, err)
	assert.True(t, carrier.IsUnreachable(err))
}

func TestClient_CreateShipment_PartnerIDMapping(t *testing.T) {
	mockAPI := ghtk.NewMockAPIClient()
	var captured *ghtk.OrderRequest
	mockAPI.OnCreateOrder = func(ctx context.Context, req *ghtk.OrderRequest) (*ghtk.OrderInfo, error) {
		captured = req
		return &ghtk.OrderInfo{Label: "S1.A123", Fee: 30000}, nil
	}
	client := newTestClient(mockAPI)

	shipment, err := client.CreateShipment(context.Background(), &carrier.ShipmentRequest{
		ClientOrderID: "partition-9",
		Route:         namedRoute(),
		WeightGrams:   1500,
		Items:         []carrier.ShipmentItem{{Name: "Sách", Quantity: 3, WeightGrams: 500}},
		RecipientName: "Trần Thị B",
		RecipientTel:  "0987654321",
	})

	require.NoError(t, err)
	assert.Equal(t, "S1.A123", shipment.TrackingID)

	require.NotNil(t, captured)
	assert.Equal(t, "partition-9", captured.Order.ID)
	require.Len(t, captured.Products, 1)
	assert.Equal(t, 0.5, captured.Products[0].WeightKG)
}

func TestClient_GetTracking_StatusMapping(t *testing.T) {
	mockAPI := ghtk.NewMockAPIClient()

	cases := []struct {
		code int
		want carrier.ShipmentState
	}{
		{2, carrier.StateCreated},
		{3, carrier.StatePickedUp},
		{4, carrier.StateInTransit},
		{5, carrier.StateDelivered},
		{9, carrier.StateReturned},
		{-1, carrier.StateCancelled},
	}

	client := newTestClient(mockAPI)
	for _, tc := range cases {
		mockAPI.OnGetStatus = func(ctx context.Context, label string) (*ghtk.StatusInfo, error) {
			return &ghtk.StatusInfo{LabelID: label, Status: tc.code, StatusText: "status"}, nil
		}
		tracking, err := client.GetTracking(context.Background(), "S1.A123")
		require.NoError(t, err)
		assert.Equal(t, tc.want, tracking.Status, "ghtk status %d", tc.code)
	}
}
