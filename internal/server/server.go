// Package server exposes the shipping orchestration service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/owlscommerce/shipping/internal/shipping"
	"github.com/owlscommerce/shipping/pkg/carrier"
)

// Config holds server configuration.
type Config struct {
	Port int
}

// Server is the HTTP server for the shipping service.
type Server struct {
	port    int
	service *shipping.Service
	logger  *otelzap.Logger
}

// New creates a new server instance.
func New(cfg Config, service *shipping.Service, logger *otelzap.Logger) *Server {
	return &Server{
		port:    cfg.Port,
		service: service,
		logger:  logger,
	}
}

// Handler builds the gin engine with all routes mounted. Split from Run
// so tests can drive it through httptest.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/shipping/preview", s.handlePreview)
		v1.POST("/orders/:id/shipping", s.handleResolveOrder)
		v1.GET("/orders/:id/shipping", s.handleGetOrder)
		v1.POST("/partitions/:id/shipment", s.handleCreateShipment)
		v1.GET("/partitions/:id/tracking", s.handleTracking)
		v1.POST("/partitions/:id/cancel", s.handleCancel)
	}
	return router
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type locationRequest struct {
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	District     string `json:"district"`
	DistrictID   int    `json:"district_id"`
	Ward         string `json:"ward"`
	WardCode     string `json:"ward_code"`
	Address      string `json:"address"`
}

func (l locationRequest) toLocation() carrier.Location {
	return carrier.Location{
		Province:     l.Province,
		ProvinceCode: l.ProvinceCode,
		District:     l.District,
		DistrictID:   l.DistrictID,
		Ward:         l.Ward,
		WardCode:     l.WardCode,
		Address:      l.Address,
	}
}

type previewItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type previewRequest struct {
	Items       []previewItemRequest `json:"items" binding:"required,min=1"`
	Destination locationRequest      `json:"destination" binding:"required"`
	Subtotal    decimal.Decimal      `json:"subtotal"`
}

type previewSellerResponse struct {
	SellerID      string `json:"seller_id"`
	WeightGrams   int    `json:"weight_grams"`
	Fee           string `json:"fee"`
	Carrier       string `json:"carrier"`
	EstimatedDays int    `json:"estimated_days"`
	Source        string `json:"source"`
}

type previewResponse struct {
	Sellers      []previewSellerResponse `json:"sellers"`
	Total        string                  `json:"total"`
	FreeShipping bool                    `json:"free_shipping"`
}

func (s *Server) handlePreview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	items := make([]shipping.PreviewItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, shipping.PreviewItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	preview, err := s.service.PreviewShipping(c.Request.Context(), &shipping.PreviewRequest{
		Items:       items,
		Destination: req.Destination.toLocation(),
		Subtotal:    req.Subtotal,
	})
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	resp := previewResponse{
		Sellers:      make([]previewSellerResponse, 0, len(preview.Sellers)),
		Total:        preview.Total.StringFixed(2),
		FreeShipping: preview.FreeShipping,
	}
	for _, entry := range preview.Sellers {
		resp.Sellers = append(resp.Sellers, previewSellerResponse{
			SellerID:      entry.SellerID,
			WeightGrams:   entry.WeightGrams,
			Fee:           entry.Fee.StringFixed(2),
			Carrier:       entry.Carrier,
			EstimatedDays: entry.EstimatedDays,
			Source:        string(entry.Source),
		})
	}
	c.JSON(http.StatusOK, resp)
}

type partitionResponse struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	SellerID      string `json:"seller_id"`
	WeightGrams   int    `json:"weight_grams"`
	Fee           string `json:"fee"`
	FeeSource     string `json:"fee_source"`
	Carrier       string `json:"carrier,omitempty"`
	EstimatedDays int    `json:"estimated_days"`
	TrackingID    string `json:"tracking_id,omitempty"`
	Status        string `json:"status"`
	Version       int    `json:"version"`
}

func toPartitionResponse(p *shipping.Partition) partitionResponse {
	return partitionResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		SellerID:      p.SellerID,
		WeightGrams:   p.WeightGrams,
		Fee:           p.Fee.StringFixed(2),
		FeeSource:     string(p.FeeSource),
		Carrier:       p.CarrierName,
		EstimatedDays: p.EstimatedDays,
		TrackingID:    p.TrackingID,
		Status:        string(p.Status),
		Version:       p.Version,
	}
}

type orderShippingResponse struct {
	OrderID      string              `json:"order_id"`
	Partitions   []partitionResponse `json:"partitions"`
	Total        string              `json:"total"`
	FreeShipping bool                `json:"free_shipping"`
}

func toOrderShippingResponse(result *shipping.OrderShipping) orderShippingResponse {
	resp := orderShippingResponse{
		OrderID:      result.OrderID,
		Partitions:   make([]partitionResponse, 0, len(result.Partitions)),
		Total:        result.Total.StringFixed(2),
		FreeShipping: result.FreeShipping,
	}
	for i := range result.Partitions {
		resp.Partitions = append(resp.Partitions, toPartitionResponse(&result.Partitions[i]))
	}
	return resp
}

func (s *Server) handleResolveOrder(c *gin.Context) {
	result, err := s.service.ResolveOrderShipping(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderShippingResponse(result))
}

// handleGetOrder returns the stored shipping state without recomputing;
// resolution happens only on the POST.
func (s *Server) handleGetOrder(c *gin.Context) {
	result, err := s.service.GetOrderShipping(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderShippingResponse(result))
}

func (s *Server) handleCreateShipment(c *gin.Context) {
	p, err := s.service.CreateShipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPartitionResponse(p))
}

type trackingEventResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
}

type trackingResponse struct {
	TrackingID string                  `json:"tracking_id"`
	Carrier    string                  `json:"carrier"`
	Status     string                  `json:"status"`
	Events     []trackingEventResponse `json:"events"`
}

func (s *Server) handleTracking(c *gin.Context) {
	tracking, err := s.service.GetTracking(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	resp := trackingResponse{
		TrackingID: tracking.TrackingID,
		Carrier:    tracking.Carrier,
		Status:     string(tracking.Status),
		Events:     make([]trackingEventResponse, 0, len(tracking.Events)),
	}
	for _, ev := range tracking.Events {
		resp.Events = append(resp.Events, trackingEventResponse{
			Timestamp:   ev.Timestamp,
			Status:      string(ev.Status),
			Description: ev.Description,
			Location:    ev.Location,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCancel(c *gin.Context) {
	p, err := s.service.CancelPartition(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPartitionResponse(p))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": errorResponse{Code: code, Message: message}})
}

// writeServiceError maps domain errors to HTTP statuses. Shipment
// creation failures are a carrier-side problem, reported as a bad
// gateway so callers can distinguish them from their own input errors.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	var creationErr *shipping.ShipmentCreationError
	switch {
	case errors.Is(err, shipping.ErrNotFound),
		errors.Is(err, carrier.ErrShipmentNotFound):
		s.writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, shipping.ErrInvalidWeight):
		s.writeError(c, http.StatusBadRequest, "INVALID_WEIGHT", err.Error())
	case errors.Is(err, shipping.ErrNoTracking):
		s.writeError(c, http.StatusConflict, "NO_TRACKING", err.Error())
	case errors.Is(err, shipping.ErrPartitionFrozen):
		s.writeError(c, http.StatusConflict, "PARTITION_FROZEN", err.Error())
	case errors.Is(err, shipping.ErrInvalidTransition):
		s.writeError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, shipping.ErrStalePartitionWrite):
		s.writeError(c, http.StatusConflict, "STALE_WRITE", err.Error())
	case errors.As(err, &creationErr):
		s.writeError(c, http.StatusBadGateway, "SHIPMENT_CREATION_FAILED", err.Error())
	default:
		s.logger.Ctx(c.Request.Context()).Error("Request failed", zap.Error(err))
		s.writeError(c, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
