package main

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/owlscommerce/shipping/internal/cache"
	"github.com/owlscommerce/shipping/internal/config"
	"github.com/owlscommerce/shipping/internal/shipping"
	"github.com/owlscommerce/shipping/internal/store"
	"github.com/owlscommerce/shipping/internal/telemetry"
	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/owlscommerce/shipping/pkg/carrier/ghn"
	"github.com/owlscommerce/shipping/pkg/carrier/ghtk"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

func initCarrierRegistry(cfg *config.Config, logger *otelzap.Logger) *carrier.Registry {
	registry := carrier.NewRegistry(cfg.CarrierPriority)

	if cfg.GHNEnabled {
		registry.Register(ghn.New(ghn.Config{
			Token:   cfg.GHNToken,
			ShopID:  cfg.GHNShopID,
			BaseURL: cfg.GHNBaseURL,
			UseMock: cfg.GHNUseMock,
		}, logger))
	}

	if cfg.GHTKEnabled {
		registry.Register(ghtk.New(ghtk.Config{
			Token:   cfg.GHTKToken,
			BaseURL: cfg.GHTKBaseURL,
			UseMock: cfg.GHTKUseMock,
		}, logger))
	}

	return registry
}

func initStore(cfg *config.Config, logger *otelzap.Logger) (shipping.Store, error) {
	if cfg.DatabaseDSN == "" {
		logger.Warn("No database DSN configured, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	return store.Open(cfg.DatabaseDSN)
}

func initFeeCache(cfg *config.Config, logger *otelzap.Logger) (cache.FeeCache, error) {
	ttls := cache.TTLs{
		Quote:    cfg.FeeQuoteTTL,
		Fallback: cfg.FallbackQuoteTTL,
	}
	if cfg.RedisAddr == "" {
		return cache.NewMemoryFeeCache(ttls), nil
	}
	return cache.NewRedisFeeCache(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, ttls, logger)
}

func initService(cfg *config.Config, logger *otelzap.Logger) (*shipping.Service, error) {
	st, err := initStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	feeCache, err := initFeeCache(cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := initCarrierRegistry(cfg, logger)
	logger.Info("Carriers registered", zap.Strings("carriers", registry.Names()))

	fallback := shipping.NewFallbackEstimator(shipping.FallbackRates{
		MajorProvinces:  cfg.MajorProvinces,
		MajorBaseFee:    cfg.FallbackMajorBaseFee,
		DefaultBaseFee:  cfg.FallbackBaseFee,
		PerKilogramRate: cfg.FallbackPerKgRate,
	})

	return shipping.NewService(
		st,
		feeCache,
		registry,
		shipping.NewPartitionBuilder(cfg.DefaultItemWeightGrams),
		fallback,
		logger,
		telemetry.NewMetrics(),
		shipping.ServiceOptions{
			Workers:               cfg.ResolveWorkers,
			ShipmentRetries:       cfg.ShipmentRetries,
			WeightBucketGrams:     cfg.WeightBucketGrams,
			FreeShippingThreshold: decimal.NewFromInt(cfg.FreeShippingThreshold),
		},
	), nil
}
