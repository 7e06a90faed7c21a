package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service. Loaded once at process
// start and read-only thereafter; rotating carrier credentials requires a
// restart.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// GHN
	GHNToken   string `envconfig:"GHN_TOKEN"`
	GHNShopID  string `envconfig:"GHN_SHOP_ID"`
	GHNBaseURL string `envconfig:"GHN_BASE_URL" default:"https://online-gateway.ghn.vn/shiip/public-api"`
	GHNEnabled bool   `envconfig:"GHN_ENABLED" default:"true"`
	GHNUseMock bool   `envconfig:"GHN_USE_MOCK" default:"false"`

	// GHTK
	GHTKToken   string `envconfig:"GHTK_TOKEN"`
	GHTKBaseURL string `envconfig:"GHTK_BASE_URL" default:"https://services.giaohangtietkiem.vn"`
	GHTKEnabled bool   `envconfig:"GHTK_ENABLED" default:"true"`
	GHTKUseMock bool   `envconfig:"GHTK_USE_MOCK" default:"false"`

	// Orchestration. CarrierPriority is explicit and deterministic:
	// carriers are attempted strictly in this order.
	CarrierPriority  []string      `envconfig:"CARRIER_PRIORITY" default:"ghn,ghtk"`
	ResolveWorkers   int           `envconfig:"RESOLVE_WORKERS" default:"4"`
	ShipmentRetries  int           `envconfig:"SHIPMENT_RETRIES" default:"2"`
	FeeQuoteTTL      time.Duration `envconfig:"FEE_QUOTE_TTL" default:"1h"`
	FallbackQuoteTTL time.Duration `envconfig:"FALLBACK_QUOTE_TTL" default:"10m"`

	// Partitioning
	DefaultItemWeightGrams int `envconfig:"DEFAULT_ITEM_WEIGHT_GRAMS" default:"500"`
	WeightBucketGrams      int `envconfig:"WEIGHT_BUCKET_GRAMS" default:"500"`

	// Fallback estimator
	MajorProvinces        []string `envconfig:"MAJOR_PROVINCES" default:"01,79,48,31,92"`
	FallbackMajorBaseFee  int64    `envconfig:"FALLBACK_MAJOR_BASE_FEE" default:"20000"`
	FallbackBaseFee       int64    `envconfig:"FALLBACK_BASE_FEE" default:"30000"`
	FallbackPerKgRate     int64    `envconfig:"FALLBACK_PER_KG_RATE" default:"5000"`
	FreeShippingThreshold int64    `envconfig:"FREE_SHIPPING_THRESHOLD" default:"500000"`

	// Storage. An empty DSN or Redis address selects the in-memory
	// implementation (local development).
	DatabaseDSN   string `envconfig:"DATABASE_DSN"`
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"owls-shipping"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("ghn.enabled", c.GHNEnabled),
		attribute.Bool("ghtk.enabled", c.GHTKEnabled),
		attribute.StringSlice("carrier.priority", c.CarrierPriority),
	}
}
