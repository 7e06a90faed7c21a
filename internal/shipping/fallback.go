package shipping

import (
	"time"

	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/shopspring/decimal"
)

// FallbackEstimator is the deterministic backup fee formula used when no
// carrier answers. It is pure computation, performs no I/O, and never
// fails: it is the system's availability backstop.
//
// fee = baseFee(destination province) + weightGrams/1000 * perKilogramRate
type FallbackEstimator struct {
	majorProvinces map[string]struct{}
	majorBase      decimal.Decimal
	defaultBase    decimal.Decimal
	perKilogram    decimal.Decimal
}

// FallbackRates holds the fallback fee constants.
type FallbackRates struct {
	// MajorProvinces are GSO province codes that get the lower base fee.
	MajorProvinces []string
	// MajorBaseFee applies to destinations in a major province.
	MajorBaseFee int64
	// DefaultBaseFee applies everywhere else.
	DefaultBaseFee int64
	// PerKilogramRate is charged per started-or-fractional kilogram,
	// proportionally.
	PerKilogramRate int64
}

// NewFallbackEstimator creates a fallback estimator with the given rates.
func NewFallbackEstimator(rates FallbackRates) *FallbackEstimator {
	major := make(map[string]struct{}, len(rates.MajorProvinces))
	for _, code := range rates.MajorProvinces {
		major[code] = struct{}{}
	}
	return &FallbackEstimator{
		majorProvinces: major,
		majorBase:      decimal.NewFromInt(rates.MajorBaseFee),
		defaultBase:    decimal.NewFromInt(rates.DefaultBaseFee),
		perKilogram:    decimal.NewFromInt(rates.PerKilogramRate),
	}
}

// Estimate computes the fallback fee for a destination and weight. A
// non-positive weight contributes no weight fee rather than a negative
// one.
func (f *FallbackEstimator) Estimate(destination carrier.Location, weightGrams int, serviceType carrier.ServiceType) *carrier.FeeQuote {
	base := f.defaultBase
	if _, ok := f.majorProvinces[destination.ProvinceCode]; ok {
		base = f.majorBase
	}

	fee := base
	if weightGrams > 0 {
		kilograms := decimal.NewFromInt(int64(weightGrams)).Div(decimal.NewFromInt(1000))
		fee = base.Add(kilograms.Mul(f.perKilogram))
	}

	return &carrier.FeeQuote{
		Carrier:       "fallback",
		ServiceType:   serviceType,
		Fee:           fee,
		EstimatedDays: 5,
		Source:        carrier.SourceFallback,
		ObtainedAt:    time.Now(),
	}
}
