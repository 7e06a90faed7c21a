package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/owlscommerce/shipping/pkg/carrier"
	"github.com/owlscommerce/shipping/pkg/carrier/mock"
)

func TestRegistry_PriorityOrder(t *testing.T) {
	registry := carrier.NewRegistry([]string{"ghn", "ghtk"})

	// Register in reverse to prove map order never leaks through.
	registry.Register(mock.New("ghtk"))
	registry.Register(mock.New("ghn"))

	assert.Equal(t, []string{"ghn", "ghtk"}, registry.Names())
}

func TestRegistry_UnknownNameAppendedLast(t *testing.T) {
	registry := carrier.NewRegistry([]string{"ghn"})
	registry.Register(mock.New("vnpost"))
	registry.Register(mock.New("ghn"))

	assert.Equal(t, []string{"ghn", "vnpost"}, registry.Names())
}

func TestRegistry_PriorityWithoutCarrierSkipped(t *testing.T) {
	registry := carrier.NewRegistry([]string{"ghn", "ghtk"})
	registry.Register(mock.New("ghtk"))

	require.Equal(t, 1, registry.Count())
	assert.Equal(t, []string{"ghtk"}, registry.Names())
}

func TestRegistry_Get(t *testing.T) {
	registry := carrier.NewRegistry(nil)
	registry.Register(mock.New("ghn"))

	c, err := registry.Get("ghn")
	require.NoError(t, err)
	assert.Equal(t, "ghn", c.Name())

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, carrier.ErrCarrierNotFound)
}
