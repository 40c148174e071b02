package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/sawmill/services/mill/config"
)

func TestNewTracerWithoutLicenseKeyIsInert(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	assert.Nil(t, tracer.StartTransaction("test"))
	tracer.EndTransaction(nil)
	tracer.Close()
}

func TestNewTracerInvalidLicenseReturnsInertInstance(t *testing.T) {
	tracer, err := NewTracer(config.TracingConfig{
		AppName:    "mill-test",
		LicenseKey: "not-a-valid-license",
	})
	require.Error(t, err)
	require.NotNil(t, tracer)

	// Still usable so callers can warn and continue.
	assert.Nil(t, tracer.StartTransaction("test"))
	tracer.RecordError(nil, err)
	tracer.Close()
}
