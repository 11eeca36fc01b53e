package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/ceyewan/tablegen/xerrors"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		ok   bool
	}{
		{name: "nil", cfg: nil},
		{name: "default", cfg: DefaultConfig("tablegen"), ok: true},
		{name: "no service", cfg: &Config{Endpoint: "localhost:4317"}},
		{name: "no endpoint", cfg: &Config{ServiceName: "svc"}},
		{name: "bad sampler", cfg: &Config{ServiceName: "svc", Endpoint: "x:1", Sampler: 2}},
		{name: "bad batcher", cfg: &Config{ServiceName: "svc", Endpoint: "x:1", Batcher: "async"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.cfg)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
		})
	}
}

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(&Config{Enabled: false, ServiceName: "tablegen-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().HasTraceID())
}
