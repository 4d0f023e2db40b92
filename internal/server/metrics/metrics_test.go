package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	m := New()

	m.Verifications.WithLabelValues("http", OutcomeVerified).Inc()
	m.Verifications.WithLabelValues("grpc", OutcomeNotFound).Add(2)
	m.RateLimited.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("http", OutcomeVerified)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verifications.WithLabelValues("grpc", OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["mitrasign_verifications_total"])
	assert.True(t, names["mitrasign_verify_rate_limited_total"])
	assert.True(t, names["go_goroutines"])
}
