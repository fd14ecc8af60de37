package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_RegistersCollectors(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.CounterRequests.WithLabelValues("GET", "200").Inc()
	m.CounterRequests.WithLabelValues("GET", "200").Inc()
	m.CounterLoginFailures.Inc()
	m.HistRequestDuration.WithLabelValues("GET").Observe(0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterLoginFailures))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CounterRegistrations))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["shopdash_test_server_requests_total"])
	assert.True(t, names["shopdash_test_server_login_failures_total"])
	assert.True(t, names["shopdash_test_server_request_duration_seconds"])
}

func TestNewManager_SeparateRegistries(t *testing.T) {
	// Two managers on their own registries must not collide.
	a := NewTestManager()
	b := NewTestManager()
	a.CounterRegistrations.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CounterRegistrations))
}
