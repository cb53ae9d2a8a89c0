package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/tether"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewMetrics(reg, "tether")
	require.NoError(t, err)

	_, err = NewMetrics(reg, "tether")
	assert.Error(t, err, "duplicate registration must fail")
}

func TestMetrics_Callbacks(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry(), "tether")
	require.NoError(t, err)

	m.OnChangeReceived("volume")
	m.OnChangeReceived("volume")
	m.OnValueWritten("volume")
	m.OnViolation("volume")
	m.OnStateChange("volume", tether.StatePending, tether.StateLive)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("volume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("volume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.violations.WithLabelValues("volume")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("volume", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("volume", "live")))
}

func TestMetrics_WiredIntoProperty(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry(), "tether")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	obj := tether.NewMapObject(map[string]any{"volume": 1})
	prop, err := tether.New(ctx, obj, "volume", tether.WithMetrics(m))
	require.NoError(t, err)

	values := prop.Producer(ctx)
	<-values

	require.NoError(t, prop.SetValue(ctx, 2))
	<-values

	obj.Release()
	<-prop.Done()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.changes.WithLabelValues("volume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("volume")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.state.WithLabelValues("volume", "ended")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.state.WithLabelValues("volume", "live")))
}
