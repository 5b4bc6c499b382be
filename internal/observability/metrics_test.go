package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordSignal("0xwhale", 1700000000)
	m.RecordDecision("0xwhale", "MATCHED", 0.01)
	m.RecordDecision("0xwhale", "EXPOSURE_TOO_SMALL", 0.01)
	m.RecordDecision("0xwhale", "EXPOSURE_TOO_SMALL", 0.01)
	m.RecordOrder("0xwhale", "PLACED", true, 20, 0.2)
	m.RecordOrder("0xwhale", "BLOCKED", false, 0, 0)
	m.SetExposure(720, 3)
	m.SetTradingEnabled(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignalsReceived.WithLabelValues("0xwhale")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("0xwhale", "EXPOSURE_TOO_SMALL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Orders.WithLabelValues("0xwhale", "BLOCKED")))
	assert.Equal(t, 720.0, testutil.ToFloat64(m.SessionExposureUSD))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OpenPositions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradingEnabled))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OrderSizeUSD))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSignal("a", 1)
		m.RecordDecision("a", "MATCHED", 0)
		m.RecordOrder("a", "PLACED", true, 1, 1)
		m.RecordUpstreamError("gamma")
		m.RecordStoreError("postgres")
		m.SetExposure(1, 1)
		m.SetTradingEnabled(false)
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordUpstreamError("data_api")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `test_source_upstream_errors_total{component="data_api"} 1`))
}
