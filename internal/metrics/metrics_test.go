package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.ObserveCallback("con", 10*time.Millisecond)
	second.ObserveCallback("con", 10*time.Millisecond)

	require.Equal(t, float64(2), testutil.ToFloat64(first.callbacks.WithLabelValues("con")))
}

func TestLedgerOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.LedgerOperation("withdraw", "ok")
	m.LedgerOperation("withdraw", "insufficient_funds")
	m.LedgerOperation("withdraw", "ok")

	require.Equal(t, float64(2), testutil.ToFloat64(m.ledgerOps.WithLabelValues("withdraw", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.ledgerOps.WithLabelValues("withdraw", "insufficient_funds")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveCallback("end", time.Second)
	m.LedgerOperation("deposit", "ok")
	m.SetActiveSessions(3)
	m.Replayed()
	m.RateLimited()
}
