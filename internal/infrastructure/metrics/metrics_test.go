package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/infrastructure/metrics"
)

type stubSEFAZ struct {
	emit   billing.EmissionDecision
	cancel billing.CancellationDecision
	err    error
}

func (s stubSEFAZ) Emit(context.Context, *entity.Invoice) (billing.EmissionDecision, error) {
	return s.emit, s.err
}

func (s stubSEFAZ) Cancel(context.Context, string) (billing.CancellationDecision, error) {
	return s.cancel, s.err
}

func (s stubSEFAZ) Correct(context.Context, string, string) (billing.CorrectionDecision, error) {
	return billing.CorrectionDecision{Protocol: "1"}, s.err
}

func TestInstrumentedGateway_CuentaResultados(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gw := metrics.NewInstrumentedGateway(stubSEFAZ{
		emit:   billing.EmissionDecision{Status: entity.StatusAuthorized},
		cancel: billing.CancellationDecision{Status: entity.StatusCanceled},
	}, m)

	_, err := gw.Emit(context.Background(), nil)
	require.NoError(t, err)
	_, err = gw.Cancel(context.Background(), "k")
	require.NoError(t, err)
	_, err = gw.Correct(context.Background(), "k", "t")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayOutcome.WithLabelValues("emit", "AUTHORIZED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayOutcome.WithLabelValues("cancel", "CANCELED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayOutcome.WithLabelValues("correct", "REGISTERED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoicesByState.WithLabelValues("AUTHORIZED")))
	assert.Equal(t, 3, testutil.CollectAndCount(m.GatewayLatency))
}

func TestInstrumentedGateway_ErrorSeCuentaYSePropaga(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	gw := metrics.NewInstrumentedGateway(stubSEFAZ{err: domain.ErrGateway}, m)

	_, err := gw.Emit(context.Background(), nil)
	assert.True(t, errors.Is(err, domain.ErrGateway))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GatewayOutcome.WithLabelValues("emit", "error")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.InvoicesByState))
}

func TestMetrics_NilNoHaceNada(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveGateway("emit", "AUTHORIZED", time.Second)
		m.IncrementStatus("AUTHORIZED")
		m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}
