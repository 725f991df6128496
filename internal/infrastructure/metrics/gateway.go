package metrics

import (
	"context"
	"time"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

const outcomeError = "error"

// SEFAZ puertos de emisión, cancelamento y CC-e juntos (sefaz.Gateway los cumple).
type SEFAZ interface {
	billing.EmissionPort
	billing.CancellationPort
	billing.CorrectionPort
}

// InstrumentedGateway envuelve la SEFAZ y mide cada llamada.
type InstrumentedGateway struct {
	next SEFAZ
	m    *Metrics
	now  func() time.Time
}

var _ SEFAZ = (*InstrumentedGateway)(nil)

// NewInstrumentedGateway decora next.
func NewInstrumentedGateway(next SEFAZ, m *Metrics) *InstrumentedGateway {
	return &InstrumentedGateway{next: next, m: m, now: time.Now}
}

func (g *InstrumentedGateway) Emit(ctx context.Context, inv *entity.Invoice) (billing.EmissionDecision, error) {
	start := g.now()
	d, err := g.next.Emit(ctx, inv)
	g.observe("emit", string(d.Status), start, err)
	return d, err
}

func (g *InstrumentedGateway) Cancel(ctx context.Context, accessKey string) (billing.CancellationDecision, error) {
	start := g.now()
	d, err := g.next.Cancel(ctx, accessKey)
	g.observe("cancel", string(d.Status), start, err)
	return d, err
}

func (g *InstrumentedGateway) Correct(ctx context.Context, accessKey, text string) (billing.CorrectionDecision, error) {
	start := g.now()
	d, err := g.next.Correct(ctx, accessKey, text)
	g.observe("correct", "REGISTERED", start, err)
	return d, err
}

func (g *InstrumentedGateway) observe(op, outcome string, start time.Time, err error) {
	if err != nil {
		outcome = outcomeError
	} else if outcome != "REGISTERED" {
		g.m.IncrementStatus(outcome)
	}
	g.m.ObserveGateway(op, outcome, g.now().Sub(start))
}
