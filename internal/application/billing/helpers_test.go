package billing_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
)

const (
	testAccessKey = "35240312345678000199550010000001231123456786"
	testProtocol  = "135240000000001"
)

// ── mocks de los puertos ─────────────────────────────────────────────────────

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Emit(ctx context.Context, inv *entity.Invoice) (billing.EmissionDecision, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(billing.EmissionDecision), args.Error(1)
}

func (m *mockGateway) Cancel(ctx context.Context, accessKey string) (billing.CancellationDecision, error) {
	args := m.Called(ctx, accessKey)
	return args.Get(0).(billing.CancellationDecision), args.Error(1)
}

func (m *mockGateway) Correct(ctx context.Context, accessKey, text string) (billing.CorrectionDecision, error) {
	args := m.Called(ctx, accessKey, text)
	return args.Get(0).(billing.CorrectionDecision), args.Error(1)
}

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Save(ctx context.Context, inv *entity.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockRepo) FindByAccessKey(ctx context.Context, key string) (*entity.Invoice, error) {
	args := m.Called(ctx, key)
	inv, _ := args.Get(0).(*entity.Invoice)
	return inv, args.Error(1)
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*entity.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*entity.Invoice)
	return inv, args.Error(1)
}

func (m *mockRepo) ListAll(ctx context.Context) ([]*entity.Invoice, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*entity.Invoice)
	return list, args.Error(1)
}

type mockDANFE struct{ mock.Mock }

func (m *mockDANFE) Generate(ctx context.Context, inv *entity.Invoice) ([]byte, error) {
	args := m.Called(ctx, inv)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

// ── fixtures ─────────────────────────────────────────────────────────────────

func testAddress(t *testing.T) fiscal.Address {
	t.Helper()
	a, err := fiscal.NewAddress(fiscal.AddressParams{
		Logradouro: "Av. Rio Branco", Numero: "156", Municipio: "Rio de Janeiro", UF: "RJ", CEP: "20040-901",
	})
	require.NoError(t, err)
	return a
}

// newInvoice nota en PROCESSING con un ítem 2 × 50,00 (ICMS 10, IPI 5).
func newInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	inv := newEmptyInvoice(t)
	taxes, err := fiscal.NewTaxAmounts(decimal.NewFromInt(10), decimal.NewFromInt(5), decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	item, err := entity.NewLineItem(entity.LineItemParams{
		SKU: "SKU-1", Description: "Cadeira", Quantity: 2, UnitPrice: decimal.NewFromFloat(50.0),
		CFOP: "5102", NCM: "94013000", CST: "000", Taxes: taxes,
	})
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(item))
	return inv
}

func newEmptyInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	inv, err := entity.NewInvoice(entity.InvoiceParams{
		EmitterTaxID:     fiscal.MustTaxID("12345678000199"),
		RecipientTaxID:   fiscal.MustTaxID("98765432100"),
		EmitterAddress:   testAddress(t),
		RecipientAddress: testAddress(t),
	})
	require.NoError(t, err)
	return inv
}

func newAuthorizedInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	inv := newInvoice(t)
	_, err := inv.ComputeTotals()
	require.NoError(t, err)
	require.NoError(t, inv.MarkAuthorized(testAccessKey, testProtocol))
	return inv
}

func emitRequest() dto.EmitInvoiceRequest {
	addr := dto.AddressDTO{Logradouro: "Av. Rio Branco", Numero: "156", Municipio: "Rio de Janeiro", UF: "RJ", CEP: "20040-901"}
	return dto.EmitInvoiceRequest{
		EmitterTaxID:     "12.345.678/0001-99",
		RecipientTaxID:   "987.654.321-00",
		EmitterAddress:   addr,
		RecipientAddress: addr,
		Items: []dto.InvoiceItemRequest{{
			SKU: "SKU-1", Description: "Cadeira", Quantity: 2, UnitPrice: decimal.NewFromInt(50),
			CFOP: "5102", NCM: "94013000", CST: "000",
			Taxes: dto.TaxAmountsDTO{ICMS: decimal.NewFromInt(10), IPI: decimal.NewFromInt(5)},
		}},
	}
}
