package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
	"github.com/jhoicas/nfe-api/internal/infrastructure/memory"
)

const testAccessKey = "35240312345678000199550010000001231123456786"

func newAuthorizedInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	inv := newProcessingInvoice(t)
	_, err := inv.ComputeTotals()
	require.NoError(t, err)
	require.NoError(t, inv.MarkAuthorized(testAccessKey, "135240000000001"))
	return inv
}

func newProcessingInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	addr, err := fiscal.NewAddress(fiscal.AddressParams{
		Logradouro: "Rua XV de Novembro", Numero: "10", Municipio: "Curitiba", UF: "PR", CEP: "80020-310",
	})
	require.NoError(t, err)
	inv, err := entity.NewInvoice(entity.InvoiceParams{
		EmitterTaxID:     fiscal.MustTaxID("12345678000199"),
		RecipientTaxID:   fiscal.MustTaxID("98765432100"),
		EmitterAddress:   addr,
		RecipientAddress: addr,
	})
	require.NoError(t, err)
	item, err := entity.NewLineItem(entity.LineItemParams{
		SKU: "P-1", Description: "Parafuso", Quantity: 2, UnitPrice: decimal.NewFromInt(50),
		CFOP: "5102", NCM: "73181500", CST: "000", Taxes: fiscal.ZeroTaxAmounts(),
	})
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(item))
	return inv
}

func TestInvoiceRepo_SaveYBuscar(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvoiceRepository()
	inv := newAuthorizedInvoice(t)

	require.NoError(t, repo.Save(ctx, inv))

	byKey, err := repo.FindByAccessKey(ctx, testAccessKey)
	require.NoError(t, err)
	assert.Equal(t, inv.State(), byKey.State())

	byID, err := repo.FindByID(ctx, inv.ID())
	require.NoError(t, err)
	assert.Equal(t, inv.ID(), byID.ID())

	// Save es upsert por ID
	require.NoError(t, inv.RecordCorrection("135240000000077"))
	require.NoError(t, repo.Save(ctx, inv))
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "135240000000077", all[0].CorrectionProtocol())
}

func TestInvoiceRepo_NoEncontrado(t *testing.T) {
	repo := memory.NewInvoiceRepository()
	_, err := repo.FindByAccessKey(context.Background(), testAccessKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestInvoiceRepo_AisladoDelAgregado modificar la nota después de guardarla no cambia lo guardado.
func TestInvoiceRepo_AisladoDelAgregado(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvoiceRepository()
	inv := newAuthorizedInvoice(t)
	require.NoError(t, repo.Save(ctx, inv))

	require.NoError(t, inv.ApplyCancellation(entity.StatusCanceled, ""))
	stored, err := repo.FindByAccessKey(ctx, testAccessKey)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAuthorized, stored.Status())
}

func TestUnitOfWork_ConfirmaSoloSinError(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvoiceRepository()
	uow := memory.NewUnitOfWork(repo)
	inv := newAuthorizedInvoice(t)

	boom := errors.New("boom")
	err := uow.Run(ctx, func(r repository.InvoiceRepository) error {
		require.NoError(t, r.Save(ctx, inv))
		// dentro de la unidad la escritura es visible
		_, err := r.FindByAccessKey(ctx, testAccessKey)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = repo.FindByID(ctx, inv.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound, "la escritura se descarta si fn falla")

	err = uow.Run(ctx, func(r repository.InvoiceRepository) error {
		return r.Save(ctx, inv)
	})
	require.NoError(t, err)
	_, err = repo.FindByID(ctx, inv.ID())
	assert.NoError(t, err)
}

func TestUnitOfWork_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := memory.NewUnitOfWork(memory.NewInvoiceRepository()).Run(ctx, func(repository.InvoiceRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// ── unicidad de la chave ─────────────────────────────────────────────────────

func TestInvoiceRepo_ChaveDuplicada(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvoiceRepository()
	first := newAuthorizedInvoice(t)
	require.NoError(t, repo.Save(ctx, first))

	second := newAuthorizedInvoice(t)
	assert.ErrorIs(t, repo.Save(ctx, second), domain.ErrConflict)

	got, err := repo.FindByAccessKey(ctx, testAccessKey)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), got.ID(), "la chave sigue apuntando a la primera nota")
	_, err = repo.FindByID(ctx, second.ID())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// volver a guardar la misma nota no es conflicto
	assert.NoError(t, repo.Save(ctx, first))
}

func TestUnitOfWork_ChaveDuplicada(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvoiceRepository()
	uow := memory.NewUnitOfWork(repo)
	first := newAuthorizedInvoice(t)
	require.NoError(t, uow.Run(ctx, func(r repository.InvoiceRepository) error {
		return r.Save(ctx, first)
	}))

	err := uow.Run(ctx, func(r repository.InvoiceRepository) error {
		return r.Save(ctx, newAuthorizedInvoice(t))
	})
	assert.ErrorIs(t, err, domain.ErrConflict, "contra una nota confirmada")

	err = memory.NewUnitOfWork(memory.NewInvoiceRepository()).Run(ctx, func(r repository.InvoiceRepository) error {
		require.NoError(t, r.Save(ctx, newAuthorizedInvoice(t)))
		return r.Save(ctx, newAuthorizedInvoice(t))
	})
	assert.ErrorIs(t, err, domain.ErrConflict, "contra una nota pendiente")

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFindByAccessKey_ChaveVacia(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInvoiceRepository()
	require.NoError(t, repo.Save(ctx, newProcessingInvoice(t)))

	_, err := repo.FindByAccessKey(ctx, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = memory.NewUnitOfWork(repo).Run(ctx, func(r repository.InvoiceRepository) error {
		require.NoError(t, r.Save(ctx, newProcessingInvoice(t)))
		_, err := r.FindByAccessKey(ctx, "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound, "las notas sin chave no responden a la chave vacía")
}
