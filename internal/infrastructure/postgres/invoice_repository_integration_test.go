//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
	"github.com/jhoicas/nfe-api/internal/infrastructure/postgres"
	"github.com/jhoicas/nfe-api/pkg/config"
)

const testKey = "35240312345678000199550010000001231123456786"

func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("nfe_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "las migraciones son idempotentes")
	return pool
}

func newInvoice(t *testing.T) *entity.Invoice {
	t.Helper()
	addr, err := fiscal.NewAddress(fiscal.AddressParams{
		Logradouro: "Av. Paulista", Numero: "1000", Bairro: "Bela Vista", Municipio: "Sao Paulo", UF: "SP", CEP: "01310100",
	})
	require.NoError(t, err)
	inv, err := entity.NewInvoice(entity.InvoiceParams{
		EmitterTaxID: fiscal.MustTaxID("12345678000199"), RecipientTaxID: fiscal.MustTaxID("98765432100"),
		EmitterAddress: addr, RecipientAddress: addr,
	})
	require.NoError(t, err)
	for _, sku := range []string{"B-2", "A-1"} {
		taxes, err := fiscal.NewTaxAmounts(decimal.NewFromInt(10), decimal.NewFromInt(5), decimal.Zero, decimal.Zero)
		require.NoError(t, err)
		item, err := entity.NewLineItem(entity.LineItemParams{
			SKU: sku, Description: "Item " + sku, Quantity: 2, UnitPrice: decimal.RequireFromString("50.25"),
			CFOP: "5102", NCM: "94013000", CST: "000", Taxes: taxes,
		})
		require.NoError(t, err)
		require.NoError(t, inv.AddItem(item))
	}
	return inv
}

func TestInvoiceRepo_CicloCompleto(t *testing.T) {
	ctx := context.Background()
	uow := postgres.NewTxRunner(newPool(t))
	inv := newInvoice(t)

	_, err := inv.ComputeTotals()
	require.NoError(t, err)
	require.NoError(t, inv.MarkAuthorized(testKey, "135240000000001"))
	require.NoError(t, uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		return repo.Save(ctx, inv)
	}))

	require.NoError(t, inv.RecordCorrection("135240000000002"))
	require.NoError(t, uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		return repo.Save(ctx, inv)
	}))

	var got *entity.Invoice
	require.NoError(t, uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		got, err = repo.FindByAccessKey(ctx, testKey)
		return err
	}))
	assert.Equal(t, inv.ID(), got.ID())
	assert.Equal(t, entity.StatusAuthorized, got.Status())
	assert.Equal(t, "135240000000002", got.CorrectionProtocol())
	require.Len(t, got.Items(), 2)
	assert.Equal(t, "B-2", got.Items()[0].SKU(), "el orden de los ítems se conserva")
	require.NotNil(t, got.TaxTotals())
	assert.True(t, got.TaxTotals().Equal(*inv.TaxTotals()))
	grand, ok := got.GrandTotal()
	require.True(t, ok)
	assert.Equal(t, "231.00", grand.StringFixed(2))
	assert.WithinDuration(t, inv.IssuedAt(), got.IssuedAt(), time.Millisecond)
}

func TestInvoiceRepo_NoEncontrada(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewInvoiceRepository(newPool(t))

	_, err := repo.FindByAccessKey(ctx, testKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.FindByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTxRunner_RollbackSiFnFalla(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t)
	uow := postgres.NewTxRunner(pool)
	inv := newInvoice(t)

	boom := errors.New("boom")
	err := uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		require.NoError(t, repo.Save(ctx, inv))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := postgres.NewInvoiceRepository(pool).ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "la escritura se descarta")
}

func TestInvoiceRepo_ChaveDuplicada(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewInvoiceRepository(newPool(t))

	for n := 0; n < 2; n++ {
		inv := newInvoice(t)
		_, err := inv.ComputeTotals()
		require.NoError(t, err)
		require.NoError(t, inv.MarkAuthorized(testKey, "135240000000001"))
		err = repo.Save(ctx, inv)
		if n == 0 {
			require.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, domain.ErrConflict)
		}
	}

	list, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// Los máximos que acepta el dominio vuelven idénticos desde la base.
func TestInvoiceRepo_LimitesDelDominio(t *testing.T) {
	ctx := context.Background()
	uow := postgres.NewTxRunner(newPool(t))

	addr, err := fiscal.NewAddress(fiscal.AddressParams{
		Logradouro: "Av. Paulista", Numero: "1000", Municipio: "Sao Paulo", UF: "SP", CEP: "01310100",
	})
	require.NoError(t, err)
	inv, err := entity.NewInvoice(entity.InvoiceParams{
		EmitterTaxID: fiscal.MustTaxID("12345678000199"), RecipientTaxID: fiscal.MustTaxID("98765432100"),
		EmitterAddress: addr, RecipientAddress: addr,
	})
	require.NoError(t, err)
	taxes, err := fiscal.NewTaxAmounts(decimal.RequireFromString("10.01"), decimal.RequireFromString("9999999999999.99"),
		decimal.RequireFromString("0.07"), decimal.Zero)
	require.NoError(t, err)
	sku := strings.Repeat("S", entity.MaxSKULength)
	desc := strings.Repeat("ç", entity.MaxDescriptionLength)
	item, err := entity.NewLineItem(entity.LineItemParams{
		SKU: sku, Description: desc, Quantity: entity.MaxQuantity, UnitPrice: decimal.RequireFromString("12.3456"),
		CFOP: "5102", NCM: "94013000", CST: "000", Taxes: taxes,
	})
	require.NoError(t, err)
	require.NoError(t, inv.AddItem(item))
	_, err = inv.ComputeTotals()
	require.NoError(t, err)
	longProtocol := strings.Repeat("7", 40)
	require.NoError(t, inv.MarkAuthorized(testKey, longProtocol))

	require.NoError(t, uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		return repo.Save(ctx, inv)
	}))

	var got *entity.Invoice
	require.NoError(t, uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		got, err = repo.FindByID(ctx, inv.ID())
		return err
	}))
	assert.Equal(t, longProtocol, got.AuthorizationProtocol())
	require.Len(t, got.Items(), 1)
	gotItem := got.Items()[0]
	assert.Equal(t, sku, gotItem.SKU())
	assert.Equal(t, desc, gotItem.Description())
	assert.Equal(t, entity.MaxQuantity, gotItem.Quantity())
	assert.True(t, gotItem.UnitPrice().Equal(item.UnitPrice()))
	assert.True(t, gotItem.Taxes().Equal(taxes))
	assert.True(t, got.TaxTotals().Equal(*inv.TaxTotals()))
	wantGrand, _ := inv.GrandTotal()
	gotGrand, _ := got.GrandTotal()
	assert.True(t, wantGrand.Equal(gotGrand))
}
