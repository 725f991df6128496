package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const invoiceColumns = `
	id, emitter_tax_id, recipient_tax_id, emitter_address, recipient_address,
	access_key, authorization_protocol, correction_protocol, status, issued_at,
	icms, ipi, pis, cofins`

const itemColumns = `
	invoice_id, position, sku, description, quantity, unit_price,
	cfop, ncm, cst, icms, ipi, pis, cofins`

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Save inserta o actualiza la cabecera por id y reemplaza las líneas en orden.
// Sin transacción externa las dos escrituras no son atómicas; usar TxRunner.
func (r *InvoiceRepo) Save(ctx context.Context, inv *entity.Invoice) error {
	rec, items := recordFromState(inv.State())

	query := `
		INSERT INTO invoices (` + invoiceColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT (id) DO UPDATE
		SET emitter_tax_id         = EXCLUDED.emitter_tax_id,
		    recipient_tax_id       = EXCLUDED.recipient_tax_id,
		    emitter_address        = EXCLUDED.emitter_address,
		    recipient_address      = EXCLUDED.recipient_address,
		    access_key             = EXCLUDED.access_key,
		    authorization_protocol = EXCLUDED.authorization_protocol,
		    correction_protocol    = EXCLUDED.correction_protocol,
		    status                 = EXCLUDED.status,
		    icms                   = EXCLUDED.icms,
		    ipi                    = EXCLUDED.ipi,
		    pis                    = EXCLUDED.pis,
		    cofins                 = EXCLUDED.cofins,
		    updated_at             = now()`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.EmitterTaxID, rec.RecipientTaxID, rec.EmitterAddress, rec.RecipientAddress,
		rec.AccessKey, rec.AuthorizationProtocol, rec.CorrectionProtocol, rec.Status, rec.IssuedAt,
		rec.ICMS, rec.IPI, rec.PIS, rec.COFINS,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: la chave %s ya pertenece a otra nota", domain.ErrConflict, derefStr(rec.AccessKey))
		}
		return fmt.Errorf("upsert invoice: %w", err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("delete invoice items: %w", err)
	}
	for _, it := range items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO invoice_items (`+itemColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			it.InvoiceID, it.Position, it.SKU, it.Description, it.Quantity, it.UnitPrice,
			it.CFOP, it.NCM, it.CST, it.ICMS, it.IPI, it.PIS, it.COFINS,
		)
		if err != nil {
			return fmt.Errorf("insert invoice item %d: %w", it.Position, err)
		}
	}
	return nil
}

// FindByAccessKey busca por chave de acesso. domain.ErrNotFound si no existe.
func (r *InvoiceRepo) FindByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	return r.findOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE access_key = $1`, accessKey)
}

// FindByID busca por ID. domain.ErrNotFound si no existe.
func (r *InvoiceRepo) FindByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.findOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// ListAll devuelve todas las notas, más recientes primero.
func (r *InvoiceRepo) ListAll(ctx context.Context) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY issued_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var recs []invoiceRecord
	for rows.Next() {
		var rec invoiceRecord
		if err := rows.Scan(rec.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	items, err := r.loadItems(ctx, `SELECT `+itemColumns+` FROM invoice_items ORDER BY invoice_id, position`)
	if err != nil {
		return nil, err
	}
	list := make([]*entity.Invoice, 0, len(recs))
	for _, rec := range recs {
		inv, err := restore(rec, items[rec.ID])
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, nil
}

func (r *InvoiceRepo) findOne(ctx context.Context, query string, arg string) (*entity.Invoice, error) {
	var rec invoiceRecord
	err := r.q.QueryRow(ctx, query, arg).Scan(rec.scanTargets()...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: nota %s", domain.ErrNotFound, arg)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	items, err := r.loadItems(ctx,
		`SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, rec.ID)
	if err != nil {
		return nil, err
	}
	return restore(rec, items[rec.ID])
}

// loadItems agrupa las líneas por invoice_id conservando el orden de la consulta.
func (r *InvoiceRepo) loadItems(ctx context.Context, query string, args ...any) (map[string][]itemRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}
	defer rows.Close()
	byInvoice := make(map[string][]itemRecord)
	for rows.Next() {
		var it itemRecord
		if err := rows.Scan(it.scanTargets()...); err != nil {
			return nil, fmt.Errorf("scan invoice item: %w", err)
		}
		byInvoice[it.InvoiceID] = append(byInvoice[it.InvoiceID], it)
	}
	return byInvoice, rows.Err()
}

func restore(rec invoiceRecord, items []itemRecord) (*entity.Invoice, error) {
	state, err := rec.toState(items)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", rec.ID, err)
	}
	inv, err := entity.RestoreInvoice(state)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", rec.ID, err)
	}
	return inv, nil
}
