package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
)

// addressRecord dirección tal como se guarda en las columnas JSONB.
type addressRecord struct {
	Logradouro  string `json:"logradouro"`
	Numero      string `json:"numero"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro,omitempty"`
	Municipio   string `json:"municipio"`
	UF          string `json:"uf"`
	CEP         string `json:"cep"`
}

func toAddressRecord(p fiscal.AddressParams) addressRecord {
	return addressRecord{
		Logradouro: p.Logradouro, Numero: p.Numero, Complemento: p.Complemento,
		Bairro: p.Bairro, Municipio: p.Municipio, UF: p.UF, CEP: p.CEP,
	}
}

func (a addressRecord) params() fiscal.AddressParams {
	return fiscal.AddressParams{
		Logradouro: a.Logradouro, Numero: a.Numero, Complemento: a.Complemento,
		Bairro: a.Bairro, Municipio: a.Municipio, UF: a.UF, CEP: a.CEP,
	}
}

// invoiceRecord fila de invoices. Las columnas opcionales son punteros o NullDecimal.
type invoiceRecord struct {
	ID                    string
	EmitterTaxID          string
	RecipientTaxID        string
	EmitterAddress        addressRecord
	RecipientAddress      addressRecord
	AccessKey             *string
	AuthorizationProtocol *string
	CorrectionProtocol    *string
	Status                string
	IssuedAt              time.Time
	ICMS                  decimal.NullDecimal
	IPI                   decimal.NullDecimal
	PIS                   decimal.NullDecimal
	COFINS                decimal.NullDecimal
}

// itemRecord fila de invoice_items.
type itemRecord struct {
	InvoiceID   string
	Position    int
	SKU         string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	CFOP        string
	NCM         string
	CST         string
	ICMS        decimal.Decimal
	IPI         decimal.Decimal
	PIS         decimal.Decimal
	COFINS      decimal.Decimal
}

// scanTargets orden de columnas de invoiceColumns.
func (r *invoiceRecord) scanTargets() []any {
	return []any{
		&r.ID, &r.EmitterTaxID, &r.RecipientTaxID, &r.EmitterAddress, &r.RecipientAddress,
		&r.AccessKey, &r.AuthorizationProtocol, &r.CorrectionProtocol, &r.Status, &r.IssuedAt,
		&r.ICMS, &r.IPI, &r.PIS, &r.COFINS,
	}
}

func (r *itemRecord) scanTargets() []any {
	return []any{
		&r.InvoiceID, &r.Position, &r.SKU, &r.Description, &r.Quantity, &r.UnitPrice,
		&r.CFOP, &r.NCM, &r.CST, &r.ICMS, &r.IPI, &r.PIS, &r.COFINS,
	}
}

// recordFromState Invoice → filas.
func recordFromState(s entity.InvoiceState) (invoiceRecord, []itemRecord) {
	rec := invoiceRecord{
		ID:                    s.ID,
		EmitterTaxID:          s.EmitterTaxID,
		RecipientTaxID:        s.RecipientTaxID,
		EmitterAddress:        toAddressRecord(s.EmitterAddress),
		RecipientAddress:      toAddressRecord(s.RecipientAddress),
		AccessKey:             nullIfEmpty(s.AccessKey),
		AuthorizationProtocol: nullIfEmpty(s.AuthorizationProtocol),
		CorrectionProtocol:    nullIfEmpty(s.CorrectionProtocol),
		Status:                s.Status,
		IssuedAt:              s.IssuedAt,
	}
	if t := s.TaxTotals; t != nil {
		rec.ICMS = decimal.NewNullDecimal(t.ICMS())
		rec.IPI = decimal.NewNullDecimal(t.IPI())
		rec.PIS = decimal.NewNullDecimal(t.PIS())
		rec.COFINS = decimal.NewNullDecimal(t.COFINS())
	}

	items := make([]itemRecord, len(s.Items))
	for n, it := range s.Items {
		items[n] = itemRecord{
			InvoiceID: s.ID, Position: n + 1,
			SKU: it.SKU, Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice,
			CFOP: it.CFOP, NCM: it.NCM, CST: it.CST,
			ICMS: it.Taxes.ICMS(), IPI: it.Taxes.IPI(), PIS: it.Taxes.PIS(), COFINS: it.Taxes.COFINS(),
		}
	}
	return rec, items
}

// toState filas → Invoice. items debe venir ordenado por position.
func (r invoiceRecord) toState(items []itemRecord) (entity.InvoiceState, error) {
	s := entity.InvoiceState{
		ID:                    r.ID,
		EmitterTaxID:          r.EmitterTaxID,
		RecipientTaxID:        r.RecipientTaxID,
		EmitterAddress:        r.EmitterAddress.params(),
		RecipientAddress:      r.RecipientAddress.params(),
		AccessKey:             derefStr(r.AccessKey),
		AuthorizationProtocol: derefStr(r.AuthorizationProtocol),
		CorrectionProtocol:    derefStr(r.CorrectionProtocol),
		Status:                r.Status,
		IssuedAt:              r.IssuedAt.UTC(),
		Items:                 make([]entity.LineItemParams, 0, len(items)),
	}
	if r.ICMS.Valid {
		totals, err := fiscal.NewTaxAmounts(r.ICMS.Decimal, r.IPI.Decimal, r.PIS.Decimal, r.COFINS.Decimal)
		if err != nil {
			return entity.InvoiceState{}, err
		}
		s.TaxTotals = &totals
	}
	for _, it := range items {
		taxes, err := fiscal.NewTaxAmounts(it.ICMS, it.IPI, it.PIS, it.COFINS)
		if err != nil {
			return entity.InvoiceState{}, err
		}
		s.Items = append(s.Items, entity.LineItemParams{
			SKU: it.SKU, Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice,
			CFOP: it.CFOP, NCM: it.NCM, CST: it.CST, Taxes: taxes,
		})
	}
	return s, nil
}
