package entity

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

// Límites de un ítem; coinciden con las columnas de invoice_items.
const (
	MaxSKULength         = 60
	MaxDescriptionLength = 120
	UnitPriceScale       = 4
	MaxQuantity          = math.MaxInt32
)

// LineItemParams datos de entrada de un ítem de la nota.
type LineItemParams struct {
	SKU         string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	CFOP        string // 4 dígitos
	NCM         string // 8 dígitos
	CST         string // 3 dígitos
	Taxes       fiscal.TaxAmounts
}

// LineItem línea de la NF-e. Inmutable; pertenece a una sola Invoice.
type LineItem struct {
	sku         string
	description string
	quantity    int
	unitPrice   decimal.Decimal
	cfop        string
	ncm         string
	cst         string
	taxes       fiscal.TaxAmounts
}

// NewLineItem valida cantidad, precio y códigos fiscales.
func NewLineItem(p LineItemParams) (LineItem, error) {
	sku := strings.TrimSpace(p.SKU)
	desc := strings.TrimSpace(p.Description)
	if sku == "" || desc == "" {
		return LineItem{}, fmt.Errorf("%w: sku y descripción son obligatorios", domain.ErrValidation)
	}
	if n := utf8.RuneCountInString(sku); n > MaxSKULength {
		return LineItem{}, fmt.Errorf("%w: sku admite hasta %d caracteres (recibidos %d)", domain.ErrValidation, MaxSKULength, n)
	}
	if n := utf8.RuneCountInString(desc); n > MaxDescriptionLength {
		return LineItem{}, fmt.Errorf("%w: descripción admite hasta %d caracteres (sku %s, recibidos %d)", domain.ErrValidation, MaxDescriptionLength, sku, n)
	}
	if p.Quantity <= 0 || p.Quantity > MaxQuantity {
		return LineItem{}, fmt.Errorf("%w: cantidad debe estar entre 1 y %d (sku %s)", domain.ErrValidation, MaxQuantity, sku)
	}
	if !p.UnitPrice.IsPositive() {
		return LineItem{}, fmt.Errorf("%w: precio unitario debe ser mayor a cero (sku %s)", domain.ErrValidation, sku)
	}
	if err := fiscal.CheckAmount("precio unitario", p.UnitPrice, UnitPriceScale, 11); err != nil {
		return LineItem{}, fmt.Errorf("%w (sku %s)", err, sku)
	}
	codes := []struct {
		name, value string
		size        int
	}{
		{"CFOP", p.CFOP, 4},
		{"NCM", p.NCM, 8},
		{"CST", p.CST, 3},
	}
	for _, c := range codes {
		if len(c.value) != c.size || nfe.OnlyDigits(c.value) != c.value {
			return LineItem{}, fmt.Errorf("%w: %s %q debe tener %d dígitos", domain.ErrValidation, c.name, c.value, c.size)
		}
	}
	return LineItem{
		sku:         sku,
		description: desc,
		quantity:    p.Quantity,
		unitPrice:   p.UnitPrice,
		cfop:        p.CFOP,
		ncm:         p.NCM,
		cst:         p.CST,
		taxes:       p.Taxes,
	}, nil
}

func (l LineItem) SKU() string                { return l.sku }
func (l LineItem) Description() string        { return l.description }
func (l LineItem) Quantity() int              { return l.quantity }
func (l LineItem) UnitPrice() decimal.Decimal { return l.unitPrice }
func (l LineItem) CFOP() string               { return l.cfop }
func (l LineItem) NCM() string                { return l.ncm }
func (l LineItem) CST() string                { return l.cst }
func (l LineItem) Taxes() fiscal.TaxAmounts   { return l.taxes }

// Total cantidad × precio unitario (sin impuestos).
func (l LineItem) Total() decimal.Decimal {
	return l.unitPrice.Mul(decimal.NewFromInt(int64(l.quantity)))
}

// Params datos para reconstruir el ítem.
func (l LineItem) Params() LineItemParams {
	return LineItemParams{
		SKU:         l.sku,
		Description: l.description,
		Quantity:    l.quantity,
		UnitPrice:   l.unitPrice,
		CFOP:        l.cfop,
		NCM:         l.ncm,
		CST:         l.cst,
		Taxes:       l.taxes,
	}
}
