package fiscal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain"
)

// TaxAmounts montos de ICMS, IPI, PIS y COFINS de un ítem o de la nota.
type TaxAmounts struct {
	icms   decimal.Decimal
	ipi    decimal.Decimal
	pis    decimal.Decimal
	cofins decimal.Decimal
}

// Escala y magnitud que admite el almacenamiento (NUMERIC(15,2)).
const (
	TaxScale     = 2
	taxIntDigits = 13
)

// NewTaxAmounts rechaza montos negativos, con más de dos decimales o fuera de rango.
func NewTaxAmounts(icms, ipi, pis, cofins decimal.Decimal) (TaxAmounts, error) {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"icms", icms},
		{"ipi", ipi},
		{"pis", pis},
		{"cofins", cofins},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return TaxAmounts{}, fmt.Errorf("%w: %s no puede ser negativo (%s)", domain.ErrValidation, f.name, f.value.String())
		}
		if err := CheckAmount(f.name, f.value, TaxScale, taxIntDigits); err != nil {
			return TaxAmounts{}, err
		}
	}
	return TaxAmounts{icms: icms, ipi: ipi, pis: pis, cofins: cofins}, nil
}

// CheckAmount exige a lo sumo scale decimales significativos y menos de intDigits
// dígitos enteros.
func CheckAmount(name string, v decimal.Decimal, scale int32, intDigits int32) error {
	if !v.Equal(v.Round(scale)) {
		return fmt.Errorf("%w: %s admite hasta %d decimales (%s)", domain.ErrValidation, name, scale, v.String())
	}
	if v.Abs().GreaterThanOrEqual(decimal.New(1, intDigits)) {
		return fmt.Errorf("%w: %s fuera de rango (%s)", domain.ErrValidation, name, v.String())
	}
	return nil
}

// ZeroTaxAmounts todos los impuestos en cero.
func ZeroTaxAmounts() TaxAmounts {
	return TaxAmounts{icms: decimal.Zero, ipi: decimal.Zero, pis: decimal.Zero, cofins: decimal.Zero}
}

func (t TaxAmounts) ICMS() decimal.Decimal   { return t.icms }
func (t TaxAmounts) IPI() decimal.Decimal    { return t.ipi }
func (t TaxAmounts) PIS() decimal.Decimal    { return t.pis }
func (t TaxAmounts) COFINS() decimal.Decimal { return t.cofins }

// Total suma de los cuatro impuestos.
func (t TaxAmounts) Total() decimal.Decimal {
	return t.icms.Add(t.ipi).Add(t.pis).Add(t.cofins)
}

// Add suma campo a campo y devuelve un valor nuevo.
func (t TaxAmounts) Add(o TaxAmounts) TaxAmounts {
	return TaxAmounts{
		icms:   t.icms.Add(o.icms),
		ipi:    t.ipi.Add(o.ipi),
		pis:    t.pis.Add(o.pis),
		cofins: t.cofins.Add(o.cofins),
	}
}

// Equal compara por valor numérico (1.0 == 1.00).
func (t TaxAmounts) Equal(o TaxAmounts) bool {
	return t.icms.Equal(o.icms) && t.ipi.Equal(o.ipi) && t.pis.Equal(o.pis) && t.cofins.Equal(o.cofins)
}
