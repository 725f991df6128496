// Package fiscal agrupa los objetos de valor fiscales de la NF-e: documento
// (CPF/CNPJ), dirección y montos de impuestos. Son inmutables una vez construidos.
package fiscal

import (
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

// Tipos de documento.
const (
	KindCPF  = "CPF"
	KindCNPJ = "CNPJ"
)

// TaxID documento fiscal brasileño: CPF (11 dígitos) o CNPJ (14 dígitos).
type TaxID struct {
	value string
}

// NewTaxID quita la puntuación y valida la longitud.
func NewTaxID(raw string) (TaxID, error) {
	digits := nfe.OnlyDigits(raw)
	if len(digits) != 11 && len(digits) != 14 {
		return TaxID{}, fmt.Errorf("%w: documento %q debe tener 11 (CPF) o 14 (CNPJ) dígitos", domain.ErrValidation, raw)
	}
	return TaxID{value: digits}, nil
}

// MustTaxID igual que NewTaxID pero entra en pánico; solo para datos fijos y tests.
func MustTaxID(raw string) TaxID {
	id, err := NewTaxID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (t TaxID) String() string { return t.value }

// Kind devuelve CPF o CNPJ; vacío si el valor es cero.
func (t TaxID) Kind() string {
	switch len(t.value) {
	case 11:
		return KindCPF
	case 14:
		return KindCNPJ
	}
	return ""
}

// IsZero indica que el documento no fue construido.
func (t TaxID) IsZero() bool { return t.value == "" }
