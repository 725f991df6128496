package fiscal

import (
	"fmt"
	"strings"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

// AddressParams datos de entrada de una dirección.
type AddressParams struct {
	Logradouro  string
	Numero      string
	Municipio   string
	UF          string
	CEP         string
	Complemento string
	Bairro      string
}

// Address dirección postal del emisor o destinatario.
type Address struct {
	logradouro  string
	numero      string
	municipio   string
	uf          string
	cep         string
	complemento string
	bairro      string
}

// NewAddress normaliza CEP (8 dígitos) y UF (mayúsculas, una de las 27) y exige
// logradouro, número y municipio.
func NewAddress(p AddressParams) (Address, error) {
	a := Address{
		logradouro:  strings.TrimSpace(p.Logradouro),
		numero:      strings.TrimSpace(p.Numero),
		municipio:   strings.TrimSpace(p.Municipio),
		uf:          strings.ToUpper(strings.TrimSpace(p.UF)),
		cep:         nfe.OnlyDigits(p.CEP),
		complemento: strings.TrimSpace(p.Complemento),
		bairro:      strings.TrimSpace(p.Bairro),
	}
	if a.logradouro == "" || a.numero == "" || a.municipio == "" {
		return Address{}, fmt.Errorf("%w: logradouro, número y municipio son obligatorios", domain.ErrValidation)
	}
	if !nfe.IsValidUF(a.uf) {
		return Address{}, fmt.Errorf("%w: UF inválida %q", domain.ErrValidation, p.UF)
	}
	if len(a.cep) != 8 {
		return Address{}, fmt.Errorf("%w: CEP %q debe tener 8 dígitos", domain.ErrValidation, p.CEP)
	}
	return a, nil
}

func (a Address) Logradouro() string  { return a.logradouro }
func (a Address) Numero() string      { return a.numero }
func (a Address) Municipio() string   { return a.municipio }
func (a Address) UF() string          { return a.uf }
func (a Address) CEP() string         { return a.cep }
func (a Address) Complemento() string { return a.complemento }
func (a Address) Bairro() string      { return a.bairro }

// Params devuelve los datos para reconstruir la dirección (persistencia, DTOs).
func (a Address) Params() AddressParams {
	return AddressParams{
		Logradouro:  a.logradouro,
		Numero:      a.numero,
		Municipio:   a.municipio,
		UF:          a.uf,
		CEP:         a.cep,
		Complemento: a.complemento,
		Bairro:      a.bairro,
	}
}

// OneLine "Logradouro, 100 - Bairro, Municipio/UF CEP 01310-100" para el DANFE.
func (a Address) OneLine() string {
	var b strings.Builder
	b.WriteString(a.logradouro + ", " + a.numero)
	if a.complemento != "" {
		b.WriteString(" " + a.complemento)
	}
	if a.bairro != "" {
		b.WriteString(" - " + a.bairro)
	}
	cep := a.cep
	if len(cep) == 8 {
		cep = cep[:5] + "-" + cep[5:]
	}
	fmt.Fprintf(&b, ", %s/%s CEP %s", a.municipio, a.uf, cep)
	return b.String()
}
