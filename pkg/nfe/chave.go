// Chave de acesso de la NF-e: 44 dígitos con dígito verificador módulo 11.
//
//	cUF(2) AAMM(4) CNPJ/CPF(14) mod(2) serie(3) nNF(9) tpEmis(1) cNF(8) cDV(1)

package nfe

import (
	"fmt"
	"strings"
	"time"
)

// AccessKeyLength longitud fija de la chave de acesso.
const AccessKeyLength = 44

// AccessKeyParams datos para componer la chave de acesso.
type AccessKeyParams struct {
	UF             string    // sigla de la UF del emisor (SP, RJ, ...)
	IssuedAt       time.Time // fecha de emisión (se usa AAMM)
	EmitterDoc     string    // CNPJ o CPF del emisor; se rellena con ceros a 14
	Modelo         string    // 55 por defecto
	Serie          int       // 0..999
	Numero         int       // nNF 1..999999999
	TpEmis         string    // 1 por defecto
	CodigoNumerico int       // cNF 0..99999999
}

// BuildAccessKey compone la chave de acesso y le agrega el dígito verificador.
func BuildAccessKey(p AccessKeyParams) (string, error) {
	cUF, ok := UFCode(strings.ToUpper(strings.TrimSpace(p.UF)))
	if !ok {
		return "", fmt.Errorf("nfe: UF inválida %q", p.UF)
	}
	doc := OnlyDigits(p.EmitterDoc)
	if len(doc) != 11 && len(doc) != 14 {
		return "", fmt.Errorf("nfe: documento del emisor debe tener 11 o 14 dígitos, se recibieron %d", len(doc))
	}
	if p.IssuedAt.IsZero() {
		return "", fmt.Errorf("nfe: fecha de emisión obligatoria")
	}
	if p.Serie < 0 || p.Serie > 999 {
		return "", fmt.Errorf("nfe: serie fuera de rango: %d", p.Serie)
	}
	if p.Numero < 1 || p.Numero > 999_999_999 {
		return "", fmt.Errorf("nfe: número fuera de rango: %d", p.Numero)
	}
	if p.CodigoNumerico < 0 || p.CodigoNumerico > 99_999_999 {
		return "", fmt.Errorf("nfe: código numérico fuera de rango: %d", p.CodigoNumerico)
	}
	modelo := p.Modelo
	if modelo == "" {
		modelo = ModeloNFe
	}
	tpEmis := p.TpEmis
	if tpEmis == "" {
		tpEmis = TpEmisNormal
	}

	base := cUF +
		p.IssuedAt.Format("0601") +
		fmt.Sprintf("%014s", doc) +
		modelo +
		fmt.Sprintf("%03d", p.Serie) +
		fmt.Sprintf("%09d", p.Numero) +
		tpEmis +
		fmt.Sprintf("%08d", p.CodigoNumerico)
	if len(base) != AccessKeyLength-1 {
		return "", fmt.Errorf("nfe: base de la chave con longitud %d", len(base))
	}
	return base + fmt.Sprint(CheckDigit(base)), nil
}

// ValidateAccessKey verifica longitud, que sean solo dígitos y el dígito verificador.
func ValidateAccessKey(key string) error {
	if len(key) != AccessKeyLength {
		return fmt.Errorf("nfe: la chave de acesso debe tener %d dígitos, se recibieron %d", AccessKeyLength, len(key))
	}
	if OnlyDigits(key) != key {
		return fmt.Errorf("nfe: la chave de acesso solo admite dígitos")
	}
	if want := CheckDigit(key[:AccessKeyLength-1]); int(key[AccessKeyLength-1]-'0') != want {
		return fmt.Errorf("nfe: dígito verificador inválido: esperado %d", want)
	}
	return nil
}

// CheckDigit calcula el DV módulo 11 con pesos 2..9 aplicados de derecha a izquierda.
func CheckDigit(digits string) int {
	sum, weight := 0, 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
