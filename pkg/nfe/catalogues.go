// Package nfe: catálogos y reglas de la Nota Fiscal Eletrônica (NF-e, Brasil) usados
// por el dominio y por el adaptador SEFAZ (Manual de Orientação do Contribuinte).
package nfe

// Modelo de documento fiscal.
const (
	ModeloNFe  = "55" // NF-e
	ModeloNFCe = "65" // NFC-e (no emitido por este servicio)
)

// Tipos de emisión (tpEmis).
const (
	TpEmisNormal = "1"
)

// Tipos de evento registrados ante la SEFAZ.
const (
	EventoCancelamento  = "110111"
	EventoCartaCorrecao = "110110"
)

// Códigos cStat relevantes devueltos por la SEFAZ.
const (
	CStatAutorizado             = 100 // Autorizado o uso da NF-e
	CStatCancelamentoHomologado = 101
	CStatDenegado               = 110
	CStatEventoRegistrado       = 135 // Evento registrado e vinculado a NF-e
	CStatCancelamentoForaPrazo  = 155
	CStatDuplicidade            = 204
)

// ufCodes códigos IBGE de las 27 unidades federativas.
var ufCodes = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27", "SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// IsValidUF indica si uf (ya en mayúsculas) es una de las 27 UF brasileñas.
func IsValidUF(uf string) bool {
	_, ok := ufCodes[uf]
	return ok
}

// UFCode devuelve el código IBGE de la UF (ej: "SP" → "35").
func UFCode(uf string) (string, bool) {
	code, ok := ufCodes[uf]
	return code, ok
}
