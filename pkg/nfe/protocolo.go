package nfe

import (
	"fmt"
	"time"
)

// NewProtocolNumber genera un número de protocolo de 15 dígitos con el formato de la SEFAZ:
// tipo(1) + cUF(2) + AA(2) + secuencial(10). Lo usa el simulador del modo dev.
func NewProtocolNumber(uf string, at time.Time) (string, error) {
	cUF, ok := UFCode(uf)
	if !ok {
		return "", fmt.Errorf("nfe: UF inválida %q", uf)
	}
	seq := at.UnixNano() % 10_000_000_000
	if seq < 0 {
		seq = -seq
	}
	return fmt.Sprintf("1%s%s%010d", cUF, at.Format("06"), seq), nil
}
