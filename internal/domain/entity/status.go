package entity

import (
	"fmt"
	"strings"

	"github.com/jhoicas/nfe-api/internal/domain"
)

// Status estado de la NF-e en su ciclo de vida.
type Status string

const (
	StatusProcessing Status = "PROCESSING" // creada, aún no transmitida
	StatusAuthorized Status = "AUTHORIZED" // autorizada por la SEFAZ (chave + protocolo)
	StatusRejected   Status = "REJECTED"   // rechazada; estado terminal
	StatusCanceled   Status = "CANCELED"   // cancelada por evento 110111; estado terminal
)

// transitions tabla de transiciones permitidas. Nunca se vuelve a PROCESSING.
var transitions = map[Status][]Status{
	StatusProcessing: {StatusAuthorized, StatusRejected},
	StatusAuthorized: {StatusCanceled, StatusRejected},
}

// ParseStatus convierte el texto persistido en Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusProcessing, StatusAuthorized, StatusRejected, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: estado desconocido %q", domain.ErrValidation, s)
}

// CanTransitionTo indica si la tabla permite pasar de s a next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal REJECTED y CANCELED no admiten más transiciones.
func (s Status) IsTerminal() bool { return len(transitions[s]) == 0 }

func (s Status) String() string { return string(s) }
