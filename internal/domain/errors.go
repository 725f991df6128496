package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrValidation   = errors.New("datos inválidos")
	ErrInvalidState = errors.New("operación no permitida en el estado actual de la nota")
	// ErrNoItems también satisface errors.Is(err, ErrInvalidState).
	ErrNoItems      = fmt.Errorf("%w: la nota no tiene ítems", ErrInvalidState)
	ErrGateway      = errors.New("falla en la comunicación con la SEFAZ")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
)
