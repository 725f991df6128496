package billing

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

// EmissionDecision respuesta de la SEFAZ a la autorización de una NF-e.
// AccessKey y Protocol solo vienen cuando Status es AUTHORIZED.
type EmissionDecision struct {
	Status    entity.Status
	AccessKey string
	Protocol  string
	Code      int    // cStat
	Reason    string // xMotivo
}

// CancellationDecision respuesta al evento de cancelamento (CANCELED o REJECTED).
type CancellationDecision struct {
	Status   entity.Status
	Protocol string // opcional
	Code     int
	Reason   string
}

// CorrectionDecision respuesta a la carta de corrección registrada.
type CorrectionDecision struct {
	Protocol string
}

// EmissionPort firma y transmite la NF-e. Las fallas de transporte o respuestas
// irreconocibles se devuelven como error (domain.ErrGateway); un rechazo es una decisión.
type EmissionPort interface {
	Emit(ctx context.Context, invoice *entity.Invoice) (EmissionDecision, error)
}

// CancellationPort registra el evento de cancelamento.
type CancellationPort interface {
	Cancel(ctx context.Context, accessKey string) (CancellationDecision, error)
}

// CorrectionPort registra la carta de corrección (CC-e).
type CorrectionPort interface {
	Correct(ctx context.Context, accessKey, text string) (CorrectionDecision, error)
}

// UnitOfWork entrega a fn un repositorio ligado a una unidad de trabajo y la
// libera en todos los caminos de salida: confirma si fn devuelve nil, descarta si no.
// El repositorio no debe usarse fuera de fn.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(repo repository.InvoiceRepository) error) error
}

// IdempotencyStore reserva claves de idempotencia para la emisión.
//
// Reserve devuelve ("", nil) si la clave quedó reservada para este llamado, el ID
// de la nota si la clave ya fue completada, o domain.ErrConflict si otro llamado
// la tiene reservada.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (invoiceID string, err error)
	Complete(ctx context.Context, key, invoiceID string) error
	Release(ctx context.Context, key string) error
}

// DANFEGenerator genera el DANFE (representación impresa de la NF-e) en PDF.
type DANFEGenerator interface {
	Generate(ctx context.Context, invoice *entity.Invoice) ([]byte, error)
}
