package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

// EmitInvoiceUseCase calcula totales, pide autorización a la SEFAZ y persiste el resultado.
type EmitInvoiceUseCase struct {
	port EmissionPort
}

// NewEmitInvoiceUseCase construye el caso de uso.
func NewEmitInvoiceUseCase(port EmissionPort) *EmitInvoiceUseCase {
	return &EmitInvoiceUseCase{port: port}
}

// Execute emite la nota. La nota debe estar en PROCESSING con al menos un ítem.
// AUTHORIZED y REJECTED se persisten; si la SEFAZ falla no se guarda nada y la
// nota sigue en PROCESSING para que el llamador reintente desde cero.
// El caso de uso es el único que modifica inv durante la llamada.
func (uc *EmitInvoiceUseCase) Execute(ctx context.Context, repo repository.InvoiceRepository, inv *entity.Invoice) (*entity.Invoice, error) {
	if inv.Status() != entity.StatusProcessing {
		return nil, fmt.Errorf("%w: la nota %s ya fue emitida (%s)", domain.ErrInvalidState, inv.ID(), inv.Status())
	}
	if _, err := inv.ComputeTotals(); err != nil {
		return nil, err
	}

	decision, err := uc.port.Emit(ctx, inv)
	if err != nil {
		return nil, asGatewayError("emitir", err)
	}

	switch decision.Status {
	case entity.StatusAuthorized:
		if err := inv.MarkAuthorized(decision.AccessKey, decision.Protocol); err != nil {
			return nil, fmt.Errorf("%w: autorización malformada: %v", domain.ErrGateway, err)
		}
	case entity.StatusRejected:
		if err := inv.MarkRejected(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: decisión de emisión desconocida %q", domain.ErrGateway, decision.Status)
	}

	if err := repo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// asGatewayError garantiza que la falla del puerto se pueda identificar con domain.ErrGateway.
func asGatewayError(op string, err error) error {
	if errors.Is(err, domain.ErrGateway) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrGateway, op, err)
}
