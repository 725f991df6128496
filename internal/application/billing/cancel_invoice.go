package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

// CancelInvoiceUseCase registra el cancelamento de una NF-e autorizada.
type CancelInvoiceUseCase struct {
	port CancellationPort
}

// NewCancelInvoiceUseCase construye el caso de uso.
func NewCancelInvoiceUseCase(port CancellationPort) *CancelInvoiceUseCase {
	return &CancelInvoiceUseCase{port: port}
}

// Execute busca la nota por chave de acesso, exige que esté AUTHORIZED antes de
// llamar a la SEFAZ y sobrescribe solo estado y protocolo sobre la nota leída.
func (uc *CancelInvoiceUseCase) Execute(ctx context.Context, repo repository.InvoiceRepository, accessKey string) (*entity.Invoice, error) {
	inv, err := repo.FindByAccessKey(ctx, accessKey)
	if err != nil {
		return nil, err
	}
	if inv.Status() != entity.StatusAuthorized {
		return nil, fmt.Errorf("%w: solo las notas autorizadas pueden cancelarse (estado %s)", domain.ErrInvalidState, inv.Status())
	}

	decision, err := uc.port.Cancel(ctx, accessKey)
	if err != nil {
		return nil, asGatewayError("cancelar", err)
	}
	if decision.Status != entity.StatusCanceled && decision.Status != entity.StatusRejected {
		return nil, fmt.Errorf("%w: decisión de cancelamento desconocida %q", domain.ErrGateway, decision.Status)
	}
	if err := inv.ApplyCancellation(decision.Status, decision.Protocol); err != nil {
		return nil, err
	}

	if err := repo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
