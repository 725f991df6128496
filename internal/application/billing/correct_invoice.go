package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

// CorrectInvoiceUseCase registra una carta de corrección (CC-e) sobre una NF-e autorizada.
type CorrectInvoiceUseCase struct {
	port CorrectionPort
}

// NewCorrectInvoiceUseCase construye el caso de uso.
func NewCorrectInvoiceUseCase(port CorrectionPort) *CorrectInvoiceUseCase {
	return &CorrectInvoiceUseCase{port: port}
}

// Execute registra la corrección. El texto llega ya validado (1 a 500 caracteres);
// el estado de la nota no cambia.
func (uc *CorrectInvoiceUseCase) Execute(ctx context.Context, repo repository.InvoiceRepository, accessKey, text string) (*entity.Invoice, error) {
	inv, err := repo.FindByAccessKey(ctx, accessKey)
	if err != nil {
		return nil, err
	}
	if inv.Status() != entity.StatusAuthorized {
		return nil, fmt.Errorf("%w: solo las notas autorizadas pueden recibir carta de corrección", domain.ErrInvalidState)
	}

	decision, err := uc.port.Correct(ctx, accessKey, text)
	if err != nil {
		return nil, asGatewayError("carta de corrección", err)
	}
	if strings.TrimSpace(decision.Protocol) == "" {
		return nil, fmt.Errorf("%w: carta de corrección sin protocolo", domain.ErrGateway)
	}
	if err := inv.RecordCorrection(decision.Protocol); err != nil {
		return nil, err
	}

	if err := repo.Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
