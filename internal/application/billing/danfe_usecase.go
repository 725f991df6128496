package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

// DANFEUseCase genera el DANFE (PDF) de una NF-e que ya tiene chave de acesso.
type DANFEUseCase struct {
	uow       UnitOfWork
	generator DANFEGenerator
}

// NewDANFEUseCase construye el caso de uso.
func NewDANFEUseCase(uow UnitOfWork, generator DANFEGenerator) *DANFEUseCase {
	return &DANFEUseCase{uow: uow, generator: generator}
}

// Download devuelve el PDF y el nombre de archivo sugerido.
//
// Retorna:
//   - domain.ErrNotFound      si la chave no existe.
//   - domain.ErrInvalidState  si la nota no fue autorizada (sin chave no hay DANFE).
func (uc *DANFEUseCase) Download(ctx context.Context, accessKey string) (pdfBytes []byte, filename string, err error) {
	var inv *entity.Invoice
	err = uc.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		inv, err = repo.FindByAccessKey(ctx, accessKey)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	if inv.AccessKey() == "" {
		return nil, "", fmt.Errorf("%w: la nota está en estado %s y no tiene DANFE", domain.ErrInvalidState, inv.Status())
	}

	pdfBytes, err = uc.generator.Generate(ctx, inv)
	if err != nil {
		return nil, "", fmt.Errorf("danfe: generación fallida: %w", err)
	}
	return pdfBytes, fmt.Sprintf("NFe%s.pdf", inv.AccessKey()), nil
}
