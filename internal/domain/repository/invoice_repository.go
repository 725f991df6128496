package repository

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia de la NF-e.
type InvoiceRepository interface {
	// Save inserta o sobrescribe por ID; los ítems se reemplazan respetando el orden.
	Save(ctx context.Context, invoice *entity.Invoice) error
	// FindByAccessKey devuelve domain.ErrNotFound si no existe; nunca una nota vacía.
	FindByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error)
	FindByID(ctx context.Context, id string) (*entity.Invoice, error)
	// ListAll todas las notas, sin orden garantizado.
	ListAll(ctx context.Context) ([]*entity.Invoice, error)
}
