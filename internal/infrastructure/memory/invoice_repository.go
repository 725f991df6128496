// Package memory implementa el repositorio de NF-e y la unidad de trabajo en memoria
// (STORAGE=memory y tests). Se guardan fotos (entity.InvoiceState), nunca punteros
// al agregado, para que los cambios no confirmados no se filtren.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo repositorio en memoria seguro para uso concurrente.
type InvoiceRepo struct {
	mu    sync.RWMutex
	byID  map[string]entity.InvoiceState
	byKey map[string]string // chave -> id
}

// NewInvoiceRepository crea el repositorio vacío.
func NewInvoiceRepository() *InvoiceRepo {
	return &InvoiceRepo{
		byID:  make(map[string]entity.InvoiceState),
		byKey: make(map[string]string),
	}
}

// Save inserta o sobrescribe por ID. Devuelve domain.ErrConflict si la chave ya
// pertenece a otra nota.
func (r *InvoiceRepo) Save(_ context.Context, invoice *entity.Invoice) error {
	st := invoice.State()
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner := r.keyOwner(st.AccessKey); owner != "" && owner != st.ID {
		return keyConflict(st.AccessKey)
	}
	r.put(st)
	return nil
}

// keyOwner ID de la nota confirmada con esa chave, o "". Requiere r.mu tomado.
func (r *InvoiceRepo) keyOwner(accessKey string) string {
	if accessKey == "" {
		return ""
	}
	return r.byKey[accessKey]
}

func keyConflict(accessKey string) error {
	return fmt.Errorf("%w: la chave %s ya pertenece a otra nota", domain.ErrConflict, accessKey)
}

func (r *InvoiceRepo) put(st entity.InvoiceState) {
	if prev, ok := r.byID[st.ID]; ok && prev.AccessKey != "" && prev.AccessKey != st.AccessKey {
		delete(r.byKey, prev.AccessKey)
	}
	r.byID[st.ID] = st
	if st.AccessKey != "" {
		r.byKey[st.AccessKey] = st.ID
	}
}

// FindByAccessKey devuelve domain.ErrNotFound si la chave no existe.
func (r *InvoiceRepo) FindByAccessKey(_ context.Context, accessKey string) (*entity.Invoice, error) {
	if accessKey == "" {
		return nil, domain.ErrNotFound
	}
	r.mu.RLock()
	id, ok := r.byKey[accessKey]
	st := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entity.RestoreInvoice(st)
}

// FindByID devuelve domain.ErrNotFound si el ID no existe.
func (r *InvoiceRepo) FindByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.RLock()
	st, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return entity.RestoreInvoice(st)
}

// ListAll devuelve todas las notas en orden de mapa (no determinístico).
func (r *InvoiceRepo) ListAll(_ context.Context) ([]*entity.Invoice, error) {
	r.mu.RLock()
	states := make([]entity.InvoiceState, 0, len(r.byID))
	for _, st := range r.byID {
		states = append(states, st)
	}
	r.mu.RUnlock()

	out := make([]*entity.Invoice, 0, len(states))
	for _, st := range states {
		inv, err := entity.RestoreInvoice(st)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
