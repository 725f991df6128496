package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ billing.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork serializa las unidades de trabajo y acumula las escrituras hasta
// que fn termina sin error; si fn falla se descartan.
type UnitOfWork struct {
	mu   sync.Mutex
	repo *InvoiceRepo
}

// NewUnitOfWork construye la unidad de trabajo sobre repo.
func NewUnitOfWork(repo *InvoiceRepo) *UnitOfWork {
	return &UnitOfWork{repo: repo}
}

// Run ejecuta fn con un repositorio que lee lo confirmado más lo pendiente.
func (u *UnitOfWork) Run(ctx context.Context, fn func(repo repository.InvoiceRepository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	tx := &txRepo{base: u.repo, pending: make(map[string]entity.InvoiceState)}
	if err := fn(tx); err != nil {
		return err
	}
	u.repo.mu.Lock()
	for _, id := range tx.order {
		u.repo.put(tx.pending[id])
	}
	u.repo.mu.Unlock()
	return nil
}

// txRepo repositorio ligado a una unidad de trabajo.
type txRepo struct {
	base    *InvoiceRepo
	pending map[string]entity.InvoiceState
	order   []string
}

func (t *txRepo) Save(_ context.Context, invoice *entity.Invoice) error {
	st := invoice.State()
	if st.AccessKey != "" {
		for id, p := range t.pending {
			if id != st.ID && p.AccessKey == st.AccessKey {
				return keyConflict(st.AccessKey)
			}
		}
		t.base.mu.RLock()
		owner := t.base.keyOwner(st.AccessKey)
		t.base.mu.RUnlock()
		// el dueño confirmado pudo cambiar de chave dentro de esta unidad
		if owner != "" && owner != st.ID {
			if p, shadowed := t.pending[owner]; !shadowed || p.AccessKey == st.AccessKey {
				return keyConflict(st.AccessKey)
			}
		}
	}
	if _, ok := t.pending[st.ID]; !ok {
		t.order = append(t.order, st.ID)
	}
	t.pending[st.ID] = st
	return nil
}

func (t *txRepo) FindByAccessKey(ctx context.Context, accessKey string) (*entity.Invoice, error) {
	if accessKey == "" {
		return nil, domain.ErrNotFound
	}
	for _, id := range t.order {
		if st := t.pending[id]; st.AccessKey == accessKey {
			return entity.RestoreInvoice(st)
		}
	}
	inv, err := t.base.FindByAccessKey(ctx, accessKey)
	if err != nil {
		return nil, err
	}
	// La nota confirmada pudo cambiar de chave dentro de esta unidad.
	if _, shadowed := t.pending[inv.ID()]; shadowed {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (t *txRepo) FindByID(ctx context.Context, id string) (*entity.Invoice, error) {
	if st, ok := t.pending[id]; ok {
		return entity.RestoreInvoice(st)
	}
	return t.base.FindByID(ctx, id)
}

func (t *txRepo) ListAll(ctx context.Context) ([]*entity.Invoice, error) {
	committed, err := t.base.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Invoice, 0, len(committed)+len(t.pending))
	for _, inv := range committed {
		if _, shadowed := t.pending[inv.ID()]; !shadowed {
			out = append(out, inv)
		}
	}
	for _, id := range t.order {
		inv, err := entity.RestoreInvoice(t.pending[id])
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}
