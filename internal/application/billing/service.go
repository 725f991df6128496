package billing

import (
	"context"
	"sort"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

// InvoiceService fachada de la aplicación: abre una unidad de trabajo por llamada,
// ejecuta el caso de uso dentro de ella y aplica idempotencia a la emisión.
type InvoiceService struct {
	uow     UnitOfWork
	emit    *EmitInvoiceUseCase
	cancel  *CancelInvoiceUseCase
	correct *CorrectInvoiceUseCase
	idem    IdempotencyStore // nil = sin idempotencia
	log     *logger.Logger
}

// NewInvoiceService construye la fachada. idem puede ser nil.
func NewInvoiceService(
	uow UnitOfWork,
	emission EmissionPort,
	cancellation CancellationPort,
	correction CorrectionPort,
	idem IdempotencyStore,
	log *logger.Logger,
) *InvoiceService {
	return &InvoiceService{
		uow:     uow,
		emit:    NewEmitInvoiceUseCase(emission),
		cancel:  NewCancelInvoiceUseCase(cancellation),
		correct: NewCorrectInvoiceUseCase(correction),
		idem:    idem,
		log:     log,
	}
}

// Emit arma la nota desde la solicitud y la emite.
//
// Con idempotencyKey: si la clave ya fue completada devuelve la nota guardada sin
// volver a llamar a la SEFAZ; si está en curso devuelve domain.ErrConflict; si la
// emisión falla la reserva se libera para permitir el reintento.
func (s *InvoiceService) Emit(ctx context.Context, req dto.EmitInvoiceRequest, idempotencyKey string) (*dto.InvoiceResponse, error) {
	inv, err := invoiceFromRequest(req)
	if err != nil {
		return nil, err
	}

	reserved := false
	if idempotencyKey != "" && s.idem != nil {
		existingID, err := s.idem.Reserve(ctx, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if existingID != "" {
			s.log.Info().Str("idempotency_key", idempotencyKey).Str("invoice_id", existingID).Msg("emisión repetida, se devuelve la nota existente")
			return s.findByID(ctx, existingID)
		}
		reserved = true
	}

	var out *entity.Invoice
	err = s.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		out, err = s.emit.Execute(ctx, repo, inv)
		return err
	})
	if err != nil {
		if reserved {
			if rerr := s.idem.Release(context.WithoutCancel(ctx), idempotencyKey); rerr != nil {
				s.log.Warn().Err(rerr).Str("idempotency_key", idempotencyKey).Msg("no se pudo liberar la clave de idempotencia")
			}
		}
		s.log.Error().Err(err).Str("invoice_id", inv.ID()).Msg("emisión fallida")
		return nil, err
	}
	if reserved {
		if cerr := s.idem.Complete(context.WithoutCancel(ctx), idempotencyKey, out.ID()); cerr != nil {
			s.log.Warn().Err(cerr).Str("idempotency_key", idempotencyKey).Msg("no se pudo completar la clave de idempotencia")
		}
	}

	s.log.Info().
		Str("invoice_id", out.ID()).
		Str("status", out.Status().String()).
		Str("chave", out.AccessKey()).
		Msg("nota emitida")
	return ToInvoiceResponse(out), nil
}

// Cancel registra el cancelamento de la nota identificada por la chave de acesso.
func (s *InvoiceService) Cancel(ctx context.Context, accessKey string) (*dto.InvoiceResponse, error) {
	var out *entity.Invoice
	err := s.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		out, err = s.cancel.Execute(ctx, repo, accessKey)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("chave", accessKey).Msg("cancelamento fallido")
		return nil, err
	}
	s.log.Info().Str("chave", accessKey).Str("status", out.Status().String()).Msg("cancelamento procesado")
	return ToInvoiceResponse(out), nil
}

// Correct registra una carta de corrección.
func (s *InvoiceService) Correct(ctx context.Context, accessKey string, req dto.CorrectionRequest) (*dto.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out *entity.Invoice
	err := s.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		out, err = s.correct.Execute(ctx, repo, accessKey, req.Text)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("chave", accessKey).Msg("carta de corrección fallida")
		return nil, err
	}
	s.log.Info().Str("chave", accessKey).Str("protocolo_cce", out.CorrectionProtocol()).Msg("carta de corrección registrada")
	return ToInvoiceResponse(out), nil
}

// GetByAccessKey consulta una nota por chave de acesso.
func (s *InvoiceService) GetByAccessKey(ctx context.Context, accessKey string) (*dto.InvoiceResponse, error) {
	var out *entity.Invoice
	err := s.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		out, err = repo.FindByAccessKey(ctx, accessKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(out), nil
}

// List pagina todas las notas, las más recientes primero.
func (s *InvoiceService) List(ctx context.Context, page dto.PageRequest) (*dto.InvoiceListResponse, error) {
	page.DefaultPage()
	var all []*entity.Invoice
	err := s.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		all, err = repo.ListAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	// El repositorio no garantiza orden; se ordena para que la paginación sea estable.
	sort.Slice(all, func(i, j int) bool {
		if all[i].IssuedAt().Equal(all[j].IssuedAt()) {
			return all[i].ID() < all[j].ID()
		}
		return all[i].IssuedAt().After(all[j].IssuedAt())
	})

	resp := &dto.InvoiceListResponse{
		Items: []dto.InvoiceResponse{},
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(all)},
	}
	if page.Offset >= len(all) {
		return resp, nil
	}
	end := min(page.Offset+page.Limit, len(all))
	for _, inv := range all[page.Offset:end] {
		resp.Items = append(resp.Items, *ToInvoiceResponse(inv))
	}
	return resp, nil
}

func (s *InvoiceService) findByID(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	var out *entity.Invoice
	err := s.uow.Run(ctx, func(repo repository.InvoiceRepository) error {
		var err error
		out, err = repo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ToInvoiceResponse(out), nil
}
