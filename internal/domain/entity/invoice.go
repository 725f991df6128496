package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

// InvoiceParams datos obligatorios para abrir una NF-e.
type InvoiceParams struct {
	EmitterTaxID     fiscal.TaxID
	RecipientTaxID   fiscal.TaxID
	EmitterAddress   fiscal.Address
	RecipientAddress fiscal.Address
}

// Invoice agregado raíz de la NF-e. Es dueño de sus ítems y aplica las reglas del
// ciclo de vida; nadie fuera del paquete modifica sus campos.
type Invoice struct {
	id                    string
	emitterTaxID          fiscal.TaxID
	recipientTaxID        fiscal.TaxID
	emitterAddress        fiscal.Address
	recipientAddress      fiscal.Address
	items                 []LineItem
	accessKey             string
	authorizationProtocol string
	correctionProtocol    string
	status                Status
	issuedAt              time.Time
	taxTotals             *fiscal.TaxAmounts
}

// Totals resultado de ComputeTotals.
type Totals struct {
	Taxes fiscal.TaxAmounts
	Items decimal.Decimal // suma de cantidad × precio
	Grand decimal.Decimal // Items + Taxes.Total()
}

// NewInvoice abre una nota en PROCESSING, sin ítems, con ID nuevo y fecha de emisión UTC.
func NewInvoice(p InvoiceParams) (*Invoice, error) {
	if p.EmitterTaxID.IsZero() || p.RecipientTaxID.IsZero() {
		return nil, fmt.Errorf("%w: emisor y destinatario son obligatorios", domain.ErrValidation)
	}
	if p.EmitterAddress.UF() == "" || p.RecipientAddress.UF() == "" {
		return nil, fmt.Errorf("%w: direcciones de emisor y destinatario son obligatorias", domain.ErrValidation)
	}
	return &Invoice{
		id:               uuid.New().String(),
		emitterTaxID:     p.EmitterTaxID,
		recipientTaxID:   p.RecipientTaxID,
		emitterAddress:   p.EmitterAddress,
		recipientAddress: p.RecipientAddress,
		status:           StatusProcessing,
		issuedAt:         time.Now().UTC(),
	}, nil
}

func (i *Invoice) ID() string                       { return i.id }
func (i *Invoice) EmitterTaxID() fiscal.TaxID       { return i.emitterTaxID }
func (i *Invoice) RecipientTaxID() fiscal.TaxID     { return i.recipientTaxID }
func (i *Invoice) EmitterAddress() fiscal.Address   { return i.emitterAddress }
func (i *Invoice) RecipientAddress() fiscal.Address { return i.recipientAddress }
func (i *Invoice) AccessKey() string                { return i.accessKey }
func (i *Invoice) AuthorizationProtocol() string    { return i.authorizationProtocol }
func (i *Invoice) CorrectionProtocol() string       { return i.correctionProtocol }
func (i *Invoice) Status() Status                   { return i.status }
func (i *Invoice) IssuedAt() time.Time              { return i.issuedAt }

// Items copia de los ítems en orden de inserción.
func (i *Invoice) Items() []LineItem {
	out := make([]LineItem, len(i.items))
	copy(out, i.items)
	return out
}

// TaxTotals impuestos agregados; nil hasta que la nota pase por emisión.
func (i *Invoice) TaxTotals() *fiscal.TaxAmounts {
	if i.taxTotals == nil {
		return nil
	}
	t := *i.taxTotals
	return &t
}

// AddItem agrega un ítem al final. Solo en PROCESSING.
func (i *Invoice) AddItem(item LineItem) error {
	if i.status != StatusProcessing {
		return fmt.Errorf("%w: no se pueden agregar ítems a una nota en %s", domain.ErrInvalidState, i.status)
	}
	if item.sku == "" {
		return fmt.Errorf("%w: ítem sin construir", domain.ErrValidation)
	}
	i.items = append(i.items, item)
	return nil
}

// ComputeTotals suma los impuestos de los ítems en orden de inserción, guarda el
// resultado en la nota y devuelve también el total de ítems y el total general.
func (i *Invoice) ComputeTotals() (Totals, error) {
	if len(i.items) == 0 {
		return Totals{}, domain.ErrNoItems
	}
	taxes := fiscal.ZeroTaxAmounts()
	for _, it := range i.items {
		taxes = taxes.Add(it.taxes)
	}
	// Los totales también tienen que caber en el almacenamiento antes de ir a la SEFAZ.
	if _, err := fiscal.NewTaxAmounts(taxes.ICMS(), taxes.IPI(), taxes.PIS(), taxes.COFINS()); err != nil {
		return Totals{}, fmt.Errorf("totales de la nota: %w", err)
	}
	i.taxTotals = &taxes
	items := i.ItemsTotal()
	return Totals{Taxes: taxes, Items: items, Grand: items.Add(taxes.Total())}, nil
}

// ItemsTotal suma de cantidad × precio de todos los ítems.
func (i *Invoice) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range i.items {
		sum = sum.Add(it.Total())
	}
	return sum
}

// GrandTotal ItemsTotal más impuestos; false si los impuestos aún no se calcularon.
func (i *Invoice) GrandTotal() (decimal.Decimal, bool) {
	if i.taxTotals == nil {
		return decimal.Zero, false
	}
	return i.ItemsTotal().Add(i.taxTotals.Total()), true
}

// MarkAuthorized aplica la autorización: chave de acesso y protocolo se asignan
// juntos y una sola vez.
func (i *Invoice) MarkAuthorized(accessKey, protocol string) error {
	if err := i.transition(StatusAuthorized); err != nil {
		return err
	}
	if i.accessKey != "" || i.authorizationProtocol != "" {
		return fmt.Errorf("%w: la nota ya tiene chave de acesso", domain.ErrInvalidState)
	}
	if err := nfe.ValidateAccessKey(accessKey); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	protocol = strings.TrimSpace(protocol)
	if protocol == "" {
		return fmt.Errorf("%w: protocolo de autorización vacío", domain.ErrValidation)
	}
	i.accessKey = accessKey
	i.authorizationProtocol = protocol
	i.status = StatusAuthorized
	return nil
}

// MarkRejected rechazo en la emisión: solo cambia el estado.
func (i *Invoice) MarkRejected() error {
	if err := i.transition(StatusRejected); err != nil {
		return err
	}
	i.status = StatusRejected
	return nil
}

// ApplyCancellation aplica la decisión del evento de cancelamento (CANCELED o
// REJECTED). El protocolo se sobrescribe solo si la decisión trae uno; ítems,
// totales y direcciones no se tocan.
func (i *Invoice) ApplyCancellation(status Status, protocol string) error {
	if i.status != StatusAuthorized {
		return fmt.Errorf("%w: solo las notas autorizadas pueden cancelarse (estado %s)", domain.ErrInvalidState, i.status)
	}
	if status != StatusCanceled && status != StatusRejected {
		return fmt.Errorf("%w: decisión de cancelamento inválida %q", domain.ErrValidation, status)
	}
	if err := i.transition(status); err != nil {
		return err
	}
	i.status = status
	if p := strings.TrimSpace(protocol); p != "" {
		i.authorizationProtocol = p
	}
	return nil
}

// RecordCorrection registra el protocolo de la carta de corrección. El estado no cambia.
func (i *Invoice) RecordCorrection(protocol string) error {
	if i.status != StatusAuthorized {
		return fmt.Errorf("%w: solo las notas autorizadas pueden recibir carta de corrección", domain.ErrInvalidState)
	}
	protocol = strings.TrimSpace(protocol)
	if protocol == "" {
		return fmt.Errorf("%w: protocolo de carta de corrección vacío", domain.ErrValidation)
	}
	i.correctionProtocol = protocol
	return nil
}

func (i *Invoice) transition(next Status) error {
	if !i.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: transición %s -> %s no permitida", domain.ErrInvalidState, i.status, next)
	}
	return nil
}
