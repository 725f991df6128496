package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
	"github.com/jhoicas/nfe-api/pkg/nfe"
)

// InvoiceState foto completa de la nota para los adaptadores de persistencia.
// State y RestoreInvoice son el único puente entre el agregado y el almacenamiento.
type InvoiceState struct {
	ID                    string
	EmitterTaxID          string
	RecipientTaxID        string
	EmitterAddress        fiscal.AddressParams
	RecipientAddress      fiscal.AddressParams
	Items                 []LineItemParams
	AccessKey             string
	AuthorizationProtocol string
	CorrectionProtocol    string
	Status                string
	IssuedAt              time.Time
	TaxTotals             *fiscal.TaxAmounts
}

// State exporta la nota.
func (i *Invoice) State() InvoiceState {
	items := make([]LineItemParams, len(i.items))
	for n, it := range i.items {
		items[n] = it.Params()
	}
	return InvoiceState{
		ID:                    i.id,
		EmitterTaxID:          i.emitterTaxID.String(),
		RecipientTaxID:        i.recipientTaxID.String(),
		EmitterAddress:        i.emitterAddress.Params(),
		RecipientAddress:      i.recipientAddress.Params(),
		Items:                 items,
		AccessKey:             i.accessKey,
		AuthorizationProtocol: i.authorizationProtocol,
		CorrectionProtocol:    i.correctionProtocol,
		Status:                i.status.String(),
		IssuedAt:              i.issuedAt,
		TaxTotals:             i.TaxTotals(),
	}
}

// RestoreInvoice reconstruye la nota desde almacenamiento, revalidando los objetos de valor.
func RestoreInvoice(s InvoiceState) (*Invoice, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("%w: nota sin ID", domain.ErrValidation)
	}
	status, err := ParseStatus(s.Status)
	if err != nil {
		return nil, err
	}
	emitter, err := fiscal.NewTaxID(s.EmitterTaxID)
	if err != nil {
		return nil, err
	}
	recipient, err := fiscal.NewTaxID(s.RecipientTaxID)
	if err != nil {
		return nil, err
	}
	emitterAddr, err := fiscal.NewAddress(s.EmitterAddress)
	if err != nil {
		return nil, err
	}
	recipientAddr, err := fiscal.NewAddress(s.RecipientAddress)
	if err != nil {
		return nil, err
	}
	items := make([]LineItem, 0, len(s.Items))
	for _, p := range s.Items {
		it, err := NewLineItem(p)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if s.AccessKey != "" {
		if err := nfe.ValidateAccessKey(s.AccessKey); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}
	var totals *fiscal.TaxAmounts
	if s.TaxTotals != nil {
		t := *s.TaxTotals
		totals = &t
	}
	return &Invoice{
		id:                    s.ID,
		emitterTaxID:          emitter,
		recipientTaxID:        recipient,
		emitterAddress:        emitterAddr,
		recipientAddress:      recipientAddr,
		items:                 items,
		accessKey:             s.AccessKey,
		authorizationProtocol: s.AuthorizationProtocol,
		correctionProtocol:    s.CorrectionProtocol,
		status:                status,
		issuedAt:              s.IssuedAt.UTC(),
		taxTotals:             totals,
	}, nil
}
