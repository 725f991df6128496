package billing

import (
	"time"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/fiscal"
)

// invoiceFromRequest arma el agregado desde la solicitud; los errores de los
// objetos de valor salen como domain.ErrValidation.
func invoiceFromRequest(req dto.EmitInvoiceRequest) (*entity.Invoice, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	emitter, err := fiscal.NewTaxID(req.EmitterTaxID)
	if err != nil {
		return nil, err
	}
	recipient, err := fiscal.NewTaxID(req.RecipientTaxID)
	if err != nil {
		return nil, err
	}
	emitterAddr, err := fiscal.NewAddress(addressParams(req.EmitterAddress))
	if err != nil {
		return nil, err
	}
	recipientAddr, err := fiscal.NewAddress(addressParams(req.RecipientAddress))
	if err != nil {
		return nil, err
	}
	inv, err := entity.NewInvoice(entity.InvoiceParams{
		EmitterTaxID:     emitter,
		RecipientTaxID:   recipient,
		EmitterAddress:   emitterAddr,
		RecipientAddress: recipientAddr,
	})
	if err != nil {
		return nil, err
	}
	for _, it := range req.Items {
		taxes, err := fiscal.NewTaxAmounts(it.Taxes.ICMS, it.Taxes.IPI, it.Taxes.PIS, it.Taxes.COFINS)
		if err != nil {
			return nil, err
		}
		item, err := entity.NewLineItem(entity.LineItemParams{
			SKU:         it.SKU,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			CFOP:        it.CFOP,
			NCM:         it.NCM,
			CST:         it.CST,
			Taxes:       taxes,
		})
		if err != nil {
			return nil, err
		}
		if err := inv.AddItem(item); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

func addressParams(a dto.AddressDTO) fiscal.AddressParams {
	return fiscal.AddressParams{
		Logradouro:  a.Logradouro,
		Numero:      a.Numero,
		Municipio:   a.Municipio,
		UF:          a.UF,
		CEP:         a.CEP,
		Complemento: a.Complemento,
		Bairro:      a.Bairro,
	}
}

func addressDTO(a fiscal.Address) dto.AddressDTO {
	return dto.AddressDTO{
		Logradouro:  a.Logradouro(),
		Numero:      a.Numero(),
		Municipio:   a.Municipio(),
		UF:          a.UF(),
		CEP:         a.CEP(),
		Complemento: a.Complemento(),
		Bairro:      a.Bairro(),
	}
}

func taxesDTO(t fiscal.TaxAmounts) dto.TaxAmountsDTO {
	return dto.TaxAmountsDTO{ICMS: t.ICMS(), IPI: t.IPI(), PIS: t.PIS(), COFINS: t.COFINS()}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToInvoiceResponse convierte el agregado en la respuesta HTTP.
func ToInvoiceResponse(inv *entity.Invoice) *dto.InvoiceResponse {
	items := inv.Items()
	out := &dto.InvoiceResponse{
		ID:                    inv.ID(),
		AccessKey:             optional(inv.AccessKey()),
		Status:                inv.Status().String(),
		IssuedAt:              inv.IssuedAt().UTC().Format(time.RFC3339),
		AuthorizationProtocol: optional(inv.AuthorizationProtocol()),
		CorrectionProtocol:    optional(inv.CorrectionProtocol()),
		EmitterTaxID:          inv.EmitterTaxID().String(),
		RecipientTaxID:        inv.RecipientTaxID().String(),
		EmitterAddress:        addressDTO(inv.EmitterAddress()),
		RecipientAddress:      addressDTO(inv.RecipientAddress()),
		ItemsTotal:            inv.ItemsTotal(),
		Items:                 make([]dto.InvoiceItemResponse, 0, len(items)),
	}
	if t := inv.TaxTotals(); t != nil {
		td := taxesDTO(*t)
		out.TaxTotals = &td
	}
	if grand, ok := inv.GrandTotal(); ok {
		out.GrandTotal = &grand
	}
	for _, it := range items {
		out.Items = append(out.Items, dto.InvoiceItemResponse{
			SKU:         it.SKU(),
			Description: it.Description(),
			Quantity:    it.Quantity(),
			UnitPrice:   it.UnitPrice(),
			CFOP:        it.CFOP(),
			NCM:         it.NCM(),
			CST:         it.CST(),
			Taxes:       taxesDTO(it.Taxes()),
			Total:       it.Total(),
		})
	}
	return out
}
