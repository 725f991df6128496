package dto

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain"
)

// MaxCorrectionLength límite de xCorrecao aceptado por la SEFAZ.
const MaxCorrectionLength = 500

// AddressDTO dirección de emitente o destinatário.
type AddressDTO struct {
	Logradouro  string `json:"logradouro"`
	Numero      string `json:"numero"`
	Municipio   string `json:"municipio"`
	UF          string `json:"uf"`
	CEP         string `json:"cep"`
	Complemento string `json:"complemento,omitempty"`
	Bairro      string `json:"bairro,omitempty"`
}

// TaxAmountsDTO mapa de impuestos de un ítem o de la nota.
type TaxAmountsDTO struct {
	ICMS   decimal.Decimal `json:"icms"`
	IPI    decimal.Decimal `json:"ipi"`
	PIS    decimal.Decimal `json:"pis"`
	COFINS decimal.Decimal `json:"cofins"`
}

// InvoiceItemRequest línea de la NF-e en la solicitud.
type InvoiceItemRequest struct {
	SKU         string          `json:"sku"`
	Description string          `json:"descricao"`
	Quantity    int             `json:"quantidade"`
	UnitPrice   decimal.Decimal `json:"valor_unitario"`
	CFOP        string          `json:"cfop"`
	NCM         string          `json:"ncm"`
	CST         string          `json:"cst"`
	Taxes       TaxAmountsDTO   `json:"impostos"`
}

// EmitInvoiceRequest body para POST /api/invoices.
type EmitInvoiceRequest struct {
	EmitterTaxID     string               `json:"emitente_cnpj"`
	RecipientTaxID   string               `json:"destinatario_cnpj"`
	EmitterAddress   AddressDTO           `json:"emitente_endereco"`
	RecipientAddress AddressDTO           `json:"destinatario_endereco"`
	Items            []InvoiceItemRequest `json:"itens"`
}

// Validate controles de forma; las reglas fiscales las aplican los objetos de valor.
func (r EmitInvoiceRequest) Validate() error {
	if strings.TrimSpace(r.EmitterTaxID) == "" || strings.TrimSpace(r.RecipientTaxID) == "" {
		return fmt.Errorf("%w: emitente_cnpj y destinatario_cnpj son obligatorios", domain.ErrValidation)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: la nota debe tener al menos un ítem", domain.ErrValidation)
	}
	return nil
}

// CorrectionRequest body para POST /api/invoices/:key/correction.
type CorrectionRequest struct {
	Text string `json:"texto_correcao"`
}

// Validate exige entre 1 y 500 caracteres.
func (r CorrectionRequest) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(r.Text))
	if n == 0 || n > MaxCorrectionLength {
		return fmt.Errorf("%w: texto_correcao debe tener entre 1 y %d caracteres (recibidos %d)", domain.ErrValidation, MaxCorrectionLength, n)
	}
	return nil
}

// InvoiceItemResponse línea con su total calculado.
type InvoiceItemResponse struct {
	SKU         string          `json:"sku"`
	Description string          `json:"descricao"`
	Quantity    int             `json:"quantidade"`
	UnitPrice   decimal.Decimal `json:"valor_unitario"`
	CFOP        string          `json:"cfop"`
	NCM         string          `json:"ncm"`
	CST         string          `json:"cst"`
	Taxes       TaxAmountsDTO   `json:"impostos"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceResponse NF-e completa. Los campos puntero van null mientras no existan.
type InvoiceResponse struct {
	ID                    string                `json:"id"`
	AccessKey             *string               `json:"chave_acesso"`
	Status                string                `json:"status"`
	IssuedAt              string                `json:"data_emissao"` // RFC3339 UTC
	AuthorizationProtocol *string               `json:"protocolo_autorizacao"`
	CorrectionProtocol    *string               `json:"protocolo_cce"`
	EmitterTaxID          string                `json:"emitente_cnpj"`
	RecipientTaxID        string                `json:"destinatario_cnpj"`
	EmitterAddress        AddressDTO            `json:"emitente_endereco"`
	RecipientAddress      AddressDTO            `json:"destinatario_endereco"`
	TaxTotals             *TaxAmountsDTO        `json:"impostos_totais"`
	ItemsTotal            decimal.Decimal       `json:"valor_itens"`
	GrandTotal            *decimal.Decimal      `json:"valor_total"`
	Items                 []InvoiceItemResponse `json:"itens"`
}

// InvoiceListResponse respuesta de GET /api/invoices.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
