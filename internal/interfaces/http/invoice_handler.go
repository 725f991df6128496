package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

// HeaderIdempotencyKey cabecera opcional de POST /api/invoices.
const HeaderIdempotencyKey = "Idempotency-Key"

// InvoiceHandler maneja las peticiones HTTP de NF-e (protegido).
type InvoiceHandler struct {
	svc   *billing.InvoiceService
	danfe *billing.DANFEUseCase
	log   *logger.Logger
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(svc *billing.InvoiceService, danfe *billing.DANFEUseCase, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, danfe: danfe, log: log}
}

// Emit emite una NF-e.
// POST /api/invoices
func (h *InvoiceHandler) Emit(c *fiber.Ctx) error {
	var in dto.EmitInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := in.Validate(); err != nil {
		return respondError(c, err)
	}
	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	out, err := h.svc.Emit(c.UserContext(), in, key)
	if err != nil {
		return respondError(c, err)
	}
	h.log.Debug().Str("subject", GetSubject(c)).Str("invoice_id", out.ID).Msg("emisión solicitada")
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List lista las notas paginadas.
// GET /api/invoices?limit=&offset=
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	out, err := h.svc.List(c.UserContext(), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByAccessKey consulta una nota.
// GET /api/invoices/:key
func (h *InvoiceHandler) GetByAccessKey(c *fiber.Ctx) error {
	out, err := h.svc.GetByAccessKey(c.UserContext(), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Cancel registra el evento de cancelamento.
// POST /api/invoices/:key/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	out, err := h.svc.Cancel(c.UserContext(), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Correct registra una carta de corrección.
// POST /api/invoices/:key/correction
func (h *InvoiceHandler) Correct(c *fiber.Ctx) error {
	var in dto.CorrectionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.svc.Correct(c.UserContext(), c.Params("key"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DANFE descarga el PDF.
// GET /api/invoices/:key/danfe
func (h *InvoiceHandler) DANFE(c *fiber.Ctx) error {
	pdf, filename, err := h.danfe.Download(c.UserContext(), c.Params("key"))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
