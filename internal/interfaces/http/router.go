package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/pkg/jwt"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Invoices  *billing.InvoiceService
	DANFE     *billing.DANFEUseCase
	Log       *logger.Logger
	JWTSecret string
	JWTIssuer string
}

// Router registra las rutas de la API. Todas requieren Bearer Token; emitir, cancelar y
// corregir además requieren rol admin o emissor.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleEmissor)

	invoices := api.Group("/invoices")
	h := NewInvoiceHandler(deps.Invoices, deps.DANFE, deps.Log)
	invoices.Post("/", writers, h.Emit)
	invoices.Get("/", h.List)
	invoices.Get("/:key", h.GetByAccessKey)
	invoices.Get("/:key/danfe", h.DANFE)
	invoices.Post("/:key/cancel", writers, h.Cancel)
	invoices.Post("/:key/correction", writers, h.Correct)
}
