package http

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/pkg/jwt"
)

// Locals keys para el sujeto y el rol del token en Fiber.
const (
	LocalSubject = "subject"
	LocalRole    = "role"
)

// AuthMiddleware valida el Bearer Token JWT y carga sujeto y rol en c.Locals.
// issuer vacío acepta cualquier emisor.
func AuthMiddleware(jwtSecret, issuer string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return authError(c, "MISSING_TOKEN", fmt.Errorf("%w: Authorization header requerido", domain.ErrUnauthorized))
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return authError(c, "INVALID_TOKEN", fmt.Errorf("%w: formato Bearer <token>", domain.ErrUnauthorized))
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return authError(c, "MISSING_TOKEN", fmt.Errorf("%w: token vacío", domain.ErrUnauthorized))
		}
		subject, role, err := jwt.Parse(jwtSecret, issuer, tokenString)
		if err != nil {
			return authError(c, "INVALID_TOKEN", fmt.Errorf("%w: token inválido o expirado", domain.ErrUnauthorized))
		}
		c.Locals(LocalSubject, subject)
		c.Locals(LocalRole, role)
		return c.Next()
	}
}

// RequireRole deja pasar solo a los roles indicados. Va DESPUÉS de AuthMiddleware.
//   - 401 MISSING_ROLE si el contexto no tiene rol.
//   - 403 FORBIDDEN si el rol no está permitido.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return authError(c, "MISSING_ROLE", fmt.Errorf("%w: el token no tiene rol", domain.ErrUnauthorized))
		}
		if !slices.Contains(roles, role) {
			return authError(c, "FORBIDDEN", fmt.Errorf("%w: el rol '%s' no puede realizar esta operación", domain.ErrForbidden, role))
		}
		return c.Next()
	}
}

// authError responde con el status que errorStatus asigna al error (401 o 403)
// pero conserva el código específico del middleware.
func authError(c *fiber.Ctx, code string, err error) error {
	status, _ := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

// GetSubject devuelve el sujeto del token (después del middleware de auth).
func GetSubject(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalSubject).(string)
	return s
}

// GetRole devuelve el rol del token (después del middleware de auth).
func GetRole(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalRole).(string)
	return s
}
