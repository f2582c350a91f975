package middleware

import (
	"errors"
	"strings"

	"quiz-ingest/internal/domain"
	"quiz-ingest/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	AuthorizationHeader = "Authorization"
	BearerSchema        = "Bearer "
	SubjectKey          = "subject" // Key for storing the token subject in fiber.Ctx locals

	RoleAdmin = "admin"
)

// AdminClaims is the token payload accepted on admin routes. Tokens are issued elsewhere.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminOnly protects routes by requiring an HS256 token signed with secret and carrying role=admin.
// With an empty secret every request is rejected.
func AdminOnly(secret string) fiber.Handler {
	key := []byte(secret)
	return func(c *fiber.Ctx) error {
		if len(key) == 0 {
			return domain.NewError(domain.ErrUnauthorized, "Admin authentication is not configured", nil)
		}

		authHeader := c.Get(AuthorizationHeader)
		if authHeader == "" {
			return domain.NewError(domain.ErrUnauthorized, "Authorization header is missing", nil)
		}
		if !strings.HasPrefix(authHeader, BearerSchema) {
			return domain.NewError(domain.ErrUnauthorized, "Authorization scheme is not Bearer", nil)
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerSchema))
		if tokenString == "" {
			return domain.NewError(domain.ErrUnauthorized, "Token is empty", nil)
		}

		claims := &AdminClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "Token has expired"
			}
			logger.Get().Debug("admin token rejected", zap.Error(err))
			return domain.NewError(domain.ErrUnauthorized, message, err)
		}

		if claims.Role != RoleAdmin {
			return domain.NewError(domain.ErrForbidden, "Admin role required", nil)
		}

		c.Locals(SubjectKey, claims.Subject)
		return c.Next()
	}
}
