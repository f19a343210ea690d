package middleware

import (
	"fmt"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

const (
	AccessTokenSecret = "JWT_ACCESS_TOKEN_SECRET"
)

type tokenMiddleware struct {
}

func newTokenMiddleware() *tokenMiddleware {
	return &tokenMiddleware{}
}

// NewTokenMiddleware guards the catalog and admin routes: a valid HS256
// bearer token signed with the configured secret is required.
func (m *middleware) NewTokenMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")

	if authHeader == "" {
		m.log.WithFields(logrus.Fields{
			"path": ctx.Path(),
		}).Warn("Authorization header is missing")
		return unauthorized(ctx)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		m.log.WithFields(logrus.Fields{
			"path": ctx.Path(),
		}).Warn("Authorization header format is invalid")
		return unauthorized(ctx)
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	secret := os.Getenv(AccessTokenSecret)
	if secret == "" {
		m.log.Error("JWT access token secret is not configured")
		return unauthorized(ctx)
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		m.log.WithFields(logrus.Fields{
			"path":  ctx.Path(),
			"error": fmt.Sprintf("%v", err),
		}).Warn("Token verification failed")
		return unauthorized(ctx)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			ctx.Locals("token_subject", sub)
		}
	}

	return ctx.Next()
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Unauthorized, access token invalid or expired",
	})
}
