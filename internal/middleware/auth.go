package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"examprep-billing/internal/auth"
	"examprep-billing/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// AuthMiddleware parses an optional bearer token into an auth.Identity on the
// echo context. Requests without a token proceed as anonymous; endpoints that
// need a user enforce it via RequireUser/RequireAdmin.
func AuthMiddleware(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				c.Set(identityKey, auth.Anonymous)
				return next(c)
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header {
				return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
			}

			identity, err := parseToken(tokenString, jwtSecret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(identityKey, identity)
			ctx := logger.WithUserID(c.Request().Context(), identity.UserID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func parseToken(tokenString, secret string) (auth.Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return auth.Anonymous, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return auth.Anonymous, fmt.Errorf("unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return auth.Anonymous, fmt.Errorf("missing sub claim")
	}

	role := auth.RoleUser
	if r, _ := claims["role"].(string); r == string(auth.RoleAdmin) {
		role = auth.RoleAdmin
	}

	return auth.Identity{UserID: sub, Role: role}, nil
}

// IdentityFrom returns the identity set by AuthMiddleware.
func IdentityFrom(c echo.Context) auth.Identity {
	if identity, ok := c.Get(identityKey).(auth.Identity); ok {
		return identity
	}
	return auth.Anonymous
}

func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if IdentityFrom(c).IsAnonymous() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			return next(c)
		}
	}
}

func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := IdentityFrom(c)
			if identity.IsAnonymous() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !identity.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			return next(c)
		}
	}
}
