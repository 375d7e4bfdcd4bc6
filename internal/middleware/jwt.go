package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/oeams/oeams-api/internal/utils"
	"github.com/oeams/oeams-api/internal/workflow"
)

// JWTProtected validates bearer tokens and binds the workflow actor to
// the request. Tokens naming a role the engine does not recognise get
// no user_role local, so every role gate downstream refuses.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := parseBearerToken(c.Get("Authorization"), secret)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		if id, ok := actorIDFromClaims(claims); ok {
			c.Locals("user_id", id)
		}
		if role, ok := actorRoleFromClaims(claims); ok {
			c.Locals("user_role", string(role))
		}

		return c.Next()
	}
}

func parseBearerToken(header, secret string) (*jwt.Token, error) {
	if header == "" {
		return nil, fmt.Errorf("authorization header missing")
	}

	const bearer = "bearer "
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return nil, fmt.Errorf("invalid authorization header")
	}

	tokenString := strings.TrimSpace(header[len(bearer):])
	if tokenString == "" {
		return nil, fmt.Errorf("invalid token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

// actorIDFromClaims accepts the subject spellings the auth collaborator
// has used across token versions.
func actorIDFromClaims(claims jwt.MapClaims) (uint, bool) {
	for _, key := range []string{"sub", "user_id", "id"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			if v >= 0 {
				return uint(v), true
			}
		case string:
			if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
				return uint(parsed), true
			}
		case int:
			if v >= 0 {
				return uint(v), true
			}
		}
	}
	return 0, false
}

// actorRoleFromClaims resolves the first claim value naming a role the
// workflow engine recognises.
func actorRoleFromClaims(claims jwt.MapClaims) (workflow.Role, bool) {
	for _, key := range []string{"role", "roles"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if role, ok := workflow.ParseRole(v); ok {
				return role, true
			}
		case []interface{}:
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					continue
				}
				if role, ok := workflow.ParseRole(str); ok {
					return role, true
				}
			}
		}
	}
	return "", false
}
