package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Tushar2380/docuAi/internal/app"
	"github.com/Tushar2380/docuAi/internal/config"
	"github.com/Tushar2380/docuAi/internal/transport/http/response"
)

const userIDKey = "user_id"

// UserID returns the authenticated tenant id set by TenantAuth.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// TenantAuth resolves the tenant key for every request. Mode "header" reads
// X-User-ID; mode "jwt" validates a bearer token whose subject is the tenant
// id. There is no default namespace: a missing or malformed key is a 401.
func TenantAuth(cfg config.AuthConfig) gin.HandlerFunc {
	if cfg.Mode == "jwt" {
		return jwtAuth(cfg.JWTSecret)
	}
	return headerAuth()
}

func headerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if !app.ValidUserID(userID) {
			response.Error(c, 401, response.CodeUnauthorized, "missing or invalid X-User-ID header")
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func jwtAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || raw == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing bearer token")
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Error(c, 401, response.CodeUnauthorized, "invalid token")
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || !app.ValidUserID(subject) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid token subject")
			return
		}
		c.Set(userIDKey, subject)
		c.Next()
	}
}
