package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docqa/internal/transport/http/response"
)

// AuthBearer admits requests whose Authorization header carries the shared
// secret as a bearer token.
func AuthBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header missing")
			return
		}

		scheme, token, _ := strings.Cut(authHeader, " ")
		if !strings.EqualFold(scheme, "bearer") {
			response.Error(c, http.StatusForbidden, "Invalid authentication scheme")
			return
		}

		token = strings.TrimSpace(token)
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			response.Error(c, http.StatusUnauthorized, "Invalid or missing token")
			return
		}

		c.Next()
	}
}
