package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows browser clients from the configured origins. "*" allows any
// origin without credentials.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(allowedOrigins, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}
