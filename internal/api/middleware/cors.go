package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/SamCN2/certm3/internal/config"
)

// CORSMiddleware returns a CORS handler for the configured origins, or a
// passthrough when CORS is disabled. The method list mirrors the API
// surface: the router registers only GET, POST, PUT, and DELETE handlers.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	if !cfg.Security.CORSEnabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	cc := cors.DefaultConfig()
	cc.AllowOrigins = cfg.Security.CORSOrigins
	cc.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
	cc.AllowCredentials = true
	return cors.New(cc)
}
