// Package api provides HTTP routing and server configuration for certM3.
// It wires together handlers, middleware, and services to create the
// application's API endpoints.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SamCN2/certm3/internal/api/handlers"
	"github.com/SamCN2/certm3/internal/api/middleware"
	"github.com/SamCN2/certm3/internal/config"
	"github.com/SamCN2/certm3/internal/crypto"
	"github.com/SamCN2/certm3/internal/database"
	"github.com/SamCN2/certm3/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *database.Database, signer *crypto.Signer, logger *zap.Logger) *gin.Engine {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg))

	// Initialize services
	requestService := service.NewRequestService(db, cfg)
	userService := service.NewUserService(db, cfg)
	groupService := service.NewGroupService(db, cfg)
	certService := service.NewCertificateService(db, cfg, signer, userService, groupService)
	operatorService := service.NewOperatorService(db, cfg)

	// Initialize handlers
	requestHandler := handlers.NewRequestHandler(requestService, logger)
	certHandler := handlers.NewCertificateHandler(certService, logger)
	userHandler := handlers.NewUserHandler(userService, groupService, logger)
	groupHandler := handlers.NewGroupHandler(groupService, logger)
	authHandler := handlers.NewAuthHandler(operatorService, logger)

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var limiter *middleware.RateLimiter
	if cfg.Security.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.Security.RateLimitRequests)
	}

	// Public routes
	public := router.Group("/api/v1")
	public.Use(limiter.Handler())
	{
		// Auth routes
		public.POST("/auth/login", authHandler.Login)

		// Certificate request lifecycle
		public.POST("/requests", requestHandler.CreateRequest)
		public.GET("/requests/:id", requestHandler.GetRequest)
		public.POST("/requests/:id/validate", requestHandler.ValidateRequest)
		public.POST("/requests/:id/cancel", requestHandler.CancelRequest)

		// Certificate issuance
		public.POST("/certificates/sign", certHandler.Sign)
		public.GET("/ca-certificate", certHandler.GetCACertificate)
	}

	// Protected routes (require operator authentication)
	protected := router.Group("/api/v1")
	protected.Use(middleware.SessionMiddleware(cfg))
	{
		// Requests
		protected.GET("/requests", requestHandler.SearchRequests)

		// Users
		protected.GET("/users", userHandler.FindUsers)
		protected.GET("/users/:id", userHandler.GetUser)
		protected.GET("/users/:id/groups", userHandler.GetUserGroups)
		protected.POST("/users/:id/deactivate", userHandler.DeactivateUser)

		// Groups and memberships
		protected.GET("/groups", groupHandler.ListGroups)
		protected.POST("/groups", groupHandler.CreateGroup)
		protected.GET("/groups/:name", groupHandler.GetGroup)
		protected.PUT("/groups/:name", groupHandler.UpdateGroup)
		protected.POST("/groups/:name/deactivate", groupHandler.DeactivateGroup)
		protected.GET("/groups/:name/members", groupHandler.GetMembers)
		protected.POST("/groups/:name/members", groupHandler.AddMembers)
		protected.DELETE("/groups/:name/members", groupHandler.RemoveMembers)

		// Certificates
		protected.GET("/certificates", certHandler.FindCertificates)
		protected.GET("/certificates/:serial", certHandler.GetCertificate)
		protected.PUT("/certificates/:serial", certHandler.UpdateCertificate)
		protected.PUT("/certificates/:serial/revoke", certHandler.RevokeCertificate)
	}

	return router
}
