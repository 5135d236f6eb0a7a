package routes

import (
	"os"
	"strings"

	"helpdesk/internal/core/container"
	"helpdesk/internal/middleware"
	"helpdesk/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter returns an engine with recovery, request logging and the
// per-request timeout installed, and every route registered.
func NewRouter(c *container.Container) *gin.Engine {
	if !c.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(c.Log),
		middleware.RequestLogger(c.Log),
		middleware.TimeoutMiddleware(c.Config.RequestTimeout),
	)

	RegisterUtilityRoutes(router, c)
	RegisterPublicRoutes(router, c)
	RegisterProtectedRoutes(router, c)
	return router
}

func RegisterPublicRoutes(router *gin.Engine, c *container.Container) {
	c.LoginHandler.RegisterRoutes(router)

	// Only relative base URLs are served by us; anything else points at a CDN.
	if strings.HasPrefix(c.Config.PublicBaseURL, "/") {
		c.FileHandler.RegisterRoutes(router, c.Config.PublicBaseURL)
	}
}

func RegisterProtectedRoutes(router *gin.Engine, c *container.Container) {
	protected := router.Group("")
	protected.Use(security.JWTMiddleware(c.TokenIssuer))

	c.UserHandler.RegisterRoutes(protected)
	c.LocationHandler.RegisterRoutes(protected)
	c.AssetHandler.RegisterRoutes(protected)
	c.BorrowingHandler.RegisterRoutes(protected)
	c.DistributionHandler.RegisterRoutes(protected)
	c.AtkItemHandler.RegisterRoutes(protected)
	c.PurchaseHandler.RegisterRoutes(protected)
	c.RequestHandler.RegisterRoutes(protected)
	c.TicketHandler.RegisterRoutes(protected)
	c.DashboardHandler.RegisterRoutes(protected)
	c.AuditLogHandler.RegisterRoutes(protected)
}

func RegisterUtilityRoutes(router *gin.Engine, c *container.Container) {
	router.GET("/health", c.Health.Handler())

	openapiFilePath := "./docs/index.html"
	if _, err := os.Stat(openapiFilePath); err == nil {
		router.GET("/openapi.html", func(ctx *gin.Context) {
			ctx.File(openapiFilePath)
		})
		c.Log.Info("Route /openapi.html registered", zap.String("file", openapiFilePath))
	}
}
