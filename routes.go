package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/bakery_backend/config"
	"bitbucket.org/mmdatafocus/bakery_backend/handlers"
	"bitbucket.org/mmdatafocus/bakery_backend/middlewares"
	"bitbucket.org/mmdatafocus/bakery_backend/utils"
	"bitbucket.org/mmdatafocus/bakery_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const uploadsRoute = "/uploads"

type application struct {
	settings     config.Settings
	logger       *logrus.Logger
	redis        *config.Redis
	tokens       *utils.TokenIssuer
	access       *workflow.AccessPolicy
	users        *workflow.Users
	catalog      *workflow.Catalog
	production   *workflow.ProductionScaler
	reservations *workflow.ReservationLifecycle
	outbox       *workflow.OutboxOps
	uploadDir    string
}

func (app *application) routes() *gin.Engine {
	if app.settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middlewares.CorrelationMiddleware())
	r.Use(cors.New(app.corsConfig()))

	// Optional rate limiting (recommended for production).
	if app.settings.RateLimitEnabled && app.redis != nil {
		limiter := middlewares.NewRateLimiter(app.redis.Client, app.settings.RateLimitMax, app.settings.RateLimitWindow)
		r.Use(limiter.RateLimitMiddleware)
	}

	r.Use(middlewares.ErrorLogger(app.logger))
	r.Use(gin.Recovery())
	r.Use(middlewares.AuthMiddleware(app.tokens, app.access, app.logger))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if app.uploadDir != "" {
		r.Static(uploadsRoute, app.uploadDir)
	}

	h := &handlers.Handler{
		Users:        app.users,
		Catalog:      app.catalog,
		Production:   app.production,
		Reservations: app.reservations,
		Outbox:       app.outbox,
		Logger:       app.logger,
	}
	h.Register(r.Group("/api"))

	r.NoRoute(customNotFoundHandler)
	return r
}

// corsConfig requires an explicit allowlist in production and allows every origin elsewhere.
func (app *application) corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	if app.settings.IsProduction() {
		// an empty allowlist denies every cross-origin request
		corsConfig.AllowOrigins = app.settings.CorsAllowedOrigins
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", middlewares.AuthTokenHeader, middlewares.CorrelationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", middlewares.AuthTokenHeader, middlewares.CorrelationIdHeader)
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	return corsConfig
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, handlers.Response{Success: false, Message: "route not found", Code: "not_found"})
}
