// Package server assembles the HTTP router from the resource handlers.
package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodgram/pkg/foodgram/admin"
	"github.com/mikepea/foodgram/pkg/foodgram/auth"
	"github.com/mikepea/foodgram/pkg/foodgram/config"
	"github.com/mikepea/foodgram/pkg/foodgram/ingredients"
	"github.com/mikepea/foodgram/pkg/foodgram/logging"
	"github.com/mikepea/foodgram/pkg/foodgram/metrics"
	"github.com/mikepea/foodgram/pkg/foodgram/pagination"
	"github.com/mikepea/foodgram/pkg/foodgram/recipes"
	"github.com/mikepea/foodgram/pkg/foodgram/shoppinglist"
	"github.com/mikepea/foodgram/pkg/foodgram/shortlink"
	"github.com/mikepea/foodgram/pkg/foodgram/storage"
	"github.com/mikepea/foodgram/pkg/foodgram/tags"
	"github.com/mikepea/foodgram/pkg/foodgram/users"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"
)

// Deps are the collaborators the router is built from
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	Images storage.ImageStore
	Issuer *auth.TokenIssuer
}

// New builds the gin engine with middleware and every route registered
func New(d Deps) *gin.Engine {
	cfg := d.Config

	r := gin.New()
	r.Use(
		gin.Recovery(),
		otelgin.Middleware(cfg.ServiceName),
		metrics.Middleware(),
		logging.Middleware(),
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		auth.OptionalAuth(d.Issuer),
	)

	health := healthHandler(d.DB)
	r.GET("/health", health)
	r.GET("/metrics", metrics.Handler())

	// Local media is served from disk; S3 URLs point at the bucket
	if _, ok := d.Images.(*storage.LocalStore); ok && strings.HasPrefix(cfg.MediaURL, "/") {
		r.Static(cfg.MediaURL, cfg.MediaRoot)
	}

	paginator := pagination.New(cfg.PageSize, cfg.MaxPageSize)

	api := r.Group("/api")
	{
		api.GET("/health", health)

		auth.NewHandler(d.DB, d.Issuer).RegisterRoutes(api.Group("/auth"))

		users.NewHandler(d.DB, d.Images, paginator).RegisterRoutes(api)
		tags.NewHandler(d.DB).RegisterRoutes(api)
		ingredients.NewHandler(d.DB).RegisterRoutes(api)
		recipes.NewHandler(d.DB, d.Images, paginator).RegisterRoutes(api)
		shoppinglist.NewHandler(d.DB).RegisterRoutes(api)

		admin.NewHandler(d.DB, d.Images).RegisterRoutes(api.Group("/admin", auth.RequireAuth(), auth.RequireAdmin()))
	}

	// Short link routes (public, registered last)
	links := shortlink.NewHandler(d.DB, cfg.BaseURL)
	links.RegisterRoutes(api)
	links.RegisterRedirect(r)

	return r
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "service": "foodgram"})
	}
}
