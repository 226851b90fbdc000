package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/gallery/config"
	"github.com/cppla/gallery/controllers"
	"github.com/cppla/gallery/middleware"
	"github.com/cppla/gallery/services"
	"github.com/cppla/gallery/storage"
	"github.com/cppla/gallery/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, svc *services.GalleryService, store storage.Store) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	maxUpload := cfg.UploadMaxBytes
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	r.MaxMultipartMemory = controllers.UploadBodyLimit(maxUpload)
	// Access log and panic recovery go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", utils.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", utils.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		// browsers refuse credentials with a wildcard origin
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	galleryController := controllers.NewGalleryController(svc, store, maxUpload, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	limited := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)

	gallery := r.Group("/gallery")
	gallery.GET("", galleryController.List)
	gallery.GET("/:id", galleryController.Get)
	gallery.POST("", limited, galleryController.Create)
	gallery.POST("/:id/upload", limited, galleryController.Upload)
	gallery.PUT("/:id", limited, galleryController.Update)
	gallery.DELETE("/:id", limited, galleryController.Delete)
	gallery.PATCH("/:id/active", limited, galleryController.ToggleActive)

	prefix := strings.TrimSuffix(cfg.UploadURLPrefix, "/")
	if prefix == "" {
		prefix = "/uploads"
	}
	if local, ok := store.(*storage.LocalStore); ok {
		r.Static(prefix, local.Root())
	} else {
		r.GET(prefix+"/:name", galleryController.ServeFile)
	}

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "rota não encontrada")
	})

	return r
}
