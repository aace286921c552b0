package router

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pranathisri21/frame-vault/internal/config"
	"github.com/pranathisri21/frame-vault/internal/gallery"
	"github.com/pranathisri21/frame-vault/internal/http/handlers"
	"github.com/pranathisri21/frame-vault/internal/http/middleware"
	"github.com/pranathisri21/frame-vault/internal/identity"
)

// Gallery is everything the HTTP surface needs from the gallery repository.
type Gallery interface {
	handlers.Sets
	handlers.Items
}

// Identity is everything the HTTP surface needs from the identity provider.
type Identity interface {
	handlers.Identity
	middleware.Authenticator
}

// Deps groups the collaborators the router wires into handlers.
type Deps struct {
	Gallery  Gallery
	Identity Identity
	Store    handlers.Pinger
	// MediaDir is served under cfg.MediaBaseURL when set.
	MediaDir string
}

func New(cfg *config.Config, logger *slog.Logger, deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logging(logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	setHandler := handlers.NewSetHandler(logger, deps.Gallery)
	itemHandler := handlers.NewItemHandler(logger, deps.Gallery, cfg.MaxUploadBytes)
	authHandler := handlers.NewAuthHandler(logger, deps.Identity, cfg.SessionCookie)
	healthHandler := handlers.NewHealthHandler(logger, deps.Store)

	r.GET("/healthz", healthHandler.Check)

	if deps.MediaDir != "" && strings.HasPrefix(cfg.MediaBaseURL, "/") {
		r.Static(strings.TrimRight(cfg.MediaBaseURL, "/"), deps.MediaDir)
	}

	api := r.Group("/api")

	limiter := middleware.NewRateLimiter(cfg.SignInPerMinute)
	auth := api.Group("/auth")
	auth.POST("/signup", limiter.Middleware(), authHandler.SignUp)
	auth.POST("/signin", limiter.Middleware(), authHandler.SignIn)
	auth.POST("/signout", authHandler.SignOut)

	user := api.Group("/")
	user.Use(middleware.RequireUser(deps.Identity, cfg.SessionCookie, logger))
	user.GET("/auth/me", authHandler.Me)
	user.GET("/sets", setHandler.List)
	user.GET("/sets/:id", setHandler.Get)
	user.GET("/sets/:id/items", itemHandler.ListBySet)
	user.GET("/items", itemHandler.List)
	user.GET("/items/:id", itemHandler.Get)

	admin := user.Group("/")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/sets", setHandler.Create)
	admin.PATCH("/sets/:id", setHandler.Update)
	admin.DELETE("/sets/:id", setHandler.Delete)
	admin.POST("/sets/:id/refresh", setHandler.Refresh)
	admin.POST("/sets/:id/items", itemHandler.Upload)
	admin.PATCH("/items/:id", itemHandler.Update)
	admin.DELETE("/items/:id", itemHandler.Delete)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		// Credentials cannot be combined with a wildcard origin.
		cfg.AllowOriginFunc = func(string) bool { return true }
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

var (
	_ Gallery  = (*gallery.Repository)(nil)
	_ Identity = (*identity.Provider)(nil)
)
