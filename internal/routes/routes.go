package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-voyage/internal/app/domain/admin"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/auth"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/itinerary"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/newsletter"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/trips"
	"github.com/FACorreiaa/go-voyage/internal/app/domain/usage"
	"github.com/FACorreiaa/go-voyage/internal/app/middleware"
	database "github.com/FACorreiaa/go-voyage/internal/db"
	"github.com/FACorreiaa/go-voyage/internal/pkg/config"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type AppHandlers struct {
	Auth       *auth.AuthHandlers
	Trips      *trips.Handler
	Usage      *usage.Handler
	Newsletter *newsletter.Handler
	Admin      *admin.Handler

	// Tokens validates session tokens for OptionalAuth.
	Tokens middleware.TokenValidator
	// Users re-reads accounts for RequireAdmin and RefreshRole.
	Users middleware.UserLookup
	// GenerateLimiter throttles bursts of generation calls per client.
	GenerateLimiter *middleware.RateLimiter
}

// Setup builds every service on top of db and registers the API.
func Setup(ctx context.Context, r *gin.Engine, db database.Querier, pinger Pinger, cfg *config.Config, log *zap.Logger) {
	handlers := setupDependencies(ctx, db, cfg, log)
	setupRouter(r, handlers, pinger, log)
}

func setupDependencies(ctx context.Context, db database.Querier, cfg *config.Config, log *zap.Logger) *AppHandlers {
	// Repositories
	userRepo := auth.NewPostgresUserRepo(db, log)
	tripRepo := trips.NewPostgresRepository(db, log)
	usageRepo := usage.NewPostgresRepository(db, log)
	subscriberRepo := newsletter.NewPostgresRepository(db, log)
	adminRepo := admin.NewPostgresRepository(db, log)

	// Itinerary generation. A missing credential yields a generator that
	// fails every call with a configuration error; the rest of the API works.
	llm := itinerary.NewTextGenerator(ctx, cfg.LLM, log)
	generator := itinerary.NewGenerator(llm, cfg.LLM.Timeout, log)

	// Services
	authService := auth.NewAuthService(userRepo, cfg, log)
	usageService := usage.NewService(usageRepo, cfg.Usage.MaxAnonymousTrips, log)
	tripService := trips.NewService(tripRepo, usageService, generator, itinerary.NewGuard(), log)
	newsletterService := newsletter.NewService(subscriberRepo, log)
	adminService := admin.NewService(adminRepo, tripRepo, cfg.StatsCacheTTL, log)

	return &AppHandlers{
		Auth:       auth.NewAuthHandlers(authService, tripService, cfg.JWT.SecureCookie, log),
		Trips:      trips.NewHandler(tripService, log),
		Usage:      usage.NewHandler(usageService, log),
		Newsletter: newsletter.NewHandler(newsletterService, log),
		Admin:      admin.NewHandler(adminService, log),
		Tokens:     authService,
		Users:      authService,

		GenerateLimiter: middleware.NewRateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window, log),
	}
}

func setupRouter(r *gin.Engine, h *AppHandlers, pinger Pinger, log *zap.Logger) {
	r.GET("/healthz", health(pinger))

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(h.Tokens, log))

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Auth.SignUp)
		authGroup.POST("/signin", h.Auth.SignIn)
		authGroup.POST("/signout", h.Auth.SignOut)
		authGroup.GET("/me", h.Auth.Me)
	}

	api.GET("/usage", h.Usage.GetStatus)
	api.POST("/newsletter/subscribe", h.Newsletter.Subscribe)

	tripGroup := api.Group("/trips")
	{
		tripGroup.POST("/generate", middleware.RateLimit(h.GenerateLimiter), h.Trips.Generate)
		tripGroup.GET("/:id", h.Trips.Get)

		// Routes below need a signed-in caller
		tripGroup.GET("", middleware.RequireAuth(log), h.Trips.ListMine)
		tripGroup.POST("/link-anonymous", middleware.RequireAuth(log), h.Trips.LinkAnonymous)
		tripGroup.DELETE("/:id", middleware.RequireAuth(log), middleware.RefreshRole(h.Users, log), h.Trips.Delete)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.RequireAdmin(h.Users, log))
	{
		adminGroup.GET("/stats", h.Admin.Stats)
		adminGroup.GET("/trips", h.Trips.ListAll)
	}
}

func health(pinger Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinger == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
	}
}
