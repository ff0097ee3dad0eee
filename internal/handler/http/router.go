package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ludaNOFX/ludaproj-full/internal/auth"
	"github.com/ludaNOFX/ludaproj-full/internal/service"
	"github.com/ludaNOFX/ludaproj-full/pkg/health"
	"github.com/ludaNOFX/ludaproj-full/pkg/middleware"
)

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(
	userService *service.UserService,
	productService *service.ProductService,
	searchService *service.SearchService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("marketplace"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   claims.UserID,
			Username: claims.Username,
		}, nil
	}

	authHandler := NewAuthHandler(userService, logger)
	userHandler := NewUserHandler(userService, logger)
	productHandler := NewProductHandler(productService, logger)
	searchHandler := NewSearchHandler(searchService, logger)

	// Auth endpoints (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// Public catalog and search endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(60))

		r.Get("/api/v1/products", productHandler.List)
		r.Get("/api/v1/products/slug/{slug}", productHandler.GetBySlug)
		r.Get("/api/v1/search/products", searchHandler.SearchProducts)
		r.Get("/api/v1/search/users", searchHandler.SearchUsers)
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tokenValidator))

		r.Put("/api/v1/users/me", userHandler.UpdateProfile)
		r.Put("/api/v1/users/me/picture", userHandler.SetProfilePicture)
		r.Get("/api/v1/users/{username}", userHandler.GetProfile)
		r.Post("/api/v1/users/{username}/follow", userHandler.Follow)
		r.Delete("/api/v1/users/{username}/follow", userHandler.Unfollow)

		r.Get("/api/v1/products/feed", productHandler.FollowedFeed)
		r.Post("/api/v1/products", productHandler.Create)
		r.Put("/api/v1/products/{id}", productHandler.Update)
		r.Delete("/api/v1/products/{id}", productHandler.Delete)
		r.Post("/api/v1/products/{id}/purchase", productHandler.Purchase)
		r.Put("/api/v1/products/{id}/picture", productHandler.SetPicture)

		r.Get("/api/v1/cart", productHandler.GetCart)
		r.Post("/api/v1/cart/{productId}", productHandler.AddToCart)
		r.Delete("/api/v1/cart/{productId}", productHandler.RemoveFromCart)

		r.Post("/api/v1/search/reindex", searchHandler.Reindex)
	})

	return r
}
