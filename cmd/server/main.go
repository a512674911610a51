package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/formgrid/formgrid-backend/internal/config"
	"github.com/formgrid/formgrid-backend/internal/database"
	"github.com/formgrid/formgrid-backend/internal/middleware"
	"github.com/formgrid/formgrid-backend/internal/routes"
)

func main() {
	// Load env
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	if err := database.ConnectPostgres(cfg.PostgresURI); err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer database.DisconnectPostgres()

	// Connect to Redis. The app works without it: caching and Redis rate
	// limiting fail open.
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Println("⚠️ Redis unavailable, continuing without cache:", err)
	}
	defer database.DisconnectRedis()

	// Setup router
	r := chi.NewRouter()

	// Custom CORS: set headers and respond to OPTIONS with 200 so preflight never gets 403
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestID)

	// Production: SecurityHeaders → GlobalRateLimit → WriteRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP + write rate limiting)")
	} else {
		r.Use(middleware.RateLimitMiddleware)
	}

	// Health check (no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Setup routes
	routes.SetupRoutes(r)

	// Log registered routes for debugging
	log.Println("📋 Registered routes:")
	log.Println("  GET    /health")
	log.Println("  GET    /api/getUserData")
	log.Println("  GET    /api/searchUserData")
	log.Println("  POST   /api/submitForm")
	log.Println("  DELETE /api/deleteRow/{id}")
	log.Println("  DELETE /api/deleteAllRows")
	log.Println("  GET    /api/getAutocompleteOptions")
	log.Println("  GET    /api/autocomplete")

	log.Printf("🚀 FormGrid backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
