package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/bryanronnie/kvitta/internal/balance"
	"github.com/bryanronnie/kvitta/internal/config"
	"github.com/bryanronnie/kvitta/internal/core"
	"github.com/bryanronnie/kvitta/internal/database"
	"github.com/bryanronnie/kvitta/internal/group"
	"github.com/bryanronnie/kvitta/internal/httpapi"
	"github.com/bryanronnie/kvitta/internal/ledger"
	"github.com/bryanronnie/kvitta/internal/notification"
	"github.com/bryanronnie/kvitta/internal/receipt"
	"github.com/bryanronnie/kvitta/internal/user"
	mw "github.com/bryanronnie/kvitta/pkg/middleware"

	_ "github.com/bryanronnie/kvitta/docs" // Swagger docs
)

// @title           Kvitta Receipt & Ledger API
// @version         1.0
// @description     Bill-splitting back end: receipts, splits, and the ledger of IOUs they produce.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@kvitta.local

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your bearer token in the format: Bearer {token}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	// ============================================
	// DEPENDENCY INJECTION - Wiring up all layers
	// ============================================

	// User feature (ambient account lookup the core calls into for email
	// resolution and notification addressing)
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Group feature (folder_id roster source for CreateReceiptFromGroup)
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(groupRepo)
	groupHandler := group.NewHandler(groupService)

	// Notification feature (fire-and-forget events on finalize/settle/add-member)
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	// Money/ledger domain
	ledgerRepo := ledger.NewRepository(db)
	ledgerStore := ledger.NewStore(ledgerRepo)

	// Receipt aggregate, wired to the ledger store it feeds on finalize
	receiptRepo := receipt.NewRepository(db)
	receiptStore := receipt.NewStore(receiptRepo, ledgerStore)

	// Balance aggregation
	balanceService := balance.NewService(ledgerStore)

	// CoreAPI composes every domain service for the HTTP layer
	coreAPI := core.New(receiptStore, ledgerStore, balanceService, userService, groupService, notificationService)
	receiptHandler := httpapi.NewHandler(coreAPI)

	// ============================================
	// ROUTER SETUP
	// ============================================

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(mw.TestUserMiddleware) // DEV ONLY: allows X-Test-User-ID header

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/users", userHandler.Routes())
		r.Mount("/groups", groupHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		// Receipt, ledger, and balance operations all live behind CoreAPI.
		r.Mount("/", receiptHandler.Routes())
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
