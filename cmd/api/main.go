package main

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Mr-oxm/E-Commerce/internal/config"
	"github.com/Mr-oxm/E-Commerce/internal/modules/auth"
	"github.com/Mr-oxm/E-Commerce/internal/modules/catalog"
	"github.com/Mr-oxm/E-Commerce/internal/modules/order"
	"github.com/Mr-oxm/E-Commerce/internal/modules/payment"
	"github.com/Mr-oxm/E-Commerce/internal/modules/review"
	"github.com/Mr-oxm/E-Commerce/internal/modules/user"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("opening database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("pinging database")
	}
	log.Info("connected to the database")

	if err := runMigrations(db, cfg.MigrationsPath); err != nil {
		log.WithError(err).Fatal("running migrations")
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)

	authService := auth.NewService(userRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authService, userService)

	userHandler := user.NewHandler(userService, func(r *http.Request) (uuid.UUID, bool) {
		p, ok := auth.PrincipalFromContext(r.Context())
		return p.UserID, ok
	})

	// ── Catalog ─────────────────────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(catalogService)

	// ── Payments ────────────────────────────────────────────
	gateway := payment.NewPayPalGateway(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalBaseURL, cfg.PayPalMode)
	paymentRepo := payment.NewPostgresRepository(db)
	paymentService := payment.NewService(paymentRepo, gateway,
		cfg.ClientURL+"/payment/success", cfg.ClientURL+"/payment/cancel", log)
	paymentHandler := payment.NewHandler(paymentService)

	// ── Orders ──────────────────────────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	orderService := order.NewService(orderRepo, catalogService, paymentService, log)
	orderHandler := order.NewHandler(orderService)

	// ── Reviews ─────────────────────────────────────────────
	reviewRepo := review.NewPostgresRepository(db)
	reviewService := review.NewService(reviewRepo, catalogService)
	reviewHandler := review.NewHandler(reviewService)

	router.Route("/api/v1", func(r chi.Router) {
		requireAuth := auth.Middleware(authService)

		// Public surface: registration and login.
		authHandler.RegisterRoutes(r)

		// Product subtree: public browsing and reviews, seller verbs
		// wrapped individually so static routes and {id} share one tree.
		r.Route("/products", func(r chi.Router) {
			catalogHandler.RegisterRoutes(r, requireAuth)
			reviewHandler.RegisterProductRoutes(r)
		})

		// Everything else requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			userHandler.RegisterRoutes(r)
			orderHandler.RegisterRoutes(r)
			paymentHandler.RegisterRoutes(r)
			reviewHandler.RegisterRoutes(r)
		})
	})

	log.WithField("port", cfg.AppPort).Info("API server starting")
	log.Fatal(http.ListenAndServe(":"+cfg.AppPort, router))
}

func runMigrations(db *sql.DB, path string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
