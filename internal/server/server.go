package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/snapcal/apiserver/config"
	"github.com/snapcal/apiserver/internal/db"
	"github.com/snapcal/apiserver/internal/handlers"
	"github.com/snapcal/apiserver/internal/mq"
	"github.com/snapcal/apiserver/internal/services"
	"github.com/snapcal/apiserver/internal/storage"
	"github.com/snapcal/apiserver/internal/store"
	"github.com/snapcal/apiserver/internal/vision"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
}

// New constructs a Server with its full dependency graph: postgres-backed
// stores, the auth/user/foodlog services, and the optional photo storage,
// event broker, and image-analysis collaborators selected by config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)
	foodLogRepo := store.NewFoodLogRepository(dbConn)

	broker, err := mq.NewBackend(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var events services.EventPublisher
	if broker != nil {
		events = mq.NewEvents(broker, cfg.MQ.Channel)
	}

	authService := services.NewAuthService(userRepo, sessionRepo, cfg.SessionTTL)
	userService := services.NewUserService(userRepo)
	foodLogService := services.NewFoodLogService(foodLogRepo, events)

	var photos *storage.PhotoStore
	storageBackend, err := storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if storageBackend != nil {
		photos = storage.NewPhotoStore(storageBackend, cfg.Storage.BaseURL)
		if err := photos.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	var analyzer vision.Analyzer
	if cfg.Vision.URL != "" {
		analyzer, err = vision.NewClient(cfg.Vision)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
	}

	authMiddleware := handlers.RequireAuth(authService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, authService)
		handlers.UserRouter(r, userService, authMiddleware)
		handlers.FoodLogRouter(r, foodLogService, authMiddleware)
		if analyzer != nil {
			handlers.AnalyzeRouter(r, analyzer, photos, authMiddleware)
		}
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 4000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
