package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/resumedrop/apiserver/config"
	"github.com/resumedrop/apiserver/internal/db"
	"github.com/resumedrop/apiserver/internal/handlers"
	"github.com/resumedrop/apiserver/internal/logger"
	"github.com/resumedrop/apiserver/internal/services"
	"github.com/resumedrop/apiserver/internal/storage"
	"github.com/resumedrop/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := newStorageBackend(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	fileStorage := storage.NewStorage(backend)
	if err := fileStorage.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	resumeRepo := store.NewResumeRepository(dbConn)

	userService := services.NewUserService(userRepo)
	resumeService := services.NewResumeService(resumeRepo, fileStorage)

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		logger.RequestLogger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, jwtSecret)
	router.Route("/resume", func(r chi.Router) {
		handlers.ResumeRouter(r, resumeService, authMiddleware)
	})
	router.Route("/uploads", func(r chi.Router) {
		handlers.UploadsRouter(r, resumeService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
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
	}, nil
}

func newStorageBackend(ctx context.Context, cfg config.Config) (storage.ObjectStorage, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendLocal, "":
		return storage.NewLocalClient(cfg.Local)
	case config.StorageBackendMinio:
		return storage.NewMinioClient(cfg.Minio)
	case config.StorageBackendGCS:
		return storage.NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
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
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
