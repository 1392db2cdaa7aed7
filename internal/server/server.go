// Package server exposes product resolution, the stores and the reference
// catalog over a JSON REST API and a websocket scan protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/franckalain/eatsmarty/internal/catalog"
	"github.com/franckalain/eatsmarty/internal/database"
	"github.com/franckalain/eatsmarty/internal/decoder"
	"github.com/franckalain/eatsmarty/internal/product"
	"github.com/franckalain/eatsmarty/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Deps are the components the server routes requests to
type Deps struct {
	DB       database.DB
	Decoder  decoder.Decoder
	Resolver *product.Resolver
	Products *store.ProductStore
	Settings *store.SettingsStore
	Catalog  *catalog.Catalog
}

type Server struct {
	deps      Deps
	staticDir string
	logger    *zap.Logger
	upgrader  websocket.Upgrader
	clients   sync.Map // client id -> *wsClient
}

func New(deps Deps, staticDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		deps:      deps,
		staticDir: staticDir,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(withRequestLogging(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products/last", s.handleLastProduct)
		r.Delete("/products/last", s.handleClearLastProduct)
		r.Get("/products/{barcode}", s.handleGetProduct)

		r.Get("/history", s.handleGetHistory)
		r.Delete("/history", s.handleClearHistory)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/additives", s.handleListAdditives)
		r.Get("/additives/{id}", s.handleGetAdditive)
		r.Get("/categories", s.handleListCategories)
		r.Get("/categories/{slug}", s.handleGetCategory)

		r.Get("/scans", s.handleRecentScans)
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

// Start serves on port until ctx is cancelled, then shuts down gracefully and
// closes any open websocket connections.
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	s.clients.Range(func(_, v any) bool {
		v.(*wsClient).close()
		return true
	})
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
