package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires the site endpoints onto a chi router.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	// middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// basic cors
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// health check
	r.Get("/health", handler.Health)

	// site pages
	r.Get("/", handler.Home)
	r.Post("/", handler.Home)

	// contact form submission
	r.Post("/contact/", handler.ContactForm)

	// bot endpoints: update receiver and the admin webhook controls are
	// separate routes so Telegram's POSTs never hit the admin page
	r.Route("/bot", func(r chi.Router) {
		r.Post("/update/", handler.WebhookUpdate)
		r.Get("/webhook/", handler.WebhookStatus)
		r.Post("/webhook/", handler.WebhookRegister)
	})

	return r
}

// Server wraps the HTTP server with graceful lifecycle control.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	port       int
}

// NewServer creates an HTTP server for the given router.
func NewServer(port int, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		port: port,
	}
}

// Start listens on the configured port and serves until Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// BaseURL returns the server's base URL once it is listening.
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.port)
}
