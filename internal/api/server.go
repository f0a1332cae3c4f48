package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/UkralStul/noticeboard/internal/board"
	"github.com/UkralStul/noticeboard/internal/dataloader"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/metrics"
	"github.com/UkralStul/noticeboard/internal/storage"
)

type contextKey string

const loggerContextKey = contextKey("logger")

// Pinger - хранилище, умеющее проверять свою доступность.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server - REST API доски объявлений.
type Server struct {
	board    *board.Board
	store    storage.Storage
	observer *events.Observer
	logger   *slog.Logger
	upgrader websocket.Upgrader

	router chi.Router
}

// New собирает роутер со всеми маршрутами.
func New(b *board.Board, store storage.Storage, observer *events.Observer, logger *slog.Logger) *Server {
	s := &Server{
		board:    b,
		store:    store,
		observer: observer,
		logger:   logger.With("component", "api.Server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(metrics.Middleware)
	r.Use(func(next http.Handler) http.Handler {
		return dataloader.Middleware(s.store, next)
	})

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/signup", s.signup)
	r.Post("/login", s.login)

	r.Post("/create", s.createPost)
	r.Get("/list", s.listPosts)
	r.Get("/api/search", s.searchPosts)

	r.Route("/detail/{id}", func(r chi.Router) {
		r.Get("/", s.postDetail)
		r.Put("/", s.updatePost)
		r.Delete("/", s.deletePost)
		r.Put("/views", s.incrementViews)
	})

	// POST и GET принимают id поста, DELETE - id комментария.
	r.Route("/comments/{id}", func(r chi.Router) {
		r.Post("/", s.createComment)
		r.Get("/", s.listComments)
		r.Delete("/", s.deleteComment)
		r.Get("/stream", s.streamPost)
	})

	r.Route("/api/comments/{id}/likes", s.likeRoutes(commentTarget))
	r.Route("/api/posts/{id}/likes", s.likeRoutes(postTarget))

	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run обслуживает запросы до отмены ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Handler:           s,
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("Starting API server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("Shutting down API server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With(
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		ctx := context.WithValue(r.Context(), loggerContextKey, logger)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("request", "duration", time.Since(start), "status", ww.Status())
	})
}

// Recovering panics and logging. http.ErrAbortHandler пробрасывается дальше,
// как в middleware.Recoverer.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				s.requestLog(r).Error("panic recovered", "error", err)
				writeMessage(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLog(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return s.logger
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.requestLog(r).Error("health check failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, "storage unavailable")
			return
		}
	}
	writeMessage(w, http.StatusOK, "ok")
}
