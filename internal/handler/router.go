package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/pkg/respond"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Tasks    *TaskHandler
	Actions  *ActionHandler
	Realtime http.Handler
	Store    Pinger
	Logger   *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter() // Создаем роутер
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key", HeaderUser, HeaderClientID},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Store.Ping(ctx); err != nil {
				d.Logger.Warn("health check failed", zap.Error(err))
				respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	// websocket живет дольше таймаута запросов API
	if d.Realtime != nil {
		r.Handle("/ws", d.Realtime)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", d.Tasks.List)
			r.Post("/", d.Tasks.Create)
			r.Post("/create", d.Tasks.Create)
			r.Get("/stats", d.Tasks.Stats)
			r.Get("/{id}", d.Tasks.Get)
			r.Put("/{id}", d.Tasks.Update)
			r.Delete("/{id}", d.Tasks.Delete)
			r.Post("/{id}/smart-assign", d.Tasks.SmartAssign)
		})

		r.Get("/actions/recent", d.Actions.Recent)
	})

	return r
}
