package router

import (
	"net/http"

	"github.com/Totarae/LearningLog/internal/handlers"
	"github.com/Totarae/LearningLog/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Options — необязательные настройки маршрутизатора.
type Options struct {
	// CORSOrigins разрешённые источники для /api. Пусто — CORS выключен.
	CORSOrigins []string
	// LoginRate запросов в секунду на IP для POST входа и регистрации. 0 — без ограничения.
	LoginRate  float64
	LoginBurst int
	// Metrics, если задан, подключает сбор метрик и /metrics.
	Metrics *middleware.Metrics
}

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *handlers.Handler, logger *zap.Logger, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.LoggingMiddleware(logger)) // Подключаем логирование
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(middleware.GzipMiddleware) // Gzip-сжатие
	r.Use(middleware.Session(handler.Auth, handler.Accounts, logger))

	r.NotFound(handler.NotFound)

	r.Get("/", handler.Index)
	r.Get("/ping", handler.Ping)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	limiter := middleware.NewRateLimiter(opts.LoginRate, opts.LoginBurst, logger)
	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Get("/register/", handler.Register)
			r.Post("/register/", handler.Register)
			r.Get("/login/", handler.Login)
			r.Post("/login/", handler.Login)
		})
		r.Post("/logout/", handler.Logout)
		r.Get("/logout/", handler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(handlers.LoginURL("")))
		r.Get("/topics/", handler.Topics)
		r.Get("/topics/{topicID}/", handler.Topic)
		r.Get("/new_topic/", handler.NewTopic)
		r.Post("/new_topic/", handler.NewTopic)
		r.Get("/success/", handler.Success)
		r.Get("/new_entry/{topicID}/", handler.NewEntry)
		r.Post("/new_entry/{topicID}/", handler.NewEntry)
		r.Get("/edit_entry/{entryID}/", handler.EditEntry)
		r.Post("/edit_entry/{entryID}/", handler.EditEntry)
		r.Get("/remove_entry/{entryID}/", handler.RemoveEntry)
		r.Post("/remove_entry/{entryID}/", handler.RemoveEntry)
	})

	r.Route("/api", func(r chi.Router) {
		if len(opts.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   opts.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(middleware.RequireAPIUser)
		r.Get("/topics", handler.APITopics)
		r.Get("/topics/{topicID}", handler.APITopic)
	})

	return r
}
