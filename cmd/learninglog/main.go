package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Totarae/LearningLog/internal/auth"
	"github.com/Totarae/LearningLog/internal/config"
	"github.com/Totarae/LearningLog/internal/database"
	"github.com/Totarae/LearningLog/internal/handlers"
	"github.com/Totarae/LearningLog/internal/middleware"
	"github.com/Totarae/LearningLog/internal/repositories"
	"github.com/Totarae/LearningLog/internal/router"
	"github.com/Totarae/LearningLog/internal/service"
	"github.com/Totarae/LearningLog/internal/storage"
	"github.com/Totarae/LearningLog/internal/views"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	if err := run(logger); err != nil {
		logger.Error("Ошибка при запуске сервера", zap.Error(err))
		_ = logger.Sync()
		exitWithError()
	}
	_ = logger.Sync()
}

// exitWithError завершает процесс с кодом 1 после того, как main сбросила логи.
func exitWithError() {
	os.Exit(1)
}

func run(logger *zap.Logger) error {
	// Инициализация конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	secret := cfg.SecretKey
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("SECRET_KEY не задан, сессии не переживут перезапуск")
	}
	a := auth.New(secret)
	a.MaxAge = cfg.SessionMaxAge
	a.Secure = cfg.EnableHTTPS

	rd, err := views.New(logger)
	if err != nil {
		return err
	}

	handler := handlers.NewHandler(
		service.NewJournalService(repo, logger),
		service.NewAccountService(repo, logger),
		a, rd, logger,
	)
	r := router.NewRouter(handler, logger, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		LoginRate:   cfg.LoginRateLimit,
		LoginBurst:  cfg.LoginBurst,
		Metrics:     middleware.NewMetrics("learninglog"),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Сервер запущен",
			zap.String("address", cfg.ServerAddress),
			zap.String("mode", cfg.Mode),
			zap.Bool("https", cfg.EnableHTTPS))
		if cfg.EnableHTTPS {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("Получен сигнал остановки")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Сервер остановлен")
	return nil
}

// openRepository выбирает хранилище по режиму конфигурации.
func openRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Repository, func(), error) {
	switch cfg.Mode {
	case config.ModeDatabase:
		if err := database.Migrate(cfg.DatabaseDSN, cfg.PgMigrationsPath, logger); err != nil {
			return nil, nil, err
		}
		db, err := database.NewDB(ctx, cfg.DatabaseDSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewJournalRepository(db), db.Close, nil
	case config.ModeSQLite:
		repo, err := repositories.NewSQLiteRepository(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {
			if err := repo.Close(); err != nil {
				logger.Error("close sqlite", zap.Error(err))
			}
		}, nil
	default:
		return storage.NewStore(cfg.FileStoragePath), func() {}, nil
	}
}
