package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/collab-board/internal/handler"
	"github.com/BuzzLyutic/collab-board/internal/realtime"
	"github.com/BuzzLyutic/collab-board/internal/repo"
	"github.com/BuzzLyutic/collab-board/internal/service"
	"github.com/BuzzLyutic/collab-board/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Подключаем хранилище
	backend, err := repo.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger.Info("Storage ready", zap.String("store", cfg.Store))

	pool := worker.NewPool(logger.Named("fanout"), cfg.WorkerCount, cfg.FanoutQueue)
	pool.Start(context.Background())
	defer pool.Stop()

	hub := realtime.NewHub(logger.Named("hub"), pool)
	resync, err := realtime.NewResync(hub, cfg.ResyncSchedule, logger.Named("resync"))
	if err != nil {
		return err
	}
	resync.Start()

	taskService := service.NewTaskService(backend.Tasks, backend.Actions, backend.Users,
		service.WithNotifier(hub),
		service.WithLogger(logger.Named("tasks")),
	)
	actionService := service.NewActionService(backend.Actions, cfg.RecentActionsLimit)

	router := handler.NewRouter(handler.RouterDeps{
		Tasks:    handler.NewTaskHandler(taskService, logger),
		Actions:  handler.NewActionHandler(actionService, logger),
		Realtime: realtime.NewHandler(hub, logger.Named("ws"), cfg.WSOriginPatterns),
		Store:    backend,
		Logger:   logger,
	})

	srv := &http.Server{ // Создаем сервер
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
			return err
		}
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	resync.Stop(shutdownCtx)
	hub.CloseAll() // Shutdown не закрывает websocket-соединения
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped successfully!")
	return nil
}
