// Jobqueue API — HTTP-сервер управления очередью.
//
// API:
//   - CRUD для job masters, task masters и interface masters
//   - История версий masters и создание masters из снимков
//   - Workflow цепочки и их валидация
//   - Постановка, отмена и повтор jobs, выдача результатов
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/jobqueue/internal/api"
	"github.com/shaiso/jobqueue/internal/mq"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
	"github.com/shaiso/jobqueue/internal/version"
)

var startTime = time.Now()

func main() {
	// .env опционален, в контейнере конфигурация приходит из окружения
	_ = godotenv.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting jobqueue-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Создаём репозитории
	jobMasterRepo := repo.NewJobMasterRepo(pool)
	taskMasterRepo := repo.NewTaskMasterRepo(pool)
	interfaceRepo := repo.NewInterfaceRepo(pool)
	workflowRepo := repo.NewWorkflowRepo(pool)
	jobRepo := repo.NewJobRepo(pool)
	taskRepo := repo.NewTaskRepo(pool)
	resultRepo := repo.NewResultRepo(pool)

	// RabbitMQ — опциональный ускоритель: без него воркеры
	// подберут jobs на очередном poll.
	var publisher *mq.Publisher
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, submissions rely on worker polling", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
	}

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		JobMasterRepo:  jobMasterRepo,
		TaskMasterRepo: taskMasterRepo,
		InterfaceRepo:  interfaceRepo,
		WorkflowRepo:   workflowRepo,
		JobRepo:        jobRepo,
		TaskRepo:       taskRepo,
		ResultRepo:     resultRepo,
		Versions:       version.NewManager(jobMasterRepo, taskMasterRepo),
		Publisher:      publisher,
		Logger:         logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		mqState := "disconnected"
		if mqConn != nil && mqConn.IsConnected() {
			mqState = "connected"
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s mq=%s", time.Since(startTime), mqState)
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
