// Jobqueue Janitor — фоновая очистка истёкших jobs.
//
// Janitor по cron-расписанию удаляет терминальные jobs, у которых
// истёк ttl_seconds. Работает как singleton: лидерство
// обеспечивается advisory lock в Postgres, лишние реплики
// ждут освобождения лока.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/jobqueue/internal/janitor"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/telemetry"
)

const janitorLockKey int64 = 424242

func main() {
	_ = godotenv.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting jobqueue-janitor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	j, err := janitor.New(janitor.Config{
		JobRepo:  repo.NewJobRepo(pool),
		CronExpr: os.Getenv("JANITOR_CRON"),
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create janitor", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("JANITOR_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// janitor loop за advisory lock: тикает только лидер.
	// Лок сессионный, поэтому берётся на выделенном соединении,
	// которое удерживается на всё время работы — pool.QueryRow вернул
	// бы соединение в пул сразу после запроса, и лок пропал бы при
	// его закрытии или достался бы чужой сессии.
	go func() {
		lockConn, err := acquireLeaderLock(ctx, pool, logger)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("failed to acquire janitor lock", "error", err)
				cancel()
			}
			return
		}
		defer func() {
			_, _ = lockConn.Exec(context.Background(), "select pg_advisory_unlock($1)", janitorLockKey)
			lockConn.Release()
		}()

		logger.Info("acquired janitor lock, running as leader")
		if err := j.Run(ctx); err != nil {
			logger.Error("janitor loop error", "error", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("jobqueue-janitor stopped")
}

// acquireLeaderLock блокирует выделенное соединение из пула и берёт на
// нём advisory lock. Соединение не возвращается в пул до конца работы:
// лок живёт ровно столько, сколько живёт его сессия. Не-лидер
// освобождает соединение и повторяет попытку.
func acquireLeaderLock(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*pgxpool.Conn, error) {
	for {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire connection: %w", err)
		}

		var ok bool
		if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", janitorLockKey).Scan(&ok); err != nil {
			conn.Release()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("try advisory lock: %w", err)
		}
		if ok {
			return conn, nil
		}

		// не лидер — ждём и пробуем снова
		conn.Release()
		logger.Info("janitor lock held elsewhere, standing by")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(15 * time.Second):
		}
	}
}
