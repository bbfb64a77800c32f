package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики жизненного цикла jobs. Лейбл status — терминальный статус
// (SUCCEEDED, FAILED, CANCELED).
var (
	// JobsSubmitted — количество принятых jobs.
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobqueue_jobs_submitted_total",
		Help: "Total number of submitted jobs.",
	})

	// JobsClaimed — количество захватов jobs воркерами.
	JobsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobqueue_jobs_claimed_total",
		Help: "Total number of jobs claimed by workers.",
	})

	// JobsFinished — количество завершённых jobs по статусам.
	JobsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_jobs_finished_total",
		Help: "Total number of finished jobs by terminal status.",
	}, []string{"status"})

	// JobRetries — количество запланированных повторных попыток.
	JobRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobqueue_job_retries_total",
		Help: "Total number of scheduled job retries.",
	})

	// JobDuration — длительность выполнения одной попытки job.
	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobqueue_job_duration_seconds",
		Help:    "Duration of a single job attempt.",
		Buckets: prometheus.DefBuckets,
	})

	// TasksFinished — количество завершённых tasks по статусам.
	TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_tasks_finished_total",
		Help: "Total number of finished workflow tasks by status.",
	}, []string{"status"})

	// QueueDepth — текущее количество jobs в каждом статусе.
	// Обновляется воркером периодическим опросом БД.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "jobqueue_jobs_by_status",
		Help: "Current number of jobs by status.",
	}, []string{"status"})

	// PurgedJobs — количество удалённых по TTL jobs.
	PurgedJobs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobqueue_jobs_purged_total",
		Help: "Total number of jobs purged after TTL expiry.",
	})

	// HTTPRequests — количество HTTP запросов к API по методам и статусам.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobqueue_http_requests_total",
		Help: "Total number of API HTTP requests.",
	}, []string{"method", "status"})
)
