package api

import (
	"log/slog"

	"github.com/shaiso/jobqueue/internal/mq"
	"github.com/shaiso/jobqueue/internal/repo"
	"github.com/shaiso/jobqueue/internal/version"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	jobMasterRepo  *repo.JobMasterRepo
	taskMasterRepo *repo.TaskMasterRepo
	interfaceRepo  *repo.InterfaceRepo
	workflowRepo   *repo.WorkflowRepo
	jobRepo        *repo.JobRepo
	taskRepo       *repo.TaskRepo
	resultRepo     *repo.ResultRepo
	versions       *version.Manager
	publisher      *mq.Publisher
	logger         *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	JobMasterRepo  *repo.JobMasterRepo
	TaskMasterRepo *repo.TaskMasterRepo
	InterfaceRepo  *repo.InterfaceRepo
	WorkflowRepo   *repo.WorkflowRepo
	JobRepo        *repo.JobRepo
	TaskRepo       *repo.TaskRepo
	ResultRepo     *repo.ResultRepo
	Versions       *version.Manager
	Publisher      *mq.Publisher
	Logger         *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		jobMasterRepo:  cfg.JobMasterRepo,
		taskMasterRepo: cfg.TaskMasterRepo,
		interfaceRepo:  cfg.InterfaceRepo,
		workflowRepo:   cfg.WorkflowRepo,
		jobRepo:        cfg.JobRepo,
		taskRepo:       cfg.TaskRepo,
		resultRepo:     cfg.ResultRepo,
		versions:       cfg.Versions,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
	}
}
