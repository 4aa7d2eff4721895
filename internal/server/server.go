// Package server exposes taskvault over HTTP. Handlers map one-to-one onto
// task service and cache operations; all policy lives below this layer.
package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault/internal/cache"
	"github.com/taskvault/taskvault/internal/logger"
	"github.com/taskvault/taskvault/internal/model"
	"github.com/taskvault/taskvault/internal/tasks"
)

// TaskService is the surface of the task store the handlers consume.
type TaskService interface {
	Create(ctx context.Context, ownerID int64, in tasks.CreateInput) (*model.Task, error)
	Update(ctx context.Context, taskID, callerID int64, in tasks.UpdateInput) (*model.Task, error)
	Delete(ctx context.Context, taskID, callerID int64) error
	SetCompletion(ctx context.Context, taskID, callerID int64, completed, manageTag bool) error
	ListAll(ctx context.Context) ([]model.TaskView, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.TaskView, error)
	UserByUsername(ctx context.Context, username string) (*model.User, error)
	UserByID(ctx context.Context, id int64) (*model.User, error)
	Priorities(ctx context.Context) ([]model.Priority, error)
}

// AuthService is the credential boundary the handlers consume.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Verify(token string) (int64, error)
}

// Generator is the language-model boundary for the analyze endpoint.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Server wires the HTTP routes to the service layer.
type Server struct {
	router   *gin.Engine
	tasks    TaskService
	auth     AuthService
	llm      Generator
	cache    *cache.ReadCache
	keys     cache.KeyPolicy
	cacheTTL time.Duration
	log      logger.Logger
}

// New creates the server and registers all routes.
func New(taskSvc TaskService, authSvc AuthService, gen Generator, readCache *cache.ReadCache, cacheTTL time.Duration) *Server {
	if cacheTTL <= 0 {
		cacheTTL = cache.DefaultTTL
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:   router,
		tasks:    taskSvc,
		auth:     authSvc,
		llm:      gen,
		cache:    readCache,
		cacheTTL: cacheTTL,
		log:      logger.Server(),
	}

	router.Use(s.requestID(), s.requestLog())

	router.POST("/register", s.handleRegister)
	router.POST("/login", s.handleLogin)

	authed := router.Group("/", s.authRequired())
	{
		authed.POST("/tasks", s.handleCreateTask)
		authed.GET("/tasks", s.handleListTasks)
		authed.POST("/tasks/user", s.handleListUserTasks)
		authed.PUT("/tasks/:id", s.handleUpdateTask)
		authed.DELETE("/tasks/:id", s.handleDeleteTask)
		authed.PATCH("/tasks/:id/complete", s.handleCompleteTask)
		authed.GET("/tasks/export", s.handleExportTasks)
		authed.POST("/tasks/analyze", s.handleAnalyzeTasks)
	}

	return s
}

// Handler exposes the router, used by tests and the serve command.
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.router.Run(addr)
}
