package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskvault/taskvault/internal/model"
	"github.com/taskvault/taskvault/internal/tasks"
)

// respondError maps the error taxonomy onto HTTP statuses. Store and
// upstream failures are surfaced as a generic server error.
func (s *Server) respondError(c *gin.Context, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
	case errors.Is(err, model.ErrPermission):
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to modify this task"})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	default:
		s.log.Error("request failed", "error", err, "request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.auth.Register(c.Request.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, model.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user registered successfully"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrPermission) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

type createTaskRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	PriorityID  *int64   `json:"priority_id"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must be a non-empty string"})
		return
	}
	if req.PriorityID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority_id must be an integer"})
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), callerID(c), tasks.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		PriorityID:  *req.PriorityID,
		Tags:        req.Tags,
	})
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) && ve.Field == "priority_id" {
			// Help the caller out with the valid choices.
			names := []string{}
			if priorities, perr := s.tasks.Priorities(c.Request.Context()); perr == nil {
				for _, p := range priorities {
					names = append(names, p.Name)
				}
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority_id", "available_priorities": names})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "task successfully created", "id": task.ID})
}

// handleListTasks serves the all-tasks listing through the read cache. The
// "fresh" query parameter is the bust token: when present the cache is
// neither read nor populated.
func (s *Server) handleListTasks(c *gin.Context) {
	bust := c.Query("fresh")
	key := s.keys.AllKey(bust)
	bypass := s.keys.Bypass(bust)

	if !bypass {
		if snap, ok := s.cache.Get(key); ok {
			c.Data(http.StatusOK, "application/json", snap)
			return
		}
	}

	views, err := s.tasks.ListAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	snap, err := tasks.Snapshot(views)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if !bypass {
		s.cache.Set(key, snap, s.cacheTTL)
	}
	c.Data(http.StatusOK, "application/json", snap)
}

type listUserTasksRequest struct {
	Username *string `json:"username"`
}

type userTasksResponse struct {
	TaskCount int              `json:"task_count"`
	Tasks     []model.TaskView `json:"tasks"`
}

// handleListUserTasks serves a per-owner listing. The owner defaults to the
// caller and may be overridden by username; either spelling resolves to the
// same canonical cache key.
func (s *Server) handleListUserTasks(c *gin.Context) {
	var req listUserTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var owner *model.User
	var err error
	if req.Username != nil && *req.Username != "" {
		owner, err = s.tasks.UserByUsername(c.Request.Context(), *req.Username)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
				return
			}
			s.respondError(c, err)
			return
		}
	} else {
		owner, err = s.tasks.UserByID(c.Request.Context(), callerID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}
	}

	bust := c.Query("fresh")
	key := s.keys.OwnerKey(owner.ID, bust)
	bypass := s.keys.Bypass(bust)

	if !bypass {
		if snap, ok := s.cache.Get(key); ok {
			c.Data(http.StatusOK, "application/json", snap)
			return
		}
	}

	views, err := s.tasks.ListByOwner(c.Request.Context(), owner.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if views == nil {
		views = []model.TaskView{}
	}

	body, err := json.Marshal(userTasksResponse{TaskCount: len(views), Tasks: views})
	if err != nil {
		s.respondError(c, err)
		return
	}

	if !bypass {
		s.cache.Set(key, body, s.cacheTTL)
	}
	c.Data(http.StatusOK, "application/json", body)
}

type updateTaskRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	PriorityID  *int64   `json:"priority_id"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), taskID, callerID(c), tasks.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		PriorityID:  req.PriorityID,
		Tags:        req.Tags,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task successfully updated", "id": task.ID})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := s.tasks.Delete(c.Request.Context(), taskID, callerID(c)); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task successfully deleted"})
}

type completeTaskRequest struct {
	Completed *bool `json:"completed"`
	ManageTag *bool `json:"manage_tag"`
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req completeTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Completed == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "completed must be a boolean"})
		return
	}

	manageTag := true
	if req.ManageTag != nil {
		manageTag = *req.ManageTag
	}

	if err := s.tasks.SetCompletion(c.Request.Context(), taskID, callerID(c), *req.Completed, manageTag); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task completion updated", "completed": *req.Completed})
}

// handleExportTasks downloads the caller's tasks as a JSON attachment.
func (s *Server) handleExportTasks(c *gin.Context) {
	views, err := s.tasks.ListByOwner(c.Request.Context(), callerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	snap, err := tasks.Snapshot(views)
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("tasks_export_%s.json", time.Now().UTC().Format("20060102T150405Z"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", snap)
}

type analyzeTasksRequest struct {
	Question string `json:"question"`
}

// handleAnalyzeTasks serializes the caller's tasks and asks the language
// model the supplied question about them.
func (s *Server) handleAnalyzeTasks(c *gin.Context) {
	var req analyzeTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question must be a non-empty string"})
		return
	}

	views, err := s.tasks.ListByOwner(c.Request.Context(), callerID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	snap, err := tasks.Snapshot(views)
	if err != nil {
		s.respondError(c, err)
		return
	}

	prompt := fmt.Sprintf("Here are my current tasks as JSON:\n%s\n\nQuestion: %s", snap, req.Question)
	answer, err := s.llm.Generate(c.Request.Context(), prompt)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"analysis": answer})
}

func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task id must be an integer"})
		return 0, false
	}
	return id, true
}
