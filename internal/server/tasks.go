package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tracker/internal/apperr"
	"tracker/internal/models"
)

type taskRequest struct {
	Name      *string `json:"name"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Priority  *string `json:"priority"`
	Status    *string `json:"status"`
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates (UTC).
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		return &time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Newf(apperr.Validation, "%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", field)
}

func (r taskRequest) dates() (start, end *time.Time, err error) {
	if start, err = parseDate("start_date", r.StartDate); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate("end_date", r.EndDate); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// handleListTasks fetches tasks for a project.
func (s *Server) handleListTasks(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	tasks, err := s.tracker.ListTasksByProject(c.Request.Context(), currentUser(c), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": tasks}, "Tasks retrieved successfully")
}

// handleCreateTask inserts a new task into a project.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		s.respondError(c, err)
		return
	}

	in := models.NewTaskInput{
		Name:     getString(req.Name),
		Priority: getString(req.Priority),
	}
	if start != nil {
		in.StartDate = *start
	}
	if end != nil {
		in.EndDate = *end
	}

	task, err := s.tracker.CreateTask(c.Request.Context(), currentUser(c), projectID, in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task}, "Task created successfully")
}

// handleGetTask returns a single task of a project.
func (s *Server) handleGetTask(c *gin.Context) {
	taskID, projectID, ok := s.taskPath(c)
	if !ok {
		return
	}

	task, err := s.tracker.GetTask(c.Request.Context(), currentUser(c), projectID, taskID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task}, "Task retrieved successfully")
}

// handleUpdateTask updates the fields present in the request body.
func (s *Server) handleUpdateTask(c *gin.Context) {
	taskID, projectID, ok := s.taskPath(c)
	if !ok {
		return
	}

	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	start, end, err := req.dates()
	if err != nil {
		s.respondError(c, err)
		return
	}

	task, err := s.tracker.UpdateTask(c.Request.Context(), currentUser(c), projectID, taskID, models.TaskPatch{
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Priority:  req.Priority,
		Status:    req.Status,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task}, "Task updated successfully")
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	taskID, projectID, ok := s.taskPath(c)
	if !ok {
		return
	}

	if err := s.tracker.DeleteTask(c.Request.Context(), currentUser(c), projectID, taskID); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, nil, "Task deleted successfully")
}

func (s *Server) taskPath(c *gin.Context) (taskID, projectID int64, ok bool) {
	if taskID, ok = s.parseID(c, "id"); !ok {
		return 0, 0, false
	}
	if projectID, ok = s.parseID(c, "projectId"); !ok {
		return 0, 0, false
	}
	return taskID, projectID, true
}
