package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tracker/internal/models"
	"tracker/internal/tracker"
)

type projectRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Collaborators []string `json:"collaborators"`
}

type collaboratorRequest struct {
	Email string `json:"email"`
}

// handleListProjects returns the projects visible to the caller.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.tracker.ListProjects(c.Request.Context(), currentUser(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"projects": projects}, "Projects retrieved successfully")
}

// handleCreateProject creates a new project owned by the caller.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.tracker.CreateProject(c.Request.Context(), currentUser(c), tracker.CreateProjectInput{
		Name:          getString(req.Name),
		Description:   getString(req.Description),
		Collaborators: req.Collaborators,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"project": project}, "Project created successfully")
}

// handleGetProject returns one project with its tasks.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	project, err := s.tracker.GetProject(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project}, "Project retrieved successfully")
}

// handleUpdateProject renames or re-describes an existing project.
func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.tracker.UpdateProject(c.Request.Context(), currentUser(c), id, models.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project}, "Project updated successfully")
}

// handleDeleteProject removes a project and all related tasks.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	removed, err := s.tracker.DeleteProject(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks_removed": removed}, "Project deleted successfully")
}

// handleAddCollaborator invites a user to the project by email.
func (s *Server) handleAddCollaborator(c *gin.Context) {
	id, ok := s.parseID(c, "id")
	if !ok {
		return
	}

	var req collaboratorRequest
	if !s.bindJSON(c, &req) {
		return
	}

	project, err := s.tracker.AddCollaborator(c.Request.Context(), currentUser(c), id, req.Email)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"project": project}, "Collaborator added successfully")
}

func getString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
