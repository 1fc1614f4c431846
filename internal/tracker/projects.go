package tracker

import (
	"context"
	"strings"

	"tracker/internal/apperr"
	"tracker/internal/models"
	"tracker/internal/policy"
)

// CreateProjectInput is the payload for a new project. Collaborators are
// given by email.
type CreateProjectInput struct {
	Name          string
	Description   string
	Collaborators []string
}

// CreateProject stores a project owned by actor.
func (s *Service) CreateProject(ctx context.Context, actor models.User, in CreateProjectInput) (models.ProjectView, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Description) == "" {
		return models.ProjectView{}, apperr.New(apperr.Validation, "project name and description are required")
	}

	seen := map[int64]bool{actor.ID: true}
	var collaborators []int64
	for _, email := range in.Collaborators {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			continue
		}
		u, err := s.store.FindUserByEmail(ctx, email)
		if apperr.Is(err, apperr.NotFound) {
			return models.ProjectView{}, apperr.Newf(apperr.NotFound, "no user with email %s", email)
		}
		if err != nil {
			return models.ProjectView{}, err
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		collaborators = append(collaborators, u.ID)
	}

	project, err := s.store.CreateProject(ctx, models.Project{
		Name:            in.Name,
		Description:     in.Description,
		OwnerID:         actor.ID,
		CollaboratorIDs: collaborators,
	})
	if err != nil {
		return models.ProjectView{}, err
	}
	s.logger.Info("project created", "project_id", project.ID, "owner_id", actor.ID)
	return s.view(ctx, project)
}

// ListProjects returns every project actor owns or collaborates on.
func (s *Service) ListProjects(ctx context.Context, actor models.User) ([]models.ProjectView, error) {
	projects, err := s.store.ListProjectsForUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, projects)
}

// GetProject returns a project with its tasks. Projects the actor cannot see
// are reported as not found.
func (s *Service) GetProject(ctx context.Context, actor models.User, id int64) (models.ProjectDetail, error) {
	project, err := s.authorizedProject(ctx, actor, policy.ViewProject, id)
	if err != nil {
		return models.ProjectDetail{}, err
	}
	view, err := s.view(ctx, project)
	if err != nil {
		return models.ProjectDetail{}, err
	}
	tasks, err := s.store.ListTasks(ctx, project.ID)
	if err != nil {
		return models.ProjectDetail{}, err
	}
	return models.ProjectDetail{ProjectView: view, Tasks: tasks}, nil
}

// UpdateProject renames or re-describes a project. Only the owner may do so.
func (s *Service) UpdateProject(ctx context.Context, actor models.User, id int64, patch models.ProjectPatch) (models.ProjectView, error) {
	if patch.Name == nil && patch.Description == nil {
		return models.ProjectView{}, apperr.New(apperr.Validation, "project name or description required")
	}
	project, err := s.authorizedProject(ctx, actor, policy.UpdateProject, id)
	if err != nil {
		return models.ProjectView{}, err
	}

	name, description := project.Name, project.Description
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Description != nil {
		description = *patch.Description
	}
	updated, err := s.store.UpdateProject(ctx, project.ID, name, description)
	if err != nil {
		return models.ProjectView{}, err
	}
	return s.view(ctx, updated)
}

// DeleteProject removes a project and all of its tasks, returning how many
// tasks went with it.
func (s *Service) DeleteProject(ctx context.Context, actor models.User, id int64) (int64, error) {
	if _, err := s.authorizedProject(ctx, actor, policy.DeleteProject, id); err != nil {
		return 0, err
	}
	removed, err := s.store.DeleteProject(ctx, id)
	if err != nil {
		return 0, err
	}
	s.logger.Info("project deleted", "project_id", id, "tasks_removed", removed)
	return removed, nil
}

// AddCollaborator invites the user with the given email to a project.
func (s *Service) AddCollaborator(ctx context.Context, actor models.User, id int64, email string) (models.ProjectView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ProjectView{}, apperr.New(apperr.Validation, "collaborator email is required")
	}
	project, err := s.authorizedProject(ctx, actor, policy.InviteCollaborator, id)
	if err != nil {
		return models.ProjectView{}, err
	}

	invitee, err := s.store.FindUserByEmail(ctx, email)
	if apperr.Is(err, apperr.NotFound) {
		return models.ProjectView{}, apperr.Newf(apperr.NotFound, "no user with email %s", email)
	}
	if err != nil {
		return models.ProjectView{}, err
	}
	if project.IsOwner(invitee.ID) {
		return models.ProjectView{}, apperr.New(apperr.Validation, "the owner cannot be added as a collaborator")
	}
	if project.IsCollaborator(invitee.ID) {
		return models.ProjectView{}, apperr.New(apperr.Conflict, "user is already a collaborator")
	}

	if err := s.store.AddCollaborator(ctx, project.ID, invitee.ID); err != nil {
		return models.ProjectView{}, err
	}
	s.logger.Info("collaborator added", "project_id", project.ID, "user_id", invitee.ID)

	project, err = s.store.GetProject(ctx, project.ID)
	if err != nil {
		return models.ProjectView{}, err
	}
	return s.view(ctx, project)
}

func (s *Service) view(ctx context.Context, project models.Project) (models.ProjectView, error) {
	views, err := s.views(ctx, []models.Project{project})
	if err != nil {
		return models.ProjectView{}, err
	}
	return views[0], nil
}

// authorizedProject loads a project and checks action against it.
func (s *Service) authorizedProject(ctx context.Context, actor models.User, action policy.Action, id int64) (models.Project, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, err
	}
	if err := policy.Authorize(actor.ID, action, project, nil); err != nil {
		return models.Project{}, err
	}
	return project, nil
}
