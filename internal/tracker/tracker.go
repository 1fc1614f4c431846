// Package tracker implements the project and task operations. Every call
// loads the records it needs, asks the policy package for a decision and
// only then touches storage.
package tracker

import (
	"context"
	"io"
	"log/slog"

	"tracker/internal/models"
)

// Store is the persistence the tracker needs.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
	UsersByIDs(ctx context.Context, ids []int64) (map[int64]models.User, error)

	CreateProject(ctx context.Context, p models.Project) (models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error)
	UpdateProject(ctx context.Context, id int64, name, description string) (models.Project, error)
	DeleteProject(ctx context.Context, id int64) (int64, error)
	AddCollaborator(ctx context.Context, projectID, userID int64) error

	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	GetTask(ctx context.Context, projectID, id int64) (models.Task, error)
	ListTasks(ctx context.Context, projectID int64) ([]models.Task, error)
	UpdateTask(ctx context.Context, t models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, projectID, id int64) error
}

// Service exposes the tracker operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New builds a Service.
func New(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{store: store, logger: logger}
}

// views resolves owner and collaborator profiles for a set of projects.
func (s *Service) views(ctx context.Context, projects []models.Project) ([]models.ProjectView, error) {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range projects {
		add(p.OwnerID)
		for _, id := range p.CollaboratorIDs {
			add(id)
		}
	}
	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.ProjectView, 0, len(projects))
	for _, p := range projects {
		v := models.ProjectView{
			Project:       p,
			Owner:         users[p.OwnerID].Public(),
			Collaborators: make([]models.PublicUser, 0, len(p.CollaboratorIDs)),
		}
		for _, id := range p.CollaboratorIDs {
			if u, ok := users[id]; ok {
				v.Collaborators = append(v.Collaborators, u.Public())
			}
		}
		views = append(views, v)
	}
	return views, nil
}
