package tracker

import (
	"context"

	"tracker/internal/apperr"
	"tracker/internal/models"
	"tracker/internal/policy"
)

// CreateTask adds a pending task to a project. The actor must own or
// collaborate on the project.
func (s *Service) CreateTask(ctx context.Context, actor models.User, projectID int64, in models.NewTaskInput) (models.Task, error) {
	task, err := models.NewTask(projectID, actor.ID, in)
	if err != nil {
		return models.Task{}, err
	}
	if _, err := s.authorizedProject(ctx, actor, policy.CreateTask, projectID); err != nil {
		return models.Task{}, err
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Info("task created", "task_id", created.ID, "project_id", projectID, "creator_id", actor.ID)
	return created, nil
}

// ListTasksByProject returns the tasks of a project. A project without tasks
// yields an empty list.
func (s *Service) ListTasksByProject(ctx context.Context, actor models.User, projectID int64) ([]models.Task, error) {
	if _, err := s.authorizedProject(ctx, actor, policy.ListTasks, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, projectID)
}

// GetTask returns one task of a project the actor can see.
func (s *Service) GetTask(ctx context.Context, actor models.User, projectID, taskID int64) (models.Task, error) {
	_, task, err := s.authorizedTask(ctx, actor, policy.ViewTask, projectID, taskID)
	return task, err
}

// UpdateTask applies a partial update. Only the project owner or the task's
// creator may edit it.
func (s *Service) UpdateTask(ctx context.Context, actor models.User, projectID, taskID int64, patch models.TaskPatch) (models.Task, error) {
	_, task, err := s.authorizedTask(ctx, actor, policy.UpdateTask, projectID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	if patch.Empty() {
		return models.Task{}, apperr.New(apperr.Validation, "nothing to update")
	}

	next, err := patch.Apply(task)
	if err != nil {
		return models.Task{}, err
	}
	updated, err := s.store.UpdateTask(ctx, next)
	if err != nil {
		return models.Task{}, err
	}
	if updated.Status != task.Status {
		s.logger.Info("task status changed", "task_id", taskID, "from", task.Status, "to", updated.Status)
	}
	return updated, nil
}

// DeleteTask removes a task. Only the project owner or the task's creator
// may delete it.
func (s *Service) DeleteTask(ctx context.Context, actor models.User, projectID, taskID int64) error {
	if _, _, err := s.authorizedTask(ctx, actor, policy.DeleteTask, projectID, taskID); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, projectID, taskID); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", taskID, "project_id", projectID)
	return nil
}

func (s *Service) authorizedTask(ctx context.Context, actor models.User, action policy.Action, projectID, taskID int64) (models.Project, models.Task, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return models.Project{}, models.Task{}, err
	}
	task, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return models.Project{}, models.Task{}, err
	}
	if err := policy.Authorize(actor.ID, action, project, &task); err != nil {
		return models.Project{}, models.Task{}, err
	}
	return project, task, nil
}
