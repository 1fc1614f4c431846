package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tracker/internal/apperr"
	"tracker/internal/models"
)

const taskColumns = `id, project_id, creator_id, name, start_date, end_date, priority, status, created_at, updated_at`

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t          models.Task
		start, end int64
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.CreatorID, &t.Name, &start, &end, &t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.StartDate = fromMillis(start)
	t.EndDate = fromMillis(end)
	return t, nil
}

// ListTasks returns the tasks of a project ordered by end date.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY end_date, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new task for a project.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO tasks(project_id, creator_id, name, start_date, end_date, priority, status) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.ProjectID, t.CreatorID, t.Name, toMillis(t.StartDate), toMillis(t.EndDate), t.Priority, t.Status)
	if err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Task{}, fmt.Errorf("task id: %w", err)
	}
	return s.GetTask(ctx, t.ProjectID, id)
}

// GetTask retrieves a task by id within the given project.
func (s *Store) GetTask(ctx context.Context, projectID, id int64) (models.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND project_id = ?`, id, projectID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, apperr.New(apperr.NotFound, "task not found")
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask writes the mutable fields of t.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET name = ?, start_date = ?, end_date = ?, priority = ?, status = ? WHERE id = ? AND project_id = ?`,
		t.Name, toMillis(t.StartDate), toMillis(t.EndDate), t.Priority, t.Status, t.ID, t.ProjectID)
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := expectAffected(res, "task not found"); err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, t.ProjectID, t.ID)
}

// DeleteTask removes a task from a project.
func (s *Store) DeleteTask(ctx context.Context, projectID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return expectAffected(res, "task not found")
}

// ExpireOverdue marks every pending task whose end date is before now as
// expired in a single statement and returns the number of tasks changed.
func (s *Store) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE status = ? AND end_date < ?`,
		models.StatusExpired, models.StatusPending, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("expire tasks: %w", err)
	}
	return res.RowsAffected()
}
