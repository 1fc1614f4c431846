package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tracker/internal/apperr"
	"tracker/internal/models"
)

const projectColumns = `p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at`

const msgProjectExists = "project with name or description already exists"

func scanProject(row rowScanner) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProject persists a project together with its initial collaborators.
// Project names and descriptions are unique across all owners.
func (s *Store) CreateProject(ctx context.Context, p models.Project) (models.Project, error) {
	name := strings.TrimSpace(p.Name)
	description := strings.TrimSpace(p.Description)
	if name == "" || description == "" {
		return models.Project{}, apperr.New(apperr.Validation, "project name and description are required")
	}

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE name = ? OR description = ?`, name, description).Scan(&existing); err != nil {
			return fmt.Errorf("check existing project: %w", err)
		}
		if existing > 0 {
			return apperr.New(apperr.Conflict, msgProjectExists)
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO projects(name, description, owner_id) VALUES(?, ?, ?)`, name, description, p.OwnerID)
		if isUniqueViolation(err) {
			return apperr.Wrap(apperr.Conflict, err, msgProjectExists)
		}
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("project id: %w", err)
		}

		for _, userID := range p.CollaboratorIDs {
			if userID == p.OwnerID {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO project_collaborators(project_id, user_id) VALUES(?, ?)`, id, userID); err != nil {
				return fmt.Errorf("insert collaborator: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a single project by id with its collaborator ids.
func (s *Store) GetProject(ctx context.Context, id int64) (models.Project, error) {
	p, err := scanProject(s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects p WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, apperr.New(apperr.NotFound, "project not found")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}

	collaborators, err := s.collaboratorIDs(ctx, []int64{p.ID})
	if err != nil {
		return models.Project{}, err
	}
	p.CollaboratorIDs = collaborators[p.ID]
	return p, nil
}

// ListProjectsForUser returns projects the user owns or collaborates on,
// ordered by creation date.
func (s *Store) ListProjectsForUser(ctx context.Context, userID int64) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects p
        WHERE p.owner_id = ?
           OR EXISTS (SELECT 1 FROM project_collaborators c WHERE c.project_id = p.id AND c.user_id = ?)
        ORDER BY p.created_at ASC, p.id ASC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var (
		projects []models.Project
		ids      []int64
	)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	collaborators, err := s.collaboratorIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].CollaboratorIDs = collaborators[projects[i].ID]
	}
	return projects, nil
}

func (s *Store) collaboratorIDs(ctx context.Context, projectIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}

	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT project_id, user_id FROM project_collaborators
        WHERE project_id IN (?`+strings.Repeat(",?", len(projectIDs)-1)+`)
        ORDER BY added_at ASC, user_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID, userID int64
		if err := rows.Scan(&projectID, &userID); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		out[projectID] = append(out[projectID], userID)
	}
	return out, rows.Err()
}

// UpdateProject rewrites the name and description of a project.
func (s *Store) UpdateProject(ctx context.Context, id int64, name, description string) (models.Project, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return models.Project{}, apperr.New(apperr.Validation, "project name and description must not be empty")
	}

	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ? WHERE id = ?`, name, description, id)
	if isUniqueViolation(err) {
		return models.Project{}, apperr.Wrap(apperr.Conflict, err, msgProjectExists)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := expectAffected(res, "project not found"); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its tasks and reports how many
// tasks were removed.
func (s *Store) DeleteProject(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return expectAffected(res, "project not found")
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("project deleted", "project_id", id, "tasks_removed", removed)
	return removed, nil
}

// AddCollaborator grants userID collaborator access to a project.
func (s *Store) AddCollaborator(ctx context.Context, projectID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO project_collaborators(project_id, user_id) VALUES(?, ?)`, projectID, userID)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.Conflict, err, "user is already a collaborator")
	}
	if err != nil {
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}
