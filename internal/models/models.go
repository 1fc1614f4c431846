package models

import "time"

// User is an account as stored, including credential bookkeeping.
type User struct {
	ID             int64     `json:"id"`
	FullName       string    `json:"full_name"`
	Email          string    `json:"email"`
	Handle         string    `json:"handle"`
	PasswordHash   string    `json:"-"`
	FailedLogins   int       `json:"-"`
	LockedUntil    time.Time `json:"-"`
	RefreshTokenID string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PublicUser is the profile returned to clients.
type PublicUser struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips credential fields from u.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Handle:    u.Handle,
		CreatedAt: u.CreatedAt,
	}
}

// Locked reports whether login attempts are refused at now.
func (u User) Locked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}

// Project groups tasks under one owner and a set of collaborators.
type Project struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	OwnerID         int64     `json:"owner_id"`
	CollaboratorIDs []int64   `json:"collaborator_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsOwner reports whether userID owns p.
func (p Project) IsOwner(userID int64) bool {
	return p.OwnerID == userID
}

// IsCollaborator reports whether userID was invited to p.
func (p Project) IsCollaborator(userID int64) bool {
	for _, id := range p.CollaboratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ProjectView is a project with member identities resolved for display.
type ProjectView struct {
	Project
	Owner         PublicUser   `json:"owner"`
	Collaborators []PublicUser `json:"collaborators"`
}

// ProjectDetail adds the project's tasks to a ProjectView.
type ProjectDetail struct {
	ProjectView
	Tasks []Task `json:"tasks"`
}

// ProjectPatch carries a partial project update.
type ProjectPatch struct {
	Name        *string
	Description *string
}

// Task is a unit of work inside exactly one project.
type Task struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	CreatorID int64      `json:"creator_id"`
	Name      string     `json:"name"`
	StartDate time.Time  `json:"start_date"`
	EndDate   time.Time  `json:"end_date"`
	Priority  Priority   `json:"priority"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
