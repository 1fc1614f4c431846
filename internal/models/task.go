package models

import (
	"strings"
	"time"

	"tracker/internal/apperr"
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority accepts the canonical names case-insensitively.
func ParsePriority(raw string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", apperr.Newf(apperr.Validation, "priority must be one of Low, Medium, High")
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusExpired   TaskStatus = "expired"
)

// ParseTaskStatus validates a status name.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch s := TaskStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusCompleted, StatusExpired:
		return s, nil
	}
	return "", apperr.New(apperr.Validation, "status must be one of pending, completed, expired")
}

// UserSettable reports whether a user edit may move a task into s.
// Expired is reached only through the sweep.
func (s TaskStatus) UserSettable() bool {
	return s == StatusPending || s == StatusCompleted
}

// Sweepable reports whether the expiry sweep may move a task out of s.
func (s TaskStatus) Sweepable() bool {
	return s == StatusPending
}

// NewTaskInput holds the fields required to create a task.
type NewTaskInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Priority  string
}

// NewTask validates input and returns a pending task.
func NewTask(projectID, creatorID int64, in NewTaskInput) (Task, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.StartDate.IsZero() || in.EndDate.IsZero() || strings.TrimSpace(in.Priority) == "" {
		return Task{}, apperr.New(apperr.Validation, "task name, start date, end date, and priority are required")
	}
	priority, err := ParsePriority(in.Priority)
	if err != nil {
		return Task{}, err
	}
	if in.EndDate.Before(in.StartDate) {
		return Task{}, apperr.New(apperr.Validation, "end date must not be before start date")
	}
	return Task{
		ProjectID: projectID,
		CreatorID: creatorID,
		Name:      name,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		Priority:  priority,
		Status:    StatusPending,
	}, nil
}

// TaskPatch carries a partial task update; nil fields are left untouched.
type TaskPatch struct {
	Name      *string
	StartDate *time.Time
	EndDate   *time.Time
	Priority  *string
	Status    *string
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Name == nil && p.StartDate == nil && p.EndDate == nil && p.Priority == nil && p.Status == nil
}

// Apply returns t with the present patch fields applied.
func (p TaskPatch) Apply(t Task) (Task, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return Task{}, apperr.New(apperr.Validation, "task name must not be empty")
		}
		t.Name = name
	}
	if p.StartDate != nil {
		if p.StartDate.IsZero() {
			return Task{}, apperr.New(apperr.Validation, "start date must not be empty")
		}
		t.StartDate = p.StartDate.UTC()
	}
	if p.EndDate != nil {
		if p.EndDate.IsZero() {
			return Task{}, apperr.New(apperr.Validation, "end date must not be empty")
		}
		t.EndDate = p.EndDate.UTC()
	}
	if t.EndDate.Before(t.StartDate) {
		return Task{}, apperr.New(apperr.Validation, "end date must not be before start date")
	}
	if p.Priority != nil {
		priority, err := ParsePriority(*p.Priority)
		if err != nil {
			return Task{}, err
		}
		t.Priority = priority
	}
	if p.Status != nil {
		status, err := ParseTaskStatus(*p.Status)
		if err != nil {
			return Task{}, err
		}
		if status != t.Status && !status.UserSettable() {
			return Task{}, apperr.Newf(apperr.Validation, "status %q is set by the expiry sweep only", status)
		}
		t.Status = status
	}
	return t, nil
}
