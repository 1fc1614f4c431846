package models

import (
	"testing"
	"time"

	"tracker/internal/apperr"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func day(n int) time.Time {
	return time.Date(2026, time.March, n, 0, 0, 0, 0, time.UTC)
}

func TestNewTaskStartsPending(t *testing.T) {
	task, err := NewTask(7, 3, NewTaskInput{
		Name:      "  Draft plan ",
		StartDate: day(1),
		EndDate:   day(5),
		Priority:  "high",
	})
	if err != nil {
		t.Fatalf("NewTask: %v", err)
	}
	if task.Status != StatusPending {
		t.Errorf("status = %q, want pending", task.Status)
	}
	if task.Priority != PriorityHigh {
		t.Errorf("priority = %q, want High", task.Priority)
	}
	if task.Name != "Draft plan" || task.ProjectID != 7 || task.CreatorID != 3 {
		t.Errorf("unexpected task %+v", task)
	}
}

func TestNewTaskValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewTaskInput
	}{
		{"missing name", NewTaskInput{StartDate: day(1), EndDate: day(2), Priority: "Low"}},
		{"missing start", NewTaskInput{Name: "a", EndDate: day(2), Priority: "Low"}},
		{"missing end", NewTaskInput{Name: "a", StartDate: day(1), Priority: "Low"}},
		{"missing priority", NewTaskInput{Name: "a", StartDate: day(1), EndDate: day(2)}},
		{"unknown priority", NewTaskInput{Name: "a", StartDate: day(1), EndDate: day(2), Priority: "Urgent"}},
		{"end before start", NewTaskInput{Name: "a", StartDate: day(3), EndDate: day(2), Priority: "Low"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTask(1, 1, tt.in)
			if !apperr.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestPatchAppliesOnlyPresentFields(t *testing.T) {
	orig := Task{Name: "a", StartDate: day(1), EndDate: day(4), Priority: PriorityLow, Status: StatusPending}

	got, err := TaskPatch{Priority: strPtr("Medium")}.Apply(orig)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got.Priority != PriorityMedium {
		t.Errorf("priority = %q", got.Priority)
	}
	if got.Name != orig.Name || !got.StartDate.Equal(orig.StartDate) || !got.EndDate.Equal(orig.EndDate) || got.Status != orig.Status {
		t.Errorf("absent fields changed: %+v", got)
	}
}

func TestPatchStatusTransitions(t *testing.T) {
	tests := []struct {
		from    TaskStatus
		to      string
		wantErr bool
	}{
		{StatusPending, "completed", false},
		{StatusCompleted, "pending", false},
		{StatusExpired, "pending", false},
		{StatusExpired, "completed", false},
		{StatusPending, "expired", true},
		{StatusCompleted, "expired", true},
		{StatusExpired, "expired", false},
		{StatusPending, "archived", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+tt.to, func(t *testing.T) {
			task := Task{Name: "a", StartDate: day(1), EndDate: day(2), Priority: PriorityLow, Status: tt.from}
			_, err := TaskPatch{Status: strPtr(tt.to)}.Apply(task)
			if tt.wantErr && !apperr.Is(err, apperr.Validation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPatchRejectsInvertedDates(t *testing.T) {
	task := Task{Name: "a", StartDate: day(1), EndDate: day(5), Priority: PriorityLow, Status: StatusPending}
	_, err := TaskPatch{StartDate: timePtr(day(9))}.Apply(task)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("err = %v, want validation error", err)
	}
	_, err = TaskPatch{Name: strPtr("   ")}.Apply(task)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("blank name err = %v, want validation error", err)
	}
}

func TestUserLocked(t *testing.T) {
	now := day(10)
	if (User{}).Locked(now) {
		t.Error("zero lockout reported locked")
	}
	if !(User{LockedUntil: now.Add(time.Hour)}).Locked(now) {
		t.Error("future lockout not reported")
	}
	if (User{LockedUntil: now}).Locked(now) {
		t.Error("lockout ending now still reported")
	}
}

func TestProjectMembership(t *testing.T) {
	p := Project{OwnerID: 1, CollaboratorIDs: []int64{2, 3}}
	if !p.IsOwner(1) || p.IsOwner(2) {
		t.Error("IsOwner mismatch")
	}
	if !p.IsCollaborator(3) || p.IsCollaborator(1) {
		t.Error("IsCollaborator mismatch")
	}
}
