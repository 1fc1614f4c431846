package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tracker/internal/apperr"
	"tracker/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "nested", "tracker.db"), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *Store, handle string) models.User {
	t.Helper()

	u, err := store.CreateUser(context.Background(), models.User{
		FullName:     "User " + handle,
		Email:        handle + "@x.com",
		Handle:       handle,
		PasswordHash: "hash-" + handle,
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", handle, err)
	}
	return u
}

func seedProject(t *testing.T, store *Store, owner models.User, name string, collaborators ...int64) models.Project {
	t.Helper()

	p, err := store.CreateProject(context.Background(), models.Project{
		Name:            name,
		Description:     name + " plan",
		OwnerID:         owner.ID,
		CollaboratorIDs: collaborators,
	})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", name, err)
	}
	return p
}

func seedTask(t *testing.T, store *Store, project models.Project, creator models.User, end time.Time) models.Task {
	t.Helper()

	task, err := store.CreateTask(context.Background(), models.Task{
		ProjectID: project.ID,
		CreatorID: creator.ID,
		Name:      "task",
		StartDate: end.Add(-48 * time.Hour),
		EndDate:   end,
		Priority:  models.PriorityMedium,
		Status:    models.StatusPending,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestCreateUserConflicts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedUser(t, store, "alice")

	tests := []struct {
		name string
		user models.User
	}{
		{"same email", models.User{FullName: "A", Email: "alice@x.com", Handle: "other", PasswordHash: "h"}},
		{"same handle", models.User{FullName: "A", Email: "other@x.com", Handle: "alice", PasswordHash: "h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateUser(ctx, tt.user)
			if !apperr.Is(err, apperr.Conflict) {
				t.Fatalf("err = %v, want conflict", err)
			}
		})
	}
}

func TestFindUserByLogin(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")

	byEmail, err := store.FindUserByLogin(ctx, "alice@x.com", "")
	if err != nil || byEmail.ID != alice.ID {
		t.Fatalf("by email: %+v, %v", byEmail, err)
	}
	byHandle, err := store.FindUserByLogin(ctx, "", "alice")
	if err != nil || byHandle.ID != alice.ID {
		t.Fatalf("by handle: %+v, %v", byHandle, err)
	}
	if _, err := store.FindUserByLogin(ctx, "", ""); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("blank identifiers: err = %v, want not found", err)
	}
}

func TestFailedLoginCounter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")

	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)

	for want := 1; want <= 2; want++ {
		failed, locked, err := store.RecordFailedLogin(ctx, alice.ID, now, 3, until)
		if err != nil {
			t.Fatalf("RecordFailedLogin: %v", err)
		}
		if failed != want || !locked.IsZero() {
			t.Fatalf("attempt %d: failed=%d locked=%v", want, failed, locked)
		}
	}

	failed, locked, err := store.RecordFailedLogin(ctx, alice.ID, now, 3, until)
	if err != nil || failed != 3 || !locked.Equal(until) {
		t.Fatalf("third attempt: failed=%d locked=%v err=%v", failed, locked, err)
	}

	// A later failure inside the window keeps the original deadline.
	failed, locked, err = store.RecordFailedLogin(ctx, alice.ID, now.Add(time.Minute), 3, until.Add(time.Minute))
	if err != nil || failed != 4 || !locked.Equal(until) {
		t.Fatalf("inside window: failed=%d locked=%v err=%v", failed, locked, err)
	}

	if err := store.ClearFailedLogins(ctx, alice.ID, now); !apperr.Is(err, apperr.Locked) {
		t.Fatalf("clear while locked: err = %v, want locked", err)
	}

	// After the window the counter restarts.
	later := until.Add(time.Second)
	failed, locked, err = store.RecordFailedLogin(ctx, alice.ID, later, 3, later.Add(time.Hour))
	if err != nil || failed != 1 || !locked.IsZero() {
		t.Fatalf("after window: failed=%d locked=%v err=%v", failed, locked, err)
	}

	if err := store.ClearFailedLogins(ctx, alice.ID, later); err != nil {
		t.Fatalf("ClearFailedLogins: %v", err)
	}
	got, _ := store.GetUser(ctx, alice.ID)
	if got.FailedLogins != 0 || !got.LockedUntil.IsZero() {
		t.Fatalf("state not cleared: %+v", got)
	}

	if _, _, err := store.RecordFailedLogin(ctx, 999, now, 3, until); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("unknown user: err = %v, want not found", err)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")

	if err := store.SetRefreshToken(ctx, alice.ID, "jti-1"); err != nil {
		t.Fatalf("SetRefreshToken: %v", err)
	}
	got, err := store.GetUser(ctx, alice.ID)
	if err != nil || got.RefreshTokenID != "jti-1" {
		t.Fatalf("GetUser = %+v, %v", got, err)
	}

	if err := store.SetRefreshToken(ctx, alice.ID, ""); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	got, _ = store.GetUser(ctx, alice.ID)
	if got.RefreshTokenID != "" {
		t.Fatalf("token not cleared: %+v", got)
	}
}

func TestProjectUniquenessIsGlobal(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	seedProject(t, store, alice, "Launch")

	_, err := store.CreateProject(ctx, models.Project{Name: "Launch", Description: "different", OwnerID: bob.ID})
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("same name: err = %v, want conflict", err)
	}
	_, err = store.CreateProject(ctx, models.Project{Name: "Other", Description: "Launch plan", OwnerID: bob.ID})
	if !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("same description: err = %v, want conflict", err)
	}

	other := seedProject(t, store, bob, "Other")
	if _, err := store.UpdateProject(ctx, other.ID, "Launch", "fresh"); !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("rename onto existing: err = %v, want conflict", err)
	}
}

func TestCollaboratorsDeduplicated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")

	p := seedProject(t, store, alice, "Launch", bob.ID, bob.ID, alice.ID)
	if len(p.CollaboratorIDs) != 1 || p.CollaboratorIDs[0] != bob.ID {
		t.Fatalf("collaborators = %v, want [%d]", p.CollaboratorIDs, bob.ID)
	}
	if err := store.AddCollaborator(ctx, p.ID, bob.ID); !apperr.Is(err, apperr.Conflict) {
		t.Fatalf("duplicate add: err = %v, want conflict", err)
	}
}

func TestListProjectsForUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	bob := seedUser(t, store, "bob")
	carol := seedUser(t, store, "carol")

	seedProject(t, store, alice, "Launch", bob.ID)
	seedProject(t, store, bob, "Ops")
	seedProject(t, store, carol, "Secret")

	projects, err := store.ListProjectsForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListProjectsForUser: %v", err)
	}
	if len(projects) != 2 || projects[0].Name != "Launch" || projects[1].Name != "Ops" {
		t.Fatalf("projects = %+v", projects)
	}
	if !projects[0].IsCollaborator(bob.ID) {
		t.Error("collaborator ids not loaded")
	}
}

func TestDeleteProjectCascadesTasks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	launch := seedProject(t, store, alice, "Launch")
	keep := seedProject(t, store, alice, "Keep")

	end := time.Now().Add(72 * time.Hour)
	seedTask(t, store, launch, alice, end)
	seedTask(t, store, launch, alice, end)
	seedTask(t, store, keep, alice, end)

	removed, err := store.DeleteProject(ctx, launch.ID)
	if err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	remaining, err := store.ListTasks(ctx, launch.ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("remaining tasks = %d, want 0", len(remaining))
	}
	kept, _ := store.ListTasks(ctx, keep.ID)
	if len(kept) != 1 {
		t.Errorf("other project tasks = %d, want 1", len(kept))
	}
	if _, err := store.DeleteProject(ctx, launch.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("second delete: err = %v, want not found", err)
	}
}

func TestTaskScopedToProject(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	launch := seedProject(t, store, alice, "Launch")
	other := seedProject(t, store, alice, "Other")
	task := seedTask(t, store, launch, alice, time.Now().Add(time.Hour))

	if _, err := store.GetTask(ctx, other.ID, task.ID); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("cross-project get: err = %v, want not found", err)
	}
	if err := store.DeleteTask(ctx, other.ID, task.ID); !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("cross-project delete: err = %v, want not found", err)
	}
	if err := store.DeleteTask(ctx, launch.ID, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
}

func TestListTasksEmptyIsNotNil(t *testing.T) {
	store := openTestStore(t)
	alice := seedUser(t, store, "alice")
	p := seedProject(t, store, alice, "Launch")

	tasks, err := store.ListTasks(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Fatalf("tasks = %#v, want empty slice", tasks)
	}
}

func TestExpireOverdue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	alice := seedUser(t, store, "alice")
	p := seedProject(t, store, alice, "Launch")

	now := time.Now().UTC()
	overdue := seedTask(t, store, p, alice, now.Add(-24*time.Hour))
	future := seedTask(t, store, p, alice, now.Add(24*time.Hour))
	done := seedTask(t, store, p, alice, now.Add(-24*time.Hour))
	done.Status = models.StatusCompleted
	if _, err := store.UpdateTask(ctx, done); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}

	n, err := store.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired = %d, want 1", n)
	}
	n, err = store.ExpireOverdue(ctx, now)
	if err != nil || n != 0 {
		t.Fatalf("second run = %d, %v; want 0", n, err)
	}

	want := map[int64]models.TaskStatus{
		overdue.ID: models.StatusExpired,
		future.ID:  models.StatusPending,
		done.ID:    models.StatusCompleted,
	}
	for id, status := range want {
		got, err := store.GetTask(ctx, p.ID, id)
		if err != nil {
			t.Fatalf("GetTask(%d): %v", id, err)
		}
		if got.Status != status {
			t.Errorf("task %d status = %q, want %q", id, got.Status, status)
		}
	}
}
