package sweep

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tracker/internal/models"
	"tracker/internal/storage/sqlite"
)

type fakeExpirer struct {
	mu    sync.Mutex
	calls int
	err   error
	ran   chan struct{}
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	f.mu.Unlock()
	select {
	case f.ran <- struct{}{}:
	default:
	}
	return 0, err
}

func (f *fakeExpirer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitRun(t *testing.T, f *fakeExpirer) {
	t.Helper()
	select {
	case <-f.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run")
	}
}

func TestStartRunsImmediatelyAndOnInterval(t *testing.T) {
	f := &fakeExpirer{ran: make(chan struct{}, 1)}
	s := New(f, nil, 10*time.Millisecond)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitRun(t, f)
	waitRun(t, f)
	if f.count() < 2 {
		t.Fatalf("calls = %d, want at least 2", f.count())
	}
}

func TestStartTwiceFails(t *testing.T) {
	s := New(&fakeExpirer{ran: make(chan struct{}, 1)}, nil, time.Hour)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start: err = %v", err)
	}
}

func TestStopIsIdempotentAndHalts(t *testing.T) {
	f := &fakeExpirer{ran: make(chan struct{}, 1)}
	s := New(f, nil, 5*time.Millisecond)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitRun(t, f)
	s.Stop()
	s.Stop()

	after := f.count()
	time.Sleep(30 * time.Millisecond)
	if f.count() != after {
		t.Fatalf("sweep ran after Stop: %d -> %d", after, f.count())
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	s.Stop()
}

func TestErrorsDoNotStopLoop(t *testing.T) {
	f := &fakeExpirer{err: errors.New("database is locked"), ran: make(chan struct{}, 1)}
	s := New(f, nil, 5*time.Millisecond)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitRun(t, f)
	waitRun(t, f)
}

func TestSweepExpiresOverdueTasksIdempotently(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "sweep.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	user, err := store.CreateUser(ctx, models.User{FullName: "A", Email: "a@x.com", Handle: "a", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	project, err := store.CreateProject(ctx, models.Project{Name: "Launch", Description: "Q1 launch plan", OwnerID: user.ID})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	now := time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	task, err := store.CreateTask(ctx, models.Task{
		ProjectID: project.ID,
		CreatorID: user.ID,
		Name:      "Overdue",
		StartDate: yesterday.Add(-24 * time.Hour),
		EndDate:   yesterday,
		Priority:  models.PriorityHigh,
		Status:    models.StatusPending,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	s := New(store, nil, time.Hour)
	s.now = func() time.Time { return now }

	for run, want := range []int64{1, 0} {
		n, err := s.RunOnce(ctx)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if n != want {
			t.Fatalf("run %d expired %d, want %d", run, n, want)
		}
		got, err := store.GetTask(ctx, project.ID, task.ID)
		if err != nil {
			t.Fatalf("GetTask: %v", err)
		}
		if got.Status != models.StatusExpired {
			t.Fatalf("run %d status = %q, want expired", run, got.Status)
		}
	}
}
