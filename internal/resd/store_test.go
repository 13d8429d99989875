package resd

import (
	"errors"
	"testing"
	"time"

	"github.com/hydronet-sim/reservoir-core/pkg/models"
)

func TestRunStoreCreateAndGet(t *testing.T) {
	store := NewRunStore()

	run, err := store.Create("", "april planning", "nodes: []", map[string]string{"nodes": "2"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("expected generated run id")
	}
	if run.Status != models.RunStatusPending {
		t.Fatalf("expected status pending, got %v", run.Status)
	}
	if run.SubmittedAt.IsZero() {
		t.Fatalf("expected submitted_at to be set")
	}

	got, err := store.Get(run.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.ID != run.ID {
		t.Fatalf("expected run id %s, got %s", run.ID, got.ID)
	}
	if got.Title != "april planning" {
		t.Fatalf("expected title preserved, got %q", got.Title)
	}
	if got.ModelYAML != "nodes: []" {
		t.Fatalf("expected model yaml preserved, got %q", got.ModelYAML)
	}
	if got.Metadata["nodes"] != "2" {
		t.Fatalf("expected metadata preserved, got %v", got.Metadata)
	}
}

func TestRunStoreCreateDuplicate(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", "", "x", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := store.Create("run-1", "", "y", nil); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestRunStoreGetUnknown(t *testing.T) {
	store := NewRunStore()
	_, err := store.Get("nope")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreTransitions(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", "", "x", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	run, err := store.MarkRunning("run-1")
	if err != nil {
		t.Fatalf("MarkRunning returned error: %v", err)
	}
	if run.Status != models.RunStatusRunning {
		t.Fatalf("expected running, got %v", run.Status)
	}
	if run.StartTime.IsZero() {
		t.Fatalf("expected start time to be set")
	}
	if !run.EndTime.IsZero() {
		t.Fatalf("did not expect end time for a running run")
	}

	results := &models.RunResults{Timesteps: 3, Scenarios: 1}
	run, err = store.MarkCompleted("run-1", results)
	if err != nil {
		t.Fatalf("MarkCompleted returned error: %v", err)
	}
	if run.Status != models.RunStatusCompleted {
		t.Fatalf("expected completed, got %v", run.Status)
	}
	if run.EndTime.IsZero() {
		t.Fatalf("expected end time to be set")
	}
	if run.Results == nil || run.Results.Timesteps != 3 {
		t.Fatalf("expected results attached, got %+v", run.Results)
	}

	if _, err := store.MarkCanceled("run-1"); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal after completion, got %v", err)
	}
	if _, err := store.MarkFailed("run-1", "late failure"); !errors.Is(err, ErrRunTerminal) {
		t.Fatalf("expected ErrRunTerminal for failure after completion, got %v", err)
	}
}

func TestRunStoreMarkRunningIdempotent(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", "", "x", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	first, err := store.MarkRunning("run-1")
	if err != nil {
		t.Fatalf("MarkRunning returned error: %v", err)
	}
	second, err := store.MarkRunning("run-1")
	if err != nil {
		t.Fatalf("MarkRunning on running run returned error: %v", err)
	}
	if !second.StartTime.Equal(first.StartTime) {
		t.Fatalf("expected start time unchanged, got %v then %v", first.StartTime, second.StartTime)
	}
}

func TestRunStoreTransitionUnknown(t *testing.T) {
	store := NewRunStore()
	if _, err := store.MarkRunning("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunStoreCopyOnRead(t *testing.T) {
	store := NewRunStore()
	if _, err := store.Create("run-1", "", "x", nil); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	got, err := store.Get("run-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got.Status = models.RunStatusFailed

	again, err := store.Get("run-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if again.Status != models.RunStatusPending {
		t.Fatalf("expected stored record unchanged, got %v", again.Status)
	}
}

func TestRunStoreListNewestFirst(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"run-a", "run-b", "run-c"} {
		if _, err := store.Create(id, "", "x", nil); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	runs := store.List(50, 0, "")
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Fatalf("expected newest first, got %s..%s", runs[0].ID, runs[2].ID)
	}

	limited := store.List(2, 0, "")
	if len(limited) != 2 {
		t.Fatalf("expected 2 runs with limit, got %d", len(limited))
	}
	if limited[0].ID != "run-c" {
		t.Fatalf("expected run-c first, got %s", limited[0].ID)
	}
}

func TestRunStoreListFilters(t *testing.T) {
	store := NewRunStore()
	for _, id := range []string{"run-a", "run-b", "run-c", "run-d"} {
		if _, err := store.Create(id, "", "x", nil); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := store.MarkRunning("run-b"); err != nil {
		t.Fatalf("MarkRunning returned error: %v", err)
	}
	if _, err := store.MarkRunning("run-d"); err != nil {
		t.Fatalf("MarkRunning returned error: %v", err)
	}

	running := store.List(50, 0, models.RunStatusRunning)
	if len(running) != 2 {
		t.Fatalf("expected 2 running runs, got %d", len(running))
	}
	if running[0].ID != "run-d" || running[1].ID != "run-b" {
		t.Fatalf("expected run-d then run-b, got %s then %s", running[0].ID, running[1].ID)
	}

	offset := store.List(50, 3, "")
	if len(offset) != 1 {
		t.Fatalf("expected 1 run past offset 3, got %d", len(offset))
	}
	if offset[0].ID != "run-a" {
		t.Fatalf("expected run-a, got %s", offset[0].ID)
	}

	beyond := store.List(50, 10, "")
	if len(beyond) != 0 {
		t.Fatalf("expected no runs past the end, got %d", len(beyond))
	}
}
