package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/gastosapp/gastos-api/models"
)

func seedExpenses(store *fakeStore, userID string, specs map[string]float64) {
	i := 0
	for category, amount := range specs {
		i++
		store.nextID++
		id := fmt.Sprintf("exp-%d", store.nextID)
		store.expenses[id] = models.Expense{
			ID:        id,
			UserID:    userID,
			Amount:    amount,
			Category:  category,
			CreatedAt: time.Now().Add(time.Duration(-i) * time.Minute),
		}
	}
}

func TestArchiveRefusesEmptySet(t *testing.T) {
	svc := NewArchiveService(newFakeStore(), newFakeStore(), nil)

	_, err := svc.Archive(context.Background(), "user-1")
	if !errors.Is(err, ErrNothingToArchive) {
		t.Fatalf("err = %v, want ErrNothingToArchive", err)
	}
}

func TestArchiveSnapshotsAndClears(t *testing.T) {
	store := newFakeStore()
	seedExpenses(store, "user-1", map[string]float64{
		"Comida": 100, "Transporte": 50, "Hogar": 30,
	})
	svc := NewArchiveService(store, store, nil)

	record, err := svc.Archive(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	if record.TotalExpensesCount != 3 {
		t.Errorf("TotalExpensesCount = %d, want 3", record.TotalExpensesCount)
	}
	if math.Abs(record.TotalSpent-180) > tolerance {
		t.Errorf("TotalSpent = %v, want 180", record.TotalSpent)
	}
	if len(record.CategorySummary) != 3 {
		t.Errorf("CategorySummary entries = %d, want 3", len(record.CategorySummary))
	}
	if record.CategorySummary[0].Category != "Comida" {
		t.Errorf("top category = %q, want Comida", record.CategorySummary[0].Category)
	}
	if record.Title == "" {
		t.Error("record has no title")
	}

	if len(store.archives) != 1 {
		t.Fatalf("archives = %d, want exactly 1", len(store.archives))
	}
	if len(store.expenses) != 0 {
		t.Errorf("expenses remaining = %d, want 0", len(store.expenses))
	}
}

func TestArchiveAbortsWhenHistoryWriteFails(t *testing.T) {
	store := newFakeStore()
	seedExpenses(store, "user-1", map[string]float64{"Comida": 100})
	store.failInsertArchive = true
	svc := NewArchiveService(store, store, nil)

	_, err := svc.Archive(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error when history write fails")
	}

	// Fail closed: expenses must be untouched.
	if len(store.expenses) != 1 {
		t.Errorf("expenses remaining = %d, want 1 (no deletion after failed snapshot)", len(store.expenses))
	}
}

func TestArchivePartialDeleteFailure(t *testing.T) {
	store := newFakeStore()
	seedExpenses(store, "user-1", map[string]float64{
		"Comida": 100, "Transporte": 50, "Hogar": 30, "Salud": 20,
	})
	for id := range store.expenses {
		store.failDeleteIDs[id] = true
		break
	}
	svc := NewArchiveService(store, store, nil)

	record, err := svc.Archive(context.Background(), "user-1")

	var partial *PartialDeleteError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialDeleteError", err)
	}
	if partial.Failed != 1 || partial.Total != 4 {
		t.Errorf("partial = %+v, want Failed=1 Total=4", partial)
	}
	if record == nil {
		t.Fatal("record must be returned even on partial failure")
	}
	// The archive record is never retracted.
	if len(store.archives) != 1 {
		t.Errorf("archives = %d, want 1", len(store.archives))
	}
	if len(store.expenses) != 1 {
		t.Errorf("expenses remaining = %d, want 1", len(store.expenses))
	}
}

func TestArchiveRejectsConcurrentInvocation(t *testing.T) {
	store := newFakeStore()
	seedExpenses(store, "user-1", map[string]float64{"Comida": 10})
	svc := NewArchiveService(store, store, nil)

	svc.inFlight["user-1"] = true
	if _, err := svc.Archive(context.Background(), "user-1"); !errors.Is(err, ErrArchiveInFlight) {
		t.Errorf("err = %v, want ErrArchiveInFlight", err)
	}

	// Other users are not affected by the guard.
	seedExpenses(store, "user-2", map[string]float64{"Hogar": 10})
	if _, err := svc.Archive(context.Background(), "user-2"); err != nil {
		t.Errorf("unrelated user blocked: %v", err)
	}
}

func TestHistoryReportsPendingRecovery(t *testing.T) {
	store := newFakeStore()
	svc := NewArchiveService(store, store, nil)

	// An archive exists but two expenses older than it were never cleared.
	store.archives = append(store.archives, models.ArchiveRecord{
		ID: "arc-1", UserID: "user-1", ArchiveDate: time.Now(),
	})
	seedExpenses(store, "user-1", map[string]float64{"Comida": 10, "Hogar": 20})

	history, err := svc.History(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !history.PendingRecovery || history.PendingCount != 2 {
		t.Errorf("pending = %v/%d, want true/2", history.PendingRecovery, history.PendingCount)
	}
}

func TestResumeClearsOnlyStaleExpenses(t *testing.T) {
	store := newFakeStore()
	svc := NewArchiveService(store, store, nil)

	store.archives = append(store.archives, models.ArchiveRecord{
		ID: "arc-1", UserID: "user-1", ArchiveDate: time.Now(),
	})
	seedExpenses(store, "user-1", map[string]float64{"Comida": 10, "Hogar": 20})

	// A fresh expense submitted after the archive must survive the resume.
	store.expenses["fresh"] = models.Expense{
		ID: "fresh", UserID: "user-1", Amount: 5, Category: "Otros",
		CreatedAt: time.Now().Add(time.Minute),
	}

	cleared, err := svc.Resume(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if cleared != 2 {
		t.Errorf("cleared = %d, want 2", cleared)
	}
	if _, ok := store.expenses["fresh"]; !ok {
		t.Error("expense created after the archive was deleted by resume")
	}
	if len(store.expenses) != 1 {
		t.Errorf("expenses remaining = %d, want 1", len(store.expenses))
	}
	// Resume never writes a new history record.
	if len(store.archives) != 1 {
		t.Errorf("archives = %d, want 1", len(store.archives))
	}
}

func TestResumeWithNothingPending(t *testing.T) {
	store := newFakeStore()
	svc := NewArchiveService(store, store, nil)

	if _, err := svc.Resume(context.Background(), "user-1"); !errors.Is(err, ErrNothingToRecover) {
		t.Errorf("err = %v, want ErrNothingToRecover", err)
	}
}
