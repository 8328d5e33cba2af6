package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gastosapp/gastos-api/models"
)

// fakeStore is an in-memory stand-in for the document store.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int
	expenses map[string]models.Expense
	archives []models.ArchiveRecord

	failInsertArchive bool
	failDeleteIDs     map[string]bool
	vanishOnUpdate    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expenses:      make(map[string]models.Expense),
		failDeleteIDs: make(map[string]bool),
	}
}

func (f *fakeStore) InsertExpense(_ context.Context, e *models.Expense) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = fmt.Sprintf("exp-%d", f.nextID)
	f.expenses[e.ID] = *e
	return e.ID, nil
}

func (f *fakeStore) GetExpense(_ context.Context, userID, id string) (*models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	copied := e
	return &copied, nil
}

func (f *fakeStore) ListExpenses(_ context.Context, userID string) ([]models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Expense
	for _, e := range f.expenses {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateExpense(_ context.Context, userID, id string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if f.vanishOnUpdate || !ok || e.UserID != userID {
		return ErrExpenseNotFound
	}
	if v, ok := fields["amount"]; ok {
		e.Amount = v.(float64)
	}
	if v, ok := fields["description"]; ok {
		e.Description = v.(string)
	}
	if v, ok := fields["category"]; ok {
		e.Category = v.(string)
	}
	if v, ok := fields["classification"]; ok {
		e.Classification = v.(string)
	}
	f.expenses[id] = e
	return nil
}

func (f *fakeStore) DeleteExpense(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeleteIDs[id] {
		return errors.New("delete refused")
	}
	e, ok := f.expenses[id]
	if ok && e.UserID == userID {
		delete(f.expenses, id)
	}
	return nil
}

func (f *fakeStore) InsertArchive(_ context.Context, r *models.ArchiveRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertArchive {
		return "", errors.New("history store unavailable")
	}
	f.nextID++
	r.ID = fmt.Sprintf("arc-%d", f.nextID)
	f.archives = append(f.archives, *r)
	return r.ID, nil
}

func (f *fakeStore) ListArchives(_ context.Context, userID string) ([]models.ArchiveRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ArchiveRecord
	for _, r := range f.archives {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArchiveDate.After(out[j].ArchiveDate) })
	return out, nil
}

func (f *fakeStore) LatestArchive(ctx context.Context, userID string) (*models.ArchiveRecord, error) {
	archives, err := f.ListArchives(ctx, userID)
	if err != nil || len(archives) == 0 {
		return nil, err
	}
	return &archives[0], nil
}

func (f *fakeStore) DistinctExpenseUsers(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var users []string
	for _, e := range f.expenses {
		if !seen[e.UserID] {
			seen[e.UserID] = true
			users = append(users, e.UserID)
		}
	}
	return users, nil
}

// fakeClassifier records calls and returns a fixed result or error.
type fakeClassifier struct {
	mu     sync.Mutex
	calls  int
	result models.Classification
	err    error
}

func (f *fakeClassifier) Classify(context.Context, string) (models.Classification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.Classification{}, f.err
	}
	return f.result, nil
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
