package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gastosapp/gastos-api/models"
	"github.com/gastosapp/gastos-api/utils"
)

// ArchiveStore is the history side of the document store. Records are
// insert-only from the application's point of view.
type ArchiveStore interface {
	InsertArchive(ctx context.Context, record *models.ArchiveRecord) (string, error)
	ListArchives(ctx context.Context, userID string) ([]models.ArchiveRecord, error)
	LatestArchive(ctx context.Context, userID string) (*models.ArchiveRecord, error)
	DistinctExpenseUsers(ctx context.Context) ([]string, error)
}

var (
	ErrNothingToArchive = errors.New("no expenses to archive")
	ErrArchiveInFlight  = errors.New("an archival is already in progress")
	ErrNothingToRecover = errors.New("no interrupted archival to resume")
)

// PartialDeleteError reports a delete batch that only partially cleared the
// expense set. The archive record written before the batch stays in place.
type PartialDeleteError struct {
	Failed int
	Total  int
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("cleared %d of %d expenses, %d deletions failed", e.Total-e.Failed, e.Total, e.Failed)
}

type ArchiveService struct {
	expenses ExpenseStore
	archives ArchiveStore
	notifier Notifier

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewArchiveService(expenses ExpenseStore, archives ArchiveStore, notifier Notifier) *ArchiveService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ArchiveService{
		expenses: expenses,
		archives: archives,
		notifier: notifier,
		inFlight: make(map[string]bool),
	}
}

var spanishMonths = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func archiveTitle(t time.Time) string {
	return fmt.Sprintf("Archivo %s %d", spanishMonths[t.Month()-1], t.Year())
}

// Archive snapshots the user's current totals into a history record, then
// clears the current expenses. The two steps are not transactional: a failed
// history write aborts before any deletion, while a partially failed delete
// batch leaves the record in place and reports the failure count.
func (s *ArchiveService) Archive(ctx context.Context, userID string) (*models.ArchiveRecord, error) {
	if !s.acquire(userID) {
		return nil, ErrArchiveInFlight
	}
	defer s.release(userID)

	expenses, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	if len(expenses) == 0 {
		return nil, ErrNothingToArchive
	}

	totalSpent, categoryData := Summarize(expenses)
	now := time.Now()

	record := &models.ArchiveRecord{
		UserID:             userID,
		Title:              archiveTitle(now),
		TotalSpent:         totalSpent,
		CategorySummary:    categoryData,
		ArchiveDate:        now,
		TotalExpensesCount: len(expenses),
	}

	id, err := s.archives.InsertArchive(ctx, record)
	if err != nil {
		// Fail closed: no deletion happens when the snapshot was not written.
		return nil, fmt.Errorf("failed to persist archive record: %w", err)
	}
	record.ID = id

	utils.LogArchiveAction("created", record.ID, userID)
	s.notifier.Publish(userID, "archives", "created")

	ids := make([]string, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}

	if err := s.deleteBatch(ctx, userID, ids); err != nil {
		utils.SafeError("[Archive] partial clear for user %s: %v", utils.MaskID(userID), err)
		return record, err
	}

	s.notifier.Publish(userID, "expenses", "cleared")
	return record, nil
}

// deleteBatch issues one delete per expense concurrently and waits for every
// result. Failures never cancel sibling deletions; the count is surfaced so
// callers can report how much of the set is still present.
func (s *ArchiveService) deleteBatch(ctx context.Context, userID string, ids []string) error {
	var g errgroup.Group
	g.SetLimit(16)

	var failed atomic.Int64
	for _, id := range ids {
		g.Go(func() error {
			if err := s.expenses.DeleteExpense(ctx, userID, id); err != nil {
				utils.SafeWarn("[Archive] delete %s failed: %v", utils.MaskID(id), err)
				failed.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	if n := failed.Load(); n > 0 {
		return &PartialDeleteError{Failed: int(n), Total: len(ids)}
	}
	return nil
}

// History returns the user's archives, newest first, together with the
// interrupted-archival marker used by the recovery flow.
func (s *ArchiveService) History(ctx context.Context, userID string) (*models.ArchiveListResponse, error) {
	archives, err := s.archives.ListArchives(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}

	stale, err := s.staleExpenses(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.ArchiveListResponse{
		Archives:        archives,
		PendingRecovery: len(stale) > 0,
		PendingCount:    len(stale),
	}, nil
}

// Resume re-runs only the delete batch for expenses that predate the latest
// archive, recovering from a process interrupted between the snapshot write
// and the clear. Idempotent: it writes no new history record.
func (s *ArchiveService) Resume(ctx context.Context, userID string) (int, error) {
	if !s.acquire(userID) {
		return 0, ErrArchiveInFlight
	}
	defer s.release(userID)

	stale, err := s.staleExpenses(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, ErrNothingToRecover
	}

	ids := make([]string, len(stale))
	for i, e := range stale {
		ids[i] = e.ID
	}

	err = s.deleteBatch(ctx, userID, ids)
	cleared := len(ids)
	if perr, ok := err.(*PartialDeleteError); ok {
		cleared -= perr.Failed
	}
	if cleared > 0 {
		utils.LogArchiveAction("resumed", fmt.Sprintf("%d expenses", cleared), userID)
		s.notifier.Publish(userID, "expenses", "cleared")
	}
	return cleared, err
}

// staleExpenses returns current expenses created before the latest archive's
// date. A non-empty result means a previous archival never finished its
// delete batch; expenses submitted after the archive are left alone.
func (s *ArchiveService) staleExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	latest, err := s.archives.LatestArchive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest archive: %w", err)
	}
	if latest == nil {
		return nil, nil
	}

	expenses, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	var stale []models.Expense
	for _, e := range expenses {
		if e.CreatedAt.Before(latest.ArchiveDate) {
			stale = append(stale, e)
		}
	}
	return stale, nil
}

// SweepInterrupted scans all users with current expenses and logs those left
// in the interrupted-archival state. Runs on a daily ticker from main; the
// actual recovery stays a user-triggered action.
func (s *ArchiveService) SweepInterrupted(ctx context.Context) {
	users, err := s.archives.DistinctExpenseUsers(ctx)
	if err != nil {
		utils.SafeError("[Archive] sweep failed to enumerate users: %v", err)
		return
	}

	for _, userID := range users {
		stale, err := s.staleExpenses(ctx, userID)
		if err != nil {
			utils.SafeWarn("[Archive] sweep check failed for %s: %v", utils.MaskID(userID), err)
			continue
		}
		if len(stale) > 0 {
			utils.SafeWarn("[Archive] user %s has %d expenses from an interrupted archival", utils.MaskID(userID), len(stale))
		}
	}
}

func (s *ArchiveService) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[userID] {
		return false
	}
	s.inFlight[userID] = true
	return true
}

func (s *ArchiveService) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}
