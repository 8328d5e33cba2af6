package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gastosapp/gastos-api/models"
	"github.com/gastosapp/gastos-api/utils"
)

// ExpenseStore is the slice of the document store the expense workflows need.
// Every operation is scoped to one user; implementations must make cross-user
// access impossible at the query level. UpdateExpense returns
// ErrExpenseNotFound when no document matched the user and id.
type ExpenseStore interface {
	InsertExpense(ctx context.Context, expense *models.Expense) (string, error)
	GetExpense(ctx context.Context, userID, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID string) ([]models.Expense, error)
	UpdateExpense(ctx context.Context, userID, id string, fields map[string]interface{}) error
	DeleteExpense(ctx context.Context, userID, id string) error
}

// Notifier pushes a change signal to the user's live feed after a mutation.
// The zero-value noop keeps services usable without a feed (tests, workers).
type Notifier interface {
	Publish(userID, collection, action string)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, string, string) {}

var (
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrEmptyDescription = errors.New("description must not be empty")
	ErrExpenseNotFound  = errors.New("expense not found")
)

type ExpenseService struct {
	store      ExpenseStore
	classifier Classifier
	notifier   Notifier
}

func NewExpenseService(store ExpenseStore, classifier Classifier, notifier Notifier) *ExpenseService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ExpenseService{
		store:      store,
		classifier: classifier,
		notifier:   notifier,
	}
}

// ParseAmount turns free-text form input into a positive amount. Currency
// symbols and thousand separators are stripped; the last '.' or ',' is taken
// as the decimal separator when it is followed by at most two digits.
func ParseAmount(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, raw)

	if cleaned == "" {
		return 0, ErrInvalidAmount
	}

	lastDot := strings.LastIndexAny(cleaned, ".,")
	if lastDot >= 0 && len(cleaned)-lastDot-1 <= 2 {
		intPart := strings.Map(keepDigits, cleaned[:lastDot])
		fracPart := cleaned[lastDot+1:]
		cleaned = intPart + "." + fracPart
	} else {
		cleaned = strings.Map(keepDigits, cleaned)
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func keepDigits(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// Create validates locally, classifies the description (best effort) and
// persists the expense. Classification failure downgrades to the fallback
// labels; only a persistence failure fails the submission.
func (s *ExpenseService) Create(ctx context.Context, userID, rawAmount, description string) (*models.Expense, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	labels := s.classify(ctx, userID, description)

	expense := &models.Expense{
		UserID:         userID,
		Amount:         amount,
		Description:    description,
		Category:       labels.Category,
		Classification: labels.Classification,
		CreatedAt:      time.Now(),
	}

	id, err := s.store.InsertExpense(ctx, expense)
	if err != nil {
		return nil, fmt.Errorf("failed to persist expense: %w", err)
	}
	expense.ID = id

	utils.LogExpenseAction("created", expense.ID, userID)
	s.notifier.Publish(userID, "expenses", "created")
	return expense, nil
}

// Update applies a partial field merge. Classification is re-derived only
// when the description text actually changed; amount-only edits never hit
// the AI collaborator.
func (s *ExpenseService) Update(ctx context.Context, userID, id, rawAmount, description string) (*models.Expense, error) {
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	current, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load expense: %w", err)
	}
	if current == nil {
		return nil, ErrExpenseNotFound
	}

	fields := map[string]interface{}{
		"amount":      amount,
		"description": description,
	}

	if description != current.Description {
		labels := s.classify(ctx, userID, description)
		fields["category"] = labels.Category
		fields["classification"] = labels.Classification
		current.Category = labels.Category
		current.Classification = labels.Classification
	}

	if err := s.store.UpdateExpense(ctx, userID, id, fields); err != nil {
		// The document can vanish between the read above and the merge.
		if errors.Is(err, ErrExpenseNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	current.Amount = amount
	current.Description = description

	utils.LogExpenseAction("updated", id, userID)
	s.notifier.Publish(userID, "expenses", "updated")
	return current, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id string) error {
	current, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to load expense: %w", err)
	}
	if current == nil {
		return ErrExpenseNotFound
	}

	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	utils.LogExpenseAction("deleted", id, userID)
	s.notifier.Publish(userID, "expenses", "deleted")
	return nil
}

// List returns the user's current expenses, newest first.
func (s *ExpenseService) List(ctx context.Context, userID string) ([]models.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	return expenses, nil
}

// Summary runs the aggregation over the user's current expense set.
func (s *ExpenseService) Summary(ctx context.Context, userID string) (*models.ExpenseSummary, error) {
	expenses, err := s.store.ListExpenses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	totalSpent, categoryData := Summarize(expenses)
	return &models.ExpenseSummary{
		TotalSpent:   totalSpent,
		CategoryData: categoryData,
	}, nil
}

func (s *ExpenseService) classify(ctx context.Context, userID, description string) models.Classification {
	labels, err := s.classifier.Classify(ctx, description)
	if err != nil {
		utils.SafeWarn("[Classifier] unavailable for user %s: %v", utils.MaskID(userID), err)
		return models.Classification{
			Category:       models.CategoryFallback,
			Classification: models.ClassificationFallback,
		}
	}
	return labels
}
