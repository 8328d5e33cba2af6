package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gastosapp/gastos-api/models"
	"github.com/gastosapp/gastos-api/services"
)

// Store wraps the per-user collections of the document store. Every document
// carries the application id and the owning user id, and every filter pins
// both, so one user's documents are never visible to another.
type Store struct {
	appID    string
	expenses *mongo.Collection
	archives *mongo.Collection
	users    *mongo.Collection
}

func New(db *mongo.Database, appID string) *Store {
	return &Store{
		appID:    appID,
		expenses: db.Collection("expenses"),
		archives: db.Collection("archives"),
		users:    db.Collection("users"),
	}
}

func (s *Store) scoped(userID string) bson.M {
	return bson.M{"appId": s.appID, "userId": userID}
}

// ============================================================================
// EXPENSES
// ============================================================================

func (s *Store) InsertExpense(ctx context.Context, expense *models.Expense) (string, error) {
	expense.ID = uuid.New().String()
	expense.AppID = s.appID
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now()
	}

	if _, err := s.expenses.InsertOne(ctx, expense); err != nil {
		return "", fmt.Errorf("failed to insert expense: %w", err)
	}
	return expense.ID, nil
}

func (s *Store) GetExpense(ctx context.Context, userID, id string) (*models.Expense, error) {
	filter := s.scoped(userID)
	filter["_id"] = id

	var expense models.Expense
	err := s.expenses.FindOne(ctx, filter).Decode(&expense)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find expense: %w", err)
	}
	return &expense, nil
}

// ListExpenses returns the user's current expenses, newest first.
func (s *Store) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.expenses.Find(ctx, s.scoped(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	defer cursor.Close(ctx)

	expenses := []models.Expense{}
	if err := cursor.All(ctx, &expenses); err != nil {
		return nil, fmt.Errorf("failed to decode expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense applies a partial field merge, never a full replace.
func (s *Store) UpdateExpense(ctx context.Context, userID, id string, fields map[string]interface{}) error {
	filter := s.scoped(userID)
	filter["_id"] = id

	result, err := s.expenses.UpdateOne(ctx, filter, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if result.MatchedCount == 0 {
		return services.ErrExpenseNotFound
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, id string) error {
	filter := s.scoped(userID)
	filter["_id"] = id

	if _, err := s.expenses.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// DistinctExpenseUsers lists user ids that currently hold expenses. Used by
// the interrupted-archival sweep.
func (s *Store) DistinctExpenseUsers(ctx context.Context) ([]string, error) {
	raw, err := s.expenses.Distinct(ctx, "userId", bson.M{"appId": s.appID})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate expense users: %w", err)
	}

	users := make([]string, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(string); ok {
			users = append(users, id)
		}
	}
	return users, nil
}

// ============================================================================
// ARCHIVES
// ============================================================================

func (s *Store) InsertArchive(ctx context.Context, record *models.ArchiveRecord) (string, error) {
	record.ID = uuid.New().String()
	record.AppID = s.appID

	if _, err := s.archives.InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("failed to insert archive record: %w", err)
	}
	return record.ID, nil
}

// ListArchives returns the user's history, newest first.
func (s *Store) ListArchives(ctx context.Context, userID string) ([]models.ArchiveRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "archiveDate", Value: -1}})
	cursor, err := s.archives.Find(ctx, s.scoped(userID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archives: %w", err)
	}
	defer cursor.Close(ctx)

	archives := []models.ArchiveRecord{}
	if err := cursor.All(ctx, &archives); err != nil {
		return nil, fmt.Errorf("failed to decode archives: %w", err)
	}
	return archives, nil
}

func (s *Store) LatestArchive(ctx context.Context, userID string) (*models.ArchiveRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "archiveDate", Value: -1}})

	var record models.ArchiveRecord
	err := s.archives.FindOne(ctx, s.scoped(userID), opts).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest archive: %w", err)
	}
	return &record, nil
}

// ============================================================================
// USERS
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
