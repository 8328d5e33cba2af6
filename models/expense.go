package models

import "time"

// ============================================================================
// EXPENSE MODEL
// ============================================================================

// Fallback labels applied when the AI classification call fails.
// Expenses are never rejected because classification was unavailable.
const (
	CategoryFallback       = "No Categorizado"
	ClassificationFallback = "Manual"
)

type Expense struct {
	ID             string    `bson:"_id" json:"id"`
	AppID          string    `bson:"appId" json:"-"`
	UserID         string    `bson:"userId" json:"-"`
	Amount         float64   `bson:"amount" json:"amount"`
	Description    string    `bson:"description" json:"description"`
	Category       string    `bson:"category" json:"category"`
	Classification string    `bson:"classification" json:"classification"`
	CreatedAt      time.Time `bson:"createdAt" json:"created_at"`
}

// Classification is the result of one call to the AI collaborator.
type Classification struct {
	Category       string `json:"category"`
	Classification string `json:"classification"`
}

// ============================================================================
// EXPENSE REQUESTS
// ============================================================================

// Amounts arrive as free text from the form ("$1.200,50", "45 eur", ...);
// the service strips non-numeric characters before validating.
type CreateExpenseRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type UpdateExpenseRequest struct {
	Amount      string `json:"amount" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// ExpenseSummary is the aggregation output for the current expense set.
type ExpenseSummary struct {
	TotalSpent   float64                `json:"total_spent"`
	CategoryData []CategorySummaryEntry `json:"category_data"`
}
