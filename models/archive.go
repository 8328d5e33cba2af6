package models

import "time"

// ============================================================================
// ARCHIVE MODELS
// ============================================================================

// CategorySummaryEntry is one row of the per-category breakdown. Entries are
// ordered descending by Total; percentages are relative to the grand total.
type CategorySummaryEntry struct {
	Category   string  `bson:"category" json:"category"`
	Total      float64 `bson:"total" json:"total"`
	Percentage float64 `bson:"percentage" json:"percentage"`
}

// ArchiveRecord is the immutable snapshot written by one archival action.
// The application never updates or deletes these documents.
type ArchiveRecord struct {
	ID                 string                 `bson:"_id" json:"id"`
	AppID              string                 `bson:"appId" json:"-"`
	UserID             string                 `bson:"userId" json:"-"`
	Title              string                 `bson:"title" json:"title"`
	TotalSpent         float64                `bson:"totalSpent" json:"total_spent"`
	CategorySummary    []CategorySummaryEntry `bson:"categorySummary" json:"category_summary"`
	ArchiveDate        time.Time              `bson:"archiveDate" json:"archive_date"`
	TotalExpensesCount int                    `bson:"totalExpensesCount" json:"total_expenses_count"`
}

// ArchiveListResponse wraps the history list with the interrupted-archival
// marker: true when expenses older than the latest archive are still present.
type ArchiveListResponse struct {
	Archives        []ArchiveRecord `json:"archives"`
	PendingRecovery bool            `json:"pending_recovery"`
	PendingCount    int             `json:"pending_count"`
}
