package services

import (
	"sort"

	"github.com/gastosapp/gastos-api/models"
)

// Summarize computes the grand total and the per-category breakdown for the
// given expenses. Pure function: callers re-invoke it on every change to the
// expense set, the result is never cached.
//
// Entries come back sorted descending by total; ties keep the order in which
// the category was first seen in the input. An expense without a category is
// counted under the fallback label.
func Summarize(expenses []models.Expense) (float64, []models.CategorySummaryEntry) {
	var totalSpent float64
	totals := make(map[string]float64)
	order := make([]string, 0)

	for _, e := range expenses {
		category := e.Category
		if category == "" {
			category = models.CategoryFallback
		}
		if _, seen := totals[category]; !seen {
			order = append(order, category)
		}
		totals[category] += e.Amount
		totalSpent += e.Amount
	}

	entries := make([]models.CategorySummaryEntry, 0, len(order))
	for _, category := range order {
		var percentage float64
		if totalSpent > 0 {
			percentage = totals[category] / totalSpent * 100
		}
		entries = append(entries, models.CategorySummaryEntry{
			Category:   category,
			Total:      totals[category],
			Percentage: percentage,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Total > entries[j].Total
	})

	return totalSpent, entries
}
