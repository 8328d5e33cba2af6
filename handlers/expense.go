package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gastosapp/gastos-api/middleware"
	"github.com/gastosapp/gastos-api/models"
	"github.com/gastosapp/gastos-api/services"
	"github.com/gastosapp/gastos-api/utils"
)

type ExpenseHandler struct {
	Expenses *services.ExpenseService
}

// GetExpenses returns the current expense set, newest first.
func (h *ExpenseHandler) GetExpenses(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expenses, err := h.Expenses.List(c.Request.Context(), userID)
	if err != nil {
		utils.SafeError("[Expenses] list failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses, please retry"})
		return
	}

	c.JSON(http.StatusOK, expenses)
}

// CreateExpense validates, classifies and persists a new expense.
func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.Expenses.Create(c.Request.Context(), userID, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) || errors.Is(err, services.ErrEmptyDescription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		utils.SafeError("[Expenses] create failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save expense, please retry"})
		return
	}

	c.JSON(http.StatusCreated, expense)
}

// UpdateExpense applies a partial update to one expense.
func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expense, err := h.Expenses.Update(c.Request.Context(), userID, c.Param("id"), req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount), errors.Is(err, services.ErrEmptyDescription):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrExpenseNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		default:
			utils.SafeError("[Expenses] update failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense, please retry"})
		}
		return
	}

	c.JSON(http.StatusOK, expense)
}

// DeleteExpense removes one expense.
func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.Expenses.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, services.ErrExpenseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
			return
		}
		utils.SafeError("[Expenses] delete failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense, please retry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetSummary returns the aggregation over the current expense set.
func (h *ExpenseHandler) GetSummary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	summary, err := h.Expenses.Summary(c.Request.Context(), userID)
	if err != nil {
		utils.SafeError("[Expenses] summary failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary, please retry"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
