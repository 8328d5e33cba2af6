package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/gastosapp/gastos-api/handlers"
	"github.com/gastosapp/gastos-api/services"
	"github.com/gastosapp/gastos-api/store"
)

// SetupAuthRoutes sets up public authentication routes.
func SetupAuthRoutes(rg *gin.RouterGroup, st *store.Store) {
	authHandler := &handlers.AuthHandler{Store: st}

	rg.POST("/auth/signup", authHandler.Signup)
	rg.POST("/auth/login", authHandler.Login)
	rg.POST("/auth/anonymous", authHandler.Anonymous)
}

// SetupExpenseRoutes sets up protected expense routes.
func SetupExpenseRoutes(rg *gin.RouterGroup, expenses *services.ExpenseService) {
	h := &handlers.ExpenseHandler{Expenses: expenses}

	rg.GET("/expenses", h.GetExpenses)
	rg.POST("/expenses", h.CreateExpense)
	rg.GET("/expenses/summary", h.GetSummary)
	rg.PUT("/expenses/:id", h.UpdateExpense)
	rg.DELETE("/expenses/:id", h.DeleteExpense)
}

// SetupArchiveRoutes sets up protected archival routes.
func SetupArchiveRoutes(rg *gin.RouterGroup, archives *services.ArchiveService) {
	h := &handlers.ArchiveHandler{Archives: archives}

	rg.GET("/archives", h.GetArchives)
	rg.POST("/archives", h.CreateArchive)
	rg.POST("/archives/resume", h.ResumeArchive)
}
