package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gastosapp/gastos-api/middleware"
	"github.com/gastosapp/gastos-api/services"
	"github.com/gastosapp/gastos-api/utils"
)

type ArchiveHandler struct {
	Archives *services.ArchiveService
}

// GetArchives returns the history plus the interrupted-archival marker.
func (h *ArchiveHandler) GetArchives(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	history, err := h.Archives.History(c.Request.Context(), userID)
	if err != nil {
		utils.SafeError("[Archives] history failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch history, please retry"})
		return
	}

	c.JSON(http.StatusOK, history)
}

// CreateArchive runs the snapshot-then-clear workflow. A partial clear still
// returns the written record, with 207 and the failure detail alongside.
func (h *ArchiveHandler) CreateArchive(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	record, err := h.Archives.Archive(c.Request.Context(), userID)
	if err != nil {
		var partial *services.PartialDeleteError
		switch {
		case errors.Is(err, services.ErrNothingToArchive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No expenses to archive"})
		case errors.Is(err, services.ErrArchiveInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "An archival is already in progress"})
		case errors.As(err, &partial):
			c.JSON(http.StatusMultiStatus, gin.H{
				"archive":        record,
				"error":          "Some expenses could not be cleared",
				"failed_deletes": partial.Failed,
			})
		default:
			utils.SafeError("[Archives] archival failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to archive, please retry"})
		}
		return
	}

	c.JSON(http.StatusCreated, record)
}

// ResumeArchive re-runs the delete batch of an interrupted archival.
func (h *ArchiveHandler) ResumeArchive(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	cleared, err := h.Archives.Resume(c.Request.Context(), userID)
	if err != nil {
		var partial *services.PartialDeleteError
		switch {
		case errors.Is(err, services.ErrNothingToRecover):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to resume"})
		case errors.Is(err, services.ErrArchiveInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": "An archival is already in progress"})
		case errors.As(err, &partial):
			c.JSON(http.StatusMultiStatus, gin.H{
				"cleared":        cleared,
				"error":          "Some expenses could not be cleared",
				"failed_deletes": partial.Failed,
			})
		default:
			utils.SafeError("[Archives] resume failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resume, please retry"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}
