package handler

import (
	"net/http"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "contact keeper API"})
}

// Check verifies database connectivity with a round trip, not just a
// process-liveness ping.
func (h *HealthHandler) Check(c *gin.Context) {
	var one int
	if err := h.db.WithContext(c.Request.Context()).Raw("SELECT 1").Scan(&one).Error; err != nil || one != 1 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error connecting to the database"})
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "healthy"})
}
