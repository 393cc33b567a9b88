package handlers

import (
	"net/http"

	"enaya/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest dependency snapshot.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	healthy := true
	for _, up := range status.Dependencies {
		healthy = healthy && up
	}
	state := "ok"
	if !healthy {
		state = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       state,
		"message":      "Hi, I'm the Enaya check-in kiosk",
		"dependencies": status.Dependencies,
		"checkedAt":    status.CheckedAt,
	})
}
