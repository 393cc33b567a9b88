package handlers

import (
	"enaya/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger returns the request logger set by the request-id middleware,
// tagged with the kiosk device when one authenticated.
func getLogger(c *gin.Context) *zap.Logger {
	logger := utils.GetLogger()
	if l, ok := c.Get("logger"); ok {
		if rl, ok := l.(*zap.Logger); ok {
			logger = rl
		}
	}
	if id := c.GetString("kioskID"); id != "" {
		logger = logger.With(zap.String("kioskId", id))
	}
	return logger
}
