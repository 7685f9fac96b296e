package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"converse-service/internal/observability"
	"converse-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) string {
	return c.GetString("userID")
}

func requestMeta(c *gin.Context) telemetry.RequestMeta {
	return telemetry.RequestMeta{
		RequestID: requestIDFromContext(c),
		UserID:    userIDFromContext(c),
		ClientIP:  observability.IPFromRequest(c.Request),
		DeviceID:  observability.DeviceIDFromRequest(c.Request),
	}
}
