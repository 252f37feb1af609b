package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/whoamaiii/sensetrack/internal/logger"
)

// RequestIDHeader is the HTTP header carrying the correlation id
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request a correlation id. An id supplied by the
// client in X-Request-ID is kept; otherwise a new UUID is generated. The id
// is stored in the gin context, the request context (where the logger picks
// it up) and echoed back in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
