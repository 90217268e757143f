package middlewares

import (
	"Wanna/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
)

// Header carrying the correlation ID back to the client.
const CorrelationHeader = "X-Correlation-ID"

// This middleware will be used to populate every incoming request's context with an Unique CorrelationID.
// A client supplied X-Correlation-ID is kept so a websocket session can be traced across reconnects.
func CorrelationMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		correlationID := gctx.GetHeader(CorrelationHeader)
		if correlationID == "" {
			correlationID = xid.New().String()
		}
		// Setting the correlationID in request's context
		gctx.Set("correlation_id", correlationID)
		// Setting the correlationID to response header
		gctx.Writer.Header().Set(CorrelationHeader, correlationID)
		gctx.Next()
	}
}
