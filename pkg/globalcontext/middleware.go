// Request scoped IDs of Wanna, picked up by log.Logger.WithCtx in every layer.

package globalcontext

import (
	"Wanna/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header echoing the request ID back to the client.
const RequestIDHeader = "X-Request-ID"

// UniqueIDMiddleware gives every incoming request a fresh ReqID.
// The ID is stored both in gin's key store and in the request context, services called
// with gctx.Request.Context() log the same ReqID as the handlers.
func UniqueIDMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		rqID, uuiderr := uuid.NewRandom()
		if uuiderr != nil {
			logger.Error().Err(uuiderr).Msg("Error during generating UUID for ReqID.")
			gctx.Next()
			return
		}
		gctx.Set("ReqID", rqID.String())
		gctx.Request = gctx.Request.WithContext(log.WithRequestID(gctx.Request.Context(), rqID.String()))
		gctx.Writer.Header().Set(RequestIDHeader, rqID.String())
		gctx.Next()
	}
}
