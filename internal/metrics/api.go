// Exposes the REST API of the internal package metrics.

package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers the REST API handlers related to internal package metrics onto the gin server.
func APIHandlers(router *gin.Engine, service Service) {
	router.GET("/api/metrics", func(gctx *gin.Context) {
		gctx.JSON(http.StatusOK, service.GetMetrics(gctx))
	})
}
