// Exposes the REST APIs related to Lists in Wanna.

package list

import (
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package list onto the gin server.
func APIHandlers(router *gin.Engine, service Service, logger log.Logger) {
	listGroup := router.Group("/api/list")
	{
		listGroup.GET("/view/:shareId", viewList(service, logger))
	}
}

// viewList returns a handler which returns the public view of a shared list.
// Doesn't require auth, the share id is the capability.
func viewList(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		listData, err := service.FindListByShareID(gctx, gctx.Param("shareId"))
		if err != nil {
			// Error occured, might be validation or server error
			resp := errors.As(err)
			if resp.Kind == errors.InternalKind {
				logger.WithCtx(gctx).Error().Err(err).Msg("Error occured in FindListByShareID()")
			}
			gctx.JSON(resp.Status, resp)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"listData": listData,
		})
	}
}
