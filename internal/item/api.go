// Exposes the REST APIs related to Items in Wanna.

package item

import (
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package item onto the gin server.
func APIHandlers(router *gin.Engine, service Service, logger log.Logger) {
	itemGroup := router.Group("/api/items")
	{
		itemGroup.GET("/public", getPublicItems(service, logger))
	}
}

// getPublicItems returns a handler listing the public item catalogue, no auth required.
func getPublicItems(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		items, err := service.FindPublicItems(gctx)
		if err != nil {
			resp := errors.As(err)
			logger.WithCtx(gctx).Error().Err(err).Msg("Error occured in FindPublicItems()")
			gctx.JSON(resp.Status, resp)
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"items": items,
		})
	}
}
