// Exposes the websocket endpoint of Wanna.

package gateway

import (
	"github.com/gin-gonic/gin"
)

// Registers the websocket upgrade route onto the gin server.
func APIHandlers(router *gin.Engine, hub *Hub, handler ConnHandler) {
	router.GET("/api/ws", hub.ServeWS(handler))
}
