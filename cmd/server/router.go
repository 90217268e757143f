// List of all REST API endpoints being used by Wanna can be found here.

package main

import (
	"Wanna/internal/gateway"
	"Wanna/internal/item"
	"Wanna/internal/list"
	"Wanna/internal/metrics"
	"Wanna/internal/user"
	"Wanna/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// services routed by the gin server.
type services struct {
	users   user.Service
	lists   list.Service
	items   item.Service
	metrics metrics.Service
	hub     *gateway.Hub
	gateway *gateway.Gateway
}

func Router(router *gin.Engine, s services, logger log.Logger) {
	// This is the route to default path
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Welcome to Wanna!")
	})
	user.APIHandlers(router, s.users, logger)
	list.APIHandlers(router, s.lists, logger)
	item.APIHandlers(router, s.items, logger)
	metrics.APIHandlers(router, s.metrics)
	gateway.APIHandlers(router, s.hub, s.gateway)
}
