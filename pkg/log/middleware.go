// This middleware is used to integrate zerolog extension created in logger.go into gin server.

package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Primary use-case of this middleware is to force gin to use zerolog functionality instead of the default one.
// Websocket upgrades are logged once the connection closes, latency then is the session length.
func LoggerGinExtension(logger Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		start := time.Now() // Start timer
		path := gctx.Request.URL.Path
		if raw := gctx.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		// Process request
		gctx.Next()

		latency := time.Since(start)
		if latency > time.Minute {
			latency = latency.Truncate(time.Second)
		}
		status := gctx.Writer.Status()

		var event *zerolog.Event
		l := logger.WithCtx(gctx)
		if status >= 500 {
			event = l.Error()
		} else if status >= 400 {
			event = l.Warn()
		} else {
			event = l.Info()
		}
		event.
			Str("client_ip", gctx.ClientIP()).
			Str("method", gctx.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Int("body_size", gctx.Writer.Size()).
			Msg(gctx.Errors.ByType(gin.ErrorTypePrivate).String())
	}
}
