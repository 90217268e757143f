// Exposes all of the REST APIs related to the User profile in Wanna.

package user

import (
	"Wanna/internal/entity"
	"Wanna/internal/errors"
	"Wanna/pkg/log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Registers all of the REST API handlers related to internal package user onto the gin server.
func APIHandlers(router *gin.Engine, service Service, logger log.Logger) {
	usergroup := router.Group("/api/user")
	{
		usergroup.GET("/me", getMe(service, logger))
		usergroup.PUT("/me", updateMe(service, logger))
	}
}

// authToken reads the opaque auth token from the Authorization header, a Bearer prefix is optional.
func authToken(gctx *gin.Context) string {
	auth := strings.TrimSpace(gctx.GetHeader("Authorization"))
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return auth
}

// getMe returns a handler which returns the user owning the auth token.
func getMe(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		user, err := service.FindUserByAuth(gctx, authToken(gctx))
		if err != nil {
			abortWithError(gctx, logger, err, "FindUserByAuth")
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}

// updateMe returns a handler which changes names and push tokens of the user owning the auth token.
func updateMe(service Service, logger log.Logger) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		var update entity.UpdateUser
		if binderr := gctx.ShouldBindJSON(&update); binderr != nil {
			gctx.JSON(http.StatusBadRequest, errors.ValidationFailed(""))
			return
		}
		user, err := service.UpdateUser(gctx, authToken(gctx), update)
		if err != nil {
			abortWithError(gctx, logger, err, "UpdateUser")
			return
		}
		gctx.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}

func abortWithError(gctx *gin.Context, logger log.Logger, err error, op string) {
	// Error occured, might be validation or server error
	resp := errors.As(err)
	if resp.Kind == errors.InternalKind {
		logger.WithCtx(gctx).Error().Err(err).Msgf("Error occured in %s()", op)
	}
	gctx.JSON(resp.Status, resp)
}
