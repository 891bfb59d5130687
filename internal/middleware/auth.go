package middleware

import (
	"net/http"

	"taskloop-sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequireSession refuses requests while no token is stored on this device.
// For room routes the room is remembered so the UI can return to it after
// logging in.
func RequireSession(auth *service.AuthService) gin.HandlerFunc {
	if auth == nil {
		panic("AuthService cannot be nil for RequireSession middleware")
	}

	return func(c *gin.Context) {
		route := service.RouteHome
		if uuid := c.Param("uuid"); uuid != "" {
			route = service.SessionRoute(uuid)
		}

		ok, err := auth.Guard(c.Request.Context(), route)
		if err != nil {
			logrus.WithError(err).Error("RequireSession: Failed to read device store")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read login state"})
			c.Abort()
			return
		}
		if !ok {
			logrus.WithField("route", route).Debug("RequireSession: Not logged in")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Login required", "redirect": service.RouteLogin})
			c.Abort()
			return
		}
		c.Next()
	}
}
