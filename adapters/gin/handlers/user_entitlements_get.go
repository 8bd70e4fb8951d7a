package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/open-rails/entitlekit/adapters/gin"
	"github.com/open-rails/entitlekit/adapters/ginutil"
	"github.com/open-rails/entitlekit/lifecycle"
)

// HandleUserEntitlementsGET lists the caller's entitlements. Viewing is
// what activates freshly issued instances, so this read has a write side
// effect by design.
func HandleUserEntitlementsGET(svc *lifecycle.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLList) {
			ginutil.TooMany(c)
			return
		}
		caller, ok := authgin.CurrentCaller(c)
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		instances, err := svc.ListUserInstances(c.Request.Context(), caller.UserID)
		if err != nil {
			ginutil.Internal(c)
			return
		}
		c.JSON(http.StatusOK, instances)
	}
}
