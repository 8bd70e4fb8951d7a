package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/entitlekit/adapters/ginutil"
	"github.com/open-rails/entitlekit/lifecycle"
)

// HandleEntitlementInstanceGET looks an instance up by code for support
// tooling. Unlike the owner-facing listing it never activates anything.
func HandleEntitlementInstanceGET(svc *lifecycle.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLList) {
			ginutil.TooMany(c)
			return
		}
		code := c.Param("code")
		if code == "" {
			ginutil.BadRequest(c, "code is required")
			return
		}
		inst, err := svc.InstanceByCode(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, lifecycle.ErrNotFound) {
				ginutil.NotFound(c, "invalid code")
				return
			}
			ginutil.Internal(c)
			return
		}
		c.JSON(http.StatusOK, inst)
	}
}
