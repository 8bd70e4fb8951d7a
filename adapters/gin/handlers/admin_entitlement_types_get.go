package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-rails/entitlekit/adapters/ginutil"
	"github.com/open-rails/entitlekit/lifecycle"
)

func HandleEntitlementTypesGET(svc *lifecycle.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLTypes) {
			ginutil.TooMany(c)
			return
		}
		types, err := svc.ActiveTypes(c.Request.Context())
		if err != nil {
			ginutil.Internal(c)
			return
		}
		c.JSON(http.StatusOK, types)
	}
}
