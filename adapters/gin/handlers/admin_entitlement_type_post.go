package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authgin "github.com/open-rails/entitlekit/adapters/gin"
	"github.com/open-rails/entitlekit/adapters/ginutil"
	"github.com/open-rails/entitlekit/lifecycle"
	"github.com/open-rails/entitlekit/rules"
)

func HandleEntitlementTypePOST(svc *lifecycle.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type createTypeReq struct {
		Name            string         `json:"name"`
		Description     *string        `json:"description"`
		RedemptionRules *rules.RuleSet `json:"redemptionRules"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLTypes) {
			ginutil.TooMany(c)
			return
		}
		caller, ok := authgin.CurrentCaller(c)
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		var req createTypeReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}

		t, err := svc.CreateType(c.Request.Context(), req.Name, req.Description, req.RedemptionRules, caller.UserID)
		if err != nil {
			// Storage failures stay generic; only validation errors carry
			// their message back to the caller.
			if errors.Is(err, lifecycle.ErrUnavailable) {
				ginutil.Internal(c)
				return
			}
			ginutil.BadRequest(c, err.Error())
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}
