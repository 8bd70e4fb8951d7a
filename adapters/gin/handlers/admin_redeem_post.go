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

// HandleRedeemPOST is the redemption endpoint. Each lifecycle error kind
// maps to its own HTTP shape so clients can render specific guidance.
func HandleRedeemPOST(svc *lifecycle.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type redeemReq struct {
		Code      string   `json:"code"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLRedeem) {
			ginutil.TooMany(c)
			return
		}
		caller, ok := authgin.CurrentCaller(c)
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		var req redeemReq
		if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
			ginutil.BadRequest(c, "code is required")
			return
		}

		var coords *rules.Coordinates
		if req.Latitude != nil && req.Longitude != nil {
			coords = &rules.Coordinates{Lat: *req.Latitude, Lng: *req.Longitude}
		}

		red, err := svc.Redeem(c.Request.Context(), req.Code, caller.UserID, coords)
		if err != nil {
			writeRedeemError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"redemption": red,
			"message":    "entitlement redeemed successfully",
		})
	}
}

func writeRedeemError(c *gin.Context, err error) {
	var conflict *lifecycle.ConflictError
	var state *lifecycle.StateError
	var rule *lifecycle.RuleError

	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		ginutil.NotFound(c, "invalid code")
	case errors.As(err, &conflict):
		ginutil.Conflict(c, gin.H{
			"error":      "entitlement already redeemed",
			"redeemedAt": conflict.RedeemedAt,
		})
	case errors.As(err, &state):
		ginutil.BadRequest(c, state.Error())
	case errors.As(err, &rule):
		body := gin.H{"error": rule.Error()}
		switch rule.Violation.Kind {
		case rules.ViolationTime:
			body["allowedTimes"] = rule.Violation.TimeWindows
		case rules.ViolationLocation:
			body["allowedLocations"] = rule.Violation.Locations
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, body)
	default:
		ginutil.Internal(c)
	}
}
