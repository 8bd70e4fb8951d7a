package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/open-rails/entitlekit/adapters/ginutil"
	"github.com/open-rails/entitlekit/lifecycle"
)

func HandleEntitlementInstancePOST(svc *lifecycle.Service, rl ginutil.RateLimiter) gin.HandlerFunc {
	type issueReq struct {
		UserID            string     `json:"userId"`
		EntitlementTypeID string     `json:"entitlementTypeId"`
		ExpiresAt         *time.Time `json:"expiresAt"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLIssue) {
			ginutil.TooMany(c)
			return
		}
		var req issueReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			ginutil.BadRequest(c, "invalid userId")
			return
		}
		typeID, err := uuid.Parse(req.EntitlementTypeID)
		if err != nil {
			ginutil.BadRequest(c, "invalid entitlementTypeId")
			return
		}

		inst, err := svc.IssueInstance(c.Request.Context(), userID, typeID, req.ExpiresAt)
		if err != nil {
			if errors.Is(err, lifecycle.ErrNotFound) {
				ginutil.NotFound(c, "entitlement type or user not found")
				return
			}
			ginutil.Internal(c)
			return
		}
		c.JSON(http.StatusCreated, inst)
	}
}
