// Package handlers contains one file per route, wired together by Mount.
package handlers

import (
	"github.com/gin-gonic/gin"

	authgin "github.com/open-rails/entitlekit/adapters/gin"
	"github.com/open-rails/entitlekit/adapters/ginutil"
	"github.com/open-rails/entitlekit/lifecycle"
)

// Mount attaches the entitlement routes under /api. Admin routes require
// the ADMIN role; user routes only require a valid token.
func Mount(r gin.IRouter, svc *lifecycle.Service, rl ginutil.RateLimiter, tokenSecret []byte) {
	api := r.Group("/api")

	admin := api.Group("/admin", authgin.AuthRequired(tokenSecret), authgin.AdminRequired())
	admin.GET("/entitlement-types", HandleEntitlementTypesGET(svc, rl))
	admin.POST("/entitlement-types", HandleEntitlementTypePOST(svc, rl))
	admin.POST("/entitlements", HandleEntitlementInstancePOST(svc, rl))
	admin.GET("/entitlements/:code", HandleEntitlementInstanceGET(svc, rl))
	admin.POST("/redeem", HandleRedeemPOST(svc, rl))

	user := api.Group("/user", authgin.AuthRequired(tokenSecret))
	user.GET("/entitlements", HandleUserEntitlementsGET(svc, rl))
}
