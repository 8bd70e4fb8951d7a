// Package ginutil holds the small shared pieces of the gin adapters:
// JSON error responses and the upstream rate-limit gate.
package ginutil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RateLimiter is the admission gate handlers consult before doing any
// work. Both the in-memory and Redis limiters satisfy it.
type RateLimiter interface {
	AllowNamed(bucket, key string) (bool, error)
}

// Rate-limit bucket names used by the entitlement handlers.
const (
	RLRedeem = "entitlement_redeem"
	RLIssue  = "entitlement_issue"
	RLList   = "entitlement_list"
	RLTypes  = "entitlement_types"
)

// AllowNamed applies rl for the client, keyed by IP. A nil limiter admits
// everything; a limiter error fails open, since admission control is a
// gate, not a correctness mechanism.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(bucket, c.ClientIP())
	if err != nil {
		return true
	}
	return ok
}

func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func NotFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msg})
}

func Conflict(c *gin.Context, body gin.H) {
	c.AbortWithStatusJSON(http.StatusConflict, body)
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Forbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
}

// Internal hides storage details from the response body.
func Internal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
