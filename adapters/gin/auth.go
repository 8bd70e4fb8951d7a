// Package authgin gates the entitlement routes behind a bearer token
// issued by the upstream auth service. Token issuance itself is out of
// scope here; this adapter only verifies and extracts the caller.
package authgin

import (
	"strings"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/open-rails/entitlekit/adapters/ginutil"
)

const callerContextKey = "entitle.caller"

// Caller is the authenticated identity attached to the request.
type Caller struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// IsAdmin reports whether the caller may hit administrative routes.
func (c Caller) IsAdmin() bool { return c.Role == "ADMIN" }

type tokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthRequired verifies an HS256 bearer token and stores the caller on the
// context. Requests without a valid token are rejected with 401.
func AuthRequired(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			ginutil.Unauthorized(c)
			return
		}
		var claims tokenClaims
		tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !tok.Valid {
			ginutil.Unauthorized(c)
			return
		}
		uid, err := uuid.Parse(claims.UserID)
		if err != nil {
			ginutil.Unauthorized(c)
			return
		}
		c.Set(callerContextKey, Caller{UserID: uid, Email: claims.Email, Role: claims.Role})
		c.Next()
	}
}

// AdminRequired rejects non-admin callers. Must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CurrentCaller(c)
		if !ok {
			ginutil.Unauthorized(c)
			return
		}
		if !caller.IsAdmin() {
			ginutil.Forbidden(c)
			return
		}
		c.Next()
	}
}

// CurrentCaller returns the identity set by AuthRequired.
func CurrentCaller(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(callerContextKey)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}

// SetCaller injects a caller directly, bypassing token verification.
// Intended for handler tests.
func SetCaller(c *gin.Context, caller Caller) {
	c.Set(callerContextKey, caller)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
