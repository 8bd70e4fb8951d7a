package entitlements

import (
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/entitlekit/rules"
)

// Type is a template describing a class of grant and its redemption rules.
// Types are never hard-deleted; Active=false soft-disables further issuance.
type Type struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Description     *string        `json:"description,omitempty"`
	RedemptionRules *rules.RuleSet `json:"redemption_rules,omitempty"`
	Active          bool           `json:"is_active"`
	CreatedBy       uuid.UUID      `json:"created_by"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Instance is one concrete grant of a Type to one user. The redemption
// code is opaque and globally unique; callers must never parse it.
type Instance struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	TypeID      uuid.UUID  `json:"entitlement_type_id"`
	Code        string     `json:"code"`
	Status      Status     `json:"status"`
	IssuedAt    time.Time  `json:"issued_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the instance carries an expiry strictly in the past.
func (i Instance) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// Redemption is the immutable record of successfully consuming an instance.
// At most one exists per instance, ever.
type Redemption struct {
	ID         uuid.UUID `json:"id"`
	InstanceID uuid.UUID `json:"entitlement_instance_id"`
	RedeemedBy uuid.UUID `json:"redeemed_by"`
	RedeemedAt time.Time `json:"redeemed_at"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
}
