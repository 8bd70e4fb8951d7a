package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/open-rails/entitlekit/entitlements"
)

// Store is the durable-storage contract the lifecycle manager depends on.
// Implementations must return ErrNotFound for missing rows, and
// RedeemInstance must be atomic: the redemption insert and the status
// change commit together or not at all, with uniqueness enforced on the
// redemption's instance reference (a second attempt yields
// ErrAlreadyRedeemed, never a second record).
type Store interface {
	// Entitlement types.
	CreateType(ctx context.Context, t *entitlements.Type) error
	TypeByID(ctx context.Context, id uuid.UUID) (*entitlements.Type, error)
	ActiveTypes(ctx context.Context) ([]entitlements.Type, error)
	DeactivateType(ctx context.Context, id uuid.UUID) error

	// Users. The lifecycle manager only needs existence.
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)

	// Entitlement instances.
	InsertInstance(ctx context.Context, inst *entitlements.Instance) error
	InstanceByCode(ctx context.Context, code string) (*entitlements.Instance, error)
	InstanceByID(ctx context.Context, id uuid.UUID) (*entitlements.Instance, error)
	InstancesByUser(ctx context.Context, userID uuid.UUID) ([]entitlements.Instance, error)

	// ActivateIssued transitions every instance of the user that is still
	// ISSUED to ACTIVE in one conditional update, recording at as the
	// activation time. Returns the number of rows changed.
	ActivateIssued(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)

	// MarkExpired sets the instance to EXPIRED unless it already is.
	MarkExpired(ctx context.Context, id uuid.UUID) error

	// ExpireOverdue bulk-transitions ISSUED and ACTIVE instances whose
	// expiry is strictly before now. Returns the number of rows changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// Redemptions.
	RedemptionByInstance(ctx context.Context, instanceID uuid.UUID) (*entitlements.Redemption, error)
	RedeemInstance(ctx context.Context, red *entitlements.Redemption) error
}
