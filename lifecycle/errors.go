package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/open-rails/entitlekit/entitlements"
	"github.com/open-rails/entitlekit/rules"
)

var (
	// ErrNotFound is returned when a referenced user, type or code does
	// not exist, or the type has been deactivated.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRedeemed is returned when a redemption record already
	// exists for the instance.
	ErrAlreadyRedeemed = errors.New("entitlement already redeemed")

	// ErrInvalidState is returned when the instance's status does not
	// permit the requested transition, including the expired case.
	ErrInvalidState = errors.New("invalid entitlement state")

	// ErrRuleViolation is returned when redemption rules block the attempt.
	ErrRuleViolation = errors.New("redemption rule violated")

	// ErrUnavailable wraps unexpected storage failures. It is the only
	// error kind a caller should retry.
	ErrUnavailable = errors.New("storage unavailable")
)

// ConflictError carries the prior redemption's timestamp so callers can
// report when the code was consumed.
type ConflictError struct {
	RedeemedAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s at %s", ErrAlreadyRedeemed, e.RedeemedAt.Format(time.RFC3339))
}

func (e *ConflictError) Unwrap() error { return ErrAlreadyRedeemed }

// StateError reports the status that blocked a transition. Expired
// carries the expiry short-circuit case, which always wins over the
// generic transition check.
type StateError struct {
	Status  entitlements.Status
	Expired bool
}

func (e *StateError) Error() string {
	if e.Expired {
		return "entitlement has expired"
	}
	return fmt.Sprintf("cannot redeem entitlement in %s status", e.Status)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// RuleError wraps a rules.Violation as a lifecycle error so handlers can
// surface the allowed windows or locations.
type RuleError struct {
	Violation *rules.Violation
}

func (e *RuleError) Error() string { return e.Violation.Error() }

func (e *RuleError) Unwrap() error { return ErrRuleViolation }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
