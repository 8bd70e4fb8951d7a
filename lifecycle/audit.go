package lifecycle

import (
	"context"

	"github.com/google/uuid"
)

// RedemptionEventLogger records redemption outcomes to an external sink
// (e.g., an analytics store). Implementations should be non-blocking and
// best-effort; errors are logged, never propagated to the caller.
type RedemptionEventLogger interface {
	LogRedemption(ctx context.Context, instanceID, redeemedBy uuid.UUID, outcome string) error
}
