package entitlements

import "fmt"

// Status is the lifecycle state of an entitlement instance.
//
// The lifecycle only moves forward: REDEEMED, EXPIRED and CANCELLED are
// terminal and have no outgoing transitions.
type Status string

const (
	StatusIssued    Status = "ISSUED"
	StatusActive    Status = "ACTIVE"
	StatusRedeemed  Status = "REDEEMED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// validTransitions is the full edge set of the lifecycle.
var validTransitions = map[Status][]Status{
	StatusIssued:    {StatusActive, StatusCancelled},
	StatusActive:    {StatusRedeemed, StatusExpired, StatusCancelled},
	StatusRedeemed:  {}, // terminal
	StatusExpired:   {}, // terminal
	StatusCancelled: {}, // terminal
}

// CanTransition reports whether from→to is a legal edge.
// Unknown states yield false; the function never fails.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition is the boundary-facing form of CanTransition: it
// additionally rejects any string that is not a known status name, so
// malformed stored or externally supplied values are refused rather than
// silently matched.
func ValidateTransition(current, proposed string) bool {
	from, err := ParseStatus(current)
	if err != nil {
		return false
	}
	to, err := ParseStatus(proposed)
	if err != nil {
		return false
	}
	return CanTransition(from, to)
}

// IsTerminal reports whether s has no outgoing transitions.
func IsTerminal(s Status) bool {
	next, ok := validTransitions[s]
	return ok && len(next) == 0
}

// ParseStatus converts a raw string (e.g. a column value) into a Status,
// returning an error for anything outside the known set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusIssued, StatusActive, StatusRedeemed, StatusExpired, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown entitlement status %q", s)
}
