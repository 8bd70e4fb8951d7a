// Package rules evaluates the declarative redemption constraints attached
// to an entitlement type: wall-clock time windows and geofenced locations.
// Evaluation is a pure function of the rule set and the attempt context.
package rules

import (
	"fmt"
	"time"
)

// TimeWindow is an inclusive wall-clock range in "HH:MM" 24-hour form,
// interpreted in the evaluating process's local time. Windows spanning
// midnight (start > end) never match; callers wanting 22:00–02:00 must
// list two windows.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Location is a geofence: a center point and a radius in meters.
type Location struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius float64 `json:"radius"`
}

// RuleSet is the serialized rule structure stored on an entitlement type.
// A nil field means no constraint of that kind; a nil RuleSet passes
// every attempt.
type RuleSet struct {
	TimeWindows []TimeWindow `json:"timeWindows,omitempty"`
	Locations   []Location   `json:"locations,omitempty"`
}

// Coordinates is the redeemer's reported position, when supplied.
type Coordinates struct {
	Lat float64
	Lng float64
}

// ViolationKind identifies which constraint class blocked an attempt.
type ViolationKind string

const (
	ViolationTime     ViolationKind = "time"
	ViolationLocation ViolationKind = "location"
)

// Violation reports a failed check together with the full rule list that
// was in force, so callers can present the allowed windows or places.
type Violation struct {
	Kind        ViolationKind
	TimeWindows []TimeWindow
	Locations   []Location
}

func (v *Violation) Error() string {
	switch v.Kind {
	case ViolationTime:
		return "redemption not allowed at this time"
	case ViolationLocation:
		return "redemption not allowed at this location"
	}
	return "redemption rule violated"
}

// Evaluate checks an attempt at time `at`, optionally at `coords`, against
// rs. It returns nil when every applicable check passes, or a *Violation
// naming the first failed check.
//
// The location check only applies when the caller supplied coordinates;
// an attempt without coordinates skips geofencing entirely. This is
// deliberately permissive and asymmetric with the time check.
func Evaluate(rs *RuleSet, at time.Time, coords *Coordinates) error {
	if rs == nil {
		return nil
	}

	if len(rs.TimeWindows) > 0 {
		hhmm := at.Format("15:04")
		ok := false
		for _, w := range rs.TimeWindows {
			// Inclusive on both endpoints. Zero-padded HH:MM strings
			// order lexicographically, same as their clock order.
			if hhmm >= w.Start && hhmm <= w.End {
				ok = true
				break
			}
		}
		if !ok {
			return &Violation{Kind: ViolationTime, TimeWindows: rs.TimeWindows}
		}
	}

	if len(rs.Locations) > 0 && coords != nil {
		ok := false
		for _, loc := range rs.Locations {
			if DistanceMeters(coords.Lat, coords.Lng, loc.Lat, loc.Lng) <= loc.Radius {
				ok = true
				break
			}
		}
		if !ok {
			return &Violation{Kind: ViolationLocation, Locations: rs.Locations}
		}
	}

	return nil
}

// Validate rejects rule sets that could never be stored meaningfully:
// malformed HH:MM strings, inverted coordinates, non-positive radii.
func (rs *RuleSet) Validate() error {
	if rs == nil {
		return nil
	}
	for i, w := range rs.TimeWindows {
		if !validHHMM(w.Start) || !validHHMM(w.End) {
			return fmt.Errorf("timeWindows[%d]: start and end must be zero-padded HH:MM", i)
		}
	}
	for i, loc := range rs.Locations {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return fmt.Errorf("locations[%d]: coordinates out of range", i)
		}
		if loc.Radius <= 0 {
			return fmt.Errorf("locations[%d]: radius must be positive", i)
		}
	}
	return nil
}

func validHHMM(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	for _, c := range []byte{s[0], s[1], s[3], s[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	return h <= 23 && m <= 59
}
