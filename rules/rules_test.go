package rules

import (
	"errors"
	"testing"
	"time"
)

func localClock(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, time.Local)
}

func TestEvaluateNilRuleSetPasses(t *testing.T) {
	if err := Evaluate(nil, localClock(3, 0), nil); err != nil {
		t.Errorf("nil rule set should pass, got %v", err)
	}
	if err := Evaluate(&RuleSet{}, localClock(3, 0), nil); err != nil {
		t.Errorf("empty rule set should pass, got %v", err)
	}
}

func TestEvaluateTimeWindows(t *testing.T) {
	rs := &RuleSet{TimeWindows: []TimeWindow{{Start: "11:00", End: "14:00"}}}

	cases := []struct {
		hour, min int
		pass      bool
	}{
		{13, 0, true},
		{11, 0, true}, // inclusive start
		{14, 0, true}, // inclusive end
		{10, 59, false},
		{14, 1, false},
	}
	for _, tc := range cases {
		err := Evaluate(rs, localClock(tc.hour, tc.min), nil)
		if tc.pass && err != nil {
			t.Errorf("%02d:%02d should pass, got %v", tc.hour, tc.min, err)
		}
		if !tc.pass {
			var v *Violation
			if !errors.As(err, &v) {
				t.Fatalf("%02d:%02d should fail with Violation, got %v", tc.hour, tc.min, err)
			}
			if v.Kind != ViolationTime {
				t.Errorf("violation kind = %s, want time", v.Kind)
			}
			if len(v.TimeWindows) != 1 {
				t.Error("violation should carry the full window list")
			}
		}
	}
}

func TestEvaluateMultipleWindows(t *testing.T) {
	rs := &RuleSet{TimeWindows: []TimeWindow{
		{Start: "07:00", End: "09:00"},
		{Start: "18:00", End: "20:00"},
	}}
	if err := Evaluate(rs, localClock(19, 0), nil); err != nil {
		t.Errorf("second window should match, got %v", err)
	}
	if err := Evaluate(rs, localClock(12, 0), nil); err == nil {
		t.Error("gap between windows should fail")
	}
}

func TestEvaluateMidnightSpanNeverMatches(t *testing.T) {
	// Inverted windows are a documented limitation, not wrap-around.
	rs := &RuleSet{TimeWindows: []TimeWindow{{Start: "22:00", End: "02:00"}}}
	if err := Evaluate(rs, localClock(23, 0), nil); err == nil {
		t.Error("inverted window should not match 23:00")
	}
	if err := Evaluate(rs, localClock(1, 0), nil); err == nil {
		t.Error("inverted window should not match 01:00")
	}
}

func TestEvaluateLocations(t *testing.T) {
	singapore := Location{Lat: 1.3521, Lng: 103.8198, Radius: 100}
	rs := &RuleSet{Locations: []Location{singapore}}

	// At the center.
	if err := Evaluate(rs, localClock(12, 0), &Coordinates{Lat: 1.3521, Lng: 103.8198}); err != nil {
		t.Errorf("attempt at center should pass, got %v", err)
	}

	// Roughly 10 km north.
	err := Evaluate(rs, localClock(12, 0), &Coordinates{Lat: 1.4421, Lng: 103.8198})
	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("attempt 10km away should fail with Violation, got %v", err)
	}
	if v.Kind != ViolationLocation {
		t.Errorf("violation kind = %s, want location", v.Kind)
	}
	if len(v.Locations) != 1 {
		t.Error("violation should carry the full location list")
	}
}

func TestEvaluateLocationSkippedWithoutCoordinates(t *testing.T) {
	rs := &RuleSet{Locations: []Location{{Lat: 1.3521, Lng: 103.8198, Radius: 100}}}
	if err := Evaluate(rs, localClock(12, 0), nil); err != nil {
		t.Errorf("location check should be skipped without coordinates, got %v", err)
	}
}

func TestEvaluateBothChecksIndependent(t *testing.T) {
	rs := &RuleSet{
		TimeWindows: []TimeWindow{{Start: "11:00", End: "14:00"}},
		Locations:   []Location{{Lat: 1.3521, Lng: 103.8198, Radius: 100}},
	}
	// Time fails first even though location would pass.
	err := Evaluate(rs, localClock(9, 0), &Coordinates{Lat: 1.3521, Lng: 103.8198})
	var v *Violation
	if !errors.As(err, &v) || v.Kind != ViolationTime {
		t.Errorf("expected time violation, got %v", err)
	}
	// Time passes, location fails.
	err = Evaluate(rs, localClock(12, 0), &Coordinates{Lat: 50, Lng: 50})
	if !errors.As(err, &v) || v.Kind != ViolationLocation {
		t.Errorf("expected location violation, got %v", err)
	}
}

func TestDistanceMeters(t *testing.T) {
	// One degree of latitude is about 111 km.
	d := DistanceMeters(0, 0, 1, 0)
	if d < 110000 || d > 112000 {
		t.Errorf("one degree latitude = %.0f m, want ~111 km", d)
	}
	if d := DistanceMeters(1.3521, 103.8198, 1.3521, 103.8198); d != 0 {
		t.Errorf("identical points = %f, want 0", d)
	}
}

func TestRuleSetValidate(t *testing.T) {
	bad := []*RuleSet{
		{TimeWindows: []TimeWindow{{Start: "9:00", End: "14:00"}}},  // not zero-padded
		{TimeWindows: []TimeWindow{{Start: "24:00", End: "25:00"}}}, // out of range
		{TimeWindows: []TimeWindow{{Start: "aa:bb", End: "14:00"}}},
		{Locations: []Location{{Lat: 91, Lng: 0, Radius: 10}}},
		{Locations: []Location{{Lat: 0, Lng: 181, Radius: 10}}},
		{Locations: []Location{{Lat: 0, Lng: 0, Radius: 0}}},
	}
	for i, rs := range bad {
		if err := rs.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}

	good := &RuleSet{
		TimeWindows: []TimeWindow{{Start: "00:00", End: "23:59"}},
		Locations:   []Location{{Lat: -33.9, Lng: 151.2, Radius: 250}},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("valid rule set rejected: %v", err)
	}
	var nilRS *RuleSet
	if err := nilRS.Validate(); err != nil {
		t.Errorf("nil rule set rejected: %v", err)
	}
}
