package rental

import (
	"errors"
	"testing"
)

func TestNewTimeRangeValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		startUnixUTC int64
		endUnixUTC   int64
		wantErr      bool
	}{
		{name: "valid", startUnixUTC: 100, endUnixUTC: 200},
		{name: "equal endpoints", startUnixUTC: 100, endUnixUTC: 100, wantErr: true},
		{name: "reversed", startUnixUTC: 200, endUnixUTC: 100, wantErr: true},
		{name: "zero start", startUnixUTC: 0, endUnixUTC: 100, wantErr: true},
		{name: "negative end", startUnixUTC: 100, endUnixUTC: -1, wantErr: true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewTimeRange(test.startUnixUTC, test.endUnixUTC)
			if test.wantErr && !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
			if !test.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestTimeRangeOverlapsIsHalfOpen(t *testing.T) {
	t.Parallel()
	base := mustRange(t, 100, 200)
	tests := []struct {
		name    string
		other   TimeRange
		overlap bool
	}{
		{name: "inside", other: mustRange(t, 120, 180), overlap: true},
		{name: "straddles start", other: mustRange(t, 50, 150), overlap: true},
		{name: "straddles end", other: mustRange(t, 150, 250), overlap: true},
		{name: "covers", other: mustRange(t, 50, 250), overlap: true},
		{name: "touches end", other: mustRange(t, 200, 300), overlap: false},
		{name: "touches start", other: mustRange(t, 50, 100), overlap: false},
		{name: "disjoint", other: mustRange(t, 300, 400), overlap: false},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := base.Overlaps(test.other); got != test.overlap {
				t.Fatalf("overlap = %v, want %v", got, test.overlap)
			}
			if got := test.other.Overlaps(base); got != test.overlap {
				t.Fatalf("overlap not symmetric: %v, want %v", got, test.overlap)
			}
		})
	}
}

func TestTimeRangeContains(t *testing.T) {
	t.Parallel()
	period := mustRange(t, 100, 200)
	if !period.Contains(100) {
		t.Fatalf("expected start inclusive")
	}
	if period.Contains(200) {
		t.Fatalf("expected end exclusive")
	}
	if period.Contains(99) || period.Contains(201) {
		t.Fatalf("expected instants outside the interval excluded")
	}
}

func TestAmountCentsDecimalString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cents int64
		want  string
	}{
		{cents: 5000, want: "50.00"},
		{cents: 5, want: "0.05"},
		{cents: 123456, want: "1234.56"},
		{cents: 100, want: "1.00"},
	}
	for _, test := range tests {
		test := test
		if got := mustAmount(t, test.cents).DecimalString(); got != test.want {
			t.Fatalf("DecimalString(%d) = %q, want %q", test.cents, got, test.want)
		}
	}
}

func TestNewAmountCentsRejectsNonPositive(t *testing.T) {
	t.Parallel()
	for _, raw := range []int64{0, -1, -5000} {
		if _, err := NewAmountCents(raw); !errors.Is(err, ErrInvalidAmountCents) {
			t.Fatalf("expected ErrInvalidAmountCents for %d, got %v", raw, err)
		}
	}
}

func TestParseReservationStatus(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"pending", "confirmed", "cancelled", "expired"} {
		if _, err := ParseReservationStatus(raw); err != nil {
			t.Fatalf("expected %q to parse, got %v", raw, err)
		}
	}
	if _, err := ParseReservationStatus("active"); !errors.Is(err, ErrInvalidReservationStatus) {
		t.Fatalf("expected ErrInvalidReservationStatus, got %v", err)
	}
}

func TestRolePermissions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		role          Role
		elevated      bool
		canViewOthers bool
	}{
		{role: RoleCustomer, elevated: false, canViewOthers: false},
		{role: RoleEmployee, elevated: false, canViewOthers: true},
		{role: RoleManager, elevated: true, canViewOthers: true},
		{role: RoleAdministrator, elevated: true, canViewOthers: true},
	}
	for _, test := range tests {
		test := test
		if got := test.role.Elevated(); got != test.elevated {
			t.Fatalf("%s.Elevated() = %v, want %v", test.role, got, test.elevated)
		}
		if got := test.role.CanViewOthers(); got != test.canViewOthers {
			t.Fatalf("%s.CanViewOthers() = %v, want %v", test.role, got, test.canViewOthers)
		}
	}
}

func TestNewActorValidation(t *testing.T) {
	t.Parallel()
	if _, err := NewActor("  ", RoleCustomer); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
	if _, err := NewActor("user-1", Role("root")); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	actor, err := NewActor(" user-1 ", RoleManager)
	if err != nil {
		t.Fatalf("actor: %v", err)
	}
	if actor.UserID != "user-1" {
		t.Fatalf("expected trimmed user id, got %q", actor.UserID)
	}
}
