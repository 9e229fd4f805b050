package httpserver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/MarkoPoloResearchLab/rental/pkg/rental"
)

func TestParseDateTime(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "rfc 3339 utc", raw: "2023-11-14T22:13:20Z", want: 1_700_000_000},
		{name: "rfc 3339 with offset", raw: "2023-11-15T00:13:20+02:00", want: 1_700_000_000},
		{name: "bare date is midnight utc", raw: "2023-11-14", want: 1_699_920_000},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "next tuesday", wantErr: true},
		{name: "partial timestamp", raw: "2023-11-14T22:13", wantErr: true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseDateTime(test.raw)
			if test.wantErr {
				if !errors.Is(err, rental.ErrInvalidRange) {
					t.Fatalf("expected ErrInvalidRange, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.want {
				t.Fatalf("parseDateTime(%q) = %d, want %d", test.raw, got, test.want)
			}
		})
	}
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()
	period, err := parsePeriod("2023-11-14", "2023-11-16")
	if err != nil {
		t.Fatalf("parse period: %v", err)
	}
	if period.StartUnixUTC() != 1_699_920_000 {
		t.Fatalf("start = %d, want 1699920000", period.StartUnixUTC())
	}
	if period.EndUnixUTC() != 1_700_092_800 {
		t.Fatalf("end = %d, want 1700092800", period.EndUnixUTC())
	}

	if _, err := parsePeriod("2023-11-16", "2023-11-14"); !errors.Is(err, rental.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for reversed period, got %v", err)
	}
	if _, err := parsePeriod("", "2023-11-16"); !errors.Is(err, rental.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty start, got %v", err)
	}
}

func TestParseAllowedOrigins(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty", raw: "   ", want: []string{}},
		{name: "single", raw: "http://localhost:3000", want: []string{"http://localhost:3000"}},
		{name: "multiple with spaces", raw: " https://a.example , https://b.example ,", want: []string{"https://a.example", "https://b.example"}},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseAllowedOrigins(test.raw); !reflect.DeepEqual(got, test.want) {
				t.Fatalf("ParseAllowedOrigins(%q) = %v, want %v", test.raw, got, test.want)
			}
		})
	}
}

func TestConfigValidateAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q, want :8080", cfg.ListenAddr)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("allowed origins = %v, want the local default", cfg.AllowedOrigins)
	}
}
