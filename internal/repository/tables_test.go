package repository

import (
	"testing"

	"github.com/quantfoundry/universe-data/internal/errs"
)

func TestTableResolver_Resolve(t *testing.T) {
	tests := []struct {
		env     string
		logical string
		want    string
	}{
		{"test", TableMembershipIntervals, "test_membership_intervals"},
		{"test", TablePriceBars, "test_price_bars"},
		{"intg", TableMembershipEvents, "intg_membership_events"},
		{"intg", TableCorporateActions, "intg_corporate_actions"},
		{"prod", TableMembershipIntervals, "membership_intervals"},
		{"prod", TablePriceBars, "price_bars"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.logical, func(t *testing.T) {
			r, err := NewTableResolver(tt.env)
			if err != nil {
				t.Fatalf("NewTableResolver(%q): %v", tt.env, err)
			}
			got, err := r.Resolve(tt.logical)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.logical, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.logical, got, tt.want)
			}
		})
	}
}

func TestTableResolver_UnknownEnvironment(t *testing.T) {
	_, err := NewTableResolver("staging")
	if err == nil {
		t.Fatal("expected error for unknown environment")
	}
	if !errs.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestTableResolver_UnknownTable(t *testing.T) {
	r, err := NewTableResolver("test")
	if err != nil {
		t.Fatalf("NewTableResolver: %v", err)
	}

	_, err = r.Resolve("user_sessions")
	if err == nil {
		t.Fatal("expected error for unknown table")
	}
	if !errs.IsValidation(err) {
		t.Errorf("error = %v, want ValidationError", err)
	}
}

func TestTableResolver_Environment(t *testing.T) {
	r, err := NewTableResolver("intg")
	if err != nil {
		t.Fatalf("NewTableResolver: %v", err)
	}
	if r.Environment() != "intg" {
		t.Errorf("Environment() = %q, want %q", r.Environment(), "intg")
	}
}
