package domain

import (
	"testing"
)

func TestPossessorOwnershipFraction(t *testing.T) {
	tests := []struct {
		name      string
		ownership string
		wantOK    bool
		decimal   float64
	}{
		{"specified", "1/2", true, 0.5},
		{"zero share", "0/5", true, 0},
		{"absent", "", false, 0},
		{"malformed", "n/a", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Possessor{Name: "IVAN HORVAT", Ownership: tt.ownership}
			f, ok := p.OwnershipFraction()
			if ok != tt.wantOK {
				t.Fatalf("OwnershipFraction() ok = %v; want %v", ok, tt.wantOK)
			}
			if ok && f.Decimal() != tt.decimal {
				t.Errorf("Decimal() = %v; want %v", f.Decimal(), tt.decimal)
			}
		})
	}
}

func TestPossessionSheetTotalOwnership(t *testing.T) {
	tests := []struct {
		name       string
		ownerships []string
		wantTotal  float64
		wantOK     bool
	}{
		{"two specified", []string{"1/2", "1/4"}, 0.75, true},
		{"one specified among absent", []string{"", "3/8", ""}, 0.375, true},
		{"all absent", []string{"", ""}, 0, false},
		{"zero shares only", []string{"0/5"}, 0, false},
		{"no possessors", nil, 0, false},
		{"malformed ignored", []string{"n/a", "1/2"}, 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := PossessionSheet{
				PossessionSheetID:     7,
				PossessionSheetNumber: "120",
				CadMunicipalityID:     12345,
			}
			for _, o := range tt.ownerships {
				sheet.Possessors = append(sheet.Possessors, Possessor{Name: "X", Ownership: o})
			}
			total, ok := sheet.TotalOwnership()
			if ok != tt.wantOK {
				t.Fatalf("TotalOwnership() ok = %v; want %v", ok, tt.wantOK)
			}
			if total != tt.wantTotal {
				t.Errorf("TotalOwnership() = %v; want %v", total, tt.wantTotal)
			}
		})
	}
}

func TestParcelPartAreaM2(t *testing.T) {
	part := ParcelPart{Name: "MASLINJAK", Area: "409"}
	if got := part.AreaM2(); got != 409 {
		t.Errorf("AreaM2() = %d; want 409", got)
	}
	part.Area = "garbage"
	if got := part.AreaM2(); got != 0 {
		t.Errorf("AreaM2() on unreadable area = %d; want 0", got)
	}
}

func TestLandUseSummaryMergesByName(t *testing.T) {
	info := ParcelInfo{
		ParcelParts: []ParcelPart{
			{Name: "MASLINJAK", Area: "409"},
			{Name: "ORANICA", Area: "55"},
			{Name: "MASLINJAK", Area: "100"},
		},
	}

	summary := info.LandUseSummary()
	if got := summary["MASLINJAK"]; got != 509 {
		t.Errorf(`summary["MASLINJAK"] = %d; want 509`, got)
	}
	if got := summary["ORANICA"]; got != 55 {
		t.Errorf(`summary["ORANICA"] = %d; want 55`, got)
	}
	if len(summary) != 2 {
		t.Errorf("summary has %d land uses; want 2", len(summary))
	}
}

func TestParcelInfoTotalOwners(t *testing.T) {
	info := ParcelInfo{
		PossessionSheets: []PossessionSheet{
			{Possessors: []Possessor{{Name: "A"}, {Name: "B"}}},
			{Possessors: []Possessor{{Name: "C"}}},
		},
	}
	if got := info.TotalOwners(); got != 3 {
		t.Errorf("TotalOwners() = %d; want 3", got)
	}

	var empty ParcelInfo
	if got := empty.TotalOwners(); got != 0 {
		t.Errorf("TotalOwners() on empty record = %d; want 0", got)
	}
}

func TestParcelInfoAreaM2(t *testing.T) {
	info := ParcelInfo{Area: "509"}
	if got := info.AreaM2(); got != 509 {
		t.Errorf("AreaM2() = %d; want 509", got)
	}
	info.Area = ""
	if got := info.AreaM2(); got != 0 {
		t.Errorf("AreaM2() on empty area = %d; want 0", got)
	}
}
