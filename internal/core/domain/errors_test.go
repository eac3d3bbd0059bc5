package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestErrorStringSortsDetails(t *testing.T) {
	err := NewError(ErrParcelNotFound, map[string]string{
		"parcel_number": "9999",
		"municipality":  "334979",
	})
	want := "parcel_not_found: municipality=334979, parcel_number=9999"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q; want %q", got, want)
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("lookup failed: %w", NewError(ErrTimeout, nil))
	if !errors.Is(err, NewError(ErrTimeout, map[string]string{"other": "details"})) {
		t.Error("errors.Is did not match same-kind errors")
	}
	if errors.Is(err, NewError(ErrConnection, nil)) {
		t.Error("errors.Is matched errors of different kinds")
	}
}

func TestWrapErrorUnwraps(t *testing.T) {
	err := WrapError(ErrConnection, map[string]string{"url": "http://x"}, io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("wrapped cause is not reachable through errors.Is")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewError(ErrRateLimit, nil)); got != ErrRateLimit {
		t.Errorf("KindOf = %q; want %q", got, ErrRateLimit)
	}
	if got := KindOf(fmt.Errorf("wrapped: %w", NewError(ErrServer, nil))); got != ErrServer {
		t.Errorf("KindOf through wrapping = %q; want %q", got, ErrServer)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf on foreign error = %q; want empty", got)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"municipality", NewError(ErrMunicipalityNotFound, nil), true},
		{"parcel", NewError(ErrParcelNotFound, nil), true},
		{"lr unit", NewError(ErrLRUnitNotFound, nil), true},
		{"geometry", NewError(ErrGeometryNotFound, nil), true},
		{"ambiguous is not absence", NewError(ErrMunicipalityAmbiguous, nil), false},
		{"connection", NewError(ErrConnection, nil), false},
		{"foreign", errors.New("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v; want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewInvalidResponse(t *testing.T) {
	err := NewInvalidResponse("parcel-info", "missing parcelId")
	if KindOf(err) != ErrInvalidResponse {
		t.Fatalf("kind = %q; want %q", KindOf(err), ErrInvalidResponse)
	}
	if err.Details["endpoint"] != "parcel-info" {
		t.Errorf("endpoint detail = %q; want %q", err.Details["endpoint"], "parcel-info")
	}
}
