package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/validator.v2"
)

// The upstream format is not controlled by this system and gains fields
// over time, so decoding ignores unknown keys and fails only on missing
// required fields (validate:"nonzero" tags) and malformed area strings.

func init() {
	_ = validator.SetValidationFunc("m2area", validM2Area)
}

// validM2Area accepts area strings that parse as a non-negative whole
// number of square meters.
func validM2Area(v interface{}, _ string) error {
	s, ok := v.(string)
	if !ok {
		return validator.ErrUnsupported
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("area %q is not a whole number", s)
	}
	if n < 0 {
		return fmt.Errorf("area %q is negative", s)
	}
	return nil
}

// DecodeParcelInfo validates a parcel detail payload.
func DecodeParcelInfo(data []byte, endpoint string) (*ParcelInfo, error) {
	var p ParcelInfo
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, NewInvalidResponse(endpoint, "malformed JSON: "+err.Error())
	}
	if err := validator.Validate(&p); err != nil {
		return nil, NewInvalidResponse(endpoint, err.Error())
	}
	return &p, nil
}

// DecodeLRUnitList validates a unit detail payload. The endpoint returns a
// list that typically holds a single element.
func DecodeLRUnitList(data []byte, endpoint string) ([]LandRegistryUnitDetailed, error) {
	var units []LandRegistryUnitDetailed
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, NewInvalidResponse(endpoint, "malformed JSON: "+err.Error())
	}
	for i := range units {
		if err := validator.Validate(&units[i]); err != nil {
			return nil, NewInvalidResponse(endpoint, fmt.Sprintf("unit %d: %v", i, err))
		}
	}
	return units, nil
}

// DecodeMunicipalities validates a municipality search payload.
func DecodeMunicipalities(data []byte, endpoint string) ([]MunicipalitySearchResult, error) {
	var rows []MunicipalitySearchResult
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, NewInvalidResponse(endpoint, "malformed JSON: "+err.Error())
	}
	for i := range rows {
		if err := validator.Validate(&rows[i]); err != nil {
			return nil, NewInvalidResponse(endpoint, fmt.Sprintf("row %d: %v", i, err))
		}
	}
	return rows, nil
}

// DecodeOffices validates an office list payload.
func DecodeOffices(data []byte, endpoint string) ([]CadastralOffice, error) {
	var offices []CadastralOffice
	if err := json.Unmarshal(data, &offices); err != nil {
		return nil, NewInvalidResponse(endpoint, "malformed JSON: "+err.Error())
	}
	for i := range offices {
		if err := validator.Validate(&offices[i]); err != nil {
			return nil, NewInvalidResponse(endpoint, fmt.Sprintf("row %d: %v", i, err))
		}
	}
	return offices, nil
}

// DecodeParcelSearchResults validates a parcel number search payload.
func DecodeParcelSearchResults(data []byte, endpoint string) ([]ParcelSearchResult, error) {
	var rows []ParcelSearchResult
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, NewInvalidResponse(endpoint, "malformed JSON: "+err.Error())
	}
	for i := range rows {
		if err := validator.Validate(&rows[i]); err != nil {
			return nil, NewInvalidResponse(endpoint, fmt.Sprintf("row %d: %v", i, err))
		}
	}
	return rows, nil
}
