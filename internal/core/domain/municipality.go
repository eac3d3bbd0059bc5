package domain

import "strings"

// MunicipalitySearchResult is one row of the municipality search endpoint.
// The upstream wire format uses generic key/value column names; accessors
// below give them meaning.
type MunicipalitySearchResult struct {
	MunicipalityID string `json:"key1" validate:"nonzero"`
	CodeAndName    string `json:"value1" validate:"nonzero"`
	RegNum         string `json:"key2"`
	InstitutionID  string `json:"value2"`
	DepartmentID   string `json:"value3,omitempty"`
	DisplayValue   string `json:"displayValue1"`
}

// Name extracts the municipality name from the combined field,
// e.g. "334979 SAVAR" yields "SAVAR".
func (m *MunicipalitySearchResult) Name() string {
	parts := strings.SplitN(m.CodeAndName, " ", 2)
	if len(parts) > 1 {
		return parts[1]
	}
	return m.CodeAndName
}

// Code returns the registration number used for parcel searches. Some
// responses leave key2 empty; the leading token of value1 carries the same
// code and serves as fallback.
func (m *MunicipalitySearchResult) Code() string {
	if m.RegNum != "" {
		return m.RegNum
	}
	parts := strings.SplitN(m.CodeAndName, " ", 2)
	return parts[0]
}

// CadastralOffice is one entry of the office list endpoint.
type CadastralOffice struct {
	ID   string `json:"id" validate:"nonzero"`
	Name string `json:"name" validate:"nonzero"`
}

// ParcelSearchResult is a minimal parcel hit from the number search
// endpoint. The remaining wire columns are always null there.
type ParcelSearchResult struct {
	ParcelID     string `json:"key1" validate:"nonzero"`
	ParcelNumber string `json:"value1" validate:"nonzero"`
}
