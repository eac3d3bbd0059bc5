package domain

import "strconv"

// Possessor is one owner recorded on a cadastral possession sheet. The
// ownership fraction and address are frequently missing upstream; absence
// means unspecified, not zero.
type Possessor struct {
	Name                      string `json:"name" validate:"nonzero"`
	Ownership                 string `json:"ownership,omitempty"`
	Address                   string `json:"address,omitempty"`
	CondominiumShareNumber    string `json:"condominiumShareNumber,omitempty"`
	CondominiumShareOwnership string `json:"condominiumShareOwnership,omitempty"`
}

// OwnershipFraction parses the raw fraction string. ok is false when the
// share is unspecified or malformed.
func (p *Possessor) OwnershipFraction() (Fraction, bool) {
	if p.Ownership == "" {
		return Fraction{}, false
	}
	return ParseFraction(p.Ownership)
}

// OwnershipDecimal converts the fraction for display, e.g. "3/8" to 0.375.
func (p *Possessor) OwnershipDecimal() (float64, bool) {
	f, ok := p.OwnershipFraction()
	if !ok {
		return 0, false
	}
	return f.Decimal(), true
}

// PossessionSheet is a cadastral ownership record attached to a parcel.
// Not the same thing as land registry Sheet A, which lists parcels.
type PossessionSheet struct {
	PossessionSheetID     int         `json:"possessionSheetId" validate:"nonzero"`
	PossessionSheetNumber string      `json:"possessionSheetNumber" validate:"nonzero"`
	CadMunicipalityID     int         `json:"cadMunicipalityId" validate:"nonzero"`
	CadMunicipalityRegNum string      `json:"cadMunicipalityRegNum,omitempty"`
	CadMunicipalityName   string      `json:"cadMunicipalityName,omitempty"`
	PossessionSheetTypeID int         `json:"possessionSheetTypeId,omitempty"`
	Possessors            []Possessor `json:"possessors"`
}

// TotalOwnership sums the specified non-zero fractions of this sheet as a
// decimal. ok is false when no possessor carries a usable fraction. The sum
// need not equal 1; partial and unknown ownership are both valid.
func (s *PossessionSheet) TotalOwnership() (float64, bool) {
	total := 0.0
	found := false
	for i := range s.Possessors {
		if d, ok := s.Possessors[i].OwnershipDecimal(); ok && d != 0 {
			total += d
			found = true
		}
	}
	return total, found
}

// ParcelPart classifies part of a parcel by land use. Part areas need not
// sum to the parcel total.
type ParcelPart struct {
	ParcelPartID          int    `json:"parcelPartId" validate:"nonzero"`
	Name                  string `json:"name" validate:"nonzero"`
	Area                  string `json:"area" validate:"m2area"`
	PossessionSheetID     int    `json:"possessionSheetId" validate:"nonzero"`
	PossessionSheetNumber string `json:"possessionSheetNumber" validate:"nonzero"`
	LastChangeLogNumber   string `json:"lastChangeLogNumber,omitempty"`
	Building              bool   `json:"building"`
}

// AreaM2 converts the wire area string to square meters, 0 when unreadable.
func (p *ParcelPart) AreaM2() int {
	n, err := strconv.Atoi(p.Area)
	if err != nil {
		return 0
	}
	return n
}

// ParcelLink points at a related or historical parcel record.
type ParcelLink struct {
	ParcelID     int               `json:"parcelId" validate:"nonzero"`
	ParcelNumber string            `json:"parcelNumber" validate:"nonzero"`
	Address      string            `json:"address"`
	Area         string            `json:"area"`
	LRUnit       *LandRegistryUnit `json:"lrUnit,omitempty"`
	ParcelParts  []ParcelPart      `json:"parcelParts"`
}

// ParcelInfo is the full record of the parcel detail endpoint.
type ParcelInfo struct {
	ParcelID              int                `json:"parcelId" validate:"nonzero"`
	ParcelNumber          string             `json:"parcelNumber" validate:"nonzero"`
	CadMunicipalityID     int                `json:"cadMunicipalityId" validate:"nonzero"`
	CadMunicipalityRegNum string             `json:"cadMunicipalityRegNum" validate:"nonzero"`
	CadMunicipalityName   string             `json:"cadMunicipalityName"`
	InstitutionID         int                `json:"institutionId"`
	Address               string             `json:"address,omitempty"`
	Area                  string             `json:"area" validate:"m2area"`
	BuildingRemark        int                `json:"buildingRemark"`
	DetailSheetNumber     string             `json:"detailSheetNumber,omitempty"`
	HasBuildingRight      bool               `json:"hasBuildingRight"`
	ParcelParts           []ParcelPart       `json:"parcelParts"`
	PossessionSheets      []PossessionSheet  `json:"possessionSheets"`
	LRUnit                *LandRegistryUnit  `json:"lrUnit,omitempty"`
	ParcelLinks           []ParcelLink       `json:"parcelLinks,omitempty"`
	LRUnitsFromLinks      []LandRegistryUnit `json:"lrUnitsFromParcelLinks,omitempty"`
	IsAdditionalDataSet   bool               `json:"isAdditionalDataSet"`
	LegalRegime           bool               `json:"legalRegime"`
	Graphic               bool               `json:"graphic"`
	AlphaNumeric          bool               `json:"alphaNumeric"`
	Status                int                `json:"status"`
	ResourceCode          int                `json:"resourceCode"`
	IsHarmonized          bool               `json:"isHarmonized"`
}

// AreaM2 converts the wire area string to square meters, 0 when unreadable.
func (p *ParcelInfo) AreaM2() int {
	n, err := strconv.Atoi(p.Area)
	if err != nil {
		return 0
	}
	return n
}

// TotalOwners counts possessors across all possession sheets.
func (p *ParcelInfo) TotalOwners() int {
	total := 0
	for i := range p.PossessionSheets {
		total += len(p.PossessionSheets[i].Possessors)
	}
	return total
}

// LandUseSummary accumulates part areas by land use name. Parts sharing a
// name merge even across sheets: two "MASLINJAK" parts of 409 and 100 m2
// yield 509. Keying by display name is upstream behavior kept as is.
func (p *ParcelInfo) LandUseSummary() map[string]int {
	summary := make(map[string]int, len(p.ParcelParts))
	for i := range p.ParcelParts {
		part := &p.ParcelParts[i]
		summary[part.Name] += part.AreaM2()
	}
	return summary
}
