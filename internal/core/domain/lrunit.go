package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CondominiumTypeMarker appears inside the unit type name of condominium
// units, e.g. "ETAŽNO VLASNIŠTVO S ODREĐENIM OMJERIMA". The boolean
// "condominiums" field on the wire is false even for real condominiums,
// so the type name is the only trustworthy signal.
const CondominiumTypeMarker = "ETAŽNO VLASNIŠTVO"

// statusActive is the upstream activity rule shared by unit records:
// the status name wins when present, the raw code is the fallback.
func statusActive(status, statusName string) bool {
	if statusName != "" {
		switch strings.ToLower(statusName) {
		case "aktivan", "active":
			return true
		}
		return false
	}
	switch strings.ToLower(status) {
	case "a", "1", "active", "aktivan":
		return true
	}
	return false
}

// LREntry is one registry journal entry. Descriptions may embed <br>
// markup that display layers strip.
type LREntry struct {
	Description string `json:"description"`
	LREntryID   int    `json:"lrEntryId,omitempty"`
	OrderNumber string `json:"orderNumber"`
}

// OwnerType is a coarse classification of a registered party.
type OwnerType string

const (
	OwnerIndividual   OwnerType = "individual"
	OwnerCompany      OwnerType = "company"
	OwnerState        OwnerType = "state"
	OwnerMunicipality OwnerType = "municipality"
	OwnerUnknown      OwnerType = "unknown"
)

// Party is a registered owner or beneficiary in Sheet B.
type Party struct {
	LROwnerID int      `json:"lrOwnerId,omitempty"`
	Name      string   `json:"name" validate:"nonzero"`
	Address   string   `json:"address,omitempty"`
	TaxNumber string   `json:"taxNumber,omitempty"`
	LREntry   *LREntry `json:"lrEntry,omitempty"`
}

// Type classifies the party from its registered name. The registry carries
// no explicit owner kind, so this is a name heuristic and defaults to
// unknown when nothing matches.
func (p *Party) Type() OwnerType {
	name := strings.ToUpper(p.Name)
	if strings.Contains(name, "REPUBLIKA HRVATSKA") {
		return OwnerState
	}
	for _, prefix := range []string{"GRAD ", "OPĆINA ", "ŽUPANIJA "} {
		if strings.HasPrefix(name, prefix) {
			return OwnerMunicipality
		}
	}
	for _, marker := range []string{"J.D.O.O", "D.O.O", "D.D.", "OBRT "} {
		if strings.Contains(name, marker) {
			return OwnerCompany
		}
	}
	if len(p.TaxNumber) == 11 && strings.Contains(strings.TrimSpace(p.Name), " ") {
		return OwnerIndividual
	}
	return OwnerUnknown
}

// LandRegistryUnit is the short unit reference embedded in parcel records.
type LandRegistryUnit struct {
	LRUnitID               int    `json:"lrUnitId" validate:"nonzero"`
	LRUnitNumber           string `json:"lrUnitNumber" validate:"nonzero"`
	MainBookID             int    `json:"mainBookId" validate:"nonzero"`
	MainBookName           string `json:"mainBookName,omitempty"`
	CadastreMunicipalityID int    `json:"cadastreMunicipalityId,omitempty"`
	InstitutionID          int    `json:"institutionId,omitempty"`
	InstitutionName        string `json:"institutionName,omitempty"`
	Status                 string `json:"status"`
	StatusName             string `json:"statusName,omitempty"`
	Verificated            bool   `json:"verificated"`
	Condominiums           bool   `json:"condominiums"`
	LRUnitTypeID           int    `json:"lrUnitTypeId,omitempty"`
	LRUnitTypeName         string `json:"lrUnitTypeName,omitempty"`
}

func (u *LandRegistryUnit) Active() bool {
	return statusActive(u.Status, u.StatusName)
}

// LRShare is one ownership interest in Sheet B. A share either carries
// direct owners or is subdivided into sub-shares, each a full share with
// its own status. Condominium units list apartment descriptions here.
type LRShare struct {
	LRUnitShareID           int       `json:"lrUnitShareId" validate:"nonzero"`
	Description             string    `json:"description" validate:"nonzero"`
	OrderNumber             string    `json:"orderNumber" validate:"nonzero"`
	Status                  int       `json:"status"`
	Owners                  []Party   `json:"lrOwners"`
	SubShares               []LRShare `json:"subSharesAndEntries"`
	CondominiumNumber       string    `json:"condominiumNumber,omitempty"`
	CondominiumDescriptions []string  `json:"condominiums,omitempty"`
}

// Active reports whether the share is current. Zero is the active code.
func (s *LRShare) Active() bool {
	return s.Status == 0
}

func (s *LRShare) IsCondominiumShare() bool {
	return s.CondominiumNumber != ""
}

func (s *LRShare) HasSubOwners() bool {
	return len(s.SubShares) > 0
}

// Fraction extracts the ownership fraction from the share description,
// e.g. "2. Suvlasnički dio: 1/8" or "22. Suvlasnički dio: 61/4651 ETAŽNO
// VLASNIŠTVO (E-22)". ok is false when the description carries none.
func (s *LRShare) Fraction() (Fraction, bool) {
	idx := strings.LastIndex(s.Description, ":")
	if idx < 0 {
		return Fraction{}, false
	}
	fields := strings.Fields(s.Description[idx+1:])
	if len(fields) == 0 {
		return Fraction{}, false
	}
	return ParseFraction(fields[0])
}

// AllOwners flattens the owners reachable from this share. A share's
// status gates only its own direct owners; a share without direct owners
// defers entirely to its sub-shares, each judged by its own status. The
// upstream data never populates both direct owners and sub-shares on the
// same share.
func (s *LRShare) AllOwners() []Party {
	if len(s.Owners) > 0 {
		if !s.Active() {
			return nil
		}
		return append([]Party(nil), s.Owners...)
	}
	var owners []Party
	for i := range s.SubShares {
		owners = append(owners, s.SubShares[i].AllOwners()...)
	}
	return owners
}

// OwnershipSheetB aggregates the ownership shares of a unit (list B).
type OwnershipSheetB struct {
	LRUnitShares []LRShare `json:"lrUnitShares"`
	LREntries    []LREntry `json:"lrEntries"`
}

// CurrentOwners enumerates every party holding an active interest,
// flattening subdivided shares recursively.
func (b *OwnershipSheetB) CurrentOwners() []Party {
	var owners []Party
	for i := range b.LRUnitShares {
		owners = append(owners, b.LRUnitShares[i].AllOwners()...)
	}
	return owners
}

// TotalOwnershipAccounted sums the declared fractions of active top-level
// shares exactly. ok is false when no active share declares a parseable
// fraction. The sum may fall short of 1/1 for partially known ownership.
func (b *OwnershipSheetB) TotalOwnershipAccounted() (Fraction, bool) {
	var total Fraction
	found := false
	for i := range b.LRUnitShares {
		share := &b.LRUnitShares[i]
		if !share.Active() {
			continue
		}
		if f, ok := share.Fraction(); ok {
			total = total.Add(f)
			found = true
		}
	}
	return total, found
}

// EncumbranceGroup bundles the entries of one registered burden (list C).
type EncumbranceGroup struct {
	Description      string    `json:"description"`
	ShareOrderNumber string    `json:"shareOrderNumber"`
	LREntries        []LREntry `json:"lrEntries"`
}

type EncumbranceSheetC struct {
	LREntryGroups []EncumbranceGroup `json:"lrEntryGroups"`
}

func (c *EncumbranceSheetC) HasEncumbrances() bool {
	return len(c.LREntryGroups) > 0
}

// LRUnitParcel is one parcel row of Sheet A.
type LRUnitParcel struct {
	ParcelID              int    `json:"parcelId" validate:"nonzero"`
	ParcelNumber          string `json:"parcelNumber" validate:"nonzero"`
	CadMunicipalityID     int    `json:"cadMunicipalityId,omitempty"`
	CadMunicipalityRegNum string `json:"cadMunicipalityRegNum,omitempty"`
	CadMunicipalityName   string `json:"cadMunicipalityName,omitempty"`
	InstitutionID         int    `json:"institutionId,omitempty"`
	Address               string `json:"address,omitempty"`
	Area                  string `json:"area"`
	BuildingRemark        int    `json:"buildingRemark"`
	DetailSheetNumber     string `json:"detailSheetNumber,omitempty"`
	HasBuildingRight      bool   `json:"hasBuildingRight"`
	Status                int    `json:"status"`
	Graphic               bool   `json:"graphic"`
	AlphaNumeric          bool   `json:"alphaNumeric"`
	IsHarmonized          bool   `json:"isHarmonized"`
}

// AreaM2 converts the wire area string to square meters, 0 when unreadable.
func (p *LRUnitParcel) AreaM2() int {
	n, err := strconv.Atoi(p.Area)
	if err != nil {
		return 0
	}
	return n
}

// SheetAParcelList lists the parcels registered under a unit (list A1).
type SheetAParcelList struct {
	CadParcels []LRUnitParcel `json:"cadParcels"`
}

// TotalArea sums parcel areas in square meters; 0 for an empty list.
func (a *SheetAParcelList) TotalArea() int {
	total := 0
	for i := range a.CadParcels {
		total += a.CadParcels[i].AreaM2()
	}
	return total
}

func (a *SheetAParcelList) ParcelNumbers() []string {
	numbers := make([]string, 0, len(a.CadParcels))
	for i := range a.CadParcels {
		numbers = append(numbers, a.CadParcels[i].ParcelNumber)
	}
	return numbers
}

// SheetAAdditionalInfo carries list A2 entries, usually empty in practice.
type SheetAAdditionalInfo struct {
	LREntries []LREntry `json:"lrEntries"`
}

// LandRegistryUnitDetailed is the full unit record with all three sheets,
// as returned by the unit detail endpoint.
type LandRegistryUnitDetailed struct {
	LRUnitID               int               `json:"lrUnitId" validate:"nonzero"`
	LRUnitNumber           string            `json:"lrUnitNumber" validate:"nonzero"`
	MainBookID             int               `json:"mainBookId" validate:"nonzero"`
	MainBookName           string            `json:"mainBookName"`
	CadastreMunicipalityID int               `json:"cadastreMunicipalityId,omitempty"`
	InstitutionID          int               `json:"institutionId,omitempty"`
	InstitutionName        string            `json:"institutionName,omitempty"`
	Status                 string            `json:"status"`
	StatusName             string            `json:"statusName,omitempty"`
	Verificated            bool              `json:"verificated"`
	Condominiums           bool              `json:"condominiums"`
	LRUnitTypeID           int               `json:"lrUnitTypeId,omitempty"`
	LRUnitTypeName         string            `json:"lrUnitTypeName,omitempty"`
	LastDiaryNumber        string            `json:"lastDiaryNumber,omitempty"`
	ActivePlumbs           []json.RawMessage `json:"activePlumbs,omitempty"`

	SheetB    OwnershipSheetB      `json:"ownershipSheetB"`
	SheetA    SheetAParcelList     `json:"possessionSheetA1"`
	SheetAExt SheetAAdditionalInfo `json:"possessionSheetA2"`
	SheetC    EncumbranceSheetC    `json:"encumbranceSheetC"`
}

func (u *LandRegistryUnitDetailed) Active() bool {
	return statusActive(u.Status, u.StatusName)
}

// AllOwners enumerates current owners across Sheet B, nested shares
// included.
func (u *LandRegistryUnitDetailed) AllOwners() []Party {
	return u.SheetB.CurrentOwners()
}

func (u *LandRegistryUnitDetailed) AllParcels() []LRUnitParcel {
	return u.SheetA.CadParcels
}

func (u *LandRegistryUnitDetailed) HasEncumbrances() bool {
	return u.SheetC.HasEncumbrances()
}

// IsCondominium detects condominium units by the type name marker.
func (u *LandRegistryUnitDetailed) IsCondominium() bool {
	return strings.Contains(u.LRUnitTypeName, CondominiumTypeMarker)
}

// CondominiumUnitsCount counts shares labeled with a condominium number,
// i.e. the individually owned apartments of the unit.
func (u *LandRegistryUnitDetailed) CondominiumUnitsCount() int {
	count := 0
	for i := range u.SheetB.LRUnitShares {
		if u.SheetB.LRUnitShares[i].IsCondominiumShare() {
			count++
		}
	}
	return count
}

// UnitSummary is the fixed-shape aggregate every front-end renders, so
// none of them re-implements the arithmetic.
type UnitSummary struct {
	UnitNumber       string `json:"unit_number"`
	MainBook         string `json:"main_book"`
	TotalParcels     int    `json:"total_parcels"`
	TotalAreaM2      int    `json:"total_area_m2"`
	NumOwners        int    `json:"num_owners"`
	HasEncumbrances  bool   `json:"has_encumbrances"`
	IsCondominium    bool   `json:"is_condominium"`
	CondominiumUnits int    `json:"condominium_units,omitempty"`
}

func (u *LandRegistryUnitDetailed) Summary() UnitSummary {
	s := UnitSummary{
		UnitNumber:      u.LRUnitNumber,
		MainBook:        u.MainBookName,
		TotalParcels:    len(u.SheetA.CadParcels),
		TotalAreaM2:     u.SheetA.TotalArea(),
		NumOwners:       len(u.AllOwners()),
		HasEncumbrances: u.HasEncumbrances(),
		IsCondominium:   u.IsCondominium(),
	}
	if s.IsCondominium {
		s.CondominiumUnits = u.CondominiumUnitsCount()
	}
	return s
}
