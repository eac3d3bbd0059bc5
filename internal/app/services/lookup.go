package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/katastar-hr/katastar/internal/app/pipeline"
	"github.com/katastar-hr/katastar/internal/core/domain"
	"github.com/katastar-hr/katastar/internal/core/ports"
)

// Lookup composes the multi-step registry workflows every front-end
// needs: resolve municipality, search parcel, fetch detail, fetch unit,
// fetch geometry. Front-ends handle presentation; nothing here prints.
type Lookup struct {
	api      ports.RegistryAPI
	boundary ports.BoundaryProvider
	parser   *pipeline.GMLParser
}

func NewLookup(api ports.RegistryAPI, boundary ports.BoundaryProvider) *Lookup {
	return &Lookup{
		api:      api,
		boundary: boundary,
		parser:   pipeline.NewGMLParser(),
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ResolveMunicipality turns a name or code into a registration number.
// Numeric input passes through untouched. A name must match exactly one
// municipality; several hits demand disambiguation by the caller. Batch
// flows use ResolveMunicipalityLenient instead.
func (l *Lookup) ResolveMunicipality(ctx context.Context, nameOrCode string) (string, error) {
	q := strings.TrimSpace(nameOrCode)
	if isNumeric(q) {
		return q, nil
	}

	rows, err := l.api.SearchMunicipalities(ctx, q, "", "")
	if err != nil {
		return "", err
	}
	switch len(rows) {
	case 0:
		return "", domain.NewError(domain.ErrMunicipalityNotFound, map[string]string{
			"search_term": q,
		})
	case 1:
		return rows[0].Code(), nil
	}

	candidates := make([]string, 0, len(rows))
	for i := range rows {
		candidates = append(candidates, rows[i].CodeAndName)
		if len(candidates) == 5 {
			break
		}
	}
	return "", domain.NewError(domain.ErrMunicipalityAmbiguous, map[string]string{
		"search_term": q,
		"match_count": strconv.Itoa(len(rows)),
		"candidates":  strings.Join(candidates, "; "),
	})
}

// MunicipalityMatch reports how a lenient resolution chose its hit. Row
// is nil when a numeric query passed through without a search.
type MunicipalityMatch struct {
	Code    string
	Row     *domain.MunicipalitySearchResult
	Matches int
}

// ResolveMunicipalityMatch resolves a name or code leniently: the exact
// name match among several hits wins, ignoring case and diacritics, and
// otherwise the first hit does. The chosen row and hit count come along
// for front-ends that display the match.
func (l *Lookup) ResolveMunicipalityMatch(ctx context.Context, nameOrCode string) (*MunicipalityMatch, error) {
	q := strings.TrimSpace(nameOrCode)
	if isNumeric(q) {
		return &MunicipalityMatch{Code: q}, nil
	}

	rows, err := l.api.SearchMunicipalities(ctx, q, "", "")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.NewError(domain.ErrMunicipalityNotFound, map[string]string{
			"search_term": q,
		})
	}
	chosen := &rows[0]
	want := foldName(q)
	for i := range rows {
		if foldName(rows[i].Name()) == want {
			chosen = &rows[i]
			break
		}
	}
	return &MunicipalityMatch{Code: chosen.Code(), Row: chosen, Matches: len(rows)}, nil
}

// ResolveMunicipalityLenient is ResolveMunicipalityMatch reduced to the
// registration number, for batch flows that only route by code.
func (l *Lookup) ResolveMunicipalityLenient(ctx context.Context, nameOrCode string) (string, error) {
	m, err := l.ResolveMunicipalityMatch(ctx, nameOrCode)
	if err != nil {
		return "", err
	}
	return m.Code, nil
}

// FindParcelByNumber searches a municipality for a parcel number and
// fetches its full record. The upstream search matches by prefix; with
// exact set, partial hits alone yield parcel_not_found.
func (l *Lookup) FindParcelByNumber(ctx context.Context, parcelNumber, municipality string, exact bool) (*domain.ParcelInfo, error) {
	code, err := l.ResolveMunicipality(ctx, municipality)
	if err != nil {
		return nil, err
	}

	rows, err := l.api.SearchParcelNumbers(ctx, parcelNumber, code)
	if err != nil {
		return nil, err
	}

	notFound := domain.NewError(domain.ErrParcelNotFound, map[string]string{
		"parcel_number": parcelNumber,
		"municipality":  code,
	})
	if len(rows) == 0 {
		return nil, notFound
	}

	chosen := &rows[0]
	if exact {
		chosen = nil
		for i := range rows {
			if rows[i].ParcelNumber == parcelNumber {
				chosen = &rows[i]
				break
			}
		}
		if chosen == nil {
			return nil, notFound
		}
	}
	return l.api.ParcelInfo(ctx, chosen.ParcelID)
}

// ParcelInfoByID fetches a parcel record when the internal ID is already
// known, as in batch files of IDs.
func (l *Lookup) ParcelInfoByID(ctx context.Context, parcelID string) (*domain.ParcelInfo, error) {
	return l.api.ParcelInfo(ctx, parcelID)
}

// LRUnitFromParcel walks parcel to unit: resolve municipality, find the
// exact parcel, follow its unit reference. A parcel without one fails as
// lr_unit_not_found with reason parcel_has_no_lr_unit, which is a
// different condition than a missing parcel.
func (l *Lookup) LRUnitFromParcel(ctx context.Context, parcelNumber, municipality string, historical bool) (*domain.LandRegistryUnitDetailed, error) {
	info, err := l.FindParcelByNumber(ctx, parcelNumber, municipality, true)
	if err != nil {
		return nil, err
	}
	if info.LRUnit == nil {
		return nil, domain.NewError(domain.ErrLRUnitNotFound, map[string]string{
			"parcel_number": parcelNumber,
			"municipality":  municipality,
			"reason":        domain.ReasonParcelHasNoLRUnit,
		})
	}
	return l.api.LRUnit(ctx, info.LRUnit.LRUnitNumber, info.LRUnit.MainBookID, historical)
}

// LRUnitByNumber fetches a unit when number and main book are known.
func (l *Lookup) LRUnitByNumber(ctx context.Context, unitNumber string, mainBookID int, historical bool) (*domain.LandRegistryUnitDetailed, error) {
	return l.api.LRUnit(ctx, unitNumber, mainBookID, historical)
}

// ParcelGeometry finds one parcel boundary in the municipality's cached
// GIS layer, downloading the archive first when allowed.
func (l *Lookup) ParcelGeometry(ctx context.Context, parcelNumber, municipality string, autoDownload bool) (*domain.ParcelGeometry, error) {
	code, err := l.ResolveMunicipality(ctx, municipality)
	if err != nil {
		return nil, err
	}
	path, err := l.boundary.EnsureAvailable(ctx, code, autoDownload)
	if err != nil {
		return nil, err
	}
	return l.parser.FindByNumber(ctx, path, parcelNumber)
}

// MunicipalityGeometries loads every boundary of a municipality, for
// whole-layer exports.
func (l *Lookup) MunicipalityGeometries(ctx context.Context, municipality string, autoDownload bool) ([]domain.ParcelGeometry, error) {
	code, err := l.ResolveMunicipality(ctx, municipality)
	if err != nil {
		return nil, err
	}
	path, err := l.boundary.EnsureAvailable(ctx, code, autoDownload)
	if err != nil {
		return nil, err
	}
	return l.parser.ListAll(ctx, path)
}

// CountBoundaries counts boundary records without materializing them.
func (l *Lookup) CountBoundaries(ctx context.Context, municipality string, autoDownload bool) (int, error) {
	code, err := l.ResolveMunicipality(ctx, municipality)
	if err != nil {
		return 0, err
	}
	path, err := l.boundary.EnsureAvailable(ctx, code, autoDownload)
	if err != nil {
		return 0, err
	}
	return l.parser.Count(ctx, path)
}

// Offices lists the cadastral offices.
func (l *Lookup) Offices(ctx context.Context) ([]domain.CadastralOffice, error) {
	return l.api.Offices(ctx)
}

// Municipalities searches municipalities with optional office and
// department filters, returning raw hits for listing front-ends.
func (l *Lookup) Municipalities(ctx context.Context, search, officeID, departmentID string) ([]domain.MunicipalitySearchResult, error) {
	return l.api.SearchMunicipalities(ctx, search, officeID, departmentID)
}

// SearchParcels lists parcel number hits in a municipality, prefix
// matched upstream.
func (l *Lookup) SearchParcels(ctx context.Context, parcelNumber, municipality string) ([]domain.ParcelSearchResult, error) {
	code, err := l.ResolveMunicipality(ctx, municipality)
	if err != nil {
		return nil, err
	}
	return l.api.SearchParcelNumbers(ctx, parcelNumber, code)
}

// MapURL builds the public map link for a parcel.
func (l *Lookup) MapURL(parcelID int) string {
	return l.api.MapURL(parcelID)
}
