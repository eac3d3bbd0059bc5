package ports

import (
	"context"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

// RegistryAPI is the remote registry collaborator. Implementations return
// parsed, validated entities on success and domain errors on failure;
// retry and rate limiting stay behind this boundary.
type RegistryAPI interface {
	Offices(ctx context.Context) ([]domain.CadastralOffice, error)
	SearchMunicipalities(ctx context.Context, search, officeID, departmentID string) ([]domain.MunicipalitySearchResult, error)
	SearchParcelNumbers(ctx context.Context, search, municipalityRegNum string) ([]domain.ParcelSearchResult, error)
	ParcelInfo(ctx context.Context, parcelID string) (*domain.ParcelInfo, error)
	LRUnit(ctx context.Context, unitNumber string, mainBookID int, historical bool) (*domain.LandRegistryUnitDetailed, error)

	// MapURL builds the public map link for a parcel, no request involved.
	MapURL(parcelID int) string
}
