package ports

import (
	"github.com/katastar-hr/katastar/internal/core/domain"
)

type ExportFormat string

const (
	FormatGeoJSON ExportFormat = "geojson"
	FormatWKT     ExportFormat = "wkt"
	FormatCSV     ExportFormat = "csv"
)

// GeometryWriter streams parcel geometries into one output format.
type GeometryWriter interface {
	WriteHeader() error
	WriteGeometry(g *domain.ParcelGeometry) error
	Close() error
}
