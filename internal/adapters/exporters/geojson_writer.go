package exporters

import (
	"encoding/json"
	"io"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

// GeoJSONWriter streams a FeatureCollection, one Feature per parcel. The
// collection is written incrementally so exports of whole municipalities
// never buffer every boundary in memory. Coordinates stay in the source
// projection; srs_name in the properties says which one.
type GeoJSONWriter struct {
	w     io.Writer
	count int
}

func NewGeoJSONWriter(w io.Writer) *GeoJSONWriter {
	return &GeoJSONWriter{w: w}
}

type geoJSONGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

type geoJSONProperties struct {
	CesticaID          string  `json:"cestica_id"`
	ParcelNumber       string  `json:"parcel_number"`
	GraphicArea        float64 `json:"graphic_area"`
	MunicipalityRegNum string  `json:"municipality_reg_num"`
	SRSName            string  `json:"srs_name"`
}

type geoJSONFeature struct {
	Type       string            `json:"type"`
	Geometry   geoJSONGeometry   `json:"geometry"`
	Properties geoJSONProperties `json:"properties"`
}

func (w *GeoJSONWriter) WriteHeader() error {
	_, err := io.WriteString(w.w, `{"type":"FeatureCollection","features":[`)
	return err
}

func (w *GeoJSONWriter) WriteGeometry(g *domain.ParcelGeometry) error {
	feature := geoJSONFeature{
		Type: "Feature",
		Geometry: geoJSONGeometry{
			Type:        "Polygon",
			Coordinates: g.GeoJSONCoordinates(),
		},
		Properties: geoJSONProperties{
			CesticaID:          g.CesticaID,
			ParcelNumber:       g.ParcelNumber,
			GraphicArea:        g.GraphicArea,
			MunicipalityRegNum: g.MunicipalityRegNum,
			SRSName:            g.SRSName,
		},
	}
	data, err := json.Marshal(feature)
	if err != nil {
		return err
	}
	if w.count > 0 {
		if _, err := io.WriteString(w.w, ","); err != nil {
			return err
		}
	}
	w.count++
	_, err = w.w.Write(data)
	return err
}

func (w *GeoJSONWriter) Close() error {
	_, err := io.WriteString(w.w, "]}\n")
	return err
}
