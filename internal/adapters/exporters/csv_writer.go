package exporters

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

// CSVWriter renders one row per parcel, boundary included as WKT so the
// file stays loadable by spreadsheet and GIS tools alike.
type CSVWriter struct {
	writer  *csv.Writer
	columns []string
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{
		writer: csv.NewWriter(w),
		columns: []string{
			"cestica_id",
			"parcel_number",
			"municipality_reg_num",
			"graphic_area",
			"srs_name",
			"points",
			"wkt",
		},
	}
}

func (w *CSVWriter) WriteHeader() error {
	return w.writer.Write(w.columns)
}

func (w *CSVWriter) WriteGeometry(g *domain.ParcelGeometry) error {
	row := []string{
		g.CesticaID,
		g.ParcelNumber,
		g.MunicipalityRegNum,
		strconv.FormatFloat(g.GraphicArea, 'f', -1, 64),
		g.SRSName,
		strconv.Itoa(g.CoordinateCount()),
		g.ToWKT(),
	}
	return w.writer.Write(row)
}

func (w *CSVWriter) Close() error {
	w.writer.Flush()
	return w.writer.Error()
}
