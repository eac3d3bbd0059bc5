package exporters

import (
	"fmt"
	"io"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

// WKTWriter emits one "parcel_number<TAB>POLYGON(...)" line per parcel.
// The number column keeps multi-parcel exports attributable.
type WKTWriter struct {
	w io.Writer
}

func NewWKTWriter(w io.Writer) *WKTWriter {
	return &WKTWriter{w: w}
}

func (w *WKTWriter) WriteHeader() error {
	return nil
}

func (w *WKTWriter) WriteGeometry(g *domain.ParcelGeometry) error {
	_, err := fmt.Fprintf(w.w, "%s\t%s\n", g.ParcelNumber, g.ToWKT())
	return err
}

func (w *WKTWriter) Close() error {
	return nil
}
