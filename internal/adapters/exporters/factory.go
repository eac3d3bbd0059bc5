package exporters

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/katastar-hr/katastar/internal/core/ports"
)

// ParseFormat maps user-facing format names onto the known writers.
func ParseFormat(s string) (ports.ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geojson", "json":
		return ports.FormatGeoJSON, nil
	case "wkt":
		return ports.FormatWKT, nil
	case "csv":
		return ports.FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use geojson, wkt or csv)", s)
	}
}

// NewWriter creates a geometry writer for the format on an open stream.
func NewWriter(w io.Writer, format ports.ExportFormat) (ports.GeometryWriter, error) {
	switch format {
	case ports.FormatGeoJSON:
		return NewGeoJSONWriter(w), nil
	case ports.FormatWKT:
		return NewWKTWriter(w), nil
	case ports.FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// NewFileWriter creates the output file and a writer bound to it; Close
// flushes the writer and closes the file.
func NewFileWriter(filePath string, format ports.ExportFormat) (ports.GeometryWriter, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	w, err := NewWriter(file, format)
	if err != nil {
		file.Close()
		return nil, err
	}
	return &fileWriter{GeometryWriter: w, file: file}, nil
}

type fileWriter struct {
	ports.GeometryWriter
	file *os.File
}

func (f *fileWriter) Close() error {
	if err := f.GeometryWriter.Close(); err != nil {
		f.file.Close()
		return err
	}
	return f.file.Close()
}
