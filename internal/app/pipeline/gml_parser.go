package pipeline

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

// errSkipRecord marks a feature that is missing required fields. Boundary
// files are known to contain occasional malformed records; one bad record
// among thousands must not abort the file, so these are skipped and
// counted while document-level XML errors stay fatal.
var errSkipRecord = errors.New("feature record incomplete")

// GMLParser reads municipality boundary files, GML feature collections
// with one CESTICE feature per parcel. Parsing streams the document and
// never loads it whole; FindByNumber stops at the first match.
type GMLParser struct{}

func NewGMLParser() *GMLParser {
	return &GMLParser{}
}

// FindByNumber scans the file for the first feature whose parcel number
// equals parcelNumber exactly. Partial matching is a registry search
// concern, not a geometry one. A clean scan without a match reports
// geometry_not_found.
func (p *GMLParser) FindByNumber(ctx context.Context, filePath, parcelNumber string) (*domain.ParcelGeometry, error) {
	var found *domain.ParcelGeometry
	err := p.scan(ctx, filePath, func(g *domain.ParcelGeometry) bool {
		if g.ParcelNumber == parcelNumber {
			found = g
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, domain.NewError(domain.ErrGeometryNotFound, map[string]string{
			"parcel_number": parcelNumber,
			"file":          filePath,
		})
	}
	return found, nil
}

// ListAll materializes every parsable feature in the file. Boundary files
// run to thousands of parcels with long rings, so this is an explicit
// opt-in rather than the default path.
func (p *GMLParser) ListAll(ctx context.Context, filePath string) ([]domain.ParcelGeometry, error) {
	var all []domain.ParcelGeometry
	err := p.scan(ctx, filePath, func(g *domain.ParcelGeometry) bool {
		all = append(all, *g)
		return true
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Count counts feature records without materializing geometry.
func (p *GMLParser) Count(ctx context.Context, filePath string) (int, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open boundary file: %w", err)
	}
	defer file.Close()

	dec := xml.NewDecoder(bufio.NewReader(file))
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to parse boundary file %s: %w", filePath, err)
		}
		if start, ok := tok.(xml.StartElement); ok && start.Name.Local == "featureMember" {
			count++
			if err := dec.Skip(); err != nil {
				return count, fmt.Errorf("failed to parse boundary file %s: %w", filePath, err)
			}
		}
	}
	return count, nil
}

// scan walks the document and hands each parsed feature to visit; visit
// returns false to stop early. Incomplete records are skipped and counted,
// any XML-level error aborts the scan.
func (p *GMLParser) scan(ctx context.Context, filePath string, visit func(*domain.ParcelGeometry) bool) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open boundary file: %w", err)
	}
	defer file.Close()

	dec := xml.NewDecoder(bufio.NewReader(file))
	var skipped int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to parse boundary file %s: %w", filePath, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "featureMember" {
			continue
		}

		geom, err := p.parseFeature(dec)
		if errors.Is(err, errSkipRecord) {
			skipped++
			if skipped%100 == 0 {
				log.Printf("Warning: skipped %d incomplete boundary records in %s", skipped, filePath)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to parse boundary file %s: %w", filePath, err)
		}
		if !visit(geom) {
			return nil
		}
	}
	return nil
}

// parseFeature consumes one featureMember subtree. Element matching is by
// local name, which tolerates files that rename or drop the namespace
// prefixes.
func (p *GMLParser) parseFeature(dec *xml.Decoder) (*domain.ParcelGeometry, error) {
	var (
		id, number, areaText, muni string
		srs, coordsText            string
		sawPolygon                 bool
		buf                        strings.Builder
	)

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			// Broken XML inside a record breaks the whole stream
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			buf.Reset()
			if t.Name.Local == "Polygon" && !sawPolygon {
				sawPolygon = true
				for _, attr := range t.Attr {
					if attr.Name.Local == "srsName" {
						srs = attr.Value
					}
				}
			}
		case xml.CharData:
			buf.Write(t)
		case xml.EndElement:
			depth--
			text := strings.TrimSpace(buf.String())
			buf.Reset()
			switch t.Name.Local {
			case "CESTICA_ID":
				id = text
			case "BROJ_CESTICE":
				number = text
			case "POVRSINA_GRAFICKA":
				areaText = text
			case "MATICNI_BROJ_KO":
				muni = text
			case "coordinates":
				// First polygon ring wins; some features carry more
				if coordsText == "" {
					coordsText = text
				}
			}
		}
	}

	if id == "" || number == "" || areaText == "" || muni == "" {
		return nil, errSkipRecord
	}
	area, err := strconv.ParseFloat(areaText, 64)
	if err != nil {
		return nil, errSkipRecord
	}

	return &domain.ParcelGeometry{
		CesticaID:          id,
		ParcelNumber:       number,
		GraphicArea:        area,
		MunicipalityRegNum: muni,
		Coordinates:        parseCoordinates(coordsText),
		SRSName:            normalizeSRS(srs),
	}, nil
}

// parseCoordinates splits the whitespace-separated "x,y" token list. A
// token that does not parse as two floats is dropped on its own, so
// partial corruption degrades boundary fidelity instead of discarding the
// parcel.
func parseCoordinates(text string) []domain.Coordinate {
	fields := strings.Fields(text)
	coords := make([]domain.Coordinate, 0, len(fields))
	for _, token := range fields {
		xs, ys, ok := strings.Cut(token, ",")
		if !ok {
			continue
		}
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			continue
		}
		coords = append(coords, domain.Coordinate{X: x, Y: y})
	}
	return coords
}

// normalizeSRS shortens URI-style identifiers like
// ".../crs/epsg.xml#3765" to "EPSG:3765" and passes anything else through.
func normalizeSRS(raw string) string {
	if raw == "" {
		return domain.DefaultSRS
	}
	if idx := strings.Index(raw, "epsg.xml#"); idx >= 0 {
		return "EPSG:" + raw[idx+len("epsg.xml#"):]
	}
	return raw
}
