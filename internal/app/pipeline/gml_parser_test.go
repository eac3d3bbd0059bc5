package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

const collectionHeader = `<?xml version="1.0" encoding="utf-8"?>
<ogr:FeatureCollection xmlns:ogr="http://ogr.maptools.org/" xmlns:gml="http://www.opengis.net/gml">`

func writeBoundaryFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "katastarske_cestice.gml")
	content := collectionHeader + body + "\n</ogr:FeatureCollection>\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// feature renders one featureMember. Empty area drops the area element
// entirely, empty srs drops the srsName attribute.
func feature(id, number, area, muni, srs, coords string) string {
	var b strings.Builder
	b.WriteString("\n<gml:featureMember><ogr:CESTICE>")
	fmt.Fprintf(&b, "<ogr:CESTICA_ID>%s</ogr:CESTICA_ID>", id)
	fmt.Fprintf(&b, "<ogr:BROJ_CESTICE>%s</ogr:BROJ_CESTICE>", number)
	if area != "" {
		fmt.Fprintf(&b, "<ogr:POVRSINA_GRAFICKA>%s</ogr:POVRSINA_GRAFICKA>", area)
	}
	fmt.Fprintf(&b, "<ogr:MATICNI_BROJ_KO>%s</ogr:MATICNI_BROJ_KO>", muni)
	b.WriteString("<ogr:GEOM><gml:Polygon")
	if srs != "" {
		fmt.Fprintf(&b, " srsName=%q", srs)
	}
	b.WriteString("><gml:outerBoundaryIs><gml:LinearRing>")
	fmt.Fprintf(&b, "<gml:coordinates>%s</gml:coordinates>", coords)
	b.WriteString("</gml:LinearRing></gml:outerBoundaryIs></gml:Polygon></ogr:GEOM>")
	b.WriteString("</ogr:CESTICE></gml:featureMember>")
	return b.String()
}

func TestFindByNumber(t *testing.T) {
	path := writeBoundaryFile(t,
		feature("12345", "103/2", "509.5", "334979",
			"http://www.opengis.net/gml/srs/epsg.xml#3765",
			"442000.1,4901000.2 442010.3,4901000.4 442010.5,4901010.6 442000.7,4901010.8")+
			feature("12346", "200/1", "", "334979", "", "0,0 1,0 1,1"))
	p := NewGMLParser()

	got, err := p.FindByNumber(context.Background(), path, "103/2")
	if err != nil {
		t.Fatalf("FindByNumber(103/2) returned error: %v", err)
	}
	if got.CesticaID != "12345" {
		t.Errorf("CesticaID = %q; want %q", got.CesticaID, "12345")
	}
	if got.GraphicArea != 509.5 {
		t.Errorf("GraphicArea = %v; want 509.5", got.GraphicArea)
	}
	if got.MunicipalityRegNum != "334979" {
		t.Errorf("MunicipalityRegNum = %q; want %q", got.MunicipalityRegNum, "334979")
	}
	if got.CoordinateCount() != 4 {
		t.Errorf("CoordinateCount() = %d; want 4", got.CoordinateCount())
	}
	if got.SRSName != "EPSG:3765" {
		t.Errorf("SRSName = %q; want %q", got.SRSName, "EPSG:3765")
	}
}

func TestFindByNumberNotFound(t *testing.T) {
	path := writeBoundaryFile(t,
		feature("12345", "103/2", "509.5", "334979", "", "0,0 1,0 1,1"))
	p := NewGMLParser()

	_, err := p.FindByNumber(context.Background(), path, "other")
	if err == nil {
		t.Fatal("FindByNumber(other) returned nil error; want geometry_not_found")
	}
	if kind := domain.KindOf(err); kind != domain.ErrGeometryNotFound {
		t.Errorf("error kind = %v; want %v", kind, domain.ErrGeometryNotFound)
	}
}

func TestFindByNumberFirstMatchWins(t *testing.T) {
	path := writeBoundaryFile(t,
		feature("111", "55/3", "100", "334979", "", "0,0 1,0 1,1")+
			feature("222", "55/3", "200", "334979", "", "5,5 6,5 6,6"))
	p := NewGMLParser()

	got, err := p.FindByNumber(context.Background(), path, "55/3")
	if err != nil {
		t.Fatalf("FindByNumber returned error: %v", err)
	}
	if got.CesticaID != "111" {
		t.Errorf("CesticaID = %q; want first record %q", got.CesticaID, "111")
	}
}

func TestListAllSkipsIncompleteRecords(t *testing.T) {
	path := writeBoundaryFile(t,
		feature("12345", "103/2", "509.5", "334979", "", "0,0 1,0 1,1")+
			feature("12346", "200/1", "", "334979", "", "0,0 1,0 1,1"))
	p := NewGMLParser()

	all, err := p.ListAll(context.Background(), path)
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListAll returned %d geometries; want 1", len(all))
	}
	if all[0].ParcelNumber != "103/2" {
		t.Errorf("ParcelNumber = %q; want %q", all[0].ParcelNumber, "103/2")
	}
}

func TestCountIncludesUnparsableRecords(t *testing.T) {
	path := writeBoundaryFile(t,
		feature("12345", "103/2", "509.5", "334979", "", "0,0 1,0 1,1")+
			feature("12346", "200/1", "", "334979", "", "0,0 1,0 1,1"))
	p := NewGMLParser()

	count, err := p.Count(context.Background(), path)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d; want 2", count)
	}
}

func TestCorruptCoordinateTokensAreDropped(t *testing.T) {
	path := writeBoundaryFile(t,
		feature("12345", "103/2", "509.5", "334979", "",
			"442000.1,4901000.2 abc,def 12345 442010.5,4901010.6"))
	p := NewGMLParser()

	got, err := p.FindByNumber(context.Background(), path, "103/2")
	if err != nil {
		t.Fatalf("FindByNumber returned error: %v", err)
	}
	if got.CoordinateCount() != 2 {
		t.Errorf("CoordinateCount() = %d; want 2 after dropping corrupt tokens", got.CoordinateCount())
	}
	want := domain.Coordinate{X: 442000.1, Y: 4901000.2}
	if got.Coordinates[0] != want {
		t.Errorf("Coordinates[0] = %+v; want %+v", got.Coordinates[0], want)
	}
}

func TestSRSNormalization(t *testing.T) {
	tests := []struct {
		name string
		srs  string
		want string
	}{
		{"epsg.xml URI", "http://www.opengis.net/gml/srs/epsg.xml#3765", "EPSG:3765"},
		{"missing attribute", "", "EPSG:3765"},
		{"urn passthrough", "urn:ogc:def:crs:EPSG::3765", "urn:ogc:def:crs:EPSG::3765"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBoundaryFile(t,
				feature("1", "10/1", "5", "334979", tt.srs, "0,0 1,0 1,1"))
			got, err := NewGMLParser().FindByNumber(context.Background(), path, "10/1")
			if err != nil {
				t.Fatalf("FindByNumber returned error: %v", err)
			}
			if got.SRSName != tt.want {
				t.Errorf("SRSName = %q; want %q", got.SRSName, tt.want)
			}
		})
	}
}

func TestMissingGeometryBlockYieldsEmptyCoordinates(t *testing.T) {
	body := `
<gml:featureMember><ogr:CESTICE>
<ogr:CESTICA_ID>9</ogr:CESTICA_ID>
<ogr:BROJ_CESTICE>7/1</ogr:BROJ_CESTICE>
<ogr:POVRSINA_GRAFICKA>42</ogr:POVRSINA_GRAFICKA>
<ogr:MATICNI_BROJ_KO>334979</ogr:MATICNI_BROJ_KO>
</ogr:CESTICE></gml:featureMember>`
	path := writeBoundaryFile(t, body)

	got, err := NewGMLParser().FindByNumber(context.Background(), path, "7/1")
	if err != nil {
		t.Fatalf("FindByNumber returned error: %v", err)
	}
	if got.CoordinateCount() != 0 {
		t.Errorf("CoordinateCount() = %d; want 0", got.CoordinateCount())
	}
	if got.SRSName != domain.DefaultSRS {
		t.Errorf("SRSName = %q; want default %q", got.SRSName, domain.DefaultSRS)
	}
}

func TestMalformedDocumentIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.gml")
	content := collectionHeader + feature("1", "10/1", "5", "334979", "", "0,0 1,0 1,1") + "\n<unclosed"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if _, err := NewGMLParser().ListAll(context.Background(), path); err == nil {
		t.Error("ListAll on truncated document returned nil error; want failure")
	}
	if _, err := NewGMLParser().Count(context.Background(), path); err == nil {
		t.Error("Count on truncated document returned nil error; want failure")
	}
}

func TestFindByNumberMissingFile(t *testing.T) {
	_, err := NewGMLParser().FindByNumber(context.Background(), filepath.Join(t.TempDir(), "nope.gml"), "1/1")
	if err == nil {
		t.Error("FindByNumber on missing file returned nil error; want failure")
	}
}
