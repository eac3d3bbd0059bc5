package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newMock(t *testing.T) *mockServer {
	t.Helper()
	dir := t.TempDir()

	writeFixture(t, filepath.Join(dir, "offices.json"),
		`[{"id":"6","name":"Područni ured za katastar Zadar"}]`)
	writeFixture(t, filepath.Join(dir, "municipalities.json"), `[
		{"key1":"2219","value1":"334979 SAVAR","key2":"334979","value2":"6","displayValue1":"SAVAR (334979)"},
		{"key1":"2217","value1":"301234 NOVO SELO","key2":"301234","value2":"7","displayValue1":"NOVO SELO (301234)"}
	]`)
	writeFixture(t, filepath.Join(dir, "parcel_numbers.json"), `{
		"334979":[
			{"key1":"14680636","value1":"103/2"},
			{"key1":"14680637","value1":"103/3"},
			{"key1":"14680777","value1":"1030"}
		]
	}`)
	writeFixture(t, filepath.Join(dir, "parcels", "14680636.json"),
		`{"parcelId":14680636,"parcelNumber":"103/2","cadMunicipalityId":2219,"cadMunicipalityRegNum":"334979","area":"509","possessionSheets":[],"parcelParts":[]}`)
	writeFixture(t, filepath.Join(dir, "lr_units", "1753_21277.json"),
		`{"lrUnitId":91001,"lrUnitNumber":"1753","mainBookId":21277,"mainBookName":"SAVAR","status":"1","verificated":true,"condominiums":false,"ownershipSheetB":{"lrUnitShares":[],"lrEntries":[]},"possessionSheetA1":{"cadParcels":[]},"possessionSheetA2":{"lrEntries":[]},"encumbranceSheetC":{"lrEntryGroups":[]}}`)

	mock := &mockServer{dataDir: dir}
	if err := mock.loadFixtures(); err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	return mock
}

func get(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestOfficesServedVerbatim(t *testing.T) {
	router := newMock(t).routes()

	rec := get(t, router, "/search-cad-parcels/offices")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var offices []domain.CadastralOffice
	if err := json.Unmarshal(rec.Body.Bytes(), &offices); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(offices) != 1 || offices[0].ID != "6" {
		t.Errorf("offices = %+v", offices)
	}
}

func TestMunicipalityFilters(t *testing.T) {
	router := newMock(t).routes()

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"by name case-insensitive", "/search-cad-parcels/municipalities?search=savar", []string{"334979 SAVAR"}},
		{"by code substring", "/search-cad-parcels/municipalities?search=301234", []string{"301234 NOVO SELO"}},
		{"by office", "/search-cad-parcels/municipalities?officeId=7", []string{"301234 NOVO SELO"}},
		{"no match", "/search-cad-parcels/municipalities?search=ATLANTIS", nil},
		{"unfiltered", "/search-cad-parcels/municipalities", []string{"334979 SAVAR", "301234 NOVO SELO"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, router, tt.target)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var rows []domain.MunicipalitySearchResult
			if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
				t.Fatalf("body: %v", err)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(rows), len(tt.want))
			}
			for i := range rows {
				if rows[i].CodeAndName != tt.want[i] {
					t.Errorf("row %d = %q, want %q", i, rows[i].CodeAndName, tt.want[i])
				}
			}
		})
	}
}

func TestParcelNumberPrefixMatch(t *testing.T) {
	router := newMock(t).routes()

	rec := get(t, router, "/search-cad-parcels/parcel-numbers?search=103&municipalityRegNum=334979")
	var rows []domain.ParcelSearchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("prefix 103 matched %d rows, want 3 (103/2, 103/3, 1030)", len(rows))
	}

	rec = get(t, router, "/search-cad-parcels/parcel-numbers?search=103/2&municipalityRegNum=334979")
	rows = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(rows) != 1 || rows[0].ParcelID != "14680636" {
		t.Errorf("exact prefix rows = %+v", rows)
	}

	rec = get(t, router, "/search-cad-parcels/parcel-numbers?search=103&municipalityRegNum=999999")
	rows = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("body: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("unknown municipality returned %d rows", len(rows))
	}

	if rec := get(t, router, "/search-cad-parcels/parcel-numbers?search=103"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing municipalityRegNum: status = %d", rec.Code)
	}
}

func TestParcelInfoFixture(t *testing.T) {
	router := newMock(t).routes()

	rec := get(t, router, "/cad/parcel-info?parcelId=14680636")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"parcelNumber":"103/2"`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	if rec := get(t, router, "/cad/parcel-info?parcelId=99999999"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown parcel: status = %d", rec.Code)
	}
	if rec := get(t, router, "/cad/parcel-info"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing parcelId: status = %d", rec.Code)
	}
	if rec := get(t, router, "/cad/parcel-info?parcelId=..%2F..%2Fetc"); rec.Code != http.StatusBadRequest {
		t.Errorf("traversal attempt: status = %d", rec.Code)
	}
}

func TestLRUnitListOfOne(t *testing.T) {
	router := newMock(t).routes()

	rec := get(t, router, "/lr/lr-unit?lrUnitNumber=1753&mainBookId=21277&historicalOverview=false")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var units []domain.LandRegistryUnitDetailed
	if err := json.Unmarshal(rec.Body.Bytes(), &units); err != nil {
		t.Fatalf("body is not a list: %v", err)
	}
	if len(units) != 1 || units[0].LRUnitNumber != "1753" {
		t.Errorf("units = %+v", units)
	}

	rec = get(t, router, "/lr/lr-unit?lrUnitNumber=9999&mainBookId=21277")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("unknown unit: status %d body %q", rec.Code, rec.Body.String())
	}

	if rec := get(t, router, "/lr/lr-unit?lrUnitNumber=1753"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing mainBookId: status = %d", rec.Code)
	}
}

func TestArchiveServing(t *testing.T) {
	mock := newMock(t)
	writeFixture(t, filepath.Join(mock.dataDir, "archives", "ko-334979.zip"), "PK\x03\x04 not really a zip")
	router := mock.routes()

	rec := get(t, router, "/oss/public/atom/ko-334979.zip")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := get(t, router, "/oss/public/atom/ko-999999.zip"); rec.Code != http.StatusNotFound {
		t.Errorf("missing archive: status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newMock(t).routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/search-cad-parcels/offices", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
