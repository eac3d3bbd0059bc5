package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{
		OSSBaseURL:       srv.URL,
		OSSPublicBaseURL: "https://oss.example.hr",
		RequestTimeout:   2 * time.Second,
		RateLimitEvery:   0, // no pacing in tests
		MaxRetries:       2,
	})
	c.backoffUnit = time.Millisecond
	return c
}

func TestOffices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search-cad-parcels/offices" {
			t.Errorf("path = %q; want /search-cad-parcels/offices", r.URL.Path)
		}
		w.Write([]byte(`[{"id": "388", "name": "PUK Zadar"}, {"id": "114", "name": "PUK Split"}]`))
	})

	offices, err := c.Offices(context.Background())
	if err != nil {
		t.Fatalf("Offices returned error: %v", err)
	}
	if len(offices) != 2 || offices[0].Name != "PUK Zadar" {
		t.Errorf("offices = %+v; want PUK Zadar first of 2", offices)
	}
}

func TestOfficesEmptyIsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.Offices(context.Background())
	if kind := domain.KindOf(err); kind != domain.ErrInvalidResponse {
		t.Errorf("error kind = %q; want %q", kind, domain.ErrInvalidResponse)
	}
}

func TestSearchMunicipalitiesSendsFilters(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"search":       r.URL.Query().Get("search"),
			"officeId":     r.URL.Query().Get("officeId"),
			"departmentId": r.URL.Query().Get("departmentId"),
		}
		w.Write([]byte(`[{"key1": "2430", "value1": "334979 SAVAR", "key2": "334979", "value2": "388", "displayValue1": "SAVAR"}]`))
	})

	rows, err := c.SearchMunicipalities(context.Background(), "SAVAR", "388", "116")
	if err != nil {
		t.Fatalf("SearchMunicipalities returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].Name() != "SAVAR" {
		t.Errorf("rows = %+v; want one SAVAR", rows)
	}
	want := map[string]string{"search": "SAVAR", "officeId": "388", "departmentId": "116"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q; want %q", k, gotQuery[k], v)
		}
	}
}

func TestSearchMunicipalitiesNoHitsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	rows, err := c.SearchMunicipalities(context.Background(), "NIGDJE", "", "")
	if err != nil {
		t.Fatalf("SearchMunicipalities returned error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows = %+v; want none", rows)
	}
}

func TestSearchParcelNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("municipalityRegNum"); got != "334979" {
			t.Errorf("municipalityRegNum = %q; want 334979", got)
		}
		w.Write([]byte(`[{"key1": "19509749", "value1": "103/2"}, {"key1": "19509750", "value1": "103/20"}]`))
	})

	rows, err := c.SearchParcelNumbers(context.Background(), "103/2", "334979")
	if err != nil {
		t.Fatalf("SearchParcelNumbers returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows; want 2 (prefix matching)", len(rows))
	}
}

func TestParcelInfoNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "Parcel not found"}`, http.StatusNotFound)
	})

	_, err := c.ParcelInfo(context.Background(), "99999")
	if kind := domain.KindOf(err); kind != domain.ErrParcelNotFound {
		t.Fatalf("error kind = %q; want %q", kind, domain.ErrParcelNotFound)
	}
	var dErr *domain.Error
	if !errors.As(err, &dErr) || dErr.Details["parcel_id"] != "99999" {
		t.Errorf("details = %v; want parcel_id=99999", err)
	}
}

func TestLRUnitEmptyListMeansNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.LRUnit(context.Background(), "769", 21277, false)
	if kind := domain.KindOf(err); kind != domain.ErrLRUnitNotFound {
		t.Errorf("error kind = %q; want %q", kind, domain.ErrLRUnitNotFound)
	}
}

func TestLRUnitTakesFirstElement(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lrUnitNumber") != "1753" || q.Get("mainBookId") != "4268" || q.Get("historicalOverview") != "false" {
			t.Errorf("unexpected query: %v", q)
		}
		w.Write([]byte(`[{"lrUnitId": 441715, "lrUnitNumber": "1753", "mainBookId": 4268,
			"ownershipSheetB": {"lrUnitShares": []},
			"possessionSheetA1": {"cadParcels": []},
			"possessionSheetA2": {"lrEntries": []},
			"encumbranceSheetC": {"lrEntryGroups": []}}]`))
	})

	unit, err := c.LRUnit(context.Background(), "1753", 4268, false)
	if err != nil {
		t.Fatalf("LRUnit returned error: %v", err)
	}
	if unit.LRUnitNumber != "1753" {
		t.Errorf("LRUnitNumber = %q; want 1753", unit.LRUnitNumber)
	}
}

func TestRetryAfterRateLimiting(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[{"id": "388", "name": "PUK Zadar"}]`))
	})

	if _, err := c.Offices(context.Background()); err != nil {
		t.Fatalf("Offices returned error after retries: %v", err)
	}
	if calls != 3 {
		t.Errorf("server saw %d requests; want 3", calls)
	}
}

func TestRateLimitExhaustion(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Offices(context.Background())
	if kind := domain.KindOf(err); kind != domain.ErrRateLimit {
		t.Fatalf("error kind = %q; want %q", kind, domain.ErrRateLimit)
	}
	if calls != 3 { // initial attempt plus MaxRetries
		t.Errorf("server saw %d requests; want 3", calls)
	}
}

func TestServerErrorExhaustion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.Offices(context.Background())
	if kind := domain.KindOf(err); kind != domain.ErrServer {
		t.Fatalf("error kind = %q; want %q", kind, domain.ErrServer)
	}
	var dErr *domain.Error
	if errors.As(err, &dErr) && dErr.Details["status_code"] != "502" {
		t.Errorf("status_code detail = %q; want 502", dErr.Details["status_code"])
	}
}

func TestMalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})

	_, err := c.Offices(context.Background())
	if kind := domain.KindOf(err); kind != domain.ErrInvalidResponse {
		t.Errorf("error kind = %q; want %q", kind, domain.ErrInvalidResponse)
	}
}

func TestUnexpectedStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Offices(context.Background())
	if kind := domain.KindOf(err); kind != domain.ErrInvalidResponse {
		t.Errorf("error kind = %q; want %q", kind, domain.ErrInvalidResponse)
	}
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(&config.Config{
		OSSBaseURL:     url,
		RequestTimeout: time.Second,
		RateLimitEvery: 0,
		MaxRetries:     0,
	})
	c.backoffUnit = time.Millisecond

	_, err := c.Offices(context.Background())
	if kind := domain.KindOf(err); kind != domain.ErrConnection {
		t.Errorf("error kind = %q; want %q", kind, domain.ErrConnection)
	}
}

func TestMapURL(t *testing.T) {
	c := NewClient(&config.Config{OSSPublicBaseURL: "https://oss.uredjenazemlja.hr/"})
	want := "https://oss.uredjenazemlja.hr/map?cad_parcel_id=19509749"
	if got := c.MapURL(19509749); got != want {
		t.Errorf("MapURL = %q; want %q", got, want)
	}
}
