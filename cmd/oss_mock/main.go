package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
)

// mockServer serves the registry endpoints from JSON fixtures, for
// development and tests without hitting the public service. Fixture
// layout under the data directory:
//
//	offices.json             office list, served verbatim
//	municipalities.json      municipality rows in wire format
//	parcel_numbers.json      {"<regNum>": [parcel rows]}
//	parcels/<parcelId>.json  one full parcel record each
//	lr_units/<unit>_<book>.json  one unit record, served as a one-element list
//	archives/ko-<code>.zip   boundary archives for the Atom endpoint
type mockServer struct {
	dataDir        string
	offices        json.RawMessage
	municipalities []domain.MunicipalitySearchResult
	parcelNumbers  map[string][]domain.ParcelSearchResult
}

func main() {
	var listenAddr string
	flag.StringVar(&listenAddr, "listen", "", "listen address (default from MOCK_LISTEN_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if listenAddr == "" {
		listenAddr = cfg.MockListenAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	mock := &mockServer{dataDir: cfg.MockDataDir}
	if err := mock.loadFixtures(); err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	srv := &http.Server{Addr: listenAddr, Handler: mock.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("Mock registry listening on %s, fixtures from %s", listenAddr, cfg.MockDataDir)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

func (m *mockServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(allowAll)

	r.Get("/search-cad-parcels/offices", m.handleOffices)
	r.Get("/search-cad-parcels/municipalities", m.handleMunicipalities)
	r.Get("/search-cad-parcels/parcel-numbers", m.handleParcelNumbers)
	r.Get("/cad/parcel-info", m.handleParcelInfo)
	r.Get("/lr/lr-unit", m.handleLRUnit)
	r.Get("/oss/public/atom/ko-{code}.zip", m.handleArchive)
	return r
}

// allowAll answers preflights and opens the endpoints to any origin, the
// way the public service behaves for its map front-end.
func allowAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *mockServer) loadFixtures() error {
	if raw, err := os.ReadFile(filepath.Join(m.dataDir, "offices.json")); err == nil {
		m.offices = raw
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read offices.json: %w", err)
	}

	if raw, err := os.ReadFile(filepath.Join(m.dataDir, "municipalities.json")); err == nil {
		if err := json.Unmarshal(raw, &m.municipalities); err != nil {
			return fmt.Errorf("failed to parse municipalities.json: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read municipalities.json: %w", err)
	}

	if raw, err := os.ReadFile(filepath.Join(m.dataDir, "parcel_numbers.json")); err == nil {
		if err := json.Unmarshal(raw, &m.parcelNumbers); err != nil {
			return fmt.Errorf("failed to parse parcel_numbers.json: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read parcel_numbers.json: %w", err)
	}

	parcelCount := 0
	if entries, err := os.ReadDir(filepath.Join(m.dataDir, "parcels")); err == nil {
		parcelCount = len(entries)
	}
	log.Printf("Fixtures: %d municipalities, %d parcel indexes, %d parcel records",
		len(m.municipalities), len(m.parcelNumbers), parcelCount)
	return nil
}

func (m *mockServer) handleOffices(w http.ResponseWriter, r *http.Request) {
	if m.offices == nil {
		writeJSON(w, []domain.CadastralOffice{})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(m.offices)
}

func (m *mockServer) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	search := strings.ToUpper(r.URL.Query().Get("search"))
	officeID := r.URL.Query().Get("officeId")
	departmentID := r.URL.Query().Get("departmentId")

	rows := make([]domain.MunicipalitySearchResult, 0)
	for _, row := range m.municipalities {
		if search != "" && !strings.Contains(strings.ToUpper(row.CodeAndName), search) {
			continue
		}
		if officeID != "" && row.InstitutionID != officeID {
			continue
		}
		if departmentID != "" && row.DepartmentID != departmentID {
			continue
		}
		rows = append(rows, row)
	}
	writeJSON(w, rows)
}

func (m *mockServer) handleParcelNumbers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	regNum := r.URL.Query().Get("municipalityRegNum")
	if search == "" || regNum == "" {
		http.Error(w, "search and municipalityRegNum are required", http.StatusBadRequest)
		return
	}

	rows := make([]domain.ParcelSearchResult, 0)
	for _, row := range m.parcelNumbers[regNum] {
		if strings.HasPrefix(row.ParcelNumber, search) {
			rows = append(rows, row)
		}
	}
	writeJSON(w, rows)
}

func (m *mockServer) handleParcelInfo(w http.ResponseWriter, r *http.Request) {
	parcelID := r.URL.Query().Get("parcelId")
	if parcelID == "" {
		http.Error(w, "parcelId is required", http.StatusBadRequest)
		return
	}
	raw, ok := m.readFixture(w, "parcels", parcelID+".json")
	if !ok {
		return
	}
	if raw == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(raw)
}

// handleLRUnit serves the unit as a one-element list; a missing fixture
// yields an empty list, the upstream signal for a nonexistent unit.
func (m *mockServer) handleLRUnit(w http.ResponseWriter, r *http.Request) {
	unitNumber := r.URL.Query().Get("lrUnitNumber")
	bookID := r.URL.Query().Get("mainBookId")
	if unitNumber == "" || bookID == "" {
		http.Error(w, "lrUnitNumber and mainBookId are required", http.StatusBadRequest)
		return
	}
	raw, ok := m.readFixture(w, "lr_units", fmt.Sprintf("%s_%s.json", unitNumber, bookID))
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if raw == nil {
		w.Write([]byte("[]"))
		return
	}
	w.Write([]byte("["))
	w.Write(raw)
	w.Write([]byte("]"))
}

func (m *mockServer) handleArchive(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	name := "ko-" + code + ".zip"
	if name != filepath.Base(name) {
		http.Error(w, "invalid municipality code", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, filepath.Join(m.dataDir, "archives", name))
}

// readFixture loads one fixture file. The bool is false when a response
// was already written; a nil slice with true means the file is absent.
func (m *mockServer) readFixture(w http.ResponseWriter, dir, name string) ([]byte, bool) {
	if name != filepath.Base(name) {
		http.Error(w, "invalid identifier", http.StatusBadRequest)
		return nil, false
	}
	raw, err := os.ReadFile(filepath.Join(m.dataDir, dir, name))
	if os.IsNotExist(err) {
		return nil, true
	}
	if err != nil {
		http.Error(w, "fixture read failed", http.StatusInternalServerError)
		return nil, false
	}
	return raw, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
