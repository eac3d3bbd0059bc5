package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Batch input parsing. Errors here are plain user-input errors, not the
// registry error taxonomy: the request never left the machine.

// isParcelID reports whether a token is a registry ID rather than a
// parcel number. IDs are digit runs of eight or more; parcel numbers
// are short and often carry a subdivision slash.
func isParcelID(s string) bool {
	return isNumeric(s) && len(s) >= 8
}

// ParseInlineList turns a comma-separated argument into batch items.
// Tokens must be all parcel numbers or all registry IDs; numbers share
// the one given municipality.
func ParseInlineList(list, municipality string) ([]BatchItem, error) {
	var items []BatchItem
	for _, token := range strings.Split(list, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if isParcelID(token) {
			items = append(items, BatchItem{ParcelID: token})
			continue
		}
		if strings.TrimSpace(municipality) == "" {
			return nil, fmt.Errorf("municipality is required when using parcel numbers")
		}
		items = append(items, BatchItem{ParcelNumber: token, Municipality: strings.TrimSpace(municipality)})
	}
	if len(items) == 0 {
		return nil, errors.New("no parcels given")
	}
	return items, checkNoMixing(items)
}

func checkNoMixing(items []BatchItem) error {
	var numbers, ids bool
	for _, it := range items {
		if it.IsDirectID() {
			ids = true
		} else {
			numbers = true
		}
	}
	if numbers && ids {
		return errors.New("cannot mix parcel numbers and parcel IDs in one batch")
	}
	return nil
}

// ParseInputFile picks the parser by file extension.
func ParseInputFile(path string) ([]BatchItem, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ParseCSVFile(path)
	case ".json":
		return ParseJSONFile(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (use .csv or .json)", ext)
	}
}

// ParseCSVFile reads batch items from a CSV file. The header names
// either a parcel_number column, with a municipality column whose
// values carry over from the previous row when blank, or a parcel_id
// column. Naming both is ambiguous and rejected.
func ParseCSVFile(path string) ([]BatchItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.New("CSV file is empty or has no header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	_, hasNumber := cols["parcel_number"]
	_, hasID := cols["parcel_id"]
	switch {
	case hasNumber && hasID:
		return nil, errors.New("CSV cannot have both parcel_number and parcel_id columns")
	case !hasNumber && !hasID:
		return nil, errors.New("CSV must have a parcel_number or parcel_id column")
	}

	var items []BatchItem
	lastMunicipality := ""
	for rowNum := 2; ; rowNum++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if hasID {
			id := csvField(record, cols, "parcel_id")
			if id == "" {
				return nil, fmt.Errorf("row %d: parcel_id cannot be empty", rowNum)
			}
			items = append(items, BatchItem{ParcelID: id})
			continue
		}

		number := csvField(record, cols, "parcel_number")
		if number == "" {
			return nil, fmt.Errorf("row %d: parcel_number cannot be empty", rowNum)
		}
		municipality := csvField(record, cols, "municipality")
		if municipality == "" {
			municipality = lastMunicipality
		}
		if municipality == "" {
			return nil, fmt.Errorf("row %d: municipality is required (none to inherit from a previous row)", rowNum)
		}
		lastMunicipality = municipality
		items = append(items, BatchItem{ParcelNumber: number, Municipality: municipality})
	}

	if len(items) == 0 {
		return nil, errors.New("no valid parcels found in CSV file")
	}
	return items, nil
}

func csvField(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseJSONFile reads batch items from a JSON array of objects. Each
// object carries either parcel_number plus municipality, with no
// carry-over between items, or parcel_id.
func ParseJSONFile(path string) ([]BatchItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.New("JSON must be an array of parcel objects")
	}
	if len(rows) == 0 {
		return nil, errors.New("JSON array is empty")
	}

	items := make([]BatchItem, 0, len(rows))
	for idx, row := range rows {
		number := coerceString(row["parcel_number"])
		id := coerceString(row["parcel_id"])
		switch {
		case number != "" && id != "":
			return nil, fmt.Errorf("item %d: cannot have both parcel_number and parcel_id", idx)
		case number == "" && id == "":
			return nil, fmt.Errorf("item %d: parcel_number or parcel_id is required", idx)
		case id != "":
			items = append(items, BatchItem{ParcelID: id})
		default:
			municipality := coerceString(row["municipality"])
			if municipality == "" {
				return nil, fmt.Errorf("item %d: municipality is required with parcel_number", idx)
			}
			items = append(items, BatchItem{ParcelNumber: number, Municipality: municipality})
		}
	}
	return items, checkNoMixing(items)
}

// coerceString renders a decoded JSON scalar the way users wrote it,
// so numeric parcel numbers and IDs survive the round trip.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// ParseLRUnitFile picks the unit-list parser by file extension.
func ParseLRUnitFile(path string) ([]LRUnitItem, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ParseLRUnitCSV(path)
	case ".json":
		return ParseLRUnitJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (use .csv or .json)", ext)
	}
}

// ParseLRUnitCSV reads unit items from a CSV file with lr_unit_number
// and main_book_id columns.
func ParseLRUnitCSV(path string) ([]LRUnitItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.New("CSV file is empty or has no header")
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols["lr_unit_number"]; !ok {
		return nil, errors.New("CSV must have lr_unit_number and main_book_id columns")
	}
	if _, ok := cols["main_book_id"]; !ok {
		return nil, errors.New("CSV must have lr_unit_number and main_book_id columns")
	}

	var items []LRUnitItem
	for rowNum := 2; ; rowNum++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		number := csvField(record, cols, "lr_unit_number")
		if number == "" {
			return nil, fmt.Errorf("row %d: lr_unit_number cannot be empty", rowNum)
		}
		bookStr := csvField(record, cols, "main_book_id")
		if bookStr == "" {
			return nil, fmt.Errorf("row %d: main_book_id cannot be empty", rowNum)
		}
		bookID, err := strconv.Atoi(bookStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: main_book_id must be an integer", rowNum)
		}
		items = append(items, LRUnitItem{UnitNumber: number, MainBookID: bookID})
	}

	if len(items) == 0 {
		return nil, errors.New("no valid units found in CSV file")
	}
	return items, nil
}

// ParseLRUnitJSON reads unit items from a JSON array of objects with
// lr_unit_number and an integer main_book_id.
func ParseLRUnitJSON(path string) ([]LRUnitItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.New("JSON must be an array of unit objects")
	}
	if len(rows) == 0 {
		return nil, errors.New("JSON array is empty")
	}

	items := make([]LRUnitItem, 0, len(rows))
	for idx, row := range rows {
		number := coerceString(row["lr_unit_number"])
		if number == "" {
			return nil, fmt.Errorf("item %d: lr_unit_number is required", idx)
		}
		bookID, ok := jsonInt(row["main_book_id"])
		if !ok {
			return nil, fmt.Errorf("item %d: main_book_id must be an integer", idx)
		}
		items = append(items, LRUnitItem{UnitNumber: number, MainBookID: bookID})
	}
	return items, nil
}

func jsonInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// LRUnitItemsFromBatchOutput extracts unique unit references from a
// parcel batch output file, either the full summary object or a bare
// results array. Failed items and parcels without a unit reference are
// skipped.
func LRUnitItemsFromBatchOutput(path string) ([]LRUnitItem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	var rows []map[string]any
	trimmed := bytes.TrimLeftFunc(raw, unicode.IsSpace)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Results []map[string]any `json:"results"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Results == nil {
			return nil, errors.New("invalid batch output format")
		}
		rows = envelope.Results
	} else if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, errors.New("invalid batch output format")
	}

	var items []LRUnitItem
	for _, row := range rows {
		if coerceString(row["status"]) != "success" {
			continue
		}
		number := coerceString(row["lr_unit_number"])
		bookID, ok := jsonInt(row["main_book_id"])
		if number == "" || !ok {
			continue
		}
		items = append(items, LRUnitItem{UnitNumber: number, MainBookID: bookID})
	}

	items = DedupLRUnitItems(items)
	if len(items) == 0 {
		return nil, errors.New("no land-registry unit references found in batch output")
	}
	return items, nil
}
