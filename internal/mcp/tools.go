package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/katastar-hr/katastar/internal/app/services"
	"github.com/katastar-hr/katastar/internal/core/domain"
)

func (s *Server) registerTools() {
	s.srv.AddTool(mcp.NewTool("find_parcel",
		mcp.WithDescription("Find a cadastral parcel by number and municipality and return its record: area, address, land use, owner count and the land registry unit reference."),
		mcp.WithString("parcel_number", mcp.Required(),
			mcp.Description("Cadastral parcel number, e.g. \"103/2\"")),
		mcp.WithString("municipality", mcp.Required(),
			mcp.Description("Municipality name (e.g. \"SAVAR\") or six-digit registration code")),
		mcp.WithBoolean("exact", mcp.DefaultBool(true),
			mcp.Description("Require the number to match exactly instead of taking the first prefix hit")),
		mcp.WithBoolean("include_geometry", mcp.DefaultBool(false),
			mcp.Description("Attach the parcel boundary summary, downloading the municipality's GIS archive when needed")),
	), s.handleFindParcel)

	s.srv.AddTool(mcp.NewTool("resolve_municipality",
		mcp.WithDescription("Resolve a cadastral municipality name to its registration code. Numeric input passes through unchanged."),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Municipality name (e.g. \"SAVAR\") or registration code (e.g. \"334979\")")),
	), s.handleResolveMunicipality)

	s.srv.AddTool(mcp.NewTool("get_parcel_geometry",
		mcp.WithDescription("Get a parcel boundary from the municipality's GIS layer, downloading and caching the archive when needed."),
		mcp.WithString("parcel_number", mcp.Required(),
			mcp.Description("Cadastral parcel number, e.g. \"103/2\"")),
		mcp.WithString("municipality", mcp.Required(),
			mcp.Description("Municipality name or registration code")),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum("geojson", "wkt", "summary"),
			mcp.DefaultString("geojson")),
	), s.handleParcelGeometry)

	s.srv.AddTool(mcp.NewTool("list_cadastral_offices",
		mcp.WithDescription("List the regional cadastral offices, optionally filtered by name."),
		mcp.WithString("filter_name",
			mcp.Description("Case-insensitive substring filter on office names")),
	), s.handleListOffices)

	s.srv.AddTool(mcp.NewTool("get_lr_unit",
		mcp.WithDescription("Get a land registry unit with its three sheets: parcels (A), ownership shares (B) and encumbrances (C). Condominium units additionally report the apartment count."),
		mcp.WithString("lr_unit_number", mcp.Required(),
			mcp.Description("Land registry unit number, e.g. \"769\"")),
		mcp.WithNumber("main_book_id", mcp.Required(),
			mcp.Description("Main book ID, e.g. 21277")),
		mcp.WithBoolean("full", mcp.DefaultBool(true),
			mcp.Description("Return all sheets; false returns only the summary")),
		mcp.WithBoolean("historical", mcp.DefaultBool(false),
			mcp.Description("Include the historical overview")),
	), s.handleGetLRUnit)

	s.srv.AddTool(mcp.NewTool("get_lr_unit_from_parcel",
		mcp.WithDescription("Find a parcel and follow its land registry unit reference to the full unit record."),
		mcp.WithString("parcel_number", mcp.Required(),
			mcp.Description("Cadastral parcel number, e.g. \"279/6\"")),
		mcp.WithString("municipality", mcp.Required(),
			mcp.Description("Municipality name or registration code")),
		mcp.WithBoolean("full", mcp.DefaultBool(true),
			mcp.Description("Return all sheets; false returns only the summary")),
		mcp.WithBoolean("historical", mcp.DefaultBool(false),
			mcp.Description("Include the historical overview")),
	), s.handleLRUnitFromParcel)

	s.srv.AddTool(mcp.NewTool("batch_fetch_parcels",
		mcp.WithDescription("Fetch several parcels in one call. Handles rate limiting and reports per-item status, so prefer this over repeated find_parcel calls. Successful entries carry the lr_unit_number/main_book_id pair for batch_lr_units."),
		mcp.WithArray("parcels", mcp.Required(),
			mcp.Description("Parcel specs: objects with parcel_number and municipality, or with parcel_id"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"parcel_number": map[string]any{"type": "string"},
					"municipality":  map[string]any{"type": "string"},
					"parcel_id":     map[string]any{"type": "string"},
				},
			})),
		mcp.WithString("municipality",
			mcp.Description("Fallback municipality for specs that omit their own")),
		mcp.WithBoolean("include_owners", mcp.DefaultBool(false),
			mcp.Description("Keep the cadastral possession sheets in each record")),
	), s.handleBatchFetchParcels)

	s.srv.AddTool(mcp.NewTool("batch_lr_units",
		mcp.WithDescription("Fetch several land registry units in one call, deduplicating repeated unit references. Use after batch_fetch_parcels to expand the unit references it returned."),
		mcp.WithArray("lr_units", mcp.Required(),
			mcp.Description("Unit specs: objects with lr_unit_number and main_book_id"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"lr_unit_number": map[string]any{"type": "string"},
					"main_book_id":   map[string]any{"type": "integer"},
				},
			})),
		mcp.WithBoolean("full", mcp.DefaultBool(true),
			mcp.Description("Return all sheets per unit; false returns only summaries")),
	), s.handleBatchLRUnits)
}

// jsonResult renders a tool payload as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError reports a lookup failure to the model as a tool-level error.
// Context teardown stays a protocol error so the client can distinguish
// a dead server from a failed lookup.
func toolError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	return mcp.NewToolResultError(err.Error()), nil
}

func (s *Server) handleFindParcel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := req.RequireString("parcel_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	municipality, err := req.RequireString("municipality")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := s.lookup.FindParcelByNumber(ctx, number, municipality, req.GetBool("exact", true))
	if err != nil {
		return toolError(err)
	}

	doc := map[string]any{
		"parcel_id":          info.ParcelID,
		"parcel_number":      info.ParcelNumber,
		"municipality_code":  info.CadMunicipalityRegNum,
		"municipality_name":  info.CadMunicipalityName,
		"address":            info.Address,
		"area_m2":            info.AreaM2(),
		"land_use":           info.LandUseSummary(),
		"total_owners":       info.TotalOwners(),
		"building_permitted": info.HasBuildingRight,
		"map_url":            s.lookup.MapURL(info.ParcelID),
	}
	if info.LRUnit != nil {
		doc["lr_unit_number"] = info.LRUnit.LRUnitNumber
		doc["main_book_id"] = info.LRUnit.MainBookID
	}
	if req.GetBool("include_geometry", false) {
		if geom, gerr := s.lookup.ParcelGeometry(ctx, number, municipality, true); gerr != nil {
			doc["geometry_error"] = gerr.Error()
		} else {
			doc["geometry"] = geometrySummary(geom)
		}
	}
	return jsonResult(doc)
}

func (s *Server) handleResolveMunicipality(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	match, rerr := s.lookup.ResolveMunicipalityMatch(ctx, query)
	if rerr != nil {
		return toolError(rerr)
	}
	if match.Row == nil {
		return jsonResult(map[string]any{"code": match.Code})
	}
	return jsonResult(map[string]any{
		"code":      match.Code,
		"name":      match.Row.Name(),
		"full_name": match.Row.CodeAndName,
		"matches":   match.Matches,
	})
}

func geometrySummary(g *domain.ParcelGeometry) map[string]any {
	minX, minY, maxX, maxY := g.Bounds()
	center := g.Center()
	return map[string]any{
		"cestica_id":           g.CesticaID,
		"parcel_number":        g.ParcelNumber,
		"municipality_reg_num": g.MunicipalityRegNum,
		"graphic_area":         g.GraphicArea,
		"srs_name":             g.SRSName,
		"points":               g.CoordinateCount(),
		"center":               map[string]float64{"x": center.X, "y": center.Y},
		"bounds":               map[string]float64{"min_x": minX, "min_y": minY, "max_x": maxX, "max_y": maxY},
	}
}

func (s *Server) handleParcelGeometry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := req.RequireString("parcel_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	municipality, err := req.RequireString("municipality")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	geom, err := s.lookup.ParcelGeometry(ctx, number, municipality, true)
	if err != nil {
		return toolError(err)
	}

	switch req.GetString("format", "geojson") {
	case "wkt":
		return mcp.NewToolResultText(geom.ToWKT()), nil
	case "summary":
		return jsonResult(geometrySummary(geom))
	default:
		return jsonResult(map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type":        "Polygon",
				"coordinates": geom.GeoJSONCoordinates(),
			},
			"properties": map[string]any{
				"cestica_id":           geom.CesticaID,
				"parcel_number":        geom.ParcelNumber,
				"graphic_area":         geom.GraphicArea,
				"municipality_reg_num": geom.MunicipalityRegNum,
				"srs_name":             geom.SRSName,
			},
		})
	}
}

func (s *Server) handleListOffices(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	offices, err := s.lookup.Offices(ctx)
	if err != nil {
		return toolError(err)
	}
	if filter := strings.ToLower(req.GetString("filter_name", "")); filter != "" {
		kept := offices[:0]
		for _, o := range offices {
			if strings.Contains(strings.ToLower(o.Name), filter) {
				kept = append(kept, o)
			}
		}
		offices = kept
	}
	return jsonResult(map[string]any{"offices": offices, "count": len(offices)})
}

// unitDoc renders a unit either in full, with the summary attached, or
// as the summary alone.
func unitDoc(unit *domain.LandRegistryUnitDetailed, full bool) (map[string]any, error) {
	var doc map[string]any
	if full {
		b, err := json.Marshal(unit)
		if err != nil {
			return nil, fmt.Errorf("failed to encode unit: %w", err)
		}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("failed to encode unit: %w", err)
		}
	} else {
		doc = map[string]any{
			"lr_unit_number":   unit.LRUnitNumber,
			"main_book_name":   unit.MainBookName,
			"institution_name": unit.InstitutionName,
		}
	}
	doc["summary"] = unit.Summary()
	if unit.IsCondominium() {
		doc["is_condominium"] = true
		doc["condominium_units_count"] = unit.CondominiumUnitsCount()
	}
	return doc, nil
}

func (s *Server) handleGetLRUnit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := req.RequireString("lr_unit_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bookID, err := req.RequireInt("main_book_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	unit, err := s.lookup.LRUnitByNumber(ctx, number, bookID, req.GetBool("historical", false))
	if err != nil {
		return toolError(err)
	}
	doc, err := unitDoc(unit, req.GetBool("full", true))
	if err != nil {
		return nil, err
	}
	return jsonResult(doc)
}

func (s *Server) handleLRUnitFromParcel(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := req.RequireString("parcel_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	municipality, err := req.RequireString("municipality")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	unit, err := s.lookup.LRUnitFromParcel(ctx, number, municipality, req.GetBool("historical", false))
	if err != nil {
		return toolError(err)
	}
	doc, err := unitDoc(unit, req.GetBool("full", true))
	if err != nil {
		return nil, err
	}
	return jsonResult(doc)
}

// parcelSpecItem converts one JSON spec object into a batch item.
func parcelSpecItem(raw any, fallbackMunicipality string) (services.BatchItem, error) {
	spec, ok := raw.(map[string]any)
	if !ok {
		return services.BatchItem{}, errors.New("each parcel spec must be an object")
	}
	id := stringField(spec, "parcel_id")
	number := stringField(spec, "parcel_number")
	switch {
	case id != "" && number != "":
		return services.BatchItem{}, errors.New("a spec cannot have both parcel_id and parcel_number")
	case id != "":
		return services.BatchItem{ParcelID: id}, nil
	case number == "":
		return services.BatchItem{}, errors.New("a spec needs parcel_id, or parcel_number and municipality")
	}
	municipality := stringField(spec, "municipality")
	if municipality == "" {
		municipality = fallbackMunicipality
	}
	if municipality == "" {
		return services.BatchItem{}, errors.New("municipality is required with parcel_number")
	}
	return services.BatchItem{ParcelNumber: number, Municipality: municipality}, nil
}

func stringField(spec map[string]any, key string) string {
	switch v := spec[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func parcelEntryDoc(info *domain.ParcelInfo, includeOwners bool) (map[string]any, error) {
	b, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parcel: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to encode parcel: %w", err)
	}
	if !includeOwners {
		delete(doc, "possessionSheets")
	}
	doc["total_owners"] = info.TotalOwners()
	doc["area_m2"] = info.AreaM2()
	return doc, nil
}

func (s *Server) handleBatchFetchParcels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["parcels"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("parcels must be a non-empty array of specs"), nil
	}
	fallback := req.GetString("municipality", "")
	includeOwners := req.GetBool("include_owners", false)

	entries := make([]map[string]any, len(raw))
	var items []services.BatchItem
	var itemPos []int
	for i, spec := range raw {
		item, err := parcelSpecItem(spec, fallback)
		if err != nil {
			entries[i] = map[string]any{"status": "error", "error": err.Error(), "spec": spec}
			continue
		}
		items = append(items, item)
		itemPos = append(itemPos, i)
	}

	summary, err := s.batch.FetchParcels(ctx, items, services.BatchOptions{ContinueOnError: true})
	if err != nil {
		return nil, err
	}
	for k, r := range summary.Results {
		i := itemPos[k]
		if r.Err != nil {
			entries[i] = map[string]any{"status": "error", "error": r.Err.Error(), "spec": r.Item.String()}
			continue
		}
		doc, derr := parcelEntryDoc(r.Info, includeOwners)
		if derr != nil {
			return nil, derr
		}
		entry := map[string]any{"status": "success", "data": doc}
		if r.Info.LRUnit != nil {
			entry["lr_unit_number"] = r.Info.LRUnit.LRUnitNumber
			entry["main_book_id"] = r.Info.LRUnit.MainBookID
		}
		entries[i] = entry
	}

	successful, failed := 0, 0
	for _, e := range entries {
		if e["status"] == "success" {
			successful++
		} else {
			failed++
		}
	}
	return jsonResult(map[string]any{
		"results":    entries,
		"total":      len(raw),
		"successful": successful,
		"failed":     failed,
	})
}

func unitSpecItem(raw any) (services.LRUnitItem, error) {
	spec, ok := raw.(map[string]any)
	if !ok {
		return services.LRUnitItem{}, errors.New("each unit spec must be an object")
	}
	number := stringField(spec, "lr_unit_number")
	if number == "" {
		return services.LRUnitItem{}, errors.New("lr_unit_number and main_book_id are required")
	}
	bookID, ok := spec["main_book_id"].(float64)
	if !ok || bookID != math.Trunc(bookID) {
		return services.LRUnitItem{}, errors.New("main_book_id must be an integer")
	}
	return services.LRUnitItem{UnitNumber: number, MainBookID: int(bookID)}, nil
}

func (s *Server) handleBatchLRUnits(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, ok := req.GetArguments()["lr_units"].([]any)
	if !ok || len(raw) == 0 {
		return mcp.NewToolResultError("lr_units must be a non-empty array of specs"), nil
	}
	full := req.GetBool("full", true)

	var entries []map[string]any
	invalid := 0
	var items []services.LRUnitItem
	for _, spec := range raw {
		item, err := unitSpecItem(spec)
		if err != nil {
			entries = append(entries, map[string]any{"status": "error", "error": err.Error(), "spec": spec})
			invalid++
			continue
		}
		items = append(items, item)
	}
	unique := services.DedupLRUnitItems(items)

	summary, err := s.batch.FetchLRUnits(ctx, unique, services.BatchOptions{ContinueOnError: true})
	if err != nil {
		return nil, err
	}
	for _, r := range summary.Results {
		entry := map[string]any{
			"lr_unit_number": r.Item.UnitNumber,
			"main_book_id":   r.Item.MainBookID,
		}
		if r.Err != nil {
			entry["status"] = "error"
			entry["error"] = r.Err.Error()
		} else {
			doc, derr := unitDoc(r.Unit, full)
			if derr != nil {
				return nil, derr
			}
			entry["status"] = "success"
			entry["data"] = doc
			if r.Unit.IsCondominium() {
				entry["is_condominium"] = true
			}
		}
		entries = append(entries, entry)
	}

	return jsonResult(map[string]any{
		"results":            entries,
		"total":              len(raw),
		"unique":             len(unique),
		"successful":         summary.Succeeded,
		"failed":             invalid + summary.Failed,
		"condominiums_found": summary.CondominiumsFound,
	})
}
