package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/katastar-hr/katastar/internal/adapters/gis"
	"github.com/katastar-hr/katastar/internal/adapters/registry"
	"github.com/katastar-hr/katastar/internal/app/services"
	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
)

func main() {
	var (
		inputPath    string
		inlineList   string
		municipality string
		unitsPath    string
		fromOutput   string
		keepGoing    bool
		includeFull  bool
		asJSON       bool
	)

	flag.StringVar(&inputPath, "input", "", "parcel batch file (.csv or .json)")
	flag.StringVar(&inlineList, "parcels", "", "inline parcel list, e.g. \"701/1,702,705/3\"")
	flag.StringVar(&municipality, "municipality", "", "municipality for inline parcel numbers")
	flag.StringVar(&unitsPath, "units", "", "land registry unit batch file (.csv or .json)")
	flag.StringVar(&fromOutput, "from-output", "", "chain units from a previous batch JSON output")
	flag.BoolVar(&keepGoing, "continue", true, "keep going after individual failures")
	flag.BoolVar(&includeFull, "include-full", false, "attach the full record to each successful result")
	flag.BoolVar(&asJSON, "json", false, "print machine-readable JSON to stdout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// The env default applies unless -continue was given explicitly.
	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if !explicit["continue"] {
		keepGoing = cfg.BatchContinueOnError
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

	client := registry.NewClient(cfg)
	cache := gis.NewCache(cfg.CacheDir, gis.NewAtomDownloader(cfg))
	batch := services.NewBatch(services.NewLookup(client, cache))

	modes := 0
	for _, v := range []string{inputPath, inlineList, unitsPath, fromOutput} {
		if v != "" {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "Usage: batch_fetch -input parcels.csv")
		fmt.Fprintln(os.Stderr, "       batch_fetch -parcels \"701/1,702\" -municipality SAVAR")
		fmt.Fprintln(os.Stderr, "       batch_fetch -units units.csv")
		fmt.Fprintln(os.Stderr, "       batch_fetch -from-output batch.json")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := services.BatchOptions{ContinueOnError: keepGoing}

	if unitsPath != "" || fromOutput != "" {
		items, err := loadUnitItems(unitsPath, fromOutput)
		if err != nil {
			log.Fatalf("Failed to read unit list: %v", err)
		}
		runUnits(ctx, batch, items, opts, includeFull, asJSON)
		return
	}

	var items []services.BatchItem
	if inputPath != "" {
		items, err = services.ParseInputFile(inputPath)
	} else {
		items, err = services.ParseInlineList(inlineList, municipality)
	}
	if err != nil {
		log.Fatalf("Failed to read parcel list: %v", err)
	}
	runParcels(ctx, batch, items, opts, includeFull, asJSON)
}

func loadUnitItems(unitsPath, fromOutput string) ([]services.LRUnitItem, error) {
	if unitsPath != "" {
		return services.ParseLRUnitFile(unitsPath)
	}
	return services.LRUnitItemsFromBatchOutput(fromOutput)
}

// newProgressBar returns a stderr bar when stderr is a terminal, else nil.
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
		progressbar.OptionFullWidth(),
	)
}

func runParcels(ctx context.Context, batch *services.Batch, items []services.BatchItem, opts services.BatchOptions, includeFull, asJSON bool) {
	bar := newProgressBar(len(items), "Fetching parcels")
	if bar != nil {
		opts.Progress = func(done, total int, current string) {
			_ = bar.Set(done)
		}
	}

	summary, runErr := batch.FetchParcels(ctx, items, opts)
	if bar != nil {
		_ = bar.Finish()
	}

	if asJSON {
		printJSON(parcelRunDoc(summary, includeFull))
	} else {
		printParcelRun(summary)
	}
	if runErr != nil {
		log.Fatalf("Batch stopped after %d of %d items: %v", len(summary.Results), summary.Total, runErr)
	}
}

func parcelRunDoc(summary *services.BatchSummary, includeFull bool) map[string]any {
	results := make([]map[string]any, 0, len(summary.Results))
	for _, r := range summary.Results {
		results = append(results, parcelResultDoc(r, includeFull))
	}
	return map[string]any{
		"summary": runSummaryDoc(summary.Total, summary.Succeeded, summary.Failed, summary.SuccessRate()),
		"results": results,
	}
}

func runSummaryDoc(total, successful, failed int, rate float64) map[string]any {
	return map[string]any{
		"total":        total,
		"successful":   successful,
		"failed":       failed,
		"success_rate": fmt.Sprintf("%.1f%%", rate),
	}
}

func parcelResultDoc(r services.BatchResult, includeFull bool) map[string]any {
	doc := make(map[string]any)
	if r.Item.IsDirectID() {
		doc["parcel_id"] = r.Item.ParcelID
	} else {
		doc["parcel_number"] = r.Item.ParcelNumber
		doc["municipality"] = r.Item.Municipality
	}
	if r.Err != nil {
		doc["status"] = "error"
		doc["error_type"] = errorType(r.Err)
		doc["error_message"] = r.Err.Error()
		return doc
	}
	doc["status"] = "success"
	doc["parcel_id"] = r.Info.ParcelID
	doc["parcel_number"] = r.Info.ParcelNumber
	doc["municipality_code"] = r.Info.CadMunicipalityRegNum
	doc["municipality_name"] = r.Info.CadMunicipalityName
	doc["area_m2"] = r.Info.AreaM2()
	doc["building_permitted"] = r.Info.HasBuildingRight
	doc["total_owners"] = r.Info.TotalOwners()
	if r.Info.LRUnit != nil {
		doc["lr_unit_number"] = r.Info.LRUnit.LRUnitNumber
		doc["main_book_id"] = r.Info.LRUnit.MainBookID
	}
	if includeFull {
		doc["full_data"] = r.Info
	}
	return doc
}

func errorType(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func printParcelRun(summary *services.BatchSummary) {
	if summary.Succeeded > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PARCEL\tMUNICIPALITY\tAREA\tOWNERS\tLR_UNIT")
		for _, r := range summary.Results {
			if r.Err != nil {
				continue
			}
			unitRef := "-"
			if r.Info.LRUnit != nil {
				unitRef = fmt.Sprintf("%s/%d", r.Info.LRUnit.LRUnitNumber, r.Info.LRUnit.MainBookID)
			}
			fmt.Fprintf(w, "%s\t%s (%s)\t%d m2\t%d\t%s\n",
				r.Info.ParcelNumber, r.Info.CadMunicipalityName, r.Info.CadMunicipalityRegNum,
				r.Info.AreaM2(), r.Info.TotalOwners(), unitRef)
		}
		w.Flush()
	}
	var failures []failure
	for _, r := range summary.Results {
		if r.Err != nil {
			failures = append(failures, failure{label: r.Item.String(), err: r.Err})
		}
	}
	printFailures(failures)
	fmt.Printf("\n%d of %d succeeded (%.1f%%) in %s\n",
		summary.Succeeded, summary.Total, summary.SuccessRate(), summary.Duration.Round(time.Millisecond))
}

type failure struct {
	label string
	err   error
}

func printFailures(failures []failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Println("\nFailures:")
	for _, f := range failures {
		fmt.Printf("  %s: %v\n", f.label, f.err)
	}
}

func runUnits(ctx context.Context, batch *services.Batch, items []services.LRUnitItem, opts services.BatchOptions, includeFull, asJSON bool) {
	items = services.DedupLRUnitItems(items)
	bar := newProgressBar(len(items), "Fetching LR units")
	if bar != nil {
		opts.Progress = func(done, total int, current string) {
			_ = bar.Set(done)
		}
	}

	summary, runErr := batch.FetchLRUnits(ctx, items, opts)
	if bar != nil {
		_ = bar.Finish()
	}

	if asJSON {
		printJSON(unitRunDoc(summary, includeFull))
	} else {
		printUnitRun(summary)
	}
	if runErr != nil {
		log.Fatalf("Batch stopped after %d of %d items: %v", len(summary.Results), summary.Total, runErr)
	}
}

func unitRunDoc(summary *services.LRUnitBatchSummary, includeFull bool) map[string]any {
	results := make([]map[string]any, 0, len(summary.Results))
	for _, r := range summary.Results {
		results = append(results, unitResultDoc(r, includeFull))
	}
	summaryDoc := runSummaryDoc(summary.Total, summary.Succeeded, summary.Failed, summary.SuccessRate())
	summaryDoc["condominiums_found"] = summary.CondominiumsFound
	return map[string]any{
		"summary": summaryDoc,
		"results": results,
	}
}

func unitResultDoc(r services.LRUnitResult, includeFull bool) map[string]any {
	doc := map[string]any{
		"lr_unit_number": r.Item.UnitNumber,
		"main_book_id":   r.Item.MainBookID,
	}
	if r.Err != nil {
		doc["status"] = "error"
		doc["error_type"] = errorType(r.Err)
		doc["error_message"] = r.Err.Error()
		return doc
	}
	s := r.Unit.Summary()
	doc["status"] = "success"
	doc["main_book_name"] = r.Unit.MainBookName
	doc["owners"] = s.NumOwners
	doc["total_area_m2"] = s.TotalAreaM2
	doc["has_encumbrances"] = s.HasEncumbrances
	if s.IsCondominium {
		doc["is_condominium"] = true
		doc["condominium_units"] = s.CondominiumUnits
	}
	if includeFull {
		doc["full_data"] = r.Unit
	}
	return doc
}

func printUnitRun(summary *services.LRUnitBatchSummary) {
	if summary.Succeeded > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "UNIT\tMAIN_BOOK\tOWNERS\tAREA\tENCUMBERED\tCONDO")
		for _, r := range summary.Results {
			if r.Err != nil {
				continue
			}
			s := r.Unit.Summary()
			condo := "-"
			if s.IsCondominium {
				condo = fmt.Sprintf("%d units", s.CondominiumUnits)
			}
			fmt.Fprintf(w, "%s\t%s (%d)\t%d\t%d m2\t%v\t%s\n",
				s.UnitNumber, s.MainBook, r.Item.MainBookID, s.NumOwners, s.TotalAreaM2, s.HasEncumbrances, condo)
		}
		w.Flush()
	}
	var failures []failure
	for _, r := range summary.Results {
		if r.Err != nil {
			failures = append(failures, failure{label: r.Item.String(), err: r.Err})
		}
	}
	printFailures(failures)
	fmt.Printf("\n%d of %d succeeded (%.1f%%), %d condominiums, in %s\n",
		summary.Succeeded, summary.Total, summary.SuccessRate(), summary.CondominiumsFound,
		summary.Duration.Round(time.Millisecond))
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode JSON: %v", err)
	}
	fmt.Println(string(pretty))
}
