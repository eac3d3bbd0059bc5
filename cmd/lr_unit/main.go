package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/katastar-hr/katastar/internal/adapters/gis"
	"github.com/katastar-hr/katastar/internal/adapters/registry"
	"github.com/katastar-hr/katastar/internal/app/services"
	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
)

func main() {
	var (
		unitNumber   string
		mainBookID   int
		parcelNumber string
		municipality string
		full         bool
		historical   bool
		asJSON       bool
	)

	flag.StringVar(&unitNumber, "unit", "", "land registry unit number, e.g. 1753")
	flag.IntVar(&mainBookID, "book", 0, "main book ID, e.g. 21277")
	flag.StringVar(&parcelNumber, "parcel", "", "resolve the unit through a cadastral parcel")
	flag.StringVar(&municipality, "municipality", "", "municipality name or code (with -parcel)")
	flag.BoolVar(&full, "full", false, "print all three sheets instead of the summary")
	flag.BoolVar(&historical, "historical", false, "include the historical overview")
	flag.BoolVar(&asJSON, "json", false, "print the full record as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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
	lookup := services.NewLookup(client, cache)

	var unit *domain.LandRegistryUnitDetailed
	switch {
	case unitNumber != "" && mainBookID != 0:
		unit, err = lookup.LRUnitByNumber(ctx, unitNumber, mainBookID, historical)
	case parcelNumber != "" && municipality != "":
		unit, err = lookup.LRUnitFromParcel(ctx, parcelNumber, municipality, historical)
	default:
		fmt.Fprintln(os.Stderr, "Usage: lr_unit -unit NUMBER -book MAIN_BOOK_ID")
		fmt.Fprintln(os.Stderr, "       lr_unit -parcel NUMBER -municipality NAME_OR_CODE")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}

	if asJSON {
		pretty, err := json.MarshalIndent(unit, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode JSON: %v", err)
		}
		fmt.Println(string(pretty))
		return
	}
	if full {
		printSheets(unit)
		return
	}
	printSummary(unit)
}

func printSummary(unit *domain.LandRegistryUnitDetailed) {
	s := unit.Summary()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Unit:\t%s\n", s.UnitNumber)
	fmt.Fprintf(w, "Main book:\t%s (%d)\n", s.MainBook, unit.MainBookID)
	if unit.InstitutionName != "" {
		fmt.Fprintf(w, "Court:\t%s\n", unit.InstitutionName)
	}
	fmt.Fprintf(w, "Parcels:\t%d (%d m2)\n", s.TotalParcels, s.TotalAreaM2)
	fmt.Fprintf(w, "Owners:\t%d\n", s.NumOwners)
	fmt.Fprintf(w, "Encumbrances:\t%v\n", s.HasEncumbrances)
	if s.IsCondominium {
		fmt.Fprintf(w, "Condominium:\t%d units\n", s.CondominiumUnits)
	}
	w.Flush()
}

func printSheets(unit *domain.LandRegistryUnitDetailed) {
	fmt.Printf("Land registry unit %s, main book %s (%d)\n", unit.LRUnitNumber, unit.MainBookName, unit.MainBookID)
	if unit.LRUnitTypeName != "" {
		fmt.Printf("Type: %s\n", unit.LRUnitTypeName)
	}

	fmt.Printf("\nA  Parcels (%d, %d m2 total)\n", len(unit.SheetA.CadParcels), unit.SheetA.TotalArea())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for i := range unit.SheetA.CadParcels {
		p := &unit.SheetA.CadParcels[i]
		fmt.Fprintf(w, "  %s\t%d m2\t%s\n", p.ParcelNumber, p.AreaM2(), p.Address)
	}
	w.Flush()
	for i := range unit.SheetAExt.LREntries {
		printEntry(&unit.SheetAExt.LREntries[i], "  ")
	}

	fmt.Printf("\nB  Ownership shares (%d)\n", len(unit.SheetB.LRUnitShares))
	for i := range unit.SheetB.LRUnitShares {
		printShare(&unit.SheetB.LRUnitShares[i], "  ")
	}
	if total, ok := unit.SheetB.TotalOwnershipAccounted(); ok {
		fmt.Printf("  accounted ownership: %s\n", total.String())
	}

	if !unit.HasEncumbrances() {
		fmt.Printf("\nC  No encumbrances\n")
		return
	}
	fmt.Printf("\nC  Encumbrances (%d)\n", len(unit.SheetC.LREntryGroups))
	for i := range unit.SheetC.LREntryGroups {
		group := &unit.SheetC.LREntryGroups[i]
		if desc := services.CleanMarkup(group.Description); desc != "" {
			fmt.Println(indent(desc, "  "))
		}
		for j := range group.LREntries {
			printEntry(&group.LREntries[j], "    ")
		}
	}
}

func printShare(share *domain.LRShare, prefix string) {
	line := services.CleanMarkup(share.Description)
	if !share.Active() {
		line += " [inactive]"
	}
	fmt.Println(indent(line, prefix))
	for i := range share.Owners {
		owner := &share.Owners[i]
		ownerLine := owner.Name
		if owner.Address != "" {
			ownerLine += ", " + owner.Address
		}
		fmt.Println(indent(ownerLine, prefix+"  "))
	}
	for _, desc := range share.CondominiumDescriptions {
		if cleaned := services.CleanMarkup(desc); cleaned != "" {
			fmt.Println(indent(cleaned, prefix+"  "))
		}
	}
	for i := range share.SubShares {
		printShare(&share.SubShares[i], prefix+"  ")
	}
}

func printEntry(entry *domain.LREntry, prefix string) {
	text := services.CleanMarkup(entry.Description)
	if text == "" {
		return
	}
	if entry.OrderNumber != "" {
		text = entry.OrderNumber + ". " + text
	}
	fmt.Println(indent(text, prefix))
}

// indent prefixes every line of a multi-line value so cleaned markup
// stays aligned under its share.
func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}
