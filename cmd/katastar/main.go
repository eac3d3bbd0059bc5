package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
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
		parcelNumber string
		municipality string
		parcelID     string
		exact        bool
		showOwners   bool
		mapOnly      bool
		asJSON       bool
		searchKO     string
	)

	flag.StringVar(&parcelNumber, "parcel", "", "cadastral parcel number, e.g. 103/2")
	flag.StringVar(&municipality, "municipality", "", "municipality name or registration code")
	flag.StringVar(&parcelID, "id", "", "internal parcel ID (skips the search)")
	flag.BoolVar(&exact, "exact", true, "require an exact parcel number match")
	flag.BoolVar(&showOwners, "owners", false, "list possession sheets and possessors")
	flag.BoolVar(&mapOnly, "map", false, "print only the public map URL")
	flag.BoolVar(&asJSON, "json", false, "print the full record as JSON")
	flag.StringVar(&searchKO, "search-ko", "", "search cadastral municipalities by name")
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

	if searchKO != "" {
		if err := searchMunicipalities(ctx, lookup, searchKO, asJSON); err != nil {
			log.Fatalf("Municipality search failed: %v", err)
		}
		return
	}

	var info *domain.ParcelInfo
	switch {
	case parcelID != "":
		info, err = lookup.ParcelInfoByID(ctx, parcelID)
	case parcelNumber != "" && municipality != "":
		info, err = lookup.FindParcelByNumber(ctx, parcelNumber, municipality, exact)
	default:
		fmt.Fprintln(os.Stderr, "Usage: katastar -parcel NUMBER -municipality NAME_OR_CODE")
		fmt.Fprintln(os.Stderr, "       katastar -id PARCEL_ID")
		fmt.Fprintln(os.Stderr, "       katastar -search-ko NAME")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}

	if mapOnly {
		fmt.Println(lookup.MapURL(info.ParcelID))
		return
	}
	if asJSON {
		printJSON(info)
		return
	}
	printParcel(info, lookup.MapURL(info.ParcelID), showOwners)
}

func searchMunicipalities(ctx context.Context, lookup *services.Lookup, term string, asJSON bool) error {
	rows, err := lookup.Municipalities(ctx, term, "", "")
	if err != nil {
		return err
	}
	if asJSON {
		printJSON(rows)
		return nil
	}
	if len(rows) == 0 {
		fmt.Printf("No municipalities match %q\n", term)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tMUNICIPALITY_ID\tOFFICE_ID")
	for i := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", rows[i].Code(), rows[i].Name(), rows[i].MunicipalityID, rows[i].InstitutionID)
	}
	return w.Flush()
}

func printParcel(info *domain.ParcelInfo, mapURL string, showOwners bool) {
	fmt.Printf("Parcel %s (ID %d)\n\n", info.ParcelNumber, info.ParcelID)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Municipality:\t%s (%s)\n", info.CadMunicipalityName, info.CadMunicipalityRegNum)
	fmt.Fprintf(w, "Area:\t%d m2\n", info.AreaM2())
	if info.Address != "" {
		fmt.Fprintf(w, "Address:\t%s\n", info.Address)
	}
	landUse := info.LandUseSummary()
	names := make([]string, 0, len(landUse))
	for name := range landUse {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "Land use:\t%s (%d m2)\n", name, landUse[name])
	}
	fmt.Fprintf(w, "Building right:\t%v\n", info.HasBuildingRight)
	fmt.Fprintf(w, "Possessors:\t%d\n", info.TotalOwners())
	if info.LRUnit != nil {
		fmt.Fprintf(w, "LR unit:\t%s (main book %d)\n", info.LRUnit.LRUnitNumber, info.LRUnit.MainBookID)
	} else {
		fmt.Fprintf(w, "LR unit:\tnone\n")
	}
	fmt.Fprintf(w, "Map:\t%s\n", mapURL)
	w.Flush()

	if !showOwners {
		return
	}
	for i := range info.PossessionSheets {
		sheet := &info.PossessionSheets[i]
		fmt.Printf("\nPossession sheet %s\n", sheet.PossessionSheetNumber)
		for j := range sheet.Possessors {
			p := &sheet.Possessors[j]
			line := "  " + p.Name
			if frac, ok := p.OwnershipFraction(); ok {
				line += "  " + frac.String()
			} else if p.Ownership != "" {
				line += "  " + p.Ownership
			}
			if p.Address != "" {
				line += "  (" + p.Address + ")"
			}
			fmt.Println(line)
		}
		if total, ok := sheet.TotalOwnership(); ok {
			fmt.Printf("  total specified ownership: %.4f\n", total)
		}
	}
}

func printJSON(v any) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode JSON: %v", err)
	}
	fmt.Println(string(pretty))
}
