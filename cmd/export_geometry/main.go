package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/katastar-hr/katastar/internal/adapters/exporters"
	"github.com/katastar-hr/katastar/internal/adapters/gis"
	"github.com/katastar-hr/katastar/internal/adapters/registry"
	"github.com/katastar-hr/katastar/internal/app/services"
	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/core/domain"
	"github.com/katastar-hr/katastar/internal/core/ports"
)

func main() {
	var (
		municipality string
		parcelNumber string
		all          bool
		formatName   string
		outputPath   string
		countOnly    bool
	)

	flag.StringVar(&municipality, "municipality", "", "municipality name or registration code")
	flag.StringVar(&parcelNumber, "parcel", "", "export a single parcel boundary")
	flag.BoolVar(&all, "all", false, "export every boundary of the municipality")
	flag.StringVar(&formatName, "format", "geojson", "output format (geojson, wkt, csv)")
	flag.StringVar(&outputPath, "o", "", "output file (default stdout)")
	flag.BoolVar(&countOnly, "count", false, "print the number of boundaries and exit")
	flag.Parse()

	if municipality == "" || (!countOnly && parcelNumber == "" && !all) {
		fmt.Fprintln(os.Stderr, "Usage: export_geometry -municipality NAME_OR_CODE -parcel NUMBER [-format wkt] [-o out]")
		fmt.Fprintln(os.Stderr, "       export_geometry -municipality NAME_OR_CODE -all -format geojson -o boundaries.geojson")
		fmt.Fprintln(os.Stderr, "       export_geometry -municipality NAME_OR_CODE -count")
		flag.PrintDefaults()
		os.Exit(2)
	}

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

	if countOnly {
		count, err := lookup.CountBoundaries(ctx, municipality, true)
		if err != nil {
			log.Fatalf("Count failed: %v", err)
		}
		fmt.Println(count)
		return
	}

	var geometries []domain.ParcelGeometry
	if all {
		geometries, err = lookup.MunicipalityGeometries(ctx, municipality, true)
	} else {
		var geom *domain.ParcelGeometry
		geom, err = lookup.ParcelGeometry(ctx, parcelNumber, municipality, true)
		if geom != nil {
			geometries = []domain.ParcelGeometry{*geom}
		}
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	if err := writeGeometries(geometries, formatName, outputPath); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if outputPath != "" {
		log.Printf("Exported %d boundaries to %s", len(geometries), outputPath)
	}
}

func writeGeometries(geometries []domain.ParcelGeometry, formatName, outputPath string) error {
	format, err := exporters.ParseFormat(formatName)
	if err != nil {
		return err
	}

	var writer ports.GeometryWriter
	if outputPath == "" {
		writer, err = exporters.NewWriter(os.Stdout, format)
	} else {
		writer, err = exporters.NewFileWriter(outputPath, format)
	}
	if err != nil {
		return err
	}

	if err := writer.WriteHeader(); err != nil {
		writer.Close()
		return err
	}
	for i := range geometries {
		if err := writer.WriteGeometry(&geometries[i]); err != nil {
			writer.Close()
			return err
		}
	}
	return writer.Close()
}
