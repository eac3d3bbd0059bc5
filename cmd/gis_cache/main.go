package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/katastar-hr/katastar/internal/adapters/gis"
	"github.com/katastar-hr/katastar/internal/app/pipeline"
	"github.com/katastar-hr/katastar/internal/config"
)

func main() {
	var (
		statusCode    string
		warmList      string
		workers       int
		invalidate    string
		invalidateAll bool
	)

	flag.StringVar(&statusCode, "status", "", "show the cache state of one municipality code")
	flag.StringVar(&warmList, "warm", "", "download archives for codes, e.g. \"334979,301234\"")
	flag.IntVar(&workers, "workers", 0, "parallel downloads for -warm (default from BATCH_WARM_WORKERS)")
	flag.StringVar(&invalidate, "invalidate", "", "drop the cached archive of one municipality code")
	flag.BoolVar(&invalidateAll, "invalidate-all", false, "drop every cached archive")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if workers <= 0 {
		workers = cfg.BatchWarmWorkers
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

	cache := gis.NewCache(cfg.CacheDir, gis.NewAtomDownloader(cfg))

	switch {
	case statusCode != "":
		if err := printStatus(ctx, cache, statusCode); err != nil {
			log.Fatalf("Status failed: %v", err)
		}
	case warmList != "":
		if failed := warm(ctx, cache, splitCodes(warmList), workers); failed > 0 {
			os.Exit(1)
		}
	case invalidate != "":
		if err := cache.Invalidate(invalidate); err != nil {
			log.Fatalf("Invalidate failed: %v", err)
		}
		fmt.Printf("Dropped cache for %s\n", invalidate)
	case invalidateAll:
		if err := cache.InvalidateAll(); err != nil {
			log.Fatalf("Invalidate failed: %v", err)
		}
		fmt.Println("Dropped all cached archives")
	default:
		if err := printOverview(cfg.CacheDir, cache); err != nil {
			log.Fatalf("Listing failed: %v", err)
		}
	}
}

func splitCodes(list string) []string {
	var codes []string
	for _, part := range strings.Split(list, ",") {
		if code := strings.TrimSpace(part); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// printOverview lists every cached municipality, the default action.
func printOverview(root string, cache *gis.Cache) error {
	codes, err := cache.List()
	if err != nil {
		return err
	}
	fmt.Printf("Cache directory: %s\n", root)
	if len(codes) == 0 {
		fmt.Println("No cached archives")
		return nil
	}
	fmt.Printf("Cached municipalities (%d):\n", len(codes))
	for _, code := range codes {
		fmt.Printf("  %s\n", code)
	}
	return nil
}

func printStatus(ctx context.Context, cache *gis.Cache, code string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Municipality:\t%s\n", code)
	if !cache.IsCached(code) {
		fmt.Fprintf(w, "Cached:\tno\n")
		return nil
	}
	path, err := cache.EnsureAvailable(ctx, code, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Cached:\tyes\n")
	fmt.Fprintf(w, "Boundary file:\t%s\n", path)
	if stat, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "Size:\t%d bytes\n", stat.Size())
		fmt.Fprintf(w, "Extracted:\t%s\n", stat.ModTime().Format(time.RFC3339))
	}

	count, err := pipeline.NewGMLParser().Count(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Boundaries:\t%d\n", count)
	return nil
}

// warm downloads the archives in parallel, bounded by the worker limit.
// Every code is attempted; failures are logged and counted, not fatal.
func warm(ctx context.Context, cache *gis.Cache, codes []string, workers int) int {
	if len(codes) == 0 {
		log.Fatal("No municipality codes given")
	}

	start := time.Now()
	errs := make([]error, len(codes))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, code := range codes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			path, err := cache.EnsureAvailable(ctx, code, true)
			if err != nil {
				errs[i] = err
				log.Printf("Warm %s failed: %v", code, err)
				return nil
			}
			log.Printf("Warmed %s: %s", code, path)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	fmt.Printf("Warmed %d of %d municipalities in %s\n",
		len(codes)-failed, len(codes), time.Since(start).Round(time.Millisecond))
	return failed
}
