package main

import (
	"flag"
	"log"
	"os"

	"github.com/katastar-hr/katastar/internal/adapters/gis"
	"github.com/katastar-hr/katastar/internal/adapters/registry"
	"github.com/katastar-hr/katastar/internal/app/services"
	"github.com/katastar-hr/katastar/internal/config"
	"github.com/katastar-hr/katastar/internal/mcp"
)

func main() {
	var (
		name    string
		version string
	)

	flag.StringVar(&name, "name", "", "override the advertised server name")
	flag.StringVar(&version, "version", "", "override the advertised server version")
	flag.Parse()

	// stdout is the protocol stream; everything else goes to stderr.
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if name != "" {
		cfg.MCPServerName = name
	}
	if version != "" {
		cfg.MCPServerVersion = version
	}

	client := registry.NewClient(cfg)
	cache := gis.NewCache(cfg.CacheDir, gis.NewAtomDownloader(cfg))
	lookup := services.NewLookup(client, cache)

	srv := mcp.NewServer(cfg, lookup, services.NewBatch(lookup))
	log.Printf("Serving %s %s on stdio", cfg.MCPServerName, cfg.MCPServerVersion)
	if err := srv.ServeStdio(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
