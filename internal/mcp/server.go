package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/katastar-hr/katastar/internal/app/services"
	"github.com/katastar-hr/katastar/internal/config"
)

const instructions = `Croatian cadastre and land registry access. Identify parcels by
parcel number plus cadastral municipality (name or six-digit registration code),
or by bare registry ID. Start with resolve_municipality when the municipality is
given by name, use find_parcel for single parcels and batch_fetch_parcels for
several, then follow the lr_unit_number/main_book_id references into
get_lr_unit or batch_lr_units for ownership and encumbrances.`

// Server wires the registry lookups into MCP tools, resources and
// prompts over stdio. Nothing here writes to stdout except the protocol
// itself; logging stays on stderr.
type Server struct {
	cfg    *config.Config
	lookup *services.Lookup
	batch  *services.Batch
	srv    *server.MCPServer
}

func NewServer(cfg *config.Config, lookup *services.Lookup, batch *services.Batch) *Server {
	s := &Server{
		cfg:    cfg,
		lookup: lookup,
		batch:  batch,
		srv: server.NewMCPServer(
			cfg.MCPServerName,
			cfg.MCPServerVersion,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithPromptCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions(instructions),
		),
	}
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// ServeStdio blocks serving the MCP protocol until the client closes
// the stream.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.srv)
}
