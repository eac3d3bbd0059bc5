package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

func (s *Server) registerResources() {
	s.srv.AddResource(mcp.NewResource("katastar://offices", "Cadastral offices",
		mcp.WithResourceDescription("All regional cadastral offices with their IDs"),
		mcp.WithMIMEType("application/json"),
	), s.handleOfficesResource)

	s.srv.AddResourceTemplate(mcp.NewResourceTemplate("katastar://parcel/{parcelId}", "Parcel record",
		mcp.WithTemplateDescription("Full parcel record by registry ID, ownership sheets included"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.handleParcelResource)

	s.srv.AddResourceTemplate(mcp.NewResourceTemplate("katastar://municipality/{code}", "Cadastral municipality",
		mcp.WithTemplateDescription("Municipality registration entry by six-digit code"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.handleMunicipalityResource)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(b),
	}}, nil
}

func (s *Server) handleOfficesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	offices, err := s.lookup.Offices(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, offices)
}

func (s *Server) handleParcelResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(req.Params.URI, "katastar://parcel/")
	if id == "" || id == req.Params.URI {
		return nil, fmt.Errorf("invalid parcel resource URI: %s", req.Params.URI)
	}
	info, err := s.lookup.ParcelInfoByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(req.Params.URI, info)
}

func (s *Server) handleMunicipalityResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	code := strings.TrimPrefix(req.Params.URI, "katastar://municipality/")
	if code == "" || code == req.Params.URI {
		return nil, fmt.Errorf("invalid municipality resource URI: %s", req.Params.URI)
	}
	rows, err := s.lookup.Municipalities(ctx, code, "", "")
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].Code() == code {
			return jsonContents(req.Params.URI, rows[i])
		}
	}
	return nil, domain.NewError(domain.ErrMunicipalityNotFound, map[string]string{"search_term": code})
}
