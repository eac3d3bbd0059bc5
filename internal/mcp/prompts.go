package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.srv.AddPrompt(mcp.NewPrompt("analyze_parcel",
		mcp.WithPromptDescription("Full cadastral analysis of one parcel: record, ownership, land registry unit and boundary"),
		mcp.WithArgument("parcel_number",
			mcp.ArgumentDescription("Cadastral parcel number, e.g. \"103/2\""),
			mcp.RequiredArgument()),
		mcp.WithArgument("municipality",
			mcp.ArgumentDescription("Municipality name or registration code"),
			mcp.RequiredArgument()),
	), s.handleAnalyzeParcelPrompt)

	s.srv.AddPrompt(mcp.NewPrompt("ownership_report",
		mcp.WithPromptDescription("Ownership and encumbrance report for one land registry unit"),
		mcp.WithArgument("lr_unit_number",
			mcp.ArgumentDescription("Land registry unit number, e.g. \"769\""),
			mcp.RequiredArgument()),
		mcp.WithArgument("main_book_id",
			mcp.ArgumentDescription("Main book ID, e.g. 21277"),
			mcp.RequiredArgument()),
	), s.handleOwnershipReportPrompt)
}

func (s *Server) handleAnalyzeParcelPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	number := req.Params.Arguments["parcel_number"]
	municipality := req.Params.Arguments["municipality"]
	if number == "" || municipality == "" {
		return nil, errors.New("parcel_number and municipality are required")
	}

	text := fmt.Sprintf(`Analyze cadastral parcel %s in municipality %s.

1. Call find_parcel to fetch the record. Report the area, address, land use
   distribution and whether building is permitted.
2. Report the possessors and their ownership fractions. A missing fraction
   means unspecified, not zero; say so explicitly when it happens.
3. If the record references a land registry unit, call get_lr_unit_from_parcel
   and summarize Sheet B (who owns what share) and Sheet C (encumbrances such
   as mortgages or easements). Note when the unit is a condominium.
4. If boundary data matters for the question, call get_parcel_geometry with
   format "summary" and report the graphical area and extent.

Present the findings as a short structured report and flag any discrepancy
between the cadastral area and the graphical area.`, number, municipality)

	return mcp.NewGetPromptResult(
		"Cadastral parcel analysis",
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
	), nil
}

func (s *Server) handleOwnershipReportPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	number := req.Params.Arguments["lr_unit_number"]
	bookID := req.Params.Arguments["main_book_id"]
	if number == "" || bookID == "" {
		return nil, errors.New("lr_unit_number and main_book_id are required")
	}

	text := fmt.Sprintf(`Produce an ownership report for land registry unit %s in main book %s.

Call get_lr_unit with lr_unit_number=%s and main_book_id=%s, then report:

- Sheet A: the parcels in the unit and their total area.
- Sheet B: every current owner with their share. Shares are exact fractions;
  verify whether the active shares account for the whole and say so. Skip
  inactive shares but mention that historical entries exist when they do.
- Sheet C: encumbrances in plain language (what kind, in whose favor).
- For condominiums, list the individual units by condominium number.

Close with a one-paragraph plain-language summary a buyer would understand.`,
		number, bookID, number, bookID)

	return mcp.NewGetPromptResult(
		"Land registry ownership report",
		[]mcp.PromptMessage{mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text))},
	), nil
}
