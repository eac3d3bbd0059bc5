package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/katastar-hr/katastar/internal/core/domain"
)

// BatchItem is one parcel request in a batch: either a number plus
// municipality, or a bare registry ID.
type BatchItem struct {
	ParcelNumber string
	ParcelID     string
	Municipality string
}

// IsDirectID reports whether the item carries a registry ID. IDs are
// long digit runs; parcel numbers are short and usually contain "/".
func (i BatchItem) IsDirectID() bool {
	return i.ParcelID != ""
}

func (i BatchItem) String() string {
	if i.IsDirectID() {
		return "id " + i.ParcelID
	}
	return fmt.Sprintf("%s (%s)", i.ParcelNumber, i.Municipality)
}

// BatchResult pairs an item with its outcome. Exactly one of Info and
// Err is set.
type BatchResult struct {
	Item BatchItem
	Info *domain.ParcelInfo
	Err  error
}

func (r BatchResult) Succeeded() bool { return r.Err == nil }

// BatchSummary aggregates one run. RunID tags log lines and output
// files so concurrent runs stay distinguishable.
type BatchSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Results   []BatchResult
}

// SuccessRate returns the share of succeeded items in percent.
func (s *BatchSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// ProgressFunc is called after each item with the tally so far.
type ProgressFunc func(done, total int, current string)

// BatchOptions tune a run. With ContinueOnError every item is attempted
// and failures land in the summary; without it the first failure stops
// the run and is returned as-is, alongside the partial summary.
type BatchOptions struct {
	ContinueOnError bool
	Historical      bool
	Progress        ProgressFunc
}

// Batch executes sequential multi-item fetches on top of Lookup. The
// upstream rate limit makes per-item concurrency pointless, so items go
// one at a time and the limiter inside the client paces them.
type Batch struct {
	lookup *Lookup
}

func NewBatch(lookup *Lookup) *Batch {
	return &Batch{lookup: lookup}
}

type resolvedMunicipality struct {
	code string
	err  error
}

// FetchParcels runs the items in order. Municipality resolution is
// memoized per run, including failures, so a batch of one municipality
// costs a single search.
func (b *Batch) FetchParcels(ctx context.Context, items []BatchItem, opts BatchOptions) (*BatchSummary, error) {
	summary := &BatchSummary{
		RunID:   uuid.New().String(),
		Total:   len(items),
		Results: make([]BatchResult, 0, len(items)),
	}
	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	memo := make(map[string]resolvedMunicipality)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		info, err := b.fetchOne(ctx, item, memo)
		summary.Results = append(summary.Results, BatchResult{Item: item, Info: info, Err: err})
		if err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
		if opts.Progress != nil {
			opts.Progress(len(summary.Results), summary.Total, item.String())
		}
		if err != nil && !opts.ContinueOnError {
			return summary, err
		}
	}
	return summary, nil
}

func (b *Batch) fetchOne(ctx context.Context, item BatchItem, memo map[string]resolvedMunicipality) (*domain.ParcelInfo, error) {
	if item.IsDirectID() {
		return b.lookup.ParcelInfoByID(ctx, item.ParcelID)
	}

	res, seen := memo[item.Municipality]
	if !seen {
		res.code, res.err = b.lookup.ResolveMunicipalityLenient(ctx, item.Municipality)
		memo[item.Municipality] = res
	}
	if res.err != nil {
		return nil, res.err
	}
	return b.lookup.FindParcelByNumber(ctx, item.ParcelNumber, res.code, true)
}

// LRUnitItem is one land-registry unit request in a batch.
type LRUnitItem struct {
	UnitNumber string
	MainBookID int
}

func (i LRUnitItem) String() string {
	return fmt.Sprintf("%s (book %d)", i.UnitNumber, i.MainBookID)
}

// LRUnitResult pairs an item with its outcome.
type LRUnitResult struct {
	Item LRUnitItem
	Unit *domain.LandRegistryUnitDetailed
	Err  error
}

func (r LRUnitResult) Succeeded() bool { return r.Err == nil }

// LRUnitBatchSummary aggregates a unit run. CondominiumsFound counts
// fetched units held in condominium ownership, the case unit-by-unit
// review is usually after.
type LRUnitBatchSummary struct {
	RunID             string
	Total             int
	Succeeded         int
	Failed            int
	CondominiumsFound int
	Duration          time.Duration
	Results           []LRUnitResult
}

func (s *LRUnitBatchSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// DedupLRUnitItems drops repeated unit number and main book pairs,
// keeping first occurrences in order. Batch-fetch outputs routinely
// list the same unit once per parcel it covers.
func DedupLRUnitItems(items []LRUnitItem) []LRUnitItem {
	seen := make(map[LRUnitItem]bool, len(items))
	out := make([]LRUnitItem, 0, len(items))
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}

// FetchLRUnits runs the unit items in order, with the same stop and
// continue semantics as FetchParcels.
func (b *Batch) FetchLRUnits(ctx context.Context, items []LRUnitItem, opts BatchOptions) (*LRUnitBatchSummary, error) {
	summary := &LRUnitBatchSummary{
		RunID:   uuid.New().String(),
		Total:   len(items),
		Results: make([]LRUnitResult, 0, len(items)),
	}
	start := time.Now()
	defer func() { summary.Duration = time.Since(start) }()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		unit, err := b.lookup.LRUnitByNumber(ctx, item.UnitNumber, item.MainBookID, opts.Historical)
		summary.Results = append(summary.Results, LRUnitResult{Item: item, Unit: unit, Err: err})
		if err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
			if unit.IsCondominium() {
				summary.CondominiumsFound++
			}
		}
		if opts.Progress != nil {
			opts.Progress(len(summary.Results), summary.Total, item.String())
		}
		if err != nil && !opts.ContinueOnError {
			return summary, err
		}
	}
	return summary, nil
}
