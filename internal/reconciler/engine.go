// Package reconciler joins the two parsed ledgers on canonical document
// keys and derives the per-document differences and the run summary.
package reconciler

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pedritopng/recon-fidc/internal/models"
	"github.com/pedritopng/recon-fidc/internal/normalize"
	"github.com/pedritopng/recon-fidc/pkg/logger"
)

// DefaultTolerance is the absolute amount below which a net difference is
// treated as rounding noise rather than a real discrepancy.
var DefaultTolerance = decimal.RequireFromString("0.01")

// Engine performs the pure reconciliation steps: canonicalization,
// aggregation, the full outer join and difference derivation.
type Engine struct {
	tolerance decimal.Decimal
	logger    logger.Logger
}

// NewEngine creates an engine with the given materiality tolerance. A
// non-positive tolerance falls back to DefaultTolerance.
func NewEngine(tolerance decimal.Decimal) *Engine {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Engine{
		tolerance: tolerance,
		logger:    logger.GetGlobalLogger().WithComponent("reconciler"),
	}
}

// Tolerance returns the materiality tolerance in effect.
func (e *Engine) Tolerance() decimal.Decimal {
	return e.tolerance
}

// Result is the complete outcome of one reconciliation run.
type Result struct {
	InternalAggregates []*models.InternalAggregate
	FundAggregates     []*models.FundAggregate
	Rows               []*models.ComparisonRow
	Summary            *Summary
}

// MatchedRows returns the comparison rows present on both ledgers.
func (r *Result) MatchedRows() []*models.ComparisonRow {
	return r.rowsWith(models.MembershipMatched)
}

// InternalOnlyRows returns the rows seen only on the internal ledger.
func (r *Result) InternalOnlyRows() []*models.ComparisonRow {
	return r.rowsWith(models.MembershipInternalOnly)
}

// FundOnlyRows returns the rows seen only on the fund ledger.
func (r *Result) FundOnlyRows() []*models.ComparisonRow {
	return r.rowsWith(models.MembershipFundOnly)
}

func (r *Result) rowsWith(m models.Membership) []*models.ComparisonRow {
	var out []*models.ComparisonRow
	for _, row := range r.Rows {
		if row.Membership == m {
			out = append(out, row)
		}
	}
	return out
}

// AggregateInternal groups internal entries by canonical document key,
// summing amounts. The counterparty of the first entry seen for a key
// wins. Output is sorted by key.
func (e *Engine) AggregateInternal(entries []*models.InternalEntry) []*models.InternalAggregate {
	byKey := make(map[string]*models.InternalAggregate)
	for _, entry := range entries {
		key := normalize.CanonicalDocument(entry.Document)
		agg, ok := byKey[key]
		if !ok {
			agg = &models.InternalAggregate{
				Document:     key,
				Counterparty: entry.Counterparty,
			}
			byKey[key] = agg
		}
		agg.Amount = agg.Amount.Add(entry.Amount)
	}

	out := make([]*models.InternalAggregate, 0, len(byKey))
	for _, agg := range byKey {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Document < out[j].Document })

	e.logger.WithFields(logger.Fields{
		"entries":   len(entries),
		"documents": len(out),
	}).Debug("Aggregated internal ledger")

	return out
}

// AggregateFund groups fund entries by canonical document key, summing
// both the original and paid amounts.
func (e *Engine) AggregateFund(entries []*models.FundEntry) []*models.FundAggregate {
	byKey := make(map[string]*models.FundAggregate)
	for _, entry := range entries {
		key := normalize.CanonicalDocument(entry.Document)
		agg, ok := byKey[key]
		if !ok {
			agg = &models.FundAggregate{
				Document:     key,
				Counterparty: entry.Counterparty,
			}
			byKey[key] = agg
		}
		agg.OriginalAmount = agg.OriginalAmount.Add(entry.OriginalAmount)
		agg.PaidAmount = agg.PaidAmount.Add(entry.PaidAmount)
	}

	out := make([]*models.FundAggregate, 0, len(byKey))
	for _, agg := range byKey {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Document < out[j].Document })

	e.logger.WithFields(logger.Fields{
		"entries":   len(entries),
		"documents": len(out),
	}).Debug("Aggregated fund ledger")

	return out
}

// Join performs a full outer join of the two aggregate sets on the
// canonical document key and tags each row's membership. Internal-side
// rows come first in key order, then the fund-only rows.
func (e *Engine) Join(internal []*models.InternalAggregate, fund []*models.FundAggregate) []*models.ComparisonRow {
	fundByKey := make(map[string]*models.FundAggregate, len(fund))
	for _, agg := range fund {
		fundByKey[agg.Document] = agg
	}

	rows := make([]*models.ComparisonRow, 0, len(internal)+len(fund))
	matched := make(map[string]bool, len(internal))

	for _, left := range internal {
		row := &models.ComparisonRow{
			Document: left.Document,
			Internal: left,
		}
		if right, ok := fundByKey[left.Document]; ok {
			row.Membership = models.MembershipMatched
			row.Fund = right
			row.NetDifference = right.PaidAmount.Sub(left.Amount)
			matched[left.Document] = true
		} else {
			row.Membership = models.MembershipInternalOnly
		}
		rows = append(rows, row)
	}

	for _, right := range fund {
		if matched[right.Document] {
			continue
		}
		rows = append(rows, &models.ComparisonRow{
			Document:   right.Document,
			Membership: models.MembershipFundOnly,
			Fund:       right,
		})
	}

	return rows
}

// Reconcile runs the full pipeline over already-parsed entries and
// returns the joined rows plus the cross-validated summary.
func (e *Engine) Reconcile(internal []*models.InternalEntry, fund []*models.FundEntry) *Result {
	internalAggs := e.AggregateInternal(internal)
	fundAggs := e.AggregateFund(fund)
	rows := e.Join(internalAggs, fundAggs)
	summary := BuildSummary(internalAggs, fundAggs, rows, e.tolerance)

	e.logger.WithFields(logger.Fields{
		"matched":       summary.MatchedCount,
		"material":      summary.MaterialCount,
		"internal_only": summary.InternalOnlyCount,
		"fund_only":     summary.FundOnlyCount,
		"validation":    string(summary.Status),
	}).Info("Reconciliation complete")

	return &Result{
		InternalAggregates: internalAggs,
		FundAggregates:     fundAggs,
		Rows:               rows,
		Summary:            summary,
	}
}
