// Package models defines the records flowing through the reconciliation
// pipeline: raw ledger entries, per-document aggregates, joined comparison
// rows and the ordered summary metric list.
package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InternalEntry is a transaction extracted from the internal ledger.
// Amount is the value received for the document on this ledger line.
type InternalEntry struct {
	Document     string          `json:"document"`
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewInternalEntry creates a new InternalEntry instance.
func NewInternalEntry(document, counterparty string, amount decimal.Decimal) *InternalEntry {
	return &InternalEntry{
		Document:     document,
		Counterparty: counterparty,
		Amount:       amount,
	}
}

// Validate performs basic validation on the InternalEntry.
func (e *InternalEntry) Validate() error {
	if strings.TrimSpace(e.Document) == "" {
		return fmt.Errorf("document cannot be empty")
	}
	if !e.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", e.Amount)
	}
	return nil
}

// String returns a string representation of the InternalEntry.
func (e *InternalEntry) String() string {
	return fmt.Sprintf("InternalEntry{Document: %s, Counterparty: %s, Amount: %s}",
		e.Document, e.Counterparty, e.Amount)
}

// FundEntry is a transaction extracted from a fund-administrator ledger.
// Structured fund reports carry both the original face value and the amount
// actually paid; semi-structured reports observe a single amount, which
// populates both fields.
type FundEntry struct {
	Document       string          `json:"document"`
	Counterparty   string          `json:"counterparty"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
}

// NewFundEntry creates a new FundEntry instance.
func NewFundEntry(document, counterparty string, original, paid decimal.Decimal) *FundEntry {
	return &FundEntry{
		Document:       document,
		Counterparty:   counterparty,
		OriginalAmount: original,
		PaidAmount:     paid,
	}
}

// Validate performs basic validation on the FundEntry.
func (e *FundEntry) Validate() error {
	if strings.TrimSpace(e.Document) == "" {
		return fmt.Errorf("document cannot be empty")
	}
	return nil
}

// String returns a string representation of the FundEntry.
func (e *FundEntry) String() string {
	return fmt.Sprintf("FundEntry{Document: %s, Counterparty: %s, Original: %s, Paid: %s}",
		e.Document, e.Counterparty, e.OriginalAmount, e.PaidAmount)
}

// InternalAggregate groups all internal entries sharing a canonical
// document key. Counterparty is the name seen on the first entry for the
// key, in original row order.
type InternalAggregate struct {
	Document     string          `json:"document"` // canonical key
	Counterparty string          `json:"counterparty"`
	Amount       decimal.Decimal `json:"amount"`
}

// FundAggregate groups all fund entries sharing a canonical document key.
type FundAggregate struct {
	Document       string          `json:"document"` // canonical key
	Counterparty   string          `json:"counterparty"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
}

// InterestOrFees is the spread the fund collected on top of the face value.
func (a *FundAggregate) InterestOrFees() decimal.Decimal {
	return a.PaidAmount.Sub(a.OriginalAmount)
}

// Membership classifies a comparison row after the outer join.
type Membership string

const (
	// MembershipMatched means the document appears on both ledgers.
	MembershipMatched Membership = "MATCHED"
	// MembershipInternalOnly means only the internal ledger has it.
	MembershipInternalOnly Membership = "INTERNAL_ONLY"
	// MembershipFundOnly means only the fund ledger has it.
	MembershipFundOnly Membership = "FUND_ONLY"
)

// IsValid checks if the membership tag is one of the known values.
func (m Membership) IsValid() bool {
	switch m {
	case MembershipMatched, MembershipInternalOnly, MembershipFundOnly:
		return true
	default:
		return false
	}
}

// ComparisonRow is one row of the full outer join of the two aggregate
// sets. Internal and Fund are nil for the absent side. NetDifference is
// only meaningful for matched rows.
type ComparisonRow struct {
	Document   string             `json:"document"` // canonical key
	Membership Membership         `json:"membership"`
	Internal   *InternalAggregate `json:"internal,omitempty"`
	Fund       *FundAggregate     `json:"fund,omitempty"`

	// NetDifference = fund paid amount minus internal amount.
	NetDifference decimal.Decimal `json:"net_difference"`
}

// IsMaterial reports whether the row's net difference exceeds the given
// absolute tolerance. Only matched rows can be material.
func (r *ComparisonRow) IsMaterial(tolerance decimal.Decimal) bool {
	return r.Membership == MembershipMatched && r.NetDifference.Abs().GreaterThan(tolerance)
}

// ValidationStatus is the outcome of the summary's arithmetic cross-check.
type ValidationStatus string

const (
	ValidationSuccess ValidationStatus = "SUCESSO"
	ValidationFailure ValidationStatus = "FALHA"
)

// MetricKind tells the report assembler how to render a summary value.
type MetricKind int

const (
	// MetricBlank is a spacer row with no value.
	MetricBlank MetricKind = iota
	// MetricCount is an integer document count.
	MetricCount
	// MetricCurrency is a monetary amount.
	MetricCurrency
	// MetricStatus is the validation outcome.
	MetricStatus
)

// SummaryMetric is one (label, value) pair of the ordered summary list.
// Exactly one of Count, Amount or Status carries the value, selected by Kind.
type SummaryMetric struct {
	Label  string           `json:"label"`
	Kind   MetricKind       `json:"kind"`
	Count  int              `json:"count,omitempty"`
	Amount decimal.Decimal  `json:"amount,omitempty"`
	Status ValidationStatus `json:"status,omitempty"`
}

// CountMetric builds an integer summary metric.
func CountMetric(label string, count int) SummaryMetric {
	return SummaryMetric{Label: label, Kind: MetricCount, Count: count}
}

// CurrencyMetric builds a monetary summary metric.
func CurrencyMetric(label string, amount decimal.Decimal) SummaryMetric {
	return SummaryMetric{Label: label, Kind: MetricCurrency, Amount: amount}
}

// BlankMetric builds a spacer row.
func BlankMetric() SummaryMetric {
	return SummaryMetric{Kind: MetricBlank}
}

// StatusMetric builds the validation status row.
func StatusMetric(label string, status ValidationStatus) SummaryMetric {
	return SummaryMetric{Label: label, Kind: MetricStatus, Status: status}
}
