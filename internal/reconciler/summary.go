package reconciler

import (
	"github.com/shopspring/decimal"

	"github.com/pedritopng/recon-fidc/internal/models"
)

// Summary holds the run totals and the arithmetic cross-check that closes
// every reconciliation: the real difference between the two ledgers must
// equal the difference reconstructed from the per-document discrepancies.
type Summary struct {
	InternalDocuments int             `json:"internal_documents"`
	InternalTotal     decimal.Decimal `json:"internal_total"`

	FundDocuments     int             `json:"fund_documents"`
	FundOriginalTotal decimal.Decimal `json:"fund_original_total"`
	FundPaidTotal     decimal.Decimal `json:"fund_paid_total"`
	FundInterestTotal decimal.Decimal `json:"fund_interest_total"`

	MatchedCount       int             `json:"matched_count"`
	MaterialCount      int             `json:"material_count"`
	NetDifferenceTotal decimal.Decimal `json:"net_difference_total"`

	InternalOnlyCount int             `json:"internal_only_count"`
	InternalOnlyTotal decimal.Decimal `json:"internal_only_total"`

	FundOnlyCount     int             `json:"fund_only_count"`
	FundOnlyPaidTotal decimal.Decimal `json:"fund_only_paid_total"`

	// RealDifference is the fund's paid total minus the internal total.
	RealDifference decimal.Decimal `json:"real_difference"`
	// CalculatedDifference reconstructs RealDifference from the rows:
	// matched net differences, minus internal-only amounts, plus
	// fund-only paid amounts.
	CalculatedDifference decimal.Decimal `json:"calculated_difference"`

	Status models.ValidationStatus `json:"status"`

	// Tolerance is the materiality threshold this summary was built with.
	Tolerance decimal.Decimal `json:"tolerance"`
}

// BuildSummary computes the totals and the cross-validation verdict from
// the aggregates and joined rows.
func BuildSummary(internal []*models.InternalAggregate, fund []*models.FundAggregate, rows []*models.ComparisonRow, tolerance decimal.Decimal) *Summary {
	s := &Summary{
		InternalDocuments: len(internal),
		FundDocuments:     len(fund),
		Tolerance:         tolerance,
	}

	for _, agg := range internal {
		s.InternalTotal = s.InternalTotal.Add(agg.Amount)
	}
	for _, agg := range fund {
		s.FundOriginalTotal = s.FundOriginalTotal.Add(agg.OriginalAmount)
		s.FundPaidTotal = s.FundPaidTotal.Add(agg.PaidAmount)
	}
	s.FundInterestTotal = s.FundPaidTotal.Sub(s.FundOriginalTotal)

	for _, row := range rows {
		switch row.Membership {
		case models.MembershipMatched:
			s.MatchedCount++
			s.NetDifferenceTotal = s.NetDifferenceTotal.Add(row.NetDifference)
			if row.IsMaterial(tolerance) {
				s.MaterialCount++
			}
		case models.MembershipInternalOnly:
			s.InternalOnlyCount++
			s.InternalOnlyTotal = s.InternalOnlyTotal.Add(row.Internal.Amount)
		case models.MembershipFundOnly:
			s.FundOnlyCount++
			s.FundOnlyPaidTotal = s.FundOnlyPaidTotal.Add(row.Fund.PaidAmount)
		}
	}

	s.RealDifference = s.FundPaidTotal.Sub(s.InternalTotal)
	s.CalculatedDifference = s.NetDifferenceTotal.
		Sub(s.InternalOnlyTotal).
		Add(s.FundOnlyPaidTotal)

	if s.RealDifference.Sub(s.CalculatedDifference).Abs().LessThan(tolerance) {
		s.Status = models.ValidationSuccess
	} else {
		s.Status = models.ValidationFailure
	}

	return s
}

// Metrics lays the summary out as the ordered label/value list the report
// renders, blank rows included.
func (s *Summary) Metrics() []models.SummaryMetric {
	return []models.SummaryMetric{
		models.CountMetric("Documentos Únicos (Nosso Relatório)", s.InternalDocuments),
		models.CurrencyMetric("Valor Total (Nosso)", s.InternalTotal),
		models.BlankMetric(),
		models.CountMetric("Documentos Únicos (Rel. Fundo)", s.FundDocuments),
		models.CurrencyMetric("Valor Original (Fundo)", s.FundOriginalTotal),
		models.CurrencyMetric("Valor Pago (Fundo)", s.FundPaidTotal),
		models.CurrencyMetric("Total Juros/Taxas (Fundo)", s.FundInterestTotal),
		models.BlankMetric(),
		models.CountMetric("Documentos Correspondentes", s.MatchedCount),
		models.CountMetric("Documentos com Diferença de Valor", s.MaterialCount),
		models.CurrencyMetric("Valor Total das Diferenças Líquidas", s.NetDifferenceTotal),
		models.BlankMetric(),
		models.CountMetric("Documentos Apenas no Nosso Relatório", s.InternalOnlyCount),
		models.CurrencyMetric("Valor Total (Apenas Nosso)", s.InternalOnlyTotal),
		models.BlankMetric(),
		models.CountMetric("Documentos Apenas no Rel. Fundo", s.FundOnlyCount),
		models.CurrencyMetric("Valor Total (Apenas Fundo)", s.FundOnlyPaidTotal),
		models.BlankMetric(),
		models.StatusMetric("VALIDAÇÃO FINAL", s.Status),
		models.CurrencyMetric("Diferença Real (Total Pago Fundo - Total Nosso)", s.RealDifference),
		models.CurrencyMetric("Diferença Calculada (Soma das Discrepâncias)", s.CalculatedDifference),
	}
}
