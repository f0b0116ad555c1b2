package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pedritopng/recon-fidc/internal/models"
	"github.com/pedritopng/recon-fidc/internal/normalize"
	"github.com/pedritopng/recon-fidc/pkg/errors"
	"github.com/pedritopng/recon-fidc/pkg/logger"
)

// FallbackPolicy controls what happens to narration lines that no pattern
// in the cascade recognizes.
type FallbackPolicy int

const (
	// FallbackDefault defers to the layout's historical behavior.
	FallbackDefault FallbackPolicy = iota
	// FallbackSkip drops unrecognized narration lines.
	FallbackSkip
	// FallbackGeneric keeps them, using the whole narration as the document.
	FallbackGeneric
)

// ParseFallbackPolicy resolves a user-supplied fallback policy name.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return FallbackDefault, nil
	case "skip":
		return FallbackSkip, nil
	case "generic":
		return FallbackGeneric, nil
	default:
		return FallbackDefault, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"fallback-policy",
			s,
			fmt.Errorf("must be \"skip\" or \"generic\""),
		)
	}
}

// Counterparty sentinels for narration lines that carry no counterparty.
const (
	counterpartyPayment     = "N/A (Pagamento)"
	counterpartyRefund      = "N/A (Reembolso)"
	counterpartyRefundNoDoc = "N/A (Reembolso sem doc)"
	counterpartyDiscount    = "N/A (Desconto Bordero)"
	counterpartyGeneric     = "N/A (Lançamento Genérico)"
	counterpartyUnknown     = "N/A"
)

// narrationRule pairs a pattern with its extraction rule. The cascade is
// evaluated strictly in order and the first match wins: later entries are
// progressively looser fallbacks, so the order encodes precedence policy
// and must not be rearranged.
type narrationRule struct {
	pattern *regexp.Regexp
	extract func(match []string, line int) (document, counterparty string)
}

var narrationCascade = []narrationRule{
	{
		// "Recebimento cfe Dpl 1234/01 - ACME LTDA"
		pattern: regexp.MustCompile(`Recebimento cfe Dpl\s+(.*?)\s+-\s+(.*)`),
		extract: func(m []string, _ int) (string, string) {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		},
	},
	{
		// "Recebimento cfe Dpl 1234/01-ACME LTDA" (no spaces around the dash)
		pattern: regexp.MustCompile(`Recebimento cfe Dpl\s+([\w/-]+)-(.*)`),
		extract: func(m []string, _ int) (string, string) {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		},
	},
	{
		// "Recebimento cfe Dpl 1234/01 ACME LTDA" (counterparty starts with a letter)
		pattern: regexp.MustCompile(`Recebimento cfe Dpl\s+([\w/-]+(?:-[\w]+)?)\s+([A-Za-z].*)`),
		extract: func(m []string, _ int) (string, string) {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		},
	},
	{
		// "Pagamento cfe dpl. 1234/01-DIAMANTE ..."
		pattern: regexp.MustCompile(`Pagamento cfe dpl\.\s+(.*?)-DIAMANTE.*`),
		extract: func(m []string, _ int) (string, string) {
			return strings.TrimSpace(m[1]), counterpartyPayment
		},
	},
	{
		// "Reembolso Duplicata 1234/01"
		pattern: regexp.MustCompile(`Reembolso Duplicata\s+([\w/-]+)`),
		extract: func(m []string, _ int) (string, string) {
			return strings.TrimSpace(m[1]), counterpartyRefund
		},
	},
	{
		// Refund with no document at all: synthesize an id from the file
		// line so the entry still aggregates on its own.
		pattern: regexp.MustCompile(`^Reembolso Duplicata$`),
		extract: func(_ []string, line int) (string, string) {
			return fmt.Sprintf("REEMBOLSO_SEM_DOC_%d", line), counterpartyRefundNoDoc
		},
	},
	{
		pattern: regexp.MustCompile(`^DESCONTO DUPL CFE BORDERO$`),
		extract: func(_ []string, line int) (string, string) {
			return fmt.Sprintf("DESCONTO_BORDERO_%d", line), counterpartyDiscount
		},
	},
}

// noiseMarkers identify non-transactional rows (headers, balances, account
// banners) that are skipped before the cascade runs.
var noiseMarkers = []string{"Histórico", "Saldo Anterior", "Conta:"}

func isNoise(narration string) bool {
	for _, marker := range noiseMarkers {
		if strings.Contains(narration, marker) {
			return true
		}
	}
	return false
}

// extractNarration runs the cascade over one narration line. line is the
// 1-based file line, used for synthesized document ids. The returned ok is
// false when the line should be skipped under the given policy.
func extractNarration(narration string, line int, policy FallbackPolicy) (string, string, bool) {
	for _, rule := range narrationCascade {
		if m := rule.pattern.FindStringSubmatch(narration); m != nil {
			document, counterparty := rule.extract(m, line)
			return document, counterparty, true
		}
	}

	if policy != FallbackGeneric {
		return "", "", false
	}
	if narration == "" {
		return fmt.Sprintf("LANCAMENTO_VAZIO_LINHA_%d", line), counterpartyUnknown, true
	}
	return narration, counterpartyGeneric, true
}

// narrationLayout describes a headerless extrato export: which column holds
// the free-text narration and which holds the monetary amount.
type narrationLayout struct {
	name           string
	narrationIndex int
	amountIndex    int
}

var (
	internalExtratoLayout = narrationLayout{name: "internal_extrato", narrationIndex: 1, amountIndex: 2}
	diamanteExtratoLayout = narrationLayout{name: "diamante_extrato", narrationIndex: 0, amountIndex: 1}
)

// extratoRow is one extracted transaction before shaping.
type extratoRow struct {
	line         int
	document     string
	counterparty string
	amountRaw    string
}

// readExtrato runs the narration cascade over a headerless extrato file.
// Only rows with a recognized document and a strictly positive amount
// survive; everything else is dropped here, never later.
func readExtrato(path string, layout narrationLayout, policy FallbackPolicy, stats *ParseStats, log logger.Logger) ([]extratoRow, error) {
	rows, err := readRows(path, readConfig{delimiter: ';'}, log)
	if err != nil {
		return nil, err
	}

	var out []extratoRow
	for _, record := range rows {
		stats.TotalLines++

		narration := fieldAt(record.fields, layout.narrationIndex)
		if isNoise(narration) {
			continue
		}
		if narration == "" && policy != FallbackGeneric {
			continue
		}

		document, counterparty, ok := extractNarration(narration, record.line, policy)
		if !ok {
			continue
		}

		out = append(out, extratoRow{
			line:         record.line,
			document:     document,
			counterparty: counterparty,
			amountRaw:    fieldAt(record.fields, layout.amountIndex),
		})
	}

	return out, nil
}

// positiveAmount normalizes the raw amount cell and rejects anything that
// is not strictly positive.
func positiveAmount(row extratoRow, stats *ParseStats) (decimal.Decimal, bool) {
	amount, err := normalize.ParseAmount(row.amountRaw)
	if err != nil {
		stats.AddDropped(&ParseError{
			Line:    row.line,
			Field:   "amount",
			Value:   row.amountRaw,
			Message: "unparseable monetary value",
			Err:     err,
		})
		return decimal.Zero, false
	}
	if !amount.IsPositive() {
		stats.AddDropped(&ParseError{
			Line:    row.line,
			Field:   "amount",
			Value:   row.amountRaw,
			Message: "non-positive amount",
		})
		return decimal.Zero, false
	}
	return amount, true
}

// internalExtratoParser extracts internal transactions from the extrato
// export, narration column B and amount column C.
type internalExtratoParser struct {
	layout narrationLayout
	policy FallbackPolicy
	logger logger.Logger
}

func newInternalExtratoParser(layout narrationLayout, policy FallbackPolicy) *internalExtratoParser {
	return &internalExtratoParser{
		layout: layout,
		policy: policy,
		logger: logger.GetGlobalLogger().WithComponent(layout.name + "_parser"),
	}
}

func (p *internalExtratoParser) Parse(path string) ([]*models.InternalEntry, *ParseStats, error) {
	p.logger.WithField("file_path", path).Info("Parsing internal extrato")

	stats := NewParseStats()
	rows, err := readExtrato(path, p.layout, p.policy, stats, p.logger)
	if err != nil {
		return nil, stats, err
	}

	var entries []*models.InternalEntry
	for _, row := range rows {
		amount, ok := positiveAmount(row, stats)
		if !ok {
			continue
		}
		entries = append(entries, models.NewInternalEntry(row.document, row.counterparty, amount))
		stats.RecordsValid++
	}

	if len(entries) == 0 {
		p.logger.WithField("file_path", path).Error("Internal extrato produced no valid entries")
		return nil, stats, errors.ParseError(errors.CodeEmptyLedger, path, 0, "", nil)
	}

	p.logger.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"dropped":   stats.DroppedRows,
	}).Info("Internal extrato parsed")

	return entries, stats, nil
}

// fundExtratoParser extracts fund transactions from a semi-structured
// extrato export. The single observed amount populates both the original
// and paid fields of the entry.
type fundExtratoParser struct {
	layout narrationLayout
	policy FallbackPolicy
	logger logger.Logger
}

func newFundExtratoParser(layout narrationLayout, policy FallbackPolicy) *fundExtratoParser {
	return &fundExtratoParser{
		layout: layout,
		policy: policy,
		logger: logger.GetGlobalLogger().WithComponent(layout.name + "_parser"),
	}
}

func (p *fundExtratoParser) Parse(path string) ([]*models.FundEntry, *ParseStats, error) {
	p.logger.WithField("file_path", path).Info("Parsing fund extrato")

	stats := NewParseStats()
	rows, err := readExtrato(path, p.layout, p.policy, stats, p.logger)
	if err != nil {
		return nil, stats, err
	}

	var entries []*models.FundEntry
	for _, row := range rows {
		amount, ok := positiveAmount(row, stats)
		if !ok {
			continue
		}
		entries = append(entries, models.NewFundEntry(row.document, row.counterparty, amount, amount))
		stats.RecordsValid++
	}

	if len(entries) == 0 {
		p.logger.WithField("file_path", path).Error("Fund extrato produced no valid entries")
		return nil, stats, errors.ParseError(errors.CodeEmptyLedger, path, 0, "", nil)
	}

	p.logger.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"dropped":   stats.DroppedRows,
	}).Info("Fund extrato parsed")

	return entries, stats, nil
}
