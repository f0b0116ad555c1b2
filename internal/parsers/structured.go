package parsers

import (
	"strings"

	"github.com/pedritopng/recon-fidc/internal/models"
	"github.com/pedritopng/recon-fidc/internal/normalize"
	"github.com/pedritopng/recon-fidc/pkg/errors"
	"github.com/pedritopng/recon-fidc/pkg/logger"
)

// structuredLayout describes a headered tabular ledger export.
type structuredLayout struct {
	name      string
	delimiter rune
	skipLines int

	documentColumn     string
	counterpartyColumn string
	originalColumn     string
	paidColumn         string

	// cleanDocument rewrites the raw document cell before trimming;
	// dropDocument discards summary rows by their raw document value.
	// Both are optional.
	cleanDocument func(string) string
	dropDocument  func(string) bool
}

var (
	internalLayout = structuredLayout{
		name:               "internal",
		delimiter:          ',',
		documentColumn:     "Documento",
		counterpartyColumn: "Sacado",
		originalColumn:     "Valor",
		paidColumn:         "Valor Pago",
	}

	diamanteLayout = structuredLayout{
		name:               "diamante",
		delimiter:          ',',
		documentColumn:     "Documento",
		counterpartyColumn: "Sacado",
		originalColumn:     "Valor",
		paidColumn:         "Valor Pago",
	}

	apogeLayout = structuredLayout{
		name:               "apoge",
		delimiter:          ';',
		skipLines:          1, // title line before the header
		documentColumn:     "Documento",
		counterpartyColumn: "Sacado",
		originalColumn:     "Valor Face",
		paidColumn:         "Valor Pago",
		cleanDocument: func(doc string) string {
			return strings.ReplaceAll(doc, "DUP - ", "")
		},
		dropDocument: func(doc string) bool {
			// APOGE uses document "0" / "0,00" on summary and total rows.
			return doc == "0" || doc == "0,00"
		},
	}

	gpaLayout = structuredLayout{
		name:               "gpa",
		delimiter:          ';',
		documentColumn:     "Título",
		counterpartyColumn: "Razão Social Sacado",
		originalColumn:     "Vlr Original",
		paidColumn:         "Total Recdo",
	}
)

func (l structuredLayout) requiredColumns() []string {
	return []string{l.documentColumn, l.counterpartyColumn, l.originalColumn, l.paidColumn}
}

// structuredRow is one normalized row of a structured ledger before it is
// shaped into an internal or fund entry.
type structuredRow struct {
	line         int
	document     string
	counterparty string
	originalRaw  string
	paidRaw      string
}

// readStructured reads a structured ledger and resolves its columns,
// applying the layout's document cleanup and summary-row filters.
func readStructured(path string, layout structuredLayout, stats *ParseStats, log logger.Logger) ([]structuredRow, error) {
	rows, err := readRows(path, readConfig{delimiter: layout.delimiter, skipLines: layout.skipLines}, log)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyLedger, path, 0, "", nil)
	}

	index, err := headerIndex(path, rows[0].fields, layout.requiredColumns())
	if err != nil {
		return nil, err
	}

	var out []structuredRow
	for _, record := range rows[1:] {
		stats.TotalLines++

		doc := fieldAt(record.fields, index[layout.documentColumn])
		if layout.dropDocument != nil && layout.dropDocument(doc) {
			continue
		}
		if layout.cleanDocument != nil {
			doc = strings.TrimSpace(layout.cleanDocument(doc))
		}
		if doc == "" {
			continue
		}

		out = append(out, structuredRow{
			line:         record.line,
			document:     doc,
			counterparty: fieldAt(record.fields, index[layout.counterpartyColumn]),
			originalRaw:  fieldAt(record.fields, index[layout.originalColumn]),
			paidRaw:      fieldAt(record.fields, index[layout.paidColumn]),
		})
	}

	return out, nil
}

// structuredFundParser parses headered fund ledgers (Diamante, APOGE, GPA).
type structuredFundParser struct {
	layout structuredLayout
	logger logger.Logger
}

func newStructuredFundParser(layout structuredLayout) *structuredFundParser {
	return &structuredFundParser{
		layout: layout,
		logger: logger.GetGlobalLogger().WithComponent(layout.name + "_parser"),
	}
}

func (p *structuredFundParser) Parse(path string) ([]*models.FundEntry, *ParseStats, error) {
	p.logger.WithField("file_path", path).Info("Parsing fund ledger")

	stats := NewParseStats()
	rows, err := readStructured(path, p.layout, stats, p.logger)
	if err != nil {
		return nil, stats, err
	}

	var entries []*models.FundEntry
	for _, row := range rows {
		original, origErr := normalize.ParseAmount(row.originalRaw)
		paid, paidErr := normalize.ParseAmount(row.paidRaw)
		if origErr != nil || paidErr != nil {
			reason := origErr
			value := row.originalRaw
			if reason == nil {
				reason = paidErr
				value = row.paidRaw
			}
			stats.AddDropped(&ParseError{
				Line:    row.line,
				Field:   "amount",
				Value:   value,
				Message: "unparseable monetary value",
				Err:     reason,
			})
			continue
		}

		entry := models.NewFundEntry(row.document, row.counterparty, original, paid)
		if err := entry.Validate(); err != nil {
			stats.AddDropped(&ParseError{
				Line:    row.line,
				Field:   "document",
				Value:   row.document,
				Message: "invalid fund entry",
				Err:     err,
			})
			continue
		}

		entries = append(entries, entry)
		stats.RecordsValid++
	}

	if len(entries) == 0 {
		p.logger.WithField("file_path", path).Error("Fund ledger produced no valid entries")
		return nil, stats, errors.ParseError(errors.CodeEmptyLedger, path, 0, "", nil)
	}

	p.logger.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"dropped":   stats.DroppedRows,
	}).Info("Fund ledger parsed")

	if stats.DroppedRows > 0 {
		p.logger.WithField("samples", stats.SampleErrors(3)).Warn("Dropped rows during fund ledger parsing")
	}

	return entries, stats, nil
}

// structuredInternalParser parses the headered internal ledger export.
// The received amount ("Valor Pago") is what reconciles against the fund's
// payments, so that column feeds the entry amount.
type structuredInternalParser struct {
	layout structuredLayout
	logger logger.Logger
}

func newStructuredInternalParser(layout structuredLayout) *structuredInternalParser {
	return &structuredInternalParser{
		layout: layout,
		logger: logger.GetGlobalLogger().WithComponent("internal_parser"),
	}
}

func (p *structuredInternalParser) Parse(path string) ([]*models.InternalEntry, *ParseStats, error) {
	p.logger.WithField("file_path", path).Info("Parsing internal ledger")

	stats := NewParseStats()
	rows, err := readStructured(path, p.layout, stats, p.logger)
	if err != nil {
		return nil, stats, err
	}

	var entries []*models.InternalEntry
	for _, row := range rows {
		amount, err := normalize.ParseAmount(row.paidRaw)
		if err != nil {
			stats.AddDropped(&ParseError{
				Line:    row.line,
				Field:   p.layout.paidColumn,
				Value:   row.paidRaw,
				Message: "unparseable monetary value",
				Err:     err,
			})
			continue
		}

		entry := models.NewInternalEntry(row.document, row.counterparty, amount)
		if err := entry.Validate(); err != nil {
			stats.AddDropped(&ParseError{
				Line:    row.line,
				Field:   "amount",
				Value:   row.paidRaw,
				Message: "invalid internal entry",
				Err:     err,
			})
			continue
		}

		entries = append(entries, entry)
		stats.RecordsValid++
	}

	if len(entries) == 0 {
		p.logger.WithField("file_path", path).Error("Internal ledger produced no valid entries")
		return nil, stats, errors.ParseError(errors.CodeEmptyLedger, path, 0, "", nil)
	}

	p.logger.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"dropped":   stats.DroppedRows,
	}).Info("Internal ledger parsed")

	return entries, stats, nil
}
