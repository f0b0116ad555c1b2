// Package reporter renders a reconciliation result as an .xlsx workbook:
// one summary sheet plus three detail sheets, written atomically so a
// failed run never leaves a partial report behind.
package reporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/pedritopng/recon-fidc/internal/models"
	"github.com/pedritopng/recon-fidc/internal/reconciler"
	"github.com/pedritopng/recon-fidc/pkg/errors"
	"github.com/pedritopng/recon-fidc/pkg/logger"
)

// Sheet names of the generated workbook.
const (
	SheetSummary      = "Sumario_Conciliacao"
	SheetDifferences  = "Diferencas_de_Valor"
	SheetInternalOnly = "Apenas_no_Nosso_Relatorio"
	SheetFundOnly     = "Apenas_no_Rel_Fundo"
)

// FormatConfig carries the number formats applied to report cells. The
// formats are plain Excel format codes, so rendering never depends on the
// process locale.
type FormatConfig struct {
	CurrencyFormat string
	IntegerFormat  string
}

// DefaultFormatConfig returns the Brazilian-real formats the report uses
// unless configured otherwise.
func DefaultFormatConfig() *FormatConfig {
	return &FormatConfig{
		CurrencyFormat: "R$ #,##0.00",
		IntegerFormat:  "#,##0",
	}
}

// Generator writes reconciliation workbooks.
type Generator struct {
	config *FormatConfig
	logger logger.Logger
}

// NewGenerator creates a Generator. A nil config means defaults.
func NewGenerator(config *FormatConfig) *Generator {
	if config == nil {
		config = DefaultFormatConfig()
	}
	return &Generator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("reporter"),
	}
}

// Write renders the result and places the workbook at path. The workbook
// is first saved to a temporary file in the same directory and renamed
// into place, so path either holds a complete report or nothing.
func (g *Generator) Write(result *reconciler.Result, path string) error {
	file := excelize.NewFile()
	defer file.Close()

	styles, err := newStyleSet(file, g.config)
	if err != nil {
		return errors.ReportError(path, err)
	}

	if err := g.writeSummary(file, result.Summary, styles); err != nil {
		return errors.ReportError(path, err)
	}
	if err := g.writeDifferences(file, result, styles); err != nil {
		return errors.ReportError(path, err)
	}
	if err := g.writeInternalOnly(file, result, styles); err != nil {
		return errors.ReportError(path, err)
	}
	if err := g.writeFundOnly(file, result, styles); err != nil {
		return errors.ReportError(path, err)
	}

	// The workbook starts with a default sheet; the summary replaces it.
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return errors.ReportError(path, err)
	}
	index, err := file.GetSheetIndex(SheetSummary)
	if err != nil {
		return errors.ReportError(path, err)
	}
	file.SetActiveSheet(index)

	if err := g.saveAtomic(file, path); err != nil {
		return err
	}

	g.logger.WithField("report_path", path).Info("Report written")
	return nil
}

func (g *Generator) saveAtomic(file *excelize.File, path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".relatorio-*.xlsx")
	if err != nil {
		return errors.ReportError(path, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := file.SaveAs(tmpPath); err != nil {
		os.Remove(tmpPath)
		return errors.ReportError(path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.ReportError(path, err)
	}
	return nil
}

// styleSet holds the style ids registered on one workbook.
type styleSet struct {
	currency int
	integer  int
}

func newStyleSet(file *excelize.File, config *FormatConfig) (*styleSet, error) {
	currency, err := file.NewStyle(&excelize.Style{CustomNumFmt: &config.CurrencyFormat})
	if err != nil {
		return nil, fmt.Errorf("registering currency style: %w", err)
	}
	integer, err := file.NewStyle(&excelize.Style{CustomNumFmt: &config.IntegerFormat})
	if err != nil {
		return nil, fmt.Errorf("registering integer style: %w", err)
	}
	return &styleSet{currency: currency, integer: integer}, nil
}

func (g *Generator) writeSummary(file *excelize.File, summary *reconciler.Summary, styles *styleSet) error {
	if _, err := file.NewSheet(SheetSummary); err != nil {
		return err
	}

	widths := newColumnWidths(2)
	if err := setRow(file, SheetSummary, 1, widths, "Métrica", "Valor"); err != nil {
		return err
	}

	for i, metric := range summary.Metrics() {
		row := i + 2
		if metric.Kind == models.MetricBlank {
			continue
		}

		labelCell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(SheetSummary, labelCell, metric.Label); err != nil {
			return err
		}
		widths.observe(1, metric.Label)

		valueCell, err := excelize.CoordinatesToCellName(2, row)
		if err != nil {
			return err
		}
		switch metric.Kind {
		case models.MetricCount:
			if err := file.SetCellValue(SheetSummary, valueCell, metric.Count); err != nil {
				return err
			}
			if err := file.SetCellStyle(SheetSummary, valueCell, valueCell, styles.integer); err != nil {
				return err
			}
			widths.observe(2, fmt.Sprintf("%d", metric.Count))
		case models.MetricCurrency:
			if err := file.SetCellValue(SheetSummary, valueCell, cellAmount(metric.Amount)); err != nil {
				return err
			}
			if err := file.SetCellStyle(SheetSummary, valueCell, valueCell, styles.currency); err != nil {
				return err
			}
			widths.observe(2, metric.Amount.StringFixed(2))
		case models.MetricStatus:
			if err := file.SetCellValue(SheetSummary, valueCell, string(metric.Status)); err != nil {
				return err
			}
			widths.observe(2, string(metric.Status))
		}
	}

	return widths.apply(file, SheetSummary)
}

func (g *Generator) writeDifferences(file *excelize.File, result *reconciler.Result, styles *styleSet) error {
	if _, err := file.NewSheet(SheetDifferences); err != nil {
		return err
	}

	widths := newColumnWidths(6)
	headers := []interface{}{
		"Documento", "Valor Original (Fundo)", "Juros/Taxas (Fundo)",
		"Valor Pago (Fundo)", "Valor_Nosso", "Diferenca_Liquida",
	}
	if err := setRow(file, SheetDifferences, 1, widths, headers...); err != nil {
		return err
	}

	tolerance := result.Summary.Tolerance
	if !tolerance.IsPositive() {
		tolerance = reconciler.DefaultTolerance
	}
	row := 2
	for _, cmp := range result.MatchedRows() {
		if !cmp.IsMaterial(tolerance) {
			continue
		}
		values := []interface{}{
			cmp.Document,
			cellAmount(cmp.Fund.OriginalAmount),
			cellAmount(cmp.Fund.InterestOrFees()),
			cellAmount(cmp.Fund.PaidAmount),
			cellAmount(cmp.Internal.Amount),
			cellAmount(cmp.NetDifference),
		}
		if err := setRow(file, SheetDifferences, row, widths, values...); err != nil {
			return err
		}
		row++
	}

	if err := styleColumns(file, SheetDifferences, styles.currency, row-1, 2, 6); err != nil {
		return err
	}
	if err := applyAutoFilter(file, SheetDifferences, 6, row-1); err != nil {
		return err
	}
	return widths.apply(file, SheetDifferences)
}

func (g *Generator) writeInternalOnly(file *excelize.File, result *reconciler.Result, styles *styleSet) error {
	if _, err := file.NewSheet(SheetInternalOnly); err != nil {
		return err
	}

	widths := newColumnWidths(3)
	if err := setRow(file, SheetInternalOnly, 1, widths, "Documento", "Sacado_Nosso", "Valor_Nosso"); err != nil {
		return err
	}

	row := 2
	for _, cmp := range result.InternalOnlyRows() {
		values := []interface{}{
			cmp.Document,
			cmp.Internal.Counterparty,
			cellAmount(cmp.Internal.Amount),
		}
		if err := setRow(file, SheetInternalOnly, row, widths, values...); err != nil {
			return err
		}
		row++
	}

	if err := styleColumns(file, SheetInternalOnly, styles.currency, row-1, 3, 3); err != nil {
		return err
	}
	if err := applyAutoFilter(file, SheetInternalOnly, 3, row-1); err != nil {
		return err
	}
	return widths.apply(file, SheetInternalOnly)
}

func (g *Generator) writeFundOnly(file *excelize.File, result *reconciler.Result, styles *styleSet) error {
	if _, err := file.NewSheet(SheetFundOnly); err != nil {
		return err
	}

	widths := newColumnWidths(5)
	headers := []interface{}{
		"Documento", "Sacado (Fundo)", "Valor Original (Fundo)",
		"Juros/Taxas (Fundo)", "Valor Pago (Fundo)",
	}
	if err := setRow(file, SheetFundOnly, 1, widths, headers...); err != nil {
		return err
	}

	row := 2
	for _, cmp := range result.FundOnlyRows() {
		values := []interface{}{
			cmp.Document,
			cmp.Fund.Counterparty,
			cellAmount(cmp.Fund.OriginalAmount),
			cellAmount(cmp.Fund.InterestOrFees()),
			cellAmount(cmp.Fund.PaidAmount),
		}
		if err := setRow(file, SheetFundOnly, row, widths, values...); err != nil {
			return err
		}
		row++
	}

	if err := styleColumns(file, SheetFundOnly, styles.currency, row-1, 3, 5); err != nil {
		return err
	}
	if err := applyAutoFilter(file, SheetFundOnly, 5, row-1); err != nil {
		return err
	}
	return widths.apply(file, SheetFundOnly)
}

// cellAmount converts a decimal to the float64 excelize stores, keeping
// the cell numeric so the currency format applies.
func cellAmount(amount decimal.Decimal) float64 {
	value, _ := amount.Float64()
	return value
}

func setRow(file *excelize.File, sheet string, row int, widths *columnWidths, values ...interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
		widths.observe(i+1, fmt.Sprintf("%v", value))
	}
	return nil
}

// styleColumns applies a style to columns firstCol..lastCol of the data
// rows (2..lastRow). lastRow < 2 means there is no data to style.
func styleColumns(file *excelize.File, sheet string, style int, lastRow, firstCol, lastCol int) error {
	if lastRow < 2 {
		return nil
	}
	start, err := excelize.CoordinatesToCellName(firstCol, 2)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(lastCol, lastRow)
	if err != nil {
		return err
	}
	return file.SetCellStyle(sheet, start, end, style)
}

func applyAutoFilter(file *excelize.File, sheet string, columns, lastRow int) error {
	if lastRow < 1 {
		lastRow = 1
	}
	end, err := excelize.CoordinatesToCellName(columns, lastRow)
	if err != nil {
		return err
	}
	return file.AutoFilter(sheet, "A1:"+end, nil)
}

// columnWidths tracks the widest value seen per column so columns can be
// sized to their content.
type columnWidths struct {
	max []int
}

func newColumnWidths(columns int) *columnWidths {
	return &columnWidths{max: make([]int, columns)}
}

func (w *columnWidths) observe(column int, value string) {
	if column < 1 || column > len(w.max) {
		return
	}
	if n := len([]rune(value)); n > w.max[column-1] {
		w.max[column-1] = n
	}
}

func (w *columnWidths) apply(file *excelize.File, sheet string) error {
	for i, width := range w.max {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := file.SetColWidth(sheet, name, name, float64(width+2)); err != nil {
			return err
		}
	}
	return nil
}
