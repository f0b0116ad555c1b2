package reconciler

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pedritopng/recon-fidc/internal/parsers"
	"github.com/pedritopng/recon-fidc/pkg/errors"
	"github.com/pedritopng/recon-fidc/pkg/logger"
)

// ReportWriter renders a reconciliation result to a file. The write must
// be atomic: on error no file appears at the target path.
type ReportWriter interface {
	Write(result *Result, path string) error
}

// Request describes one reconciliation run.
type Request struct {
	InternalFile   string
	FundFile       string
	Fund           parsers.FundType
	InternalFormat parsers.InternalFormat
	Fallback       parsers.FallbackPolicy

	// OutputPath is where the report lands. Empty means
	// Relatorio_Conciliacao_<Fund>.xlsx next to the internal file.
	OutputPath string
}

// Validate checks the request before any file is touched.
func (r *Request) Validate() error {
	if r.InternalFile == "" {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "internal-file", "", fmt.Errorf("internal ledger file is required"))
	}
	if r.FundFile == "" {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "fund-file", "", fmt.Errorf("fund ledger file is required"))
	}
	if r.Fund == "" {
		return errors.ConfigurationError(errors.CodeUnknownFund, "fund", "", nil)
	}
	if r.InternalFormat == "" {
		r.InternalFormat = parsers.InternalStructured
	}
	return nil
}

// ReportPath resolves the effective output path for this request.
func (r *Request) ReportPath() string {
	if r.OutputPath != "" {
		return r.OutputPath
	}
	name := fmt.Sprintf("Relatorio_Conciliacao_%s.xlsx", r.Fund.DisplayName())
	return filepath.Join(filepath.Dir(r.InternalFile), name)
}

// Outcome bundles everything a run produced.
type Outcome struct {
	Result        *Result
	ReportPath    string
	InternalStats *parsers.ParseStats
	FundStats     *parsers.ParseStats
}

// Service drives a full reconciliation run: parse both ledgers, reconcile,
// write the report, reporting progress along the way.
type Service struct {
	engine *Engine
	writer ReportWriter
	logger logger.Logger
}

// NewService wires the engine and the report writer together.
func NewService(engine *Engine, writer ReportWriter) *Service {
	return &Service{
		engine: engine,
		writer: writer,
		logger: logger.GetGlobalLogger().WithComponent("service"),
	}
}

// Run executes the pipeline. The progress callback, when non-nil, receives
// monotonically non-decreasing percentages from 0 to 100; the 100 event
// fires only after the report file exists at its final path.
func (s *Service) Run(ctx context.Context, req *Request, progress logger.ProgressFunc) (*Outcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	stage := logger.NewStageReporter(s.logger, progress)
	opts := parsers.Options{Fallback: req.Fallback}

	stage.Report(10, "Processando nosso relatório...")
	internalParser, err := parsers.NewInternalParser(req.InternalFormat, opts)
	if err != nil {
		return nil, err
	}
	internalEntries, internalStats, err := internalParser.Parse(req.InternalFile)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeProcessingError, "reconcile", err)
	}

	stage.Report(30, fmt.Sprintf("Processando relatório do fundo '%s'...", req.Fund.DisplayName()))
	fundParser, err := parsers.NewFundParser(req.Fund, opts)
	if err != nil {
		return nil, err
	}
	fundEntries, fundStats, err := fundParser.Parse(req.FundFile)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.ReconciliationError(errors.CodeProcessingError, "reconcile", err)
	}

	stage.Report(50, "Normalizando documentos...")
	stage.Report(60, "Agregando valores por documento...")
	stage.Report(70, "Cruzando informações dos relatórios...")
	result := s.engine.Reconcile(internalEntries, fundEntries)

	reportPath := req.ReportPath()
	stage.Report(80, "Gerando planilha Excel...")
	if err := s.writer.Write(result, reportPath); err != nil {
		return nil, err
	}

	stage.Report(100, "Análise concluída com sucesso!")

	s.logger.WithFields(logger.Fields{
		"report_path": reportPath,
		"validation":  string(result.Summary.Status),
	}).Info("Reconciliation run finished")

	return &Outcome{
		Result:        result,
		ReportPath:    reportPath,
		InternalStats: internalStats,
		FundStats:     fundStats,
	}, nil
}
