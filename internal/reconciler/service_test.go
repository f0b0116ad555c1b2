package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pedritopng/recon-fidc/internal/parsers"
	"github.com/pedritopng/recon-fidc/pkg/errors"
)

type captureWriter struct {
	result *Result
	path   string
	err    error
}

func (w *captureWriter) Write(result *Result, path string) error {
	if w.err != nil {
		return w.err
	}
	w.result = result
	w.path = path
	return nil
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestService_Run(t *testing.T) {
	dir := t.TempDir()
	internalFile := writeFixture(t, dir, "nosso.csv",
		"Documento,Sacado,Valor,Valor Pago\n"+
			"58817/3,ACME LTDA,\"1.000,00\",\"1.000,00\"\n")
	fundFile := writeFixture(t, dir, "fundo.csv",
		"Documento,Sacado,Valor,Valor Pago\n"+
			"58817/003,ACME LTDA,\"1.000,00\",\"1.050,00\"\n")

	writer := &captureWriter{}
	service := NewService(NewEngine(DefaultTolerance), writer)

	var percents []int
	progress := func(percent int, message string) {
		percents = append(percents, percent)
	}

	outcome, err := service.Run(context.Background(), &Request{
		InternalFile: internalFile,
		FundFile:     fundFile,
		Fund:         parsers.FundDiamante,
	}, progress)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if writer.result == nil {
		t.Fatal("Expected the report writer to be invoked")
	}
	if outcome.Result.Summary.MatchedCount != 1 {
		t.Errorf("Expected 1 matched document, got %d", outcome.Result.Summary.MatchedCount)
	}

	expectedReport := filepath.Join(dir, "Relatorio_Conciliacao_Diamante.xlsx")
	if outcome.ReportPath != expectedReport {
		t.Errorf("Expected default report path %s, got %s", expectedReport, outcome.ReportPath)
	}
	if writer.path != expectedReport {
		t.Errorf("Writer received path %s, want %s", writer.path, expectedReport)
	}

	if len(percents) == 0 {
		t.Fatal("Expected progress events")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("Progress went backwards: %v", percents)
			break
		}
	}
	if last := percents[len(percents)-1]; last != 100 {
		t.Errorf("Expected final progress 100, got %d", last)
	}
}

func TestService_Run_NilProgress(t *testing.T) {
	dir := t.TempDir()
	internalFile := writeFixture(t, dir, "nosso.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,00\"\n")
	fundFile := writeFixture(t, dir, "fundo.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,00\"\n")

	service := NewService(NewEngine(DefaultTolerance), &captureWriter{})
	if _, err := service.Run(context.Background(), &Request{
		InternalFile: internalFile,
		FundFile:     fundFile,
		Fund:         parsers.FundDiamante,
	}, nil); err != nil {
		t.Fatalf("Run with nil progress failed: %v", err)
	}
}

// Run delegates to the engine pipeline, so a custom engine tolerance must
// reach the summary and the materiality decision.
func TestService_Run_UsesEngineTolerance(t *testing.T) {
	dir := t.TempDir()
	internalFile := writeFixture(t, dir, "nosso.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,00\"\n")
	fundFile := writeFixture(t, dir, "fundo.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,50\"\n")

	tolerance := decimal.RequireFromString("5.00")
	writer := &captureWriter{}
	service := NewService(NewEngine(tolerance), writer)

	outcome, err := service.Run(context.Background(), &Request{
		InternalFile: internalFile,
		FundFile:     fundFile,
		Fund:         parsers.FundDiamante,
	}, nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	summary := outcome.Result.Summary
	if !summary.Tolerance.Equal(tolerance) {
		t.Errorf("Expected summary tolerance %s, got %s", tolerance, summary.Tolerance)
	}
	if summary.MaterialCount != 0 {
		t.Errorf("Expected 0.50 difference below tolerance, got %d material rows", summary.MaterialCount)
	}
}

func TestService_Run_ParserErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	fundFile := writeFixture(t, dir, "fundo.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,00\"\n")

	writer := &captureWriter{}
	service := NewService(NewEngine(DefaultTolerance), writer)

	_, err := service.Run(context.Background(), &Request{
		InternalFile: filepath.Join(dir, "missing.csv"),
		FundFile:     fundFile,
		Fund:         parsers.FundDiamante,
	}, nil)
	if err == nil {
		t.Fatal("Expected error for missing internal file")
	}

	reconErr, ok := errors.AsReconError(err)
	if !ok || reconErr.Category != errors.CategoryFile {
		t.Errorf("Expected file error, got %v", err)
	}
	if writer.result != nil {
		t.Error("Report writer must not run after a parse failure")
	}
}

func TestService_Run_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	internalFile := writeFixture(t, dir, "nosso.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,00\"\n")
	fundFile := writeFixture(t, dir, "fundo.csv",
		"Documento,Sacado,Valor,Valor Pago\n1/1,A,\"10,00\",\"10,00\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	writer := &captureWriter{}
	service := NewService(NewEngine(DefaultTolerance), writer)
	_, err := service.Run(ctx, &Request{
		InternalFile: internalFile,
		FundFile:     fundFile,
		Fund:         parsers.FundDiamante,
	}, nil)
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if writer.result != nil {
		t.Error("Report writer must not run after cancellation")
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request Request
		wantErr bool
	}{
		{
			name: "valid",
			request: Request{
				InternalFile: "a.csv",
				FundFile:     "b.csv",
				Fund:         parsers.FundDiamante,
			},
		},
		{
			name:    "missing internal file",
			request: Request{FundFile: "b.csv", Fund: parsers.FundDiamante},
			wantErr: true,
		},
		{
			name:    "missing fund file",
			request: Request{InternalFile: "a.csv", Fund: parsers.FundDiamante},
			wantErr: true,
		},
		{
			name:    "missing fund type",
			request: Request{InternalFile: "a.csv", FundFile: "b.csv"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequest_ReportPath_ExplicitOutput(t *testing.T) {
	request := &Request{
		InternalFile: "/data/nosso.csv",
		Fund:         parsers.FundGPA,
		OutputPath:   "/tmp/out.xlsx",
	}
	if got := request.ReportPath(); got != "/tmp/out.xlsx" {
		t.Errorf("Expected explicit output path, got %s", got)
	}

	request.OutputPath = ""
	if got := request.ReportPath(); got != "/data/Relatorio_Conciliacao_GPA.xlsx" {
		t.Errorf("Unexpected default report path: %s", got)
	}
}
