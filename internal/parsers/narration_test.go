package parsers

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pedritopng/recon-fidc/pkg/errors"
)

func TestExtractNarration(t *testing.T) {
	tests := []struct {
		name         string
		narration    string
		policy       FallbackPolicy
		document     string
		counterparty string
		ok           bool
	}{
		{
			name:         "receipt with spaced dash",
			narration:    "Recebimento cfe Dpl 1234/01 - ACME LTDA",
			policy:       FallbackSkip,
			document:     "1234/01",
			counterparty: "ACME LTDA",
			ok:           true,
		},
		{
			name:         "receipt with tight dash",
			narration:    "Recebimento cfe Dpl 1234/01-ACME LTDA",
			policy:       FallbackSkip,
			document:     "1234/01",
			counterparty: "ACME LTDA",
			ok:           true,
		},
		{
			name:         "receipt with no dash",
			narration:    "Recebimento cfe Dpl 1234/01 ACME LTDA",
			policy:       FallbackSkip,
			document:     "1234/01",
			counterparty: "ACME LTDA",
			ok:           true,
		},
		{
			name:         "payment to fund",
			narration:    "Pagamento cfe dpl. 1234/01-DIAMANTE FIDC",
			policy:       FallbackSkip,
			document:     "1234/01",
			counterparty: "N/A (Pagamento)",
			ok:           true,
		},
		{
			name:         "refund with document",
			narration:    "Reembolso Duplicata 5678/02",
			policy:       FallbackSkip,
			document:     "5678/02",
			counterparty: "N/A (Reembolso)",
			ok:           true,
		},
		{
			name:         "refund without document",
			narration:    "Reembolso Duplicata",
			policy:       FallbackSkip,
			document:     "REEMBOLSO_SEM_DOC_7",
			counterparty: "N/A (Reembolso sem doc)",
			ok:           true,
		},
		{
			name:         "bordero discount",
			narration:    "DESCONTO DUPL CFE BORDERO",
			policy:       FallbackSkip,
			document:     "DESCONTO_BORDERO_7",
			counterparty: "N/A (Desconto Bordero)",
			ok:           true,
		},
		{
			name:      "unrecognized under skip",
			narration: "TARIFA DE MANUTENCAO",
			policy:    FallbackSkip,
			ok:        false,
		},
		{
			name:         "unrecognized under generic",
			narration:    "TARIFA DE MANUTENCAO",
			policy:       FallbackGeneric,
			document:     "TARIFA DE MANUTENCAO",
			counterparty: "N/A (Lançamento Genérico)",
			ok:           true,
		},
		{
			name:         "empty under generic",
			narration:    "",
			policy:       FallbackGeneric,
			document:     "LANCAMENTO_VAZIO_LINHA_7",
			counterparty: "N/A",
			ok:           true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			document, counterparty, ok := extractNarration(tt.narration, 7, tt.policy)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if document != tt.document {
				t.Errorf("Expected document %q, got %q", tt.document, document)
			}
			if counterparty != tt.counterparty {
				t.Errorf("Expected counterparty %q, got %q", tt.counterparty, counterparty)
			}
		})
	}
}

// The cascade is ordered loosest-last: a narration that several patterns
// could match must resolve via the earliest one.
func TestExtractNarration_PrecedenceOrder(t *testing.T) {
	document, counterparty, ok := extractNarration("Recebimento cfe Dpl 99/1 - BETA-SUL SA", 1, FallbackSkip)
	if !ok {
		t.Fatal("Expected a match")
	}
	if document != "99/1" {
		t.Errorf("Expected the spaced-dash rule to win, got document %q", document)
	}
	if counterparty != "BETA-SUL SA" {
		t.Errorf("Expected counterparty BETA-SUL SA, got %q", counterparty)
	}
}

func TestInternalExtratoParser(t *testing.T) {
	dir := t.TempDir()
	path := writeLatin1(t, dir, "extrato.csv",
		"02/01/2026;Histórico;Valor\n"+
			"02/01/2026;Saldo Anterior;1.000,00\n"+
			"03/01/2026;Recebimento cfe Dpl 1234/01 - ACME LTDA;500,00\n"+
			"03/01/2026;Recebimento cfe Dpl 1235/02-BETA SA;250,50\n"+
			"04/01/2026;TARIFA DE MANUTENCAO;15,00\n"+
			"04/01/2026;Reembolso Duplicata 1234/01;0,00\n"+
			"05/01/2026;Recebimento cfe Dpl 1236/01 - GAMA SA;-10,00\n")

	parser, err := NewInternalParser(InternalExtrato, Options{})
	if err != nil {
		t.Fatalf("NewInternalParser failed: %v", err)
	}

	entries, stats, err := parser.Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Noise and the unrecognized tariff are skipped silently; the zero and
	// negative amounts are dropped with a recorded reason.
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if stats.DroppedRows != 2 {
		t.Errorf("Expected 2 dropped rows, got %d", stats.DroppedRows)
	}

	first := entries[0]
	if first.Document != "1234/01" || first.Counterparty != "ACME LTDA" {
		t.Errorf("Unexpected first entry: %s / %s", first.Document, first.Counterparty)
	}
	if !first.Amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected amount 500, got %s", first.Amount)
	}

	second := entries[1]
	if !second.Amount.Equal(decimal.RequireFromString("250.5")) {
		t.Errorf("Expected amount 250.5, got %s", second.Amount)
	}
}

// Synthesized document ids carry the real file line. A quoted narration
// spanning two lines consumes two file lines as one record; the refund on
// line 3 must still be tagged with 3.
func TestInternalExtratoParser_SynthesizedIdsUseFileLines(t *testing.T) {
	dir := t.TempDir()
	path := writeLatin1(t, dir, "extrato.csv",
		"02/01/2026;\"Recebimento cfe Dpl 1111/01 - ACME\nLTDA\";100,00\n"+
			"03/01/2026;Reembolso Duplicata;50,00\n")

	parser, err := NewInternalParser(InternalExtrato, Options{})
	if err != nil {
		t.Fatalf("NewInternalParser failed: %v", err)
	}

	entries, _, err := parser.Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Document != "1111/01" {
		t.Errorf("Expected document 1111/01, got %q", entries[0].Document)
	}
	if entries[1].Document != "REEMBOLSO_SEM_DOC_3" {
		t.Errorf("Expected refund id from file line 3, got %q", entries[1].Document)
	}
}

func TestFundExtratoParser_GenericFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeLatin1(t, dir, "extrato_fundo.csv",
		"Histórico;Valor\n"+
			"Pagamento cfe dpl. 1234/01-DIAMANTE FIDC;500,00\n"+
			"TARIFA BANCARIA;12,00\n")

	parser, err := NewFundParser(FundDiamanteExtrato, Options{})
	if err != nil {
		t.Fatalf("NewFundParser failed: %v", err)
	}

	entries, _, err := parser.Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// The fund extrato defaults to the generic policy: the tariff survives
	// with the narration itself as document.
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[1].Document != "TARIFA BANCARIA" {
		t.Errorf("Expected generic fallback document, got %q", entries[1].Document)
	}
	if !entries[1].OriginalAmount.Equal(entries[1].PaidAmount) {
		t.Error("Expected single extrato amount mirrored into both fields")
	}
}

func TestFundExtratoParser_SkipPolicyOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeLatin1(t, dir, "extrato_fundo.csv",
		"Pagamento cfe dpl. 1234/01-DIAMANTE FIDC;500,00\n"+
			"TARIFA BANCARIA;12,00\n")

	parser, err := NewFundParser(FundDiamanteExtrato, Options{Fallback: FallbackSkip})
	if err != nil {
		t.Fatalf("NewFundParser failed: %v", err)
	}

	entries, _, err := parser.Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected tariff skipped under skip policy, got %d entries", len(entries))
	}
}

func TestInternalExtratoParser_EmptyLedgerFails(t *testing.T) {
	dir := t.TempDir()
	path := writeLatin1(t, dir, "extrato.csv",
		"02/01/2026;Histórico;Valor\n"+
			"02/01/2026;Saldo Anterior;1.000,00\n")

	parser, _ := NewInternalParser(InternalExtrato, Options{})
	_, _, err := parser.Parse(path)
	if err == nil {
		t.Fatal("Expected error when no transactions survive")
	}

	reconErr, ok := errors.AsReconError(err)
	if !ok {
		t.Fatalf("Expected ReconError, got %T", err)
	}
	if reconErr.Code != errors.CodeEmptyLedger {
		t.Errorf("Expected empty_ledger, got %s", reconErr.Code)
	}
	if !strings.Contains(reconErr.Error(), "no valid transaction rows") {
		t.Errorf("Unexpected empty ledger message: %q", reconErr.Error())
	}
}
