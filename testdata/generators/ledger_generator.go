// Command ledger_generator emits a paired set of CSV fixtures, one internal
// ledger and one fund report, encoded as Latin-1 the way the real exports
// are. The pair shares a configurable number of documents so the output can
// exercise every membership class of a reconciliation run.
//
// Usage:
//
//	go run ledger_generator.go -matched 50 -internal-only 5 -fund-only 3 \
//	  -diff-rate 0.2 -output-dir ../generated
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

var counterparties = []string{
	"ACME COMÉRCIO LTDA",
	"BETA INDÚSTRIA SA",
	"GAMA DISTRIBUIDORA LTDA",
	"DELTA ALIMENTOS SA",
	"ÔMEGA TÊXTIL LTDA",
}

type ledgerRow struct {
	document     string
	counterparty string
	original     decimal.Decimal
	paid         decimal.Decimal
}

func main() {
	var (
		outputDir    = flag.String("output-dir", "../generated", "Output directory for generated files")
		matched      = flag.Int("matched", 50, "Documents present on both ledgers")
		internalOnly = flag.Int("internal-only", 5, "Documents only on the internal ledger")
		fundOnly     = flag.Int("fund-only", 3, "Documents only on the fund report")
		diffRate     = flag.Float64("diff-rate", 0.2, "Fraction of matched documents with a value difference")
		seed         = flag.Int64("seed", 42, "Random seed for reproducible output")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		log.Fatalf("creating output directory: %v", err)
	}

	var internalRows, fundRows []ledgerRow
	next := 58000

	for i := 0; i < *matched; i++ {
		row := randomRow(rng, &next)
		internalRows = append(internalRows, row)

		fundRow := row
		fundRow.paid = row.original.Add(randomAmount(rng, 0, 80))
		if rng.Float64() < *diffRate {
			// Paid amount the internal ledger never saw.
			internalRows[len(internalRows)-1].paid = row.original
		} else {
			internalRows[len(internalRows)-1].paid = fundRow.paid
		}
		fundRows = append(fundRows, fundRow)
	}
	for i := 0; i < *internalOnly; i++ {
		row := randomRow(rng, &next)
		row.paid = row.original
		internalRows = append(internalRows, row)
	}
	for i := 0; i < *fundOnly; i++ {
		row := randomRow(rng, &next)
		row.paid = row.original.Add(randomAmount(rng, 0, 80))
		fundRows = append(fundRows, row)
	}

	internalPath := filepath.Join(*outputDir, "nosso_relatorio.csv")
	if err := writeLedger(internalPath, internalRows); err != nil {
		log.Fatalf("writing internal ledger: %v", err)
	}
	fundPath := filepath.Join(*outputDir, "relatorio_fundo.csv")
	if err := writeLedger(fundPath, fundRows); err != nil {
		log.Fatalf("writing fund report: %v", err)
	}

	fmt.Printf("Generated %s (%d rows) and %s (%d rows)\n",
		internalPath, len(internalRows), fundPath, len(fundRows))
}

func randomRow(rng *rand.Rand, next *int) ledgerRow {
	*next++
	parcel := rng.Intn(3) + 1
	original := randomAmount(rng, 100, 25000)
	return ledgerRow{
		document:     fmt.Sprintf("%d/%d", *next, parcel),
		counterparty: counterparties[rng.Intn(len(counterparties))],
		original:     original,
		paid:         original,
	}
}

func randomAmount(rng *rand.Rand, min, max float64) decimal.Decimal {
	value := min + rng.Float64()*(max-min)
	return decimal.NewFromFloat(value).Round(2)
}

// writeLedger writes the rows in the structured layout both sides share:
// comma-delimited, pt-BR amounts, Latin-1 encoded.
func writeLedger(path string, rows []ledgerRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(charmap.ISO8859_1.NewEncoder().Writer(file))
	if err := writer.Write([]string{"Documento", "Sacado", "Valor", "Valor Pago"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.document,
			row.counterparty,
			formatAmount(row.original),
			formatAmount(row.paid),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatAmount renders a decimal in the pt-BR convention the parsers expect.
func formatAmount(amount decimal.Decimal) string {
	plain := amount.StringFixed(2)
	var intPart, fracPart string
	if i := len(plain) - 3; i >= 0 {
		intPart, fracPart = plain[:i], plain[i+1:]
	} else {
		intPart, fracPart = plain, "00"
	}

	var grouped []byte
	for i, digit := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 && digit != '-' {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, digit)
	}
	return string(grouped) + "," + fracPart
}
