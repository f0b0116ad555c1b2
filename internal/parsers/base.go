// Package parsers converts raw fund and internal ledger files into uniform
// transaction records.
//
// Every supported layout is Latin-1 encoded CSV. Structured layouts carry a
// header row and named monetary columns; semi-structured layouts ("extrato"
// exports) carry a free-text narration column from which document and
// counterparty are extracted by an ordered regex cascade.
//
// Row-level problems (unparseable amounts, non-positive values, empty
// documents) drop the row and are recorded in ParseStats; they never abort
// the run. A file that yields zero valid records is a fatal input-format
// error, as is an unreadable file or a missing required column.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/pedritopng/recon-fidc/pkg/errors"
	"github.com/pedritopng/recon-fidc/pkg/logger"
)

// ParseError records a row that was dropped during parsing.
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d (%s=%q): %s: %v", e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("line %d (%s=%q): %s", e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseStats holds statistics about a parsing operation.
type ParseStats struct {
	TotalLines   int
	RecordsValid int
	DroppedRows  int
	Errors       []*ParseError
}

// NewParseStats creates a new ParseStats instance.
func NewParseStats() *ParseStats {
	return &ParseStats{Errors: make([]*ParseError, 0)}
}

// AddDropped records a dropped row.
func (ps *ParseStats) AddDropped(err *ParseError) {
	ps.Errors = append(ps.Errors, err)
	ps.DroppedRows++
}

// String returns a human-readable summary of parsing statistics.
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d valid records, %d dropped",
		ps.TotalLines, ps.RecordsValid, ps.DroppedRows)
}

// SampleErrors returns up to max drop reasons for logging.
func (ps *ParseStats) SampleErrors(max int) []string {
	limit := len(ps.Errors)
	if max > 0 && max < limit {
		limit = max
	}
	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Errors[i].Error())
	}
	return samples
}

// readConfig describes how to read one ledger file.
type readConfig struct {
	delimiter rune
	skipLines int // title lines before the header/data
}

// csvRow is one record together with the 1-based file line it started on.
// The line comes from the reader itself, so skipped malformed lines and
// multi-line quoted fields never shift it.
type csvRow struct {
	line   int
	fields []string
}

// readRows reads an entire Latin-1 encoded delimited file into memory.
// Ledger exports are at most a few thousand rows, so streaming is not
// worth the complexity here.
func readRows(path string, cfg readConfig, log logger.Logger) ([]csvRow, error) {
	log.WithField("file_path", path).Debug("Opening ledger file")

	file, err := os.Open(path)
	if err != nil {
		log.WithError(err).WithField("file_path", path).Error("Failed to open ledger file")
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer file.Close()

	// All supported exports are ISO 8859-1; decode to UTF-8 up front so the
	// regex cascade and header matching see proper accented text.
	decoded := charmap.ISO8859_1.NewDecoder().Reader(file)

	reader := csv.NewReader(decoded)
	reader.Comma = cfg.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows []csvRow
	records := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			badLine := 0
			if parseErr, ok := err.(*csv.ParseError); ok {
				badLine = parseErr.Line
			}
			log.WithError(err).WithField("line", badLine).Warn("Skipping malformed CSV line")
			continue
		}
		line, _ := reader.FieldPos(0)
		records++
		if records <= cfg.skipLines {
			continue
		}
		rows = append(rows, csvRow{line: line, fields: record})
	}

	log.WithFields(logger.Fields{
		"file_path": path,
		"rows":      len(rows),
	}).Debug("Ledger file read")

	return rows, nil
}

// headerIndex builds a map from trimmed header names to column indices and
// resolves the required columns, failing with a parse error naming every
// missing one.
func headerIndex(path string, header []string, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.ParseError(
			errors.CodeMissingColumn,
			path,
			1,
			strings.Join(missing, ", "),
			nil,
		)
	}

	return index, nil
}

// fieldAt returns the trimmed cell at column idx, or "" when the row is
// shorter than expected.
func fieldAt(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
