package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"homemoney/internal/core"
)

// Options tunes a single parse. The zero value means best-effort header
// matching against the known layouts.
type Options struct {
	// Mapping, when set, names the date/description/amount columns
	// explicitly instead of relying on header synonyms.
	Mapping *Mapping
}

// Parse reads one CSV export and returns the candidate transactions in
// file order, plus the rows that had to be skipped. Candidates carry no
// fingerprint; the store assigns those on ingest.
//
// A file whose header row matches no known layout fails with
// *core.UnrecognizedSchemaError and yields nothing. A data row that
// cannot produce the three mandatory fields, or that the CSV reader
// itself rejects, is skipped, reported, and does not stop the import.
// Only a broken header fails the whole file.
func Parse(filename string, r io.Reader, opts Options) ([]core.Transaction, []*core.MalformedRowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are handled per-row below
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, &core.UnrecognizedSchemaError{File: filename}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filename, err)
	}

	sc := detectSchema(header, opts.Mapping)
	if sc == nil {
		return nil, nil, &core.UnrecognizedSchemaError{File: filename, Headers: header}
	}
	slog.Debug("detected CSV schema", "file", filename, "strategy", sc.name)

	var (
		rows    []row
		skipped []*core.MalformedRowError
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			e := &core.MalformedRowError{File: filename, Line: perr.Line, Reason: perr.Err.Error()}
			skipped = append(skipped, e)
			slog.Warn("skipping malformed row", "file", filename, "line", perr.Line, "reason", e.Reason)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", filename, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, row{rec: rec, line: line})
	}

	layout := detectDateLayout(column(rows, sc.date))

	var txs []core.Transaction
	for _, rw := range rows {
		t, reason := convertRow(rw.rec, sc, layout)
		if reason != "" {
			e := &core.MalformedRowError{File: filename, Line: rw.line, Reason: reason}
			skipped = append(skipped, e)
			slog.Warn("skipping malformed row", "file", filename, "line", rw.line, "reason", reason)
			continue
		}
		t.SourceFile = filename
		txs = append(txs, t)
	}
	return txs, skipped, nil
}

// row is one successfully read record with the physical line it
// started on, so skip reports stay accurate when earlier lines were
// themselves skipped.
type row struct {
	rec  []string
	line int
}

func convertRow(rec []string, sc *schema, dateLayout string) (core.Transaction, string) {
	var t core.Transaction

	ds := field(rec, sc.date)
	if ds == "" {
		return t, "missing date"
	}
	d, err := parseDate(dateLayout, ds)
	if err != nil {
		return t, fmt.Sprintf("unparseable date %q", ds)
	}
	t.Date = d

	t.Description = core.NormalizeDescription(field(rec, sc.desc))
	if t.Description == "" {
		return t, "missing description"
	}

	cents, reason := rowAmount(rec, sc)
	if reason != "" {
		return t, reason
	}
	t.Amount = core.Money{Cents: cents}

	if sc.category >= 0 {
		// Exports with multi-valued tag columns keep only the first.
		cat, _, _ := strings.Cut(field(rec, sc.category), ",")
		t.Category = strings.TrimSpace(cat)
	}
	return t, ""
}

// rowAmount reads the signed amount, combining split debit/credit
// columns when the schema has them: a debit of 100 becomes -10000
// cents, a credit of 100 becomes +10000.
func rowAmount(rec []string, sc *schema) (int64, string) {
	if sc.amount >= 0 {
		s := field(rec, sc.amount)
		if s == "" {
			return 0, "missing amount"
		}
		cents, err := core.ParseAmount(s)
		if err != nil {
			return 0, fmt.Sprintf("unparseable amount %q", s)
		}
		return cents, ""
	}

	debit, credit := field(rec, sc.debit), field(rec, sc.credit)
	if debit == "" && credit == "" {
		return 0, "missing amount"
	}
	var cents int64
	if debit != "" {
		v, err := core.ParseAmount(debit)
		if err != nil {
			return 0, fmt.Sprintf("unparseable debit %q", debit)
		}
		if v < 0 {
			v = -v // some banks export debits already signed
		}
		cents -= v
	}
	if credit != "" {
		v, err := core.ParseAmount(credit)
		if err != nil {
			return 0, fmt.Sprintf("unparseable credit %q", credit)
		}
		cents += v
	}
	return cents, ""
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func column(rows []row, idx int) []string {
	out := make([]string, 0, len(rows))
	for _, rw := range rows {
		out = append(out, field(rw.rec, idx))
	}
	return out
}
