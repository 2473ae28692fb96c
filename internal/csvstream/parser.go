// Package csvstream is the CSV stream parser (spec §4.J): validates the
// header, then yields validated rows lazily without loading the whole
// file into memory. Grounded on the teacher's processCSV/UploadInvoices
// handlers (encoding/csv, FieldsPerRecord = -1, skip-on-error rows) and
// pramudityad-golang-reconciliation-service/internal/parsers/streaming.go's
// lazy-row approach.
package csvstream

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payment-reconciliation-backend/internal/apperr"
)

// requiredColumns is the superset the header row must contain
// (case-insensitive, trimmed).
var requiredColumns = []string{"transaction_date", "description", "amount"}

// ParsedRow is one validated, normalized CSV data row (spec §4.J).
type ParsedRow struct {
	TransactionDate time.Time
	Description     string
	Amount          decimal.Decimal
	ReferenceNumber *string
}

// Parser streams ParsedRow values from an io.Reader in file order.
type Parser struct {
	reader  *csv.Reader
	columns map[string]int
}

// New validates the header row and returns a Parser ready to iterate.
// Returns a *apperr.Error of kind parse_error if required columns are
// missing (spec §4.J, fatal to the worker's batch).
func New(r io.Reader) (*Parser, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParseError, "read CSV header", err)
	}

	columns := make(map[string]int, len(header))
	for i, col := range header {
		columns[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, apperr.ParseError("missing required CSV column %q", required)
		}
	}

	return &Parser{reader: cr, columns: columns}, nil
}

// Next returns the next validated row, skipping malformed rows silently
// per spec §4.J, until the stream is exhausted (io.EOF) or the
// underlying reader fails.
func (p *Parser) Next() (*ParsedRow, error) {
	for {
		record, err := p.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			// A malformed CSV line (wrong quoting, etc) is itself a
			// skippable row per spec §4.J "invalid ⇒ skip row silently";
			// any other read error (the underlying reader failing) is
			// returned to the caller.
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, err
		}

		row, ok := p.parseRow(record)
		if !ok {
			continue
		}
		return row, nil
	}
}

func (p *Parser) parseRow(record []string) (*ParsedRow, bool) {
	date, ok := p.parseDate(record)
	if !ok {
		return nil, false
	}

	description, ok := p.field(record, "description")
	if !ok {
		return nil, false
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, false
	}

	amount, ok := p.parseAmount(record)
	if !ok {
		return nil, false
	}

	var ref *string
	if refStr, ok := p.referenceField(record); ok {
		trimmed := strings.TrimSpace(refStr)
		if trimmed != "" {
			ref = &trimmed
		}
	}

	return &ParsedRow{
		TransactionDate: date,
		Description:     description,
		Amount:          amount,
		ReferenceNumber: ref,
	}, true
}

func (p *Parser) field(record []string, name string) (string, bool) {
	idx, ok := p.columns[name]
	if !ok || idx >= len(record) {
		return "", false
	}
	return record[idx], true
}

func (p *Parser) referenceField(record []string) (string, bool) {
	if v, ok := p.field(record, "reference_number"); ok {
		return v, true
	}
	return p.field(record, "reference")
}

var acceptedDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"1/2/2006",
}

func (p *Parser) parseDate(record []string) (time.Time, bool) {
	raw, ok := p.field(record, "transaction_date")
	if !ok {
		return time.Time{}, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func (p *Parser) parseAmount(record []string) (decimal.Decimal, bool) {
	raw, ok := p.field(record, "amount")
	if !ok {
		return decimal.Zero, false
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero, false
	}

	amt, err := decimal.NewFromString(cleaned)
	if err != nil {
		// decimal.NewFromString is strict about some locale formatting;
		// fall back to strconv to accept plain "1234.56" forms it might
		// reject for unrelated reasons (defensive, rarely hit in practice).
		f, ferr := strconv.ParseFloat(cleaned, 64)
		if ferr != nil {
			return decimal.Zero, false
		}
		amt = decimal.NewFromFloat(f)
	}

	if amt.Sign() <= 0 {
		return decimal.Zero, false
	}

	return amt.Round(2), true
}
