// Package pipeline implements the transaction transformation pipeline: upload
// parsing and normalization, time bucketing, aggregation into the two chart
// projections, and the reverse lookup from an aggregate point back to its
// detail rows.
//
// Every stage recomputes from the canonical transactions; nothing is mutated
// in place, so reprocessing under different options is lossless and
// idempotent.
package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budgetviz/internal/core"
)

// ErrMalformedInput means the upload body parsed neither as line-delimited
// JSON objects nor as a single JSON array.
var ErrMalformedInput = errors.New("malformed input: not line-delimited JSON or a JSON array")

// RawRecord is one upload record before validation. Amount fields are kept
// raw because uploads carry them as either JSON numbers or strings, and some
// exports name the column Final_Amount.
type RawRecord struct {
	Date        string          `json:"Date"`
	Description string          `json:"Description"`
	Category    string          `json:"Category"`
	Amount      json.RawMessage `json:"Amount"`
	FinalAmount json.RawMessage `json:"Final_Amount"`
	Currency    string          `json:"Currency"`
}

// ParseRecords decodes an upload body. Line-delimited JSON is attempted
// first, then a whole-document JSON array. An empty body is a valid empty
// upload.
func ParseRecords(data []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if records, err := parseLineDelimited(trimmed); err == nil {
		return records, nil
	}

	var records []RawRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return records, nil
}

func parseLineDelimited(data []byte) ([]RawRecord, error) {
	var records []RawRecord
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize validates and converts raw records into canonical transactions.
// It is all-or-nothing: any invalid row rejects the whole batch. A missing
// Currency defaults to the base currency; unknown codes are rejected.
func Normalize(records []RawRecord) ([]core.Transaction, error) {
	txs := make([]core.Transaction, 0, len(records))
	for i, rec := range records {
		tx, err := normalizeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func normalizeRecord(rec RawRecord) (core.Transaction, error) {
	if strings.TrimSpace(rec.Date) == "" {
		return core.Transaction{}, fmt.Errorf("%w: Date", core.ErrMissingField)
	}
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, rec.Date)
	}

	if strings.TrimSpace(rec.Category) == "" {
		return core.Transaction{}, fmt.Errorf("%w: Category", core.ErrMissingField)
	}
	if strings.TrimSpace(rec.Description) == "" {
		return core.Transaction{}, fmt.Errorf("%w: Description", core.ErrMissingField)
	}

	raw := rec.Amount
	if len(raw) == 0 {
		raw = rec.FinalAmount
	}
	if len(raw) == 0 {
		return core.Transaction{}, fmt.Errorf("%w: Amount", core.ErrMissingField)
	}
	cents, err := parseAmount(raw)
	if err != nil {
		return core.Transaction{}, err
	}

	currency := strings.TrimSpace(rec.Currency)
	if currency == "" {
		currency = core.BaseCurrency
	}
	if _, err := core.Rate(currency); err != nil {
		return core.Transaction{}, err
	}

	return core.Transaction{
		Date:        date,
		Description: rec.Description,
		Category:    rec.Category,
		Amount:      core.Money{Cents: cents},
		Currency:    currency,
	}, nil
}

// parseAmount accepts a JSON number or a quoted decimal string, rounding to
// cents half-up.
func parseAmount(raw json.RawMessage) (int64, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("%w: %s", core.ErrInvalidAmount, raw)
		}
		return core.ParseDecimalToCents(s)
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", core.ErrInvalidAmount, raw)
	}
	return core.CentsFromFloat(f), nil
}
