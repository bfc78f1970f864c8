package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/tablereach/rengage-backend/internal/apperrors"
	"github.com/tablereach/rengage-backend/internal/model"
)

// Table is one uploaded customer export: a header row plus raw data rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// Required columns. Header matching is case-insensitive and ignores
// spaces and underscores, so "Last Order Date" and "lastOrderDate" both
// resolve to the same column.
const (
	colName          = "name"
	colPhone         = "phone"
	colLastOrderDate = "lastorderdate"
)

// Date formats accepted for the last-order-date column.
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
}

// phonePattern is deliberately loose: digits with optional separators and
// a leading +. Digit count is checked separately.
var phonePattern = regexp.MustCompile(`^\+?[0-9 ().\-]+$`)

var digitsOnly = regexp.MustCompile(`[0-9]`)

// ReadTable parses a CSV upload into a Table. Rows may have ragged field
// counts; per-row shape problems are left for Ingest to report per row.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewSchemaInvalid(fmt.Sprintf("malformed csv: %v", err))
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Rows: records[1:]}, nil
}

// Ingest validates a Table into CustomerRecords, collecting per-row
// errors without aborting the batch. A missing required column fails the
// whole batch with ErrSchemaInvalid before any row is processed.
//
// Invariant: len(customers) + len(rowErrors) == len(table.Rows).
func Ingest(table *Table) ([]model.CustomerRecord, []model.RowError, error) {
	columns, err := resolveColumns(table.Header)
	if err != nil {
		return nil, nil, err
	}

	customers := []model.CustomerRecord{}
	rowErrors := []model.RowError{}

	for i, row := range table.Rows {
		rowIndex := i + 1 // 1-based, excluding the header

		record, reason := validateRow(row, columns, rowIndex)
		if reason != "" {
			rowErrors = append(rowErrors, model.RowError{RowIndex: rowIndex, Reason: reason})
			continue
		}
		customers = append(customers, record)
	}

	return customers, rowErrors, nil
}

type columnIndexes struct {
	name          int
	phone         int
	lastOrderDate int
}

func resolveColumns(header []string) (columnIndexes, error) {
	columns := columnIndexes{name: -1, phone: -1, lastOrderDate: -1}

	for i, raw := range header {
		switch normalizeHeader(raw) {
		case colName:
			columns.name = i
		case colPhone:
			columns.phone = i
		case colLastOrderDate:
			columns.lastOrderDate = i
		}
	}

	if columns.name < 0 {
		return columns, apperrors.NewSchemaInvalid(`missing required column "name"`)
	}
	if columns.phone < 0 {
		return columns, apperrors.NewSchemaInvalid(`missing required column "phone"`)
	}
	if columns.lastOrderDate < 0 {
		return columns, apperrors.NewSchemaInvalid(`missing required column "last_order_date"`)
	}
	return columns, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

// validateRow returns either a CustomerRecord or a human-readable reason.
func validateRow(row []string, columns columnIndexes, rowIndex int) (model.CustomerRecord, string) {
	field := func(idx int) string {
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	name := field(columns.name)
	if name == "" {
		return model.CustomerRecord{}, "name is empty"
	}

	phone := field(columns.phone)
	if !validPhone(phone) {
		return model.CustomerRecord{}, fmt.Sprintf("phone %q is not a valid phone number", phone)
	}

	rawDate := field(columns.lastOrderDate)
	lastOrder, ok := parseDate(rawDate)
	if !ok {
		return model.CustomerRecord{}, fmt.Sprintf("last order date %q is not a recognized date", rawDate)
	}

	return model.CustomerRecord{
		Name:          name,
		Phone:         phone,
		LastOrderDate: lastOrder,
		RowIndex:      rowIndex,
	}, ""
}

func validPhone(phone string) bool {
	if phone == "" || !phonePattern.MatchString(phone) {
		return false
	}
	return len(digitsOnly.FindAllString(phone, -1)) >= 10
}

func parseDate(raw string) (time.Time, bool) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
