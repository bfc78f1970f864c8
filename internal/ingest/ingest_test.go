package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablereach/rengage-backend/internal/apperrors"
)

func mustReadTable(t *testing.T, csv string) *Table {
	t.Helper()
	table, err := ReadTable(strings.NewReader(csv))
	require.NoError(t, err)
	return table
}

func TestIngestHappyPath(t *testing.T) {
	table := mustReadTable(t, strings.Join([]string{
		"name,phone,last_order_date",
		"Sarah Mwangi,+254 722 000 100,2025-01-01",
		"Tom Otieno,0722-000-1010,2025-02-10",
	}, "\n"))

	customers, rowErrors, err := Ingest(table)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Empty(t, rowErrors)

	assert.Equal(t, "Sarah Mwangi", customers[0].Name)
	assert.Equal(t, 1, customers[0].RowIndex)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), customers[0].LastOrderDate)
	assert.Equal(t, 2, customers[1].RowIndex)
}

func TestIngestRowPartition(t *testing.T) {
	// Every input row becomes exactly one of CustomerRecord or RowError.
	table := mustReadTable(t, strings.Join([]string{
		"name,phone,last_order_date",
		"Sarah,+254722000100,2025-01-01",
		",+254722000101,2025-01-01",      // empty name
		"Bob,not-a-phone,2025-01-01",     // bad phone
		"Carol,0722000103,not-a-date",    // bad date
		"Dan,+254 722 000 104,1/15/2025", // unpadded US date, still rejected
		"Eve,0722 000 105,2025-03-04",
	}, "\n"))

	customers, rowErrors, err := Ingest(table)
	require.NoError(t, err)

	assert.Equal(t, len(table.Rows), len(customers)+len(rowErrors))
	assert.Len(t, customers, 2)
	require.Len(t, rowErrors, 4)

	assert.Equal(t, 2, rowErrors[0].RowIndex)
	assert.Contains(t, rowErrors[0].Reason, "name")
	assert.Equal(t, 3, rowErrors[1].RowIndex)
	assert.Contains(t, rowErrors[1].Reason, "phone")
	assert.Equal(t, 4, rowErrors[2].RowIndex)
	assert.Contains(t, rowErrors[2].Reason, "date")
}

func TestIngestMissingColumnFailsBatch(t *testing.T) {
	table := mustReadTable(t, strings.Join([]string{
		"name,phone", // no last_order_date
		"Sarah,+254722000100",
	}, "\n"))

	_, _, err := Ingest(table)
	require.Error(t, err)

	var schemaErr *apperrors.ErrSchemaInvalid
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Reason, "last_order_date")
}

func TestIngestHeaderAliases(t *testing.T) {
	table := mustReadTable(t, strings.Join([]string{
		"Name,Phone,Last Order Date",
		"Sarah,+254722000100,2025-01-01",
	}, "\n"))

	customers, rowErrors, err := Ingest(table)
	require.NoError(t, err)
	assert.Len(t, customers, 1)
	assert.Empty(t, rowErrors)
}

func TestIngestShortRow(t *testing.T) {
	table := mustReadTable(t, strings.Join([]string{
		"name,phone,last_order_date",
		"Sarah,+254722000100", // missing date field entirely
	}, "\n"))

	customers, rowErrors, err := Ingest(table)
	require.NoError(t, err)
	assert.Empty(t, customers)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 1, rowErrors[0].RowIndex)
}

func TestIngestPhoneValidation(t *testing.T) {
	cases := []struct {
		phone string
		valid bool
	}{
		{"+254722000100", true},
		{"0722 000 100", true},
		{"(072) 200-0100", true},
		{"555-0100", false}, // too few digits
		{"", false},
		{"call me maybe", false},
		{"+2547220001x0", false}, // stray letter
	}

	for _, tc := range cases {
		assert.Equal(t, tc.valid, validPhone(tc.phone), "phone %q", tc.phone)
	}
}

func TestReadTableMalformedCSV(t *testing.T) {
	_, err := ReadTable(strings.NewReader("name,phone,last_order_date\n\"unterminated,0722000100,2025-01-01"))
	require.Error(t, err)

	var schemaErr *apperrors.ErrSchemaInvalid
	assert.ErrorAs(t, err, &schemaErr)
}

func TestReadTableEmpty(t *testing.T) {
	table, err := ReadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)

	_, _, err = Ingest(table)
	var schemaErr *apperrors.ErrSchemaInvalid
	assert.ErrorAs(t, err, &schemaErr)
}
