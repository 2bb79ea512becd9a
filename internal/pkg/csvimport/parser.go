package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ManuelReschke/CatalogFox/app/models"
)

// Required and optional CSV columns. The header match is exact and
// case-sensitive.
const (
	ColumnSKU         = "sku"
	ColumnName        = "name"
	ColumnDescription = "description"
)

// Record is one validated candidate row from the input file.
type Record struct {
	RowNumber     int64 // 1-based position among data rows
	SKU           string
	NormalizedSKU string
	Name          string
	Description   *string
}

// RowError marks a single rejected row. It never aborts the import.
type RowError struct {
	RowNumber int64
	Reason    string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d rejected: %s", e.RowNumber, e.Reason)
}

// SchemaError is fatal for the whole import: a required column is missing
// from the header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("csv header is missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// Parser streams candidate records out of a CSV source one row at a time.
// It holds at most one row in memory.
type Parser struct {
	reader  *csv.Reader
	columns map[string]int
	fields  int
	row     int64
}

// NewParser consumes the header line and validates the schema. A missing
// required column returns a *SchemaError before any data row is read.
func NewParser(r io.Reader) (*Parser, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &SchemaError{Missing: []string{ColumnSKU, ColumnName}}
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			// Strip a UTF-8 BOM that some exports put in front of the
			// first column name.
			name = strings.TrimPrefix(name, "\ufeff")
		}
		columns[name] = i
	}

	var missing []string
	for _, required := range []string{ColumnSKU, ColumnName} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	return &Parser{
		reader:  reader,
		columns: columns,
		fields:  len(header),
	}, nil
}

// Next returns the next candidate record in input order. It returns io.EOF
// when the source is exhausted, a *RowError for a rejected row, and any
// other error for an unreadable source.
func (p *Parser) Next() (*Record, error) {
	fields, err := p.reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			// Malformed line (unescapable quoting etc.) - reject the row,
			// the reader continues with the next line.
			p.row++
			return nil, &RowError{RowNumber: p.row, Reason: err.Error()}
		}
		return nil, fmt.Errorf("failed to read csv row: %w", err)
	}

	p.row++

	if len(fields) != p.fields {
		return nil, &RowError{
			RowNumber: p.row,
			Reason:    fmt.Sprintf("expected %d columns, got %d", p.fields, len(fields)),
		}
	}

	sku := strings.TrimSpace(fields[p.columns[ColumnSKU]])
	if sku == "" {
		return nil, &RowError{RowNumber: p.row, Reason: "sku is empty"}
	}

	name := strings.TrimSpace(fields[p.columns[ColumnName]])
	if name == "" {
		return nil, &RowError{RowNumber: p.row, Reason: "name is empty"}
	}

	record := &Record{
		RowNumber:     p.row,
		SKU:           sku,
		NormalizedSKU: models.NormalizeSKU(sku),
		Name:          name,
	}

	if idx, ok := p.columns[ColumnDescription]; ok {
		if desc := strings.TrimSpace(fields[idx]); desc != "" {
			record.Description = &desc
		}
	}

	return record, nil
}

// Row returns the number of data rows read so far, rejected rows included.
func (p *Parser) Row() int64 {
	return p.row
}

// CountRows scans a CSV stream and returns the number of data rows
// (excluding the header line).
func CountRows(r io.Reader) (int64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	var count int64
	first := true
	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// Keep counting - the processing pass rejects the row.
				if !first {
					count++
				}
				first = false
				continue
			}
			return 0, err
		}
		if !first {
			count++
		}
		first = false
	}
	return count, nil
}
