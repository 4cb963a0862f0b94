// Package ingest parses raw lead files (CSV and XLSX) into RawRecords.
// Structural problems — an empty file, a row with no derivable name — are
// hard errors that propagate to the caller before any blocks are created.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/nextier/outreach-cli/internal/model"
)

// Options configures lead-file parsing.
type Options struct {
	Delimiter rune // default ','
}

// headerAliases maps canonical field names to the column headings seen in
// the wild. Matching is case-insensitive after trimming and snake-casing.
var headerAliases = map[string][]string{
	"first_name": {"first_name", "firstname", "fname", "first"},
	"last_name":  {"last_name", "lastname", "lname", "last"},
	"full_name":  {"name", "full_name", "contact", "contact_name", "owner", "owner_name"},
	"company":    {"company", "company_name", "business", "business_name", "dba"},
	"phone":      {"phone", "phone_number", "mobile", "cell"},
	"email":      {"email", "email_address"},
	"address":    {"address", "street", "address1", "street_address", "mailing_address"},
	"city":       {"city"},
	"state":      {"state", "st"},
	"zip":        {"zip", "zipcode", "zip_code", "postal_code"},
	"sic_code":   {"sic", "sic_code", "sic code"},
}

// ReadFile parses a lead file, dispatching on extension (.csv or .xlsx).
func ReadFile(ctx context.Context, path string, opts Options) ([]model.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(ctx, path, opts)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open file")
		}
		defer f.Close()
		return ReadCSV(ctx, f, opts)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses CSV lead data. The first row must be a header; a file with
// fewer than two lines is a hard error.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([]model.RawRecord, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: context cancelled")
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		rows = append(rows, row)
	}

	return mapRows(rows)
}

// ReadXLSX parses the first sheet of an XLSX workbook as lead data.
func ReadXLSX(ctx context.Context, path string, _ Options) ([]model.RawRecord, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "ingest: context cancelled")
		}
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, strings.TrimSpace(c.String()))
		}
		rows = append(rows, cells)
	}

	return mapRows(rows)
}

// mapRows turns a header row plus data rows into RawRecords.
func mapRows(rows [][]string) ([]model.RawRecord, error) {
	if len(rows) < 2 {
		return nil, eris.New("ingest: file must have a header row and at least one data row")
	}

	cols := resolveColumns(rows[0])
	if _, ok := cols["first_name"]; !ok {
		if _, ok := cols["full_name"]; !ok {
			return nil, eris.New("ingest: no name column found in header")
		}
	}

	records := make([]model.RawRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if emptyRow(row) {
			continue
		}
		rec, err := mapRow(row, cols)
		if err != nil {
			// Row numbers are 1-based and include the header.
			return nil, eris.Wrap(err, fmt.Sprintf("ingest: row %d", i+2))
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, eris.New("ingest: no data rows")
	}

	zap.L().Info("ingest: parsed lead file", zap.Int("records", len(records)))
	return records, nil
}

// resolveColumns maps canonical field names to column indexes.
func resolveColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.ReplaceAll(h, " ", "_")
		h = strings.ReplaceAll(h, "-", "_")
		normalized[i] = h
	}

	cols := make(map[string]int)
	for field, aliases := range headerAliases {
		for _, alias := range aliases {
			for i, h := range normalized {
				if h == alias {
					if _, taken := cols[field]; !taken {
						cols[field] = i
					}
				}
			}
		}
	}
	return cols
}

func mapRow(row []string, cols map[string]int) (model.RawRecord, error) {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec := model.RawRecord{
		FirstName: get("first_name"),
		LastName:  get("last_name"),
		Company:   get("company"),
		Phone:     get("phone"),
		Email:     get("email"),
		Address:   get("address"),
		City:      get("city"),
		State:     get("state"),
		Zip:       get("zip"),
		SICCode:   get("sic_code"),
	}

	if rec.FirstName == "" && rec.LastName == "" {
		full := get("full_name")
		if full == "" {
			return model.RawRecord{}, eris.New("no name derivable")
		}
		parts := strings.Fields(full)
		rec.FirstName = parts[0]
		if len(parts) > 1 {
			rec.LastName = strings.Join(parts[1:], " ")
		}
	}

	return rec, nil
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
