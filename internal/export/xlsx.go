package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/samvad-hq/samvad-debts-client/pkg/obligations"
	"github.com/xuri/excelize/v2"
)

const (
	debtsSheet   = "Debts"
	summarySheet = "Summary"
)

// WriteXLSX writes debts as a workbook: one row per debt with the documented
// fields first and any extra fields after them in sorted order. When summary
// is present its top-level keys go to a second sheet.
func WriteXLSX(w io.Writer, debts []obligations.Obligation, summary obligations.SummaryReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", debtsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := make([]map[string]json.RawMessage, 0, len(debts))
	for _, d := range debts {
		fields, err := d.Fields()
		if err != nil {
			return fmt.Errorf("flatten debt: %w", err)
		}
		rows = append(rows, fields)
	}
	columns := columnsFor(rows)

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(debtsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, fields := range rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			values[i] = cellValue(fields[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(debtsSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if summary.Present() {
		if err := writeSummary(f, summary); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, summary obligations.SummaryReport) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("add summary sheet: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(summary.Raw(), &fields); err != nil {
		// Not an object: keep the whole report in one cell.
		return f.SetCellValue(summarySheet, "A1", string(summary.Raw()))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		row := []any{k, cellValue(fields[k])}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	return nil
}

func columnsFor(rows []map[string]json.RawMessage) []string {
	seen := make(map[string]bool)
	for _, fields := range rows {
		for k := range fields {
			seen[k] = true
		}
	}

	var cols []string
	for _, k := range obligations.KnownFields {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// cellValue maps a JSON value to a spreadsheet cell: strings unquoted,
// numbers numeric when they fit a float64, objects and arrays as JSON text.
func cellValue(raw json.RawMessage) any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case 't', 'f':
		return raw[0] == 't'
	case '{', '[':
		return string(raw)
	default:
		if n, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return n
		}
	}
	return string(raw)
}
