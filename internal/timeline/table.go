package timeline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// TableFormat selects the on-disk encoding of a word table.
type TableFormat string

// Supported table formats.
const (
	FormatCSV  TableFormat = "csv"
	FormatXLSX TableFormat = "xlsx"
)

var tableHeader = []string{"text", "start", "end"}

// FormatFromPath infers the table format from a file extension.
func FormatFromPath(path string) (TableFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q (use .csv or .xlsx)", ErrUnsupportedTable, filepath.Ext(path))
	}
}

// TableStats reports what WriteTable kept and dropped.
type TableStats struct {
	Written      int
	DroppedEmpty int
	DroppedLong  int
}

// WriteTable writes words as (text, start, end) rows under a header.
// Words with empty text or more than maxRunes characters are dropped, and
// text is written wrapped in double quotes.
func WriteTable(w io.Writer, format TableFormat, words []TimedWord, maxRunes int) (TableStats, error) {
	if maxRunes <= 0 {
		maxRunes = defaultMaxWordRunes
	}

	var stats TableStats
	rows := make([]TimedWord, 0, len(words))
	for _, word := range words {
		switch {
		case word.Text == "":
			stats.DroppedEmpty++
		case utf8.RuneCountInString(word.Text) > maxRunes:
			stats.DroppedLong++
		default:
			rows = append(rows, word)
		}
	}
	stats.Written = len(rows)

	var err error
	switch format {
	case FormatCSV:
		err = writeCSV(w, rows)
	case FormatXLSX:
		err = writeXLSX(w, rows)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedTable, format)
	}
	if err != nil {
		return TableStats{}, err
	}
	return stats, nil
}

func quoteText(s string) string {
	return `"` + s + `"`
}

func unquoteText(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeCSV(w io.Writer, rows []TimedWord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tableHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write([]string{quoteText(r.Text), formatSeconds(r.Start), formatSeconds(r.End)}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, rows []TimedWord) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open xlsx stream: %w", err)
	}

	header := make([]any, len(tableHeader))
	for i, h := range tableHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, []any{quoteText(r.Text), r.Start, r.End}); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush xlsx stream: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// ReadTable reads rows written by WriteTable, removing the text quotes.
func ReadTable(r io.Reader, format TableFormat) ([]TimedWord, error) {
	var records [][]string
	var err error
	switch format {
	case FormatCSV:
		records, err = csv.NewReader(r).ReadAll()
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTable, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedTable)
	}

	words := make([]TimedWord, 0, len(records)-1)
	for i, rec := range records[1:] {
		word, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedTable, i+1, err)
		}
		words = append(words, word)
	}
	return words, nil
}

func readXLSX(r io.Reader) (records [][]string, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
}

func parseRow(rec []string) (TimedWord, error) {
	if len(rec) < len(tableHeader) {
		return TimedWord{}, errors.New("expected text, start and end columns")
	}
	start, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return TimedWord{}, fmt.Errorf("start %q: %w", rec[1], err)
	}
	end, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return TimedWord{}, fmt.Errorf("end %q: %w", rec[2], err)
	}
	return TimedWord{Text: unquoteText(rec[0]), Start: start, End: end}, nil
}
