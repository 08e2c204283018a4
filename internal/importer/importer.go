// Package importer reads ledger entries from CSV and XLSX files and writes
// them back out in the same column layout.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"salesbook/internal/core"
)

var (
	// ErrNoData is returned for a file without any data row.
	ErrNoData = errors.New("파일에 데이터가 없습니다")
	// ErrUnsupportedFormat is returned for extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format: expected .csv or .xlsx")
)

// Header aliases, first match wins.
var (
	dateKeys        = []string{"일자", "date", "날짜", "Date"}
	categoryKeys    = []string{"구분", "category"}
	vendorKeys      = []string{"거래처명", "vendor"}
	descriptionKeys = []string{"내용", "description"}
	cardKeys        = []string{"카드", "card"}
	transferKeys    = []string{"계좌이체", "transfer"}
	cashKeys        = []string{"현금", "cash"}
	memoKeys        = []string{"메모", "memo"}
)

// ExportHeader is the column layout of exported files.
var ExportHeader = []string{"일자", "구분", "거래처명", "내용", "카드", "계좌이체", "현금", "총금액", "메모"}

const utf8BOM = "\ufeff"

var (
	isoDate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	looseDate = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	// Excel counts days from 1899-12-30 (it keeps the 1900 leap-year bug).
	excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
)

// Parse dispatches on the extension of name.
func Parse(name string, r io.Reader) ([]core.Entry, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx":
		return ParseXLSX(r)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

// ParseCSV reads a header row followed by data rows. Rows without a usable
// date are dropped.
func ParseCSV(r io.Reader) ([]core.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], utf8BOM)
	}
	return entriesFromRows(records, false)
}

// ParseXLSX reads the first sheet of an XLSX workbook. Date cells stored as
// numbers are converted from Excel serials.
func ParseXLSX(r io.Reader) ([]core.Entry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return entriesFromRows(rows, true)
}

func entriesFromRows(rows [][]string, excelSerials bool) ([]core.Entry, error) {
	if len(rows) < 2 {
		return nil, ErrNoData
	}
	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if _, seen := header[h]; !seen && h != "" {
			header[h] = i
		}
	}

	entries := make([]core.Entry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		field := func(keys []string) string {
			for _, k := range keys {
				i, ok := header[k]
				if !ok || i >= len(row) {
					continue
				}
				if v := strings.TrimSpace(row[i]); v != "" {
					return v
				}
			}
			return ""
		}

		date := NormalizeDate(field(dateKeys), excelSerials)
		if date == "" {
			continue
		}
		entries = append(entries, core.Entry{
			Date:        date,
			Category:    field(categoryKeys),
			Vendor:      field(vendorKeys),
			Description: field(descriptionKeys),
			Memo:        field(memoKeys),
			Card:        core.ParseAmount(field(cardKeys)),
			Transfer:    core.ParseAmount(field(transferKeys)),
			Cash:        core.ParseAmount(field(cashKeys)),
		})
	}
	return entries, nil
}

// NormalizeDate turns a cell value into YYYY-MM-DD, or "" when it holds no
// recognizable date. With excelSerials set, a plain number is read as days
// since 1899-12-30.
func NormalizeDate(v string, excelSerials bool) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if isoDate.MatchString(v) {
		return v
	}
	if excelSerials {
		if serial, err := strconv.ParseFloat(v, 64); err == nil && serial > 0 {
			return excelEpoch.AddDate(0, 0, int(math.Floor(serial))).Format(core.DateLayout)
		}
	}
	m := looseDate.FindStringSubmatch(v)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf("%s-%02d-%02d", m[1], month, day)
}

// WriteCSV writes entries under ExportHeader, prefixed with a UTF-8 byte
// order mark when withBOM is set.
func WriteCSV(w io.Writer, entries []core.Entry, withBOM bool) error {
	if withBOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entries {
		if err := cw.Write(exportRecord(e)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes entries to the first sheet of a new workbook. Amount
// columns are stored as numbers.
func WriteXLSX(w io.Writer, entries []core.Entry) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	header := make([]any, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.Date, e.Category, e.Vendor, e.Description, e.Card, e.Transfer, e.Cash, e.Total(), e.Memo}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// ExportFilename names a download, e.g. "매출_2024-03.csv" or "지출_all.xlsx".
func ExportFilename(typ core.TxType, month, ext string) string {
	label := "매출"
	if typ == core.Expense {
		label = "지출"
	}
	if month == "" {
		month = "all"
	}
	return label + "_" + month + "." + strings.TrimPrefix(ext, ".")
}

func exportRecord(e core.Entry) []string {
	return []string{
		e.Date,
		e.Category,
		e.Vendor,
		e.Description,
		strconv.FormatInt(e.Card, 10),
		strconv.FormatInt(e.Transfer, 10),
		strconv.FormatInt(e.Cash, 10),
		strconv.FormatInt(e.Total(), 10),
		e.Memo,
	}
}
