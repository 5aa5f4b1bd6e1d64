// Package importer turns uploaded spreadsheets into HSE records.
//
// Rows are classified one at a time by a fixed heuristic (explicit type
// column, then sheet name, then which fields are filled in) and mapped onto
// records with tolerant header matching and last-resort defaults.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned for files that are neither .xlsx nor .xls.
var ErrUnsupportedFormat = errors.New("unsupported file type: upload an .xlsx or .xls spreadsheet")

// Sheet is one worksheet with its header row split off.
type Sheet struct {
	Name   string
	Header []string
	Rows   []Row
}

// ReadWorkbook reads every sheet of an .xlsx or .xls file. The format is
// chosen by the filename extension.
func ReadWorkbook(r io.Reader, filename string) ([]Sheet, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".xlsx" && ext != ".xlsm" && ext != ".xls" {
		return nil, ErrUnsupportedFormat
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var sheets []Sheet
	if ext == ".xls" {
		sheets, err = readXLS(data)
	} else {
		sheets, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no worksheet found")
	}
	return sheets, nil
}

func readXLSX(data []byte) ([]Sheet, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sheets []Sheet
	for _, name := range file.GetSheetList() {
		// Raw values keep dates as Excel serial numbers.
		rows, err := file.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, newSheet(name, rows))
	}
	return sheets, nil
}

func readXLS(data []byte) (sheets []Sheet, err error) {
	// extrame/xls panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			sheets, err = nil, fmt.Errorf("open xls: malformed workbook: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}

	for i := 0; i < workbook.NumSheets(); i++ {
		ws := workbook.GetSheet(i)
		if ws == nil {
			continue
		}
		rows := make([][]string, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := 0; c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, newSheet(ws.Name, rows))
	}
	return sheets, nil
}

// newSheet uses the first non-blank row as the header.
func newSheet(name string, rows [][]string) Sheet {
	s := Sheet{Name: name}
	headerAt := -1
	for i, cells := range rows {
		if !blank(cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return s
	}

	s.Header = rows[headerAt]
	for i := headerAt + 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		s.Rows = append(s.Rows, NewRow(name, i+1, s.Header, rows[i]))
	}
	return s
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
