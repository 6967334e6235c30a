// Package export writes venue menus to spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")", ":", "-", "*", "", "?", "", "/", "-", "\\", "-",
)

// Sheet is a sequential row writer over an excelize workbook.
type Sheet struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
	widths       []int
}

func NewSheet() *Sheet {
	return &Sheet{file: excelize.NewFile()}
}

// AddSheet starts a new sheet; the workbook's default sheet is reused for the first one.
func (w *Sheet) AddSheet(name string) error {
	name = sheetNameReplacer.Replace(name)
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	if name == "" {
		name = fmt.Sprintf("Sheet%d", len(w.file.GetSheetList())+1)
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else {
		w.fitColumns()
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	w.widths = nil
	return nil
}

// WriteHeader writes bold column headers and freezes them.
func (w *Sheet) WriteHeader(columns []string) error {
	if err := w.writeCells(toAny(columns)); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow)
		_ = w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
	}
	_ = w.file.SetPanes(w.currentSheet, &excelize.Panes{
		Freeze: true, YSplit: w.currentRow, TopLeftCell: fmt.Sprintf("A%d", w.currentRow+1), ActivePane: "bottomLeft",
	})

	w.currentRow++
	return nil
}

// WriteRow writes a data row to the current sheet.
func (w *Sheet) WriteRow(row []any) error {
	if err := w.writeCells(row); err != nil {
		return err
	}
	w.currentRow++
	return nil
}

func (w *Sheet) writeCells(row []any) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}
	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
		w.track(i, val)
	}
	return nil
}

func (w *Sheet) track(col int, val any) {
	for len(w.widths) <= col {
		w.widths = append(w.widths, 0)
	}
	if n := len([]rune(fmt.Sprint(val))); n > w.widths[col] {
		w.widths[col] = n
	}
}

func (w *Sheet) fitColumns() {
	for i, width := range w.widths {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		_ = w.file.SetColWidth(w.currentSheet, name, name, float64(min(width+2, 60)))
	}
}

// Save writes the workbook to wr.
func (w *Sheet) Save(wr io.Writer) error {
	w.fitColumns()
	return w.file.Write(wr)
}

func (w *Sheet) Close() error {
	return w.file.Close()
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
