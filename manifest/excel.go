package manifest

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// ReadExcel читает манифест с первого листа Excel-файла. Первая строка
// трактуется как заголовки, короткие строки дополняются пустыми
// ячейками до числа заголовков.
func ReadExcel(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets in %s", path)
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q from %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q in %s is empty", sheet, path)
	}

	table, err := NewTable(rows[0])
	if err != nil {
		return nil, fmt.Errorf("invalid headers in %s: %w", path, err)
	}
	for _, row := range rows[1:] {
		table.AppendRow(row)
	}

	logger.Info("Loaded Excel manifest",
		"path", path,
		"sheet", sheet,
		"rows", table.RowCount(),
		"columns", len(table.Headers()))
	return table, nil
}

// WriteExcel записывает таблицу на единственный лист нового Excel-файла.
func WriteExcel(table *Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headers := table.Headers()
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i := 0; i < table.RowCount(); i++ {
		cells := table.Row(i)
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell for row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
