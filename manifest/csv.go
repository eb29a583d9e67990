package manifest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ReadCSV читает манифест из CSV-файла. Первая запись трактуется как
// заголовки. Файлы не в UTF-8 (выгрузки портовых систем часто приходят
// в Windows-1251) прозрачно перекодируются перед разбором.
func ReadCSV(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		logger.Warn("File is not valid UTF-8, decoding as Windows-1251", "path", path)
		decoded, _, convErr := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
		if convErr != nil {
			return nil, fmt.Errorf("failed to decode %s as Windows-1251: %w", path, convErr)
		}
		data = decoded
	}

	// BOM от Excel-экспортов
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read headers from %s: %w", path, err)
	}

	table, err := NewTable(headers)
	if err != nil {
		return nil, fmt.Errorf("invalid headers in %s: %w", path, err)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record from %s: %w", path, err)
		}
		table.AppendRow(record)
	}

	logger.Info("Loaded CSV manifest",
		"path", path,
		"rows", table.RowCount(),
		"columns", len(table.Headers()))
	return table, nil
}

// WriteCSV записывает таблицу в CSV-файл в UTF-8.
func WriteCSV(table *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(table.Headers()); err != nil {
		return fmt.Errorf("failed to write headers to %s: %w", path, err)
	}
	for i := 0; i < table.RowCount(); i++ {
		if err := writer.Write(table.Row(i)); err != nil {
			return fmt.Errorf("failed to write row %d to %s: %w", i+1, path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}
