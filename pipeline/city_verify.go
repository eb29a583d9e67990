package pipeline

import (
	"fmt"
	"log/slog"

	"manifestcleaner/manifest"
	"manifestcleaner/reference"
)

// VerifyCities сверяет извлеченные города со справочником. Для каждой
// колонки городов добавляются колонки "<col> State" и "<col> PIN";
// совпадение заполняет их из справочника, несовпадение очищает ячейку
// города. Отсутствующие в таблице колонки пропускаются.
func VerifyCities(t *manifest.Table, columns []string, books *reference.Books, logger *slog.Logger) error {
	for _, column := range columns {
		cities, ok := t.Column(column)
		if !ok {
			logger.Warn("City column not found, skipping verification", "column", column)
			continue
		}

		states := make([]string, len(cities))
		pins := make([]string, len(cities))
		verified := 0
		cleared := 0

		for i, value := range cities {
			if value == "" {
				continue
			}

			city, found, err := books.LookupCity(value)
			if err != nil {
				return fmt.Errorf("failed to verify city at row %d of %q: %w", i+1, column, err)
			}
			if !found {
				cities[i] = ""
				cleared++
				continue
			}

			states[i] = city.State
			pins[i] = city.Pins
			verified++
		}

		if err := t.SetColumn(column, cities); err != nil {
			return fmt.Errorf("failed to update column %q: %w", column, err)
		}
		if err := t.SetColumn(column+" State", states); err != nil {
			return fmt.Errorf("failed to set state column for %q: %w", column, err)
		}
		if err := t.SetColumn(column+" PIN", pins); err != nil {
			return fmt.Errorf("failed to set PIN column for %q: %w", column, err)
		}

		logger.Info("Verified city column",
			"column", column,
			"verified", verified,
			"cleared", cleared)
	}
	return nil
}
