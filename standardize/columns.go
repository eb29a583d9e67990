package standardize

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn в таблице нет колонки, заявленной в задании.
	// Ошибка уровня колонки: остальные задания продолжаются.
	ErrMissingColumn = errors.New("required column is missing")

	// ErrMissingIDColumn в таблице нет колонки-идентификатора строк.
	// Без нее построчный маппинг невозможен, обработка набора
	// прекращается целиком.
	ErrMissingIDColumn = errors.New("identifier column is missing")
)

// OnlyMissingColumns сообщает, что ошибка (возможно, агрегат из
// errors.Join) состоит исключительно из ошибок отсутствия колонок.
// Такие ошибки безопасно понижать до предупреждения: смешанный агрегат,
// где рядом с отсутствующей колонкой спрятана ошибка шаблона промпта
// или записи колонки, должен остаться ошибкой.
func OnlyMissingColumns(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !OnlyMissingColumns(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, ErrMissingColumn)
}

// Dataset минимальный срез таблицы, который нужен движку.
type Dataset interface {
	HasColumn(name string) bool
	Column(name string) ([]string, bool)
	SetColumn(name string, values []string) error
}

// ColumnTask задание нормализации одной колонки.
type ColumnTask struct {
	Column         string
	PromptPath     string
	Fallback       FallbackPolicy
	CityExtraction bool // Извлечение города из адреса вместо нормализации имени
}

// OutputColumn имя выходной колонки задания.
func (t ColumnTask) OutputColumn() string {
	if t.CityExtraction {
		return CityColumnName(t.Column)
	}
	return RefinedColumnName(t.Column)
}

// StandardizeColumns выполняет задания нормализации над таблицей.
// Отсутствие колонки-идентификатора прекращает обработку набора;
// отсутствие колонки одного задания пропускает только это задание.
// Колонка без единого непустого значения не порождает выходной колонки
// и не обращается к сервису. Возвращаемая ошибка агрегирует ошибки
// уровня колонок.
func (s *Standardizer) StandardizeColumns(ctx context.Context, table Dataset, idColumn string, tasks []ColumnTask) error {
	if !table.HasColumn(idColumn) {
		return fmt.Errorf("%w: %q", ErrMissingIDColumn, idColumn)
	}

	templates := make(map[string]string, len(tasks))
	var columnErrs []error

	for _, task := range tasks {
		raw, ok := table.Column(task.Column)
		if !ok {
			s.logger.Error("Skipping normalization task: column not found",
				"column", task.Column)
			columnErrs = append(columnErrs, fmt.Errorf("%w: %q", ErrMissingColumn, task.Column))
			continue
		}

		template, cached := templates[task.PromptPath]
		if !cached {
			loaded, err := LoadPromptTemplate(task.PromptPath)
			if err != nil {
				s.logger.Error("Skipping normalization task: prompt template unavailable",
					"column", task.Column,
					"error", err.Error())
				columnErrs = append(columnErrs, fmt.Errorf("column %q: %w", task.Column, err))
				continue
			}
			templates[task.PromptPath] = loaded
			template = loaded
		}

		precleaned := PrecleanAll(raw)
		if len(Distinct(precleaned)) == 0 {
			s.logger.Info("Column has no values to normalize, output column not emitted",
				"column", task.Column)
			continue
		}

		result, err := s.NormalizeValues(ctx, task.Column, template, precleaned)
		if err != nil {
			return fmt.Errorf("column %q: %w", task.Column, err)
		}

		output := ApplyMapping(raw, result.Mapping, task.Fallback)
		if err := table.SetColumn(task.OutputColumn(), output); err != nil {
			columnErrs = append(columnErrs, fmt.Errorf("column %q: %w", task.Column, err))
			continue
		}

		s.logger.Info("Normalization task finished",
			"column", task.Column,
			"output_column", task.OutputColumn(),
			"failed_batches", len(result.FailedBatches),
			"fallback_identity", task.Fallback == FallbackIdentity)
	}

	return errors.Join(columnErrs...)
}
