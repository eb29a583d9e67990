// Package pipeline содержит детерминированные стадии очистки манифестов
// и оркестратор обработки файлов. Стадии работают над колоночной
// таблицей; каждая возвращает новую таблицу либо дописывает колонки.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"manifestcleaner/manifest"
	"manifestcleaner/standardize"
)

const (
	columnMasterBOL  = "Master BOL"
	columnContainers = "Container Numbers"
	columnHouseBOL   = "House BOL"
	columnLCL        = "LCL"
)

// RemoveExactDuplicates удаляет полностью идентичные строки, сохраняя
// первое вхождение.
func RemoveExactDuplicates(t *manifest.Table, logger *slog.Logger) *manifest.Table {
	seen := make(map[string]struct{}, t.RowCount())
	keep := make([]bool, t.RowCount())
	kept := 0

	for i := 0; i < t.RowCount(); i++ {
		key := strings.Join(t.Row(i), "\x1f")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
		kept++
	}

	logger.Info("Removed exact duplicate rows",
		"before", t.RowCount(),
		"after", kept,
		"removed", t.RowCount()-kept)
	return t.Filter(keep)
}

// DeduplicateByMBLContainer схлопывает строки, сгруппированные по паре
// (Master BOL, Container Numbers), по наличию House BOL:
//   - группа из одной строки остается как есть;
//   - в группе из двух строк при ровно одном House BOL остается только
//     строка с ним, иначе остаются обе;
//   - в большей группе остаются только строки с House BOL.
//
// Каждая оставшаяся строка многострочной группы помечается LCL=Yes,
// остальные получают LCL=No. Отсутствие обязательных колонок — ошибка
// уровня набора данных.
func DeduplicateByMBLContainer(t *manifest.Table, logger *slog.Logger) (*manifest.Table, error) {
	for _, col := range []string{columnMasterBOL, columnContainers, columnHouseBOL} {
		if !t.HasColumn(col) {
			return nil, fmt.Errorf("%w: %q", standardize.ErrMissingColumn, col)
		}
	}

	mbl, _ := t.Column(columnMasterBOL)
	containers, _ := t.Column(columnContainers)
	houseBOL, _ := t.Column(columnHouseBOL)

	// Группы в порядке первого вхождения
	groupKeys := make([]string, 0)
	groups := make(map[string][]int)
	for i := 0; i < t.RowCount(); i++ {
		key := mbl[i] + "\x1f" + containers[i]
		if _, seen := groups[key]; !seen {
			groupKeys = append(groupKeys, key)
		}
		groups[key] = append(groups[key], i)
	}

	lcl := make([]string, t.RowCount())
	for i := range lcl {
		lcl[i] = "No"
	}

	keep := make([]bool, t.RowCount())
	kept := 0
	for _, key := range groupKeys {
		rows := groups[key]
		if len(rows) == 1 {
			keep[rows[0]] = true
			kept++
			continue
		}

		withHBL := make([]int, 0, len(rows))
		for _, i := range rows {
			if strings.TrimSpace(houseBOL[i]) != "" {
				withHBL = append(withHBL, i)
			}
		}

		var selected []int
		switch {
		case len(rows) == 2 && len(withHBL) == 1:
			selected = withHBL
		case len(rows) == 2:
			selected = rows
		default:
			selected = withHBL
		}

		for _, i := range selected {
			keep[i] = true
			lcl[i] = "Yes"
			kept++
		}
	}

	if err := t.SetColumn(columnLCL, lcl); err != nil {
		return nil, fmt.Errorf("failed to set LCL column: %w", err)
	}

	logger.Info("Deduplicated by Master BOL and container",
		"groups", len(groupKeys),
		"before", t.RowCount(),
		"after", kept)
	return t.Filter(keep), nil
}
