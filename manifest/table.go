// Package manifest отвечает за чтение и запись грузовых манифестов:
// колоночная таблица в памяти, CSV с восстановлением кодировки и
// Excel-файлы.
package manifest

import (
	"fmt"
	"strconv"
)

// Table колоночное представление манифеста. Порядок колонок сохраняется
// по списку заголовков, данные хранятся поколоночно: стадии очистки
// работают с целыми колонками, а не со строками.
type Table struct {
	headers []string
	columns map[string][]string
	rows    int
}

// NewTable создает пустую таблицу с заданными заголовками. Пустые и
// повторяющиеся заголовки недопустимы.
func NewTable(headers []string) (*Table, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no headers")
	}
	t := &Table{
		headers: make([]string, 0, len(headers)),
		columns: make(map[string][]string, len(headers)),
	}
	for i, h := range headers {
		if h == "" {
			return nil, fmt.Errorf("header %d is empty", i)
		}
		if _, dup := t.columns[h]; dup {
			return nil, fmt.Errorf("duplicate header %q", h)
		}
		t.headers = append(t.headers, h)
		t.columns[h] = nil
	}
	return t, nil
}

// AppendRow добавляет строку. Недостающие ячейки дополняются пустыми,
// лишние отбрасываются.
func (t *Table) AppendRow(cells []string) {
	for i, h := range t.headers {
		value := ""
		if i < len(cells) {
			value = cells[i]
		}
		t.columns[h] = append(t.columns[h], value)
	}
	t.rows++
}

// RowCount число строк данных (без заголовка).
func (t *Table) RowCount() int {
	return t.rows
}

// Headers возвращает копию списка заголовков в порядке колонок.
func (t *Table) Headers() []string {
	out := make([]string, len(t.headers))
	copy(out, t.headers)
	return out
}

// HasColumn сообщает о наличии колонки.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Column возвращает копию значений колонки.
func (t *Table) Column(name string) ([]string, bool) {
	values, ok := t.columns[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(values))
	copy(out, values)
	return out, true
}

// SetColumn записывает значения колонки. Новая колонка добавляется в
// конец списка заголовков; длина значений должна совпадать с числом
// строк таблицы.
func (t *Table) SetColumn(name string, values []string) error {
	if name == "" {
		return fmt.Errorf("column name is empty")
	}
	if len(values) != t.rows {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	if _, exists := t.columns[name]; !exists {
		t.headers = append(t.headers, name)
	}
	stored := make([]string, len(values))
	copy(stored, values)
	t.columns[name] = stored
	return nil
}

// Cell значение ячейки; пустая строка для несуществующей колонки или
// строки за пределами таблицы.
func (t *Table) Cell(row int, column string) string {
	values, ok := t.columns[column]
	if !ok || row < 0 || row >= len(values) {
		return ""
	}
	return values[row]
}

// SetCell записывает значение ячейки существующей колонки.
func (t *Table) SetCell(row int, column, value string) error {
	values, ok := t.columns[column]
	if !ok {
		return fmt.Errorf("no column %q", column)
	}
	if row < 0 || row >= len(values) {
		return fmt.Errorf("row %d out of range for column %q", row, column)
	}
	values[row] = value
	return nil
}

// Row собирает строку в порядке заголовков.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.headers))
	for j, h := range t.headers {
		out[j] = t.Cell(i, h)
	}
	return out
}

// RenameColumn переименовывает колонку с сохранением ее позиции.
func (t *Table) RenameColumn(from, to string) error {
	values, ok := t.columns[from]
	if !ok {
		return fmt.Errorf("no column %q", from)
	}
	if to == "" {
		return fmt.Errorf("new column name is empty")
	}
	if _, exists := t.columns[to]; exists {
		return fmt.Errorf("column %q already exists", to)
	}
	for i, h := range t.headers {
		if h == from {
			t.headers[i] = to
			break
		}
	}
	delete(t.columns, from)
	t.columns[to] = values
	return nil
}

// DropColumn удаляет колонку. Удаление несуществующей колонки не ошибка.
func (t *Table) DropColumn(name string) {
	if _, ok := t.columns[name]; !ok {
		return
	}
	delete(t.columns, name)
	for i, h := range t.headers {
		if h == name {
			t.headers = append(t.headers[:i], t.headers[i+1:]...)
			break
		}
	}
}

// EnsureIDColumn гарантирует колонку-идентификатор строк. Если колонки
// нет, она добавляется со значениями "1".."N". Существующая колонка
// проверяется на пустые идентификаторы: без них невозможен построчный
// маппинг результатов очистки.
func (t *Table) EnsureIDColumn(name string) error {
	if values, ok := t.columns[name]; ok {
		for i, v := range values {
			if v == "" {
				return fmt.Errorf("identifier column %q has empty value at row %d", name, i+1)
			}
		}
		return nil
	}
	ids := make([]string, t.rows)
	for i := range ids {
		ids[i] = strconv.Itoa(i + 1)
	}
	return t.SetColumn(name, ids)
}

// Filter возвращает новую таблицу из строк, для которых keep[i] == true.
func (t *Table) Filter(keep []bool) *Table {
	filtered := &Table{
		headers: append([]string(nil), t.headers...),
		columns: make(map[string][]string, len(t.headers)),
	}
	for i := 0; i < t.rows && i < len(keep); i++ {
		if !keep[i] {
			continue
		}
		for _, h := range t.headers {
			filtered.columns[h] = append(filtered.columns[h], t.columns[h][i])
		}
		filtered.rows++
	}
	return filtered
}
