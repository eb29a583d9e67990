package standardize

import "strings"

// FallbackPolicy поведение при отсутствии значения в маппинге: пакет
// значения исчерпал попытки и удаленного результата нет.
type FallbackPolicy int

const (
	// FallbackIdentity подставляет предочищенное исходное значение.
	// Для колонок наименований: лучше сырое, но читаемое имя, чем пусто.
	FallbackIdentity FallbackPolicy = iota
	// FallbackNone оставляет пустую строку. Для извлечения городов:
	// отсутствие ответа не означает, что адрес сам является городом.
	FallbackNone
)

// ApplyMapping веерно проецирует маппинг уникальных значений обратно на
// все строки колонки. Каждое сырое значение предочищается, ищется в
// маппинге; при отсутствии применяется политика fallback. Пустые после
// предочистки значения всегда дают пустой результат.
func ApplyMapping(raw []string, mapping map[string]string, policy FallbackPolicy) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		cleaned := Preclean(v)
		if cleaned == "" {
			continue
		}
		if refined, ok := mapping[cleaned]; ok {
			out[i] = refined
			continue
		}
		if policy == FallbackIdentity {
			out[i] = cleaned
		}
	}
	return out
}

// PrecleanAll предочищает все значения колонки. Результат подается и в
// движок нормализации, и в ApplyMapping, чтобы ключи совпадали.
func PrecleanAll(raw []string) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = Preclean(v)
	}
	return out
}

// RefinedColumnName имя выходной колонки нормализованных значений.
func RefinedColumnName(column string) string {
	return "Refined " + column
}

// CityColumnName имя выходной колонки извлеченных городов: суффикс
// "Address" исходного имени отбрасывается.
func CityColumnName(column string) string {
	base := strings.TrimSpace(strings.TrimSuffix(column, "Address"))
	if base == "" {
		base = column
	}
	return base + " City"
}
