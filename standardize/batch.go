package standardize

// Distinct возвращает уникальные непустые значения колонки с сохранением
// порядка первого вхождения. Порядок не влияет на корректность, но даёт
// воспроизводимые номера пакетов и читаемые логи.
func Distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitBatches разбивает значения на последовательные пакеты размером не
// более size. Пакеты внутри колонки не пересекаются и вместе покрывают
// все значения ровно один раз.
func SplitBatches(values []string, size int) [][]string {
	if size <= 0 || len(values) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(values)+size-1)/size)
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		batches = append(batches, values[start:end])
	}
	return batches
}
