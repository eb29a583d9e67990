package pipeline

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"manifestcleaner/manifest"
	"manifestcleaner/standardize"
)

const columnPlaceOfReceipt = "Place of Receipt"

var (
	// placeNoiseRegex служебные слова и коды регионов, не несущие
	// информации о пункте приема груза.
	placeNoiseRegex = regexp.MustCompile(`\b(INDIA|IN|PB|HR|UP|MP|ICD|CFS|PORT|SEA|TERMINAL|CONCOR|GJ|DL)\b`)
	placePunctRegex = regexp.MustCompile(`[.,\-()/]`)
	placeSpaceRegex = regexp.MustCompile(`\s+`)
)

// placeJunkTokens обрывки кодов, по которым пункт приема восстановить
// невозможно.
var placeJunkTokens = map[string]struct{}{
	"M":          {},
	"HLCU":       {},
	"RAIL":       {},
	"HIND":       {},
	"TUGHL":      {},
	"JAWAHARLAL": {},
	"GRFL":       {},
}

// placePatterns каноническая таблица портов и ICD. Проверяется по
// префиксу в заданном порядке: более специфичные записи идут раньше
// своих общих вариантов.
var placePatterns = []struct {
	prefix    string
	canonical string
}{
	{"NAHVA SHEVA", "NHAVA SHEVA"},
	{"NHAVA SHEVA", "NHAVA SHEVA"},
	{"JAWAHARLAL", "NHAVA SHEVA"},
	{"MUMBAI", "MUMBAI"},
	{"LUDHIANA", "LUDHIANA"},
	{"SAHNEWAL", "SAHNEWAL"},
	{"DADRI", "DADRI"},
	{"TUGHLAKABAD", "TUGHLAKABAD"},
	{"MORADABAD", "MORADABAD"},
	{"MANDIDEEP", "MANDIDEEP"},
	{"KILA RAIPUR", "KILA RAIPUR"},
	{"CHAWAPAYAL", "CHAWAPAYAL"},
	{"CHAWAPAIL", "CHAWAPAYAL"},
	{"JODHPUR", "JODHPUR"},
	{"PIPAVAV", "PIPAVAV"},
	{"MUNDRA", "MUNDRA"},
	{"TUTICORIN", "TUTICORIN"},
	{"KOLKATA", "KOLKATA"},
	{"SHANGHAI", "SHANGHAI"},
	{"QINGDAO", "QINGDAO"},
	{"NINGBO", "NINGBO"},
	{"YANTIAN", "YANTIAN"},
	{"BUSAN", "BUSAN"},
	{"SINGAPORE", "SINGAPORE"},
	{"FREEPORT", "FREEPORT"},
	{"HALDIA", "HALDIA"},
	{"HAMBURG", "HAMBURG"},
	{"VALENCIA", "VALENCIA"},
	{"BARCELONA", "BARCELONA"},
	{"ROTTERDAM", "ROTTERDAM"},
	{"SALALAH", "SALALAH"},
	{"LE HAVRE", "LE HAVRE"},
	{"CAUCEDO", "CAUCEDO"},
	{"EDMONTON", "EDMONTON"},
	{"CALGARY", "CALGARY"},
	{"TORONTO", "TORONTO"},
	{"VANCOUVER", "VANCOUVER"},
	{"BOSTON", "BOSTON"},
	{"MONTREAL", "MONTREAL"},
	{"MIAMI", "MIAMI"},
	{"MOBILE", "MOBILE"},
	{"QUERETARO", "QUERETARO"},
	{"MEXICO CITY", "MEXICO CITY"},
	{"APODACA", "APODACA"},
	{"MONTERREY", "MONTERREY"},
	{"LONDON", "LONDON"},
	{"HITCHIN", "HITCHIN"},
	{"CROYDON", "CROYDON"},
	{"CAMBRIDGE", "CAMBRIDGE"},
	{"GRAVELEY", "GRAVELEY"},
	{"ROYSTON", "ROYSTON"},
	{"BECCLES", "BECCLES"},
	{"HIND TERMINAL", "HIND TERMINAL ICD"},
	{"GATEWAY", "GATEWAY TERMINAL"},
	{"GRFL", "LUDHIANA GRFL"},
	{"KLPPL", "PANKI"},
	{"KANECH", "KANECH"},
	{"KHODIYAR", "KHODIYAR"},
	{"SAMALKHA", "SAMALKHA"},
	{"JATTIPUR", "JATTIPUR"},
	{"NEW DELHI", "NEW DELHI"},
	{"DELHI", "NEW DELHI"},
}

// CleanPlaceName чистая функция нормализации пункта приема груза:
// шум и пунктуация удаляются, обрывки кодов дают UNKNOWN, остальное
// прогоняется через каноническую таблицу. Не найденное в таблице
// значение возвращается очищенным как есть.
func CleanPlaceName(raw string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	if cleaned == "" {
		return ""
	}

	cleaned = placeNoiseRegex.ReplaceAllString(cleaned, "")
	cleaned = placePunctRegex.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(placeSpaceRegex.ReplaceAllString(cleaned, " "))

	if _, junk := placeJunkTokens[cleaned]; junk {
		return "UNKNOWN"
	}
	if cleaned == "INMUN" {
		return "MUNDRA"
	}

	for _, p := range placePatterns {
		if strings.HasPrefix(cleaned, p.prefix) {
			return p.canonical
		}
	}
	return cleaned
}

// CleanPlaceOfReceipt нормализует колонку Place of Receipt на месте.
// Значения, не попавшие в каноническую таблицу, перечисляются в логе
// для пополнения таблицы.
func CleanPlaceOfReceipt(t *manifest.Table, logger *slog.Logger) error {
	if !t.HasColumn(columnPlaceOfReceipt) {
		return fmt.Errorf("%w: %q", standardize.ErrMissingColumn, columnPlaceOfReceipt)
	}

	values, _ := t.Column(columnPlaceOfReceipt)
	unmatched := make(map[string]struct{})

	for i, raw := range values {
		cleaned := CleanPlaceName(raw)
		if cleaned != "" && cleaned == strings.ToUpper(strings.TrimSpace(raw)) {
			unmatched[cleaned] = struct{}{}
		}
		values[i] = cleaned
	}

	if err := t.SetColumn(columnPlaceOfReceipt, values); err != nil {
		return fmt.Errorf("failed to update place of receipt: %w", err)
	}

	for place := range unmatched {
		logger.Warn("Place of receipt not covered by canonical table", "value", place)
	}
	logger.Info("Cleaned place of receipt column",
		"rows", len(values),
		"unmatched_values", len(unmatched))
	return nil
}
