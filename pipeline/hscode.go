package pipeline

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"manifestcleaner/manifest"
	"manifestcleaner/reference"
	"manifestcleaner/standardize"
)

const (
	columnCommodity       = "Commodity"
	columnVerifiedHSCodes = "Verified HS Codes"
)

// hsCodePatterns упорядоченные шаблоны кодов товарной номенклатуры в
// свободном тексте описания груза: от явно подписанных кодов к голым
// последовательностям цифр.
var hsCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:(?:HSN?|HTS|H\.?S\.?|HARMONIZED(?:\s+SYSTEM)?|CUSTOMS|TARIFF)\s*(?:CODE|NO\.?|NUMBER)?[\s:=#\-]*)(\d{4}\.\d{2}(?:\.\d{2,4})?|\d{6,10})\b`),
	regexp.MustCompile(`(?i)\b(\d{4}\.\d{2}(?:\.\d{2,4})?|\d{6,10})\s+(?:IS\s+)?(?:THE\s+)?(?:HSN?|HTS|H\.?S\.?)\s*(?:CODE|NO\.?|NUMBER)?\b`),
	regexp.MustCompile(`\b(\d{4}\.\d{2}\.\d{2}(?:\.\d{2})?)\b`),
	regexp.MustCompile(`\b(\d{4}\.\d{2})\b`),
	regexp.MustCompile(`\b(\d{10})\b`),
	regexp.MustCompile(`\b(\d{8})\b`),
	regexp.MustCompile(`\b(\d{6})\b`),
	regexp.MustCompile(`(?i)(?:HS(?:N)?(?:\s*CODE)?(?:\s*NO)?[\s.:=]*)(\d{6,10})`),
	regexp.MustCompile(`\b(\d{6,10})[\s/-]+\d+[\s/-]*\d*\b`),
	regexp.MustCompile(`\b(\d{4,10})\b`),
}

// ExtractHSCandidates извлекает кандидатов кодов из текста описания
// груза в порядке приоритета шаблонов, без повторов.
func ExtractHSCandidates(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var found []string
	seen := make(map[string]struct{})
	for _, pattern := range hsCodePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			code := strings.ReplaceAll(strings.TrimSpace(match[1]), " ", "")
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}
			found = append(found, code)
		}
	}
	return found
}

// ExtractHSCodes извлекает коды из колонки Commodity, сверяет их со
// справочником и записывает подтвержденные коды через запятую в колонку
// "Verified HS Codes". Строки без подтвержденных кодов остаются пустыми.
func ExtractHSCodes(t *manifest.Table, books *reference.Books, logger *slog.Logger) error {
	if !t.HasColumn(columnCommodity) {
		return fmt.Errorf("%w: %q", standardize.ErrMissingColumn, columnCommodity)
	}

	commodities, _ := t.Column(columnCommodity)
	verified := make([]string, len(commodities))
	rowsWithCodes := 0

	for i, text := range commodities {
		candidates := ExtractHSCandidates(text)
		if len(candidates) == 0 {
			continue
		}

		var confirmed []string
		for _, code := range candidates {
			known, err := books.HasHSCode(code)
			if err != nil {
				return fmt.Errorf("failed to verify HS code at row %d: %w", i+1, err)
			}
			if known {
				confirmed = append(confirmed, reference.NormalizeHSCode(code))
			}
		}
		if len(confirmed) > 0 {
			verified[i] = strings.Join(confirmed, ",")
			rowsWithCodes++
		}
	}

	if err := t.SetColumn(columnVerifiedHSCodes, verified); err != nil {
		return fmt.Errorf("failed to set verified HS codes column: %w", err)
	}

	logger.Info("Extracted and verified HS codes",
		"rows", len(commodities),
		"rows_with_codes", rowsWithCodes)
	return nil
}
