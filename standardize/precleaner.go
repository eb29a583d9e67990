// Package standardize реализует пакетную нормализацию текстовых колонок
// манифестов через внешний text-generation сервис.
// Основные компоненты:
//   - Preclean: детерминированная локальная предочистка значений
//   - BatchCache: возобновляемый кэш пакетов на диске
//   - Client: клиент chat/completions с retry-логикой
//   - Standardizer: координатор пула воркеров и сборки итогового маппинга
package standardize

import (
	"regexp"
	"strings"
)

var (
	// unicodeSpaceRegex схлопывает все виды пробельных символов,
	// включая NBSP и типографские пробелы из выгрузок манифестов.
	unicodeSpaceRegex = regexp.MustCompile(`[\s\x{00A0}\x{1680}\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]+`)
	// punctuationRegex заменяет пунктуацию на пробел: всё, кроме букв,
	// цифр и пробелов. Классы Unicode, а не ASCII: кириллические и
	// акцентированные имена должны пережить предочистку нетронутыми.
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	collapseRegex    = regexp.MustCompile(`\s+`)
)

// Preclean выполняет детерминированную локальную очистку сырого значения
// перед отправкой во внешний сервис. Функция тотальна: никогда не
// возвращает ошибку, для пустого входа возвращает пустую строку.
//
// Результат используется как ключ дедупликации и ключ кэша, поэтому
// одинаковый вход обязан давать одинаковый выход между запусками.
func Preclean(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	// Нормализация пробелов и регистра
	cleaned := unicodeSpaceRegex.ReplaceAllString(raw, " ")
	cleaned = strings.ToUpper(strings.TrimSpace(cleaned))

	// Пунктуация -> пробел, затем повторное схлопывание
	cleaned = punctuationRegex.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(collapseRegex.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return ""
	}

	// Токенизация: удаление мусорных токенов, затем раскрытие сокращений
	tokens := strings.Split(cleaned, " ")
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, drop := unwantedTokens[token]; drop {
			continue
		}
		if full, ok := abbreviations[token]; ok {
			token = full
		}
		out = append(out, token)
	}
	cleaned = strings.Join(out, " ")

	// Канонизация многословных форм: "P LIMITED" -> "PRIVATE LIMITED",
	// дубли суффиксов схлопываются.
	for _, phrase := range suffixPhrases {
		for phrase.pattern.MatchString(cleaned) {
			cleaned = phrase.pattern.ReplaceAllString(cleaned, phrase.canonical)
		}
	}

	return strings.TrimSpace(collapseRegex.ReplaceAllString(cleaned, " "))
}
