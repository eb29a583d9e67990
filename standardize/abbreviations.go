package standardize

import "regexp"

// abbreviations таблица раскрытия сокращений в названиях компаний.
// Ключи сравниваются по целым токенам после предварительной очистки,
// поэтому все ключи и значения записаны в верхнем регистре.
var abbreviations = map[string]string{
	"PVT":   "PRIVATE",
	"PRIV":  "PRIVATE",
	"LTD":   "LIMITED",
	"LIM":   "LIMITED",
	"LMTD":  "LIMITED",
	"CORP":  "CORPORATION",
	"INC":   "INCORPORATED",
	"CO":    "COMPANY",
	"COMP":  "COMPANY",
	"IND":   "INDUSTRIES",
	"INDS":  "INDUSTRIES",
	"MFG":   "MANUFACTURING",
	"MFRS":  "MANUFACTURERS",
	"INTL":  "INTERNATIONAL",
	"INT":   "INTERNATIONAL",
	"EXP":   "EXPORTS",
	"IMP":   "IMPORTS",
	"ENTS":  "ENTERPRISES",
	"ENTPR": "ENTERPRISES",
	"TRDG":  "TRADING",
	"LOGIS": "LOGISTICS",
	"SVCS":  "SERVICES",
	"SVC":   "SERVICES",
	"TEX":   "TEXTILES",
	"ENGG":  "ENGINEERING",
	"PKG":   "PACKAGING",
	"GEN":   "GENERAL",
	"NATL":  "NATIONAL",
	"BROS":  "BROTHERS",
	"AGRO":  "AGRO",
}

// unwantedTokens токены, удаляемые из названий целиком: формы обращения,
// служебный мусор из манифестов и артефакты OCR. Сравнение идёт после
// замены пунктуации на пробелы, поэтому все ключи без знаков препинания.
var unwantedTokens = map[string]struct{}{
	"MS":        {},
	"THE":       {},
	"ATTN":      {},
	"ATTENTION": {},
	"NA":        {},
	"NIL":       {},
	"NULL":      {},
	"UNKNOWN":   {},
	"SAME":      {},
	"ABOVE":     {},
	"ORDER":     {},
}

// suffixPhrases многословные шаблоны организационно-правовых форм,
// приводимые к каноническому виду уже после потокенного раскрытия.
// Порядок фиксирован: более специфичные шаблоны первыми.
var suffixPhrases = []suffixPhrase{
	{regexp.MustCompile(`\bPRIVATE LIMITED PRIVATE LIMITED\b`), "PRIVATE LIMITED"},
	{regexp.MustCompile(`\bP LIMITED\b`), "PRIVATE LIMITED"},
	{regexp.MustCompile(`\bPRIVATE PRIVATE\b`), "PRIVATE"},
	{regexp.MustCompile(`\bLIMITED LIABILITY COMPANY\b`), "LLC"},
	{regexp.MustCompile(`\bLIMITED LIABILITY PARTNERSHIP\b`), "LLP"},
	{regexp.MustCompile(`\bJOINT STOCK COMPANY\b`), "JSC"},
}

type suffixPhrase struct {
	pattern   *regexp.Regexp
	canonical string
}
