package reference

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// HasHSCode проверяет, что код товарной номенклатуры известен
// справочнику. Код нормализуется: верхний регистр, без пробелов и точек.
func (b *Books) HasHSCode(code string) (bool, error) {
	normalized := NormalizeHSCode(code)
	if normalized == "" {
		return false, nil
	}

	var id int
	err := b.conn.QueryRow(`SELECT id FROM hs_codes WHERE code = ?`, normalized).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up HS code %s: %w", normalized, err)
	}
	return true, nil
}

// UpsertHSCode добавляет или обновляет запись справочника кодов.
func (b *Books) UpsertHSCode(code, description string) error {
	normalized := NormalizeHSCode(code)
	if normalized == "" {
		return fmt.Errorf("HS code must not be empty")
	}

	_, err := b.conn.Exec(`
		INSERT INTO hs_codes (code, description) VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET description = excluded.description`,
		normalized, strings.TrimSpace(description))
	if err != nil {
		return fmt.Errorf("failed to upsert HS code %s: %w", normalized, err)
	}
	return nil
}

// ImportHSCodesFromJSON загружает справочник кодов из JSON-файла:
// массив объектов {"code","description"}.
func (b *Books) ImportHSCodesFromJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var codes []struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &codes); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	imported := 0
	for _, c := range codes {
		if err := b.UpsertHSCode(c.Code, c.Description); err != nil {
			b.logger.Warn("Skipping invalid HS code record",
				"code", c.Code,
				"error", err.Error())
			continue
		}
		imported++
	}

	b.logger.Info("Imported HS code reference", "path", path, "records", imported)
	return imported, nil
}

// NormalizeHSCode приводит код к каноническому виду для сравнения.
func NormalizeHSCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, " ", "")
	code = strings.ReplaceAll(code, ".", "")
	return code
}
