package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"manifestcleaner/manifest"
	"manifestcleaner/reference"
	"manifestcleaner/standardize"
)

const (
	columnCarrierCode = "Carrier Code"
	columnLSP         = "LSP"
)

// MapSCACToLSP сопоставляет коды перевозчиков из колонки Carrier Code
// реестру SCAC и записывает имя логистического провайдера в новую
// колонку LSP. Код нормализуется (верхний регистр, trim) и записывается
// обратно; несопоставленные коды оставляют LSP пустым.
func MapSCACToLSP(t *manifest.Table, books *reference.Books, logger *slog.Logger) error {
	if !t.HasColumn(columnCarrierCode) {
		return fmt.Errorf("%w: %q", standardize.ErrMissingColumn, columnCarrierCode)
	}

	codes, _ := t.Column(columnCarrierCode)
	lsp := make([]string, len(codes))
	mapped := 0
	unmapped := 0

	for i, raw := range codes {
		code := strings.ToUpper(strings.TrimSpace(raw))
		codes[i] = code
		if code == "" {
			continue
		}

		carrier, found, err := books.LookupCarrier(code)
		if err != nil {
			return fmt.Errorf("failed to map SCAC at row %d: %w", i+1, err)
		}
		if !found {
			unmapped++
			continue
		}
		lsp[i] = carrier.CompanyName
		mapped++
	}

	if err := t.SetColumn(columnCarrierCode, codes); err != nil {
		return fmt.Errorf("failed to update carrier codes: %w", err)
	}
	if err := t.SetColumn(columnLSP, lsp); err != nil {
		return fmt.Errorf("failed to set LSP column: %w", err)
	}

	logger.Info("Mapped SCAC codes to LSP names",
		"rows", len(codes),
		"mapped", mapped,
		"unmapped", unmapped)
	return nil
}
