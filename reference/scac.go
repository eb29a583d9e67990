package reference

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Carrier запись реестра SCAC: код перевозчика и его компания.
type Carrier struct {
	Code        string
	CompanyName string
	Country     string
}

// LookupCarrier возвращает запись перевозчика по коду SCAC. Второй
// результат false, если код неизвестен справочнику.
func (b *Books) LookupCarrier(scac string) (*Carrier, bool, error) {
	code := strings.ToUpper(strings.TrimSpace(scac))
	if code == "" {
		return nil, false, nil
	}

	carrier := &Carrier{Code: code}
	var country sql.NullString
	err := b.conn.QueryRow(
		`SELECT company_name, country FROM scac_codes WHERE code = ?`, code).
		Scan(&carrier.CompanyName, &country)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up SCAC %s: %w", code, err)
	}
	if country.Valid {
		carrier.Country = country.String
	}
	return carrier, true, nil
}

// UpsertSCAC добавляет или обновляет запись реестра SCAC.
func (b *Books) UpsertSCAC(carrier Carrier) error {
	code := strings.ToUpper(strings.TrimSpace(carrier.Code))
	name := strings.TrimSpace(carrier.CompanyName)
	if code == "" || name == "" {
		return fmt.Errorf("SCAC code and company name must not be empty")
	}

	_, err := b.conn.Exec(`
		INSERT INTO scac_codes (code, company_name, country) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			company_name = excluded.company_name,
			country = excluded.country`,
		code, name, strings.TrimSpace(carrier.Country))
	if err != nil {
		return fmt.Errorf("failed to upsert SCAC %s: %w", code, err)
	}
	return nil
}

// ImportSCACFromCSV загружает реестр SCAC из CSV-файла с колонками
// code,company_name,country. Первая строка трактуется как заголовок и
// пропускается. Возвращает число импортированных записей.
func (b *Books) ImportSCACFromCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return 0, fmt.Errorf("failed to read header from %s: %w", path, err)
	}

	imported := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("failed to read record from %s: %w", path, err)
		}
		if len(record) < 2 {
			continue
		}
		carrier := Carrier{Code: record[0], CompanyName: record[1]}
		if len(record) > 2 {
			carrier.Country = record[2]
		}
		if err := b.UpsertSCAC(carrier); err != nil {
			b.logger.Warn("Skipping invalid SCAC record",
				"record", strings.Join(record, ","),
				"error", err.Error())
			continue
		}
		imported++
	}

	b.logger.Info("Imported SCAC registry", "path", path, "records", imported)
	return imported, nil
}
