package reference

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// City запись справочника городов. Pins содержит почтовые индексы
// города через запятую.
type City struct {
	Name  string `json:"name"`
	State string `json:"state"`
	Pins  string `json:"pins"`
}

// LookupCity возвращает запись города по имени. Поиск нечувствителен к
// регистру и пробелам внутри имени.
func (b *Books) LookupCity(name string) (*City, bool, error) {
	key := normalizeKey(name)
	if key == "" {
		return nil, false, nil
	}

	city := &City{}
	var state, pins sql.NullString
	err := b.conn.QueryRow(
		`SELECT name, state, pins FROM cities WHERE name_key = ?`, key).
		Scan(&city.Name, &state, &pins)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up city %q: %w", name, err)
	}

	if state.Valid {
		city.State = state.String
	}
	if pins.Valid {
		city.Pins = pins.String
	}
	return city, true, nil
}

// UpsertCity добавляет или обновляет запись справочника городов.
func (b *Books) UpsertCity(city City) error {
	name := strings.TrimSpace(city.Name)
	if name == "" {
		return fmt.Errorf("city name must not be empty")
	}

	_, err := b.conn.Exec(`
		INSERT INTO cities (name, name_key, state, pins) VALUES (?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			state = excluded.state,
			pins = excluded.pins`,
		name, normalizeKey(name), strings.TrimSpace(city.State), strings.TrimSpace(city.Pins))
	if err != nil {
		return fmt.Errorf("failed to upsert city %q: %w", name, err)
	}
	return nil
}

// ImportCitiesFromJSON загружает справочник городов из JSON-файла:
// массив объектов {"name","state","pins"}.
func (b *Books) ImportCitiesFromJSON(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cities []City
	if err := json.Unmarshal(data, &cities); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	imported := 0
	for _, city := range cities {
		if err := b.UpsertCity(city); err != nil {
			b.logger.Warn("Skipping invalid city record",
				"name", city.Name,
				"error", err.Error())
			continue
		}
		imported++
	}

	b.logger.Info("Imported city reference", "path", path, "records", imported)
	return imported, nil
}
