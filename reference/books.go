// Package reference содержит локальные справочники для детерминированных
// стадий очистки манифестов: коды перевозчиков SCAC, справочник городов
// с штатами и почтовыми индексами, шаблоны кодов ТН ВЭД (HS).
package reference

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Books подключение к базе справочников. Безопасно для конкурентного
// чтения; запись выполняется только при импорте справочников.
type Books struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open открывает базу справочников и применяет схему. Путь ":memory:"
// дает чистую базу в памяти (используется в тестах).
func Open(path string, logger *slog.Logger) (*Books, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference database %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping reference database %s: %w", path, err)
	}

	b := &Books{
		conn:   conn,
		logger: logger.With("component", "reference_books"),
	}
	if err := b.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// Close закрывает подключение к базе.
func (b *Books) Close() error {
	return b.conn.Close()
}

// normalizeKey ключ поиска: верхний регистр, без пробелов. Позволяет
// сопоставлять "NEW DELHI", "New Delhi" и "NEWDELHI" одной записи.
func normalizeKey(value string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(value)), " ", "")
}
