package standardize

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// BatchCache дисковый кэш результатов нормализации, по одному JSON-файлу
// на пару (колонка, номер пакета). Файл — плоский объект
// PreCleanedValue -> NormalizedValue, пригодный для ручного diff.
// Удаление файла принудительно отправляет пакет на повторную обработку.
type BatchCache struct {
	dir    string
	logger *slog.Logger
}

// NewBatchCache создает кэш в каталоге dir (обычно temp/<манифест>/<этап>).
func NewBatchCache(dir string, logger *slog.Logger) *BatchCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchCache{
		dir:    dir,
		logger: logger.With("component", "batch_cache"),
	}
}

// Dir возвращает корневой каталог кэша.
func (c *BatchCache) Dir() string {
	return c.dir
}

// Load читает сохраненный маппинг пакета. Отсутствующий или битый файл
// не считается ошибкой вызывающего: кэш деградирует до пустого маппинга
// с предупреждением в логе, и пакет обрабатывается заново.
func (c *BatchCache) Load(column string, batchIndex int) map[string]string {
	path := c.path(column, batchIndex)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("Failed to read batch cache file, starting fresh",
				"column", column,
				"batch", batchIndex,
				"path", path,
				"error", err.Error())
		}
		return map[string]string{}
	}

	mapping := map[string]string{}
	if err := json.Unmarshal(data, &mapping); err != nil {
		c.logger.Warn("Corrupt batch cache file, starting fresh",
			"column", column,
			"batch", batchIndex,
			"path", path,
			"error", err.Error())
		return map[string]string{}
	}

	return mapping
}

// Save атомарно сохраняет маппинг пакета: запись во временный файл,
// затем rename. Частично записанный файл никогда не будет прочитан как
// валидный при следующем запуске.
//
// Уже существующие записи сохраняют прежние значения: повторное
// сохранение не может переписать значение другим (инвариант
// воспроизводимости при возобновлении).
func (c *BatchCache) Save(column string, batchIndex int, mapping map[string]string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", c.dir, err)
	}

	// Существующие записи имеют приоритет над новыми
	merged := c.Load(column, batchIndex)
	for k, v := range mapping {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch mapping: %w", err)
	}

	path := c.path(column, batchIndex)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp cache file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	c.logger.Info("Written batch cache file",
		"column", column,
		"batch", batchIndex,
		"entries", len(merged))
	return nil
}

// Pending возвращает значения пакета, которых еще нет в кэше. Только они
// требуют обращения к внешнему сервису.
func (c *BatchCache) Pending(batchValues []string, cached map[string]string) []string {
	pending := make([]string, 0, len(batchValues))
	for _, v := range batchValues {
		if _, ok := cached[v]; !ok {
			pending = append(pending, v)
		}
	}
	return pending
}

func (c *BatchCache) path(column string, batchIndex int) string {
	return filepath.Join(c.dir, fmt.Sprintf("temp_%s_cleaned_batch_%d.json", sanitizeColumn(column), batchIndex))
}

// sanitizeColumn приводит имя колонки к безопасному фрагменту имени файла.
func sanitizeColumn(column string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
	)
	return replacer.Replace(column)
}
