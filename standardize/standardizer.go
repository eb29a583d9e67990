package standardize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// EngineConfig параметры движка нормализации.
type EngineConfig struct {
	ChunkSize      int // Размер пакета уникальных значений
	MaxConcurrency int // Верхний предел одновременных запросов к сервису
}

// DefaultEngineConfig значения по умолчанию.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ChunkSize:      10,
		MaxConcurrency: 6,
	}
}

// Standardizer движок нормализации одной колонки значений. Пакеты
// обрабатываются пулом воркеров; результат каждого удачного пакета
// немедленно сохраняется в кэш, итоговый маппинг собирается заново из
// кэша, а не из памяти воркеров.
type Standardizer struct {
	client *Client
	cache  *BatchCache
	config EngineConfig
	logger *slog.Logger
}

// NewStandardizer создает движок. Некорректные параметры конфигурации
// заменяются значениями по умолчанию.
func NewStandardizer(client *Client, cache *BatchCache, config EngineConfig, logger *slog.Logger) *Standardizer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultEngineConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaults.ChunkSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	return &Standardizer{
		client: client,
		cache:  cache,
		config: config,
		logger: logger.With("component", "standardizer"),
	}
}

// ColumnResult итог нормализации колонки.
type ColumnResult struct {
	// Mapping вход -> нормализованный выход, собранный из кэша.
	// Отсутствие ключа означает, что его пакет завершился неудачей.
	Mapping map[string]string
	// TotalBatches число пакетов после дедупликации и разбиения.
	TotalBatches int
	// FailedBatches индексы пакетов, исчерпавших попытки в этом прогоне.
	FailedBatches []int
	// CachedBatches число пакетов, полностью закрытых кэшем без запроса.
	CachedBatches int
}

// NormalizeValues нормализует значения одной колонки. На вход подаются
// уже предочищенные значения; дубликаты и пустые строки отбрасываются.
// Ошибки отдельных пакетов не прерывают прогон и не считаются ошибкой
// колонки: их входы просто отсутствуют в Mapping, а индексы перечислены
// в FailedBatches. Ошибка возвращается только при отмене контекста.
func (s *Standardizer) NormalizeValues(ctx context.Context, column, promptTemplate string, values []string) (*ColumnResult, error) {
	distinct := Distinct(values)
	batches := SplitBatches(distinct, s.config.ChunkSize)

	result := &ColumnResult{
		Mapping:      make(map[string]string),
		TotalBatches: len(batches),
	}
	if len(batches) == 0 {
		s.logger.Info("No values to normalize", "column", column)
		return result, nil
	}

	workers := s.config.MaxConcurrency
	if workers > len(batches) {
		workers = len(batches)
	}

	s.logger.Info("Starting column normalization",
		"column", column,
		"distinct_values", len(distinct),
		"batches", len(batches),
		"workers", workers)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		semaphore = make(chan struct{}, workers)
		cancelErr error
	)

	for i, batch := range batches {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, fmt.Errorf("column %s cancelled: %w", column, ctx.Err())
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(index int, batch []string) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Panic in batch worker",
						"column", column,
						"batch", index,
						"panic", r)
					mu.Lock()
					result.FailedBatches = append(result.FailedBatches, index)
					mu.Unlock()
				}
			}()

			cached := s.cache.Load(column, index)
			pending := s.cache.Pending(batch, cached)
			if len(pending) == 0 {
				s.logger.Info("Batch fully covered by cache",
					"column", column,
					"batch", index,
					"values", len(batch))
				mu.Lock()
				result.CachedBatches++
				mu.Unlock()
				return
			}

			mapping, err := s.client.Normalize(ctx, promptTemplate, pending)
			if err != nil {
				// Отмена контекста не отказ пакета: прогон прерван
				// целиком, fallback к необработанным значениям неприменим
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					mu.Lock()
					if cancelErr == nil {
						cancelErr = err
					}
					mu.Unlock()
					return
				}
				s.logger.Error("Batch normalization failed",
					"column", column,
					"batch", index,
					"values", len(pending),
					"error", err.Error())
				mu.Lock()
				result.FailedBatches = append(result.FailedBatches, index)
				mu.Unlock()
				return
			}

			if err := s.cache.Save(column, index, mapping); err != nil {
				// Результат получен, но не сохранен: следующий прогон
				// повторит запрос, текущий соберет пакет из памяти ниже
				s.logger.Error("Failed to save batch cache",
					"column", column,
					"batch", index,
					"error", err.Error())
				mu.Lock()
				for k, v := range mapping {
					result.Mapping[k] = v
				}
				mu.Unlock()
			}
		}(i, batch)
	}

	wg.Wait()

	if cancelErr != nil {
		return nil, fmt.Errorf("column %s cancelled: %w", column, cancelErr)
	}

	// Итоговый маппинг собирается из кэша, а не из памяти воркеров:
	// единственный источник правды для возобновляемых прогонов
	for i := range batches {
		for k, v := range s.cache.Load(column, i) {
			result.Mapping[k] = v
		}
	}

	sort.Ints(result.FailedBatches)

	s.logger.Info("Column normalization finished",
		"column", column,
		"mapped", len(result.Mapping),
		"cached_batches", result.CachedBatches,
		"failed_batches", len(result.FailedBatches))

	return result, nil
}
