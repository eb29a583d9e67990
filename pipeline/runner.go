package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"manifestcleaner/manifest"
	"manifestcleaner/reference"
	"manifestcleaner/standardize"
)

// Config параметры прогона пайплайна.
type Config struct {
	TempDir         string   // Корень кэша пакетной нормализации
	IDColumn        string   // Колонка-идентификатор строк
	PartyColumns    []string // Колонки контрагентов для нормализации имен
	AddressColumns  []string // Адресные колонки для извлечения городов
	PartyPromptPath string
	CityPromptPath  string
	Engine          standardize.EngineConfig
}

// Runner оркестратор очистки манифестов: прогоняет каждый файл через
// все стадии. Ошибка одного файла логируется и не прерывает обработку
// остальных.
type Runner struct {
	client *standardize.Client
	books  *reference.Books
	config Config
	logger *slog.Logger
}

// NewRunner создает оркестратор.
func NewRunner(client *standardize.Client, books *reference.Books, config Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if config.IDColumn == "" {
		config.IDColumn = "Row ID"
	}
	return &Runner{
		client: client,
		books:  books,
		config: config,
		logger: logger.With("component", "pipeline_runner"),
	}
}

// FileResult итог обработки одного файла.
type FileResult struct {
	Path     string
	Output   string
	Rows     int
	Duration time.Duration
	Err      error
}

// Summary итог прогона.
type Summary struct {
	RunID     string
	Processed int
	Failed    int
	Duration  time.Duration
	Files     []FileResult
}

// Run обрабатывает все файлы *.csv и *.xlsx из каталога inputDir и
// складывает очищенные CSV в outputDir. Возвращает сводку; ошибка
// возвращается только при недоступности каталогов или отмене контекста.
func (r *Runner) Run(ctx context.Context, inputDir, outputDir string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", summary.RunID)

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", inputDir, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run cancelled: %w", err)
		}

		result := r.ProcessFile(ctx, filepath.Join(inputDir, entry.Name()), outputDir)
		summary.Files = append(summary.Files, result)
		if result.Err != nil {
			if errors.Is(result.Err, context.Canceled) || errors.Is(result.Err, context.DeadlineExceeded) {
				summary.Failed++
				summary.Duration = time.Since(start)
				return summary, fmt.Errorf("run cancelled: %w", result.Err)
			}
			logger.Error("Manifest processing failed, continuing with next file",
				"path", result.Path,
				"error", result.Err.Error())
			summary.Failed++
			continue
		}
		summary.Processed++
	}

	summary.Duration = time.Since(start)
	logger.Info("Run finished",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"duration", summary.Duration.String())
	return summary, nil
}

// ProcessFile прогоняет один манифест через все стадии очистки.
// Структурные ошибки набора данных прекращают обработку файла; ошибки
// уровня колонок логируются, остальные стадии продолжаются.
func (r *Runner) ProcessFile(ctx context.Context, path, outputDir string) FileResult {
	start := time.Now()
	result := FileResult{Path: path}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	logger := r.logger.With("manifest", filepath.Base(path))

	table, err := r.readManifest(path, logger)
	if err != nil {
		result.Err = err
		return result
	}

	if err := table.EnsureIDColumn(r.config.IDColumn); err != nil {
		result.Err = fmt.Errorf("%w: %v", standardize.ErrMissingIDColumn, err)
		return result
	}

	// Стадия 1: точные дубликаты
	table = RemoveExactDuplicates(table, logger)

	// Стадия 2: схлопывание по Master BOL + контейнер
	table, err = DeduplicateByMBLContainer(table, logger)
	if err != nil {
		result.Err = fmt.Errorf("deduplication failed: %w", err)
		return result
	}

	// Стадия 3: SCAC -> LSP
	if err := MapSCACToLSP(table, r.books, logger); err != nil {
		if !errors.Is(err, standardize.ErrMissingColumn) {
			result.Err = fmt.Errorf("SCAC mapping failed: %w", err)
			return result
		}
		logger.Warn("Skipping SCAC mapping", "error", err.Error())
	}

	cache := standardize.NewBatchCache(filepath.Join(r.config.TempDir, stem), logger)
	standardizer := standardize.NewStandardizer(r.client, cache, r.config.Engine, logger)

	// Стадия 4: нормализация имен контрагентов
	partyTasks := make([]standardize.ColumnTask, 0, len(r.config.PartyColumns))
	for _, col := range r.config.PartyColumns {
		partyTasks = append(partyTasks, standardize.ColumnTask{
			Column:     col,
			PromptPath: r.config.PartyPromptPath,
			Fallback:   standardize.FallbackIdentity,
		})
	}
	if err := standardizer.StandardizeColumns(ctx, table, r.config.IDColumn, partyTasks); err != nil {
		if !standardize.OnlyMissingColumns(err) {
			result.Err = fmt.Errorf("party standardization failed: %w", err)
			return result
		}
		logger.Warn("Some party columns were skipped", "error", err.Error())
	}

	// Стадия 5: очистка пункта приема груза
	if err := CleanPlaceOfReceipt(table, logger); err != nil {
		if !errors.Is(err, standardize.ErrMissingColumn) {
			result.Err = fmt.Errorf("place cleaning failed: %w", err)
			return result
		}
		logger.Warn("Skipping place of receipt cleaning", "error", err.Error())
	}

	// Стадия 6: извлечение городов из адресов
	cityTasks := make([]standardize.ColumnTask, 0, len(r.config.AddressColumns))
	cityColumns := make([]string, 0, len(r.config.AddressColumns))
	for _, col := range r.config.AddressColumns {
		task := standardize.ColumnTask{
			Column:         col,
			PromptPath:     r.config.CityPromptPath,
			Fallback:       standardize.FallbackNone,
			CityExtraction: true,
		}
		cityTasks = append(cityTasks, task)
		cityColumns = append(cityColumns, task.OutputColumn())
	}
	if err := standardizer.StandardizeColumns(ctx, table, r.config.IDColumn, cityTasks); err != nil {
		if !standardize.OnlyMissingColumns(err) {
			result.Err = fmt.Errorf("city extraction failed: %w", err)
			return result
		}
		logger.Warn("Some address columns were skipped", "error", err.Error())
	}

	// Стадия 7: сверка городов со справочником
	if err := VerifyCities(table, cityColumns, r.books, logger); err != nil {
		result.Err = fmt.Errorf("city verification failed: %w", err)
		return result
	}

	// Стадия 8: извлечение кодов товарной номенклатуры
	if err := ExtractHSCodes(table, r.books, logger); err != nil {
		if !errors.Is(err, standardize.ErrMissingColumn) {
			result.Err = fmt.Errorf("HS code extraction failed: %w", err)
			return result
		}
		logger.Warn("Skipping HS code extraction", "error", err.Error())
	}

	outputPath := filepath.Join(outputDir, "cleaned_"+stem+".csv")
	if err := manifest.WriteCSV(table, outputPath); err != nil {
		result.Err = fmt.Errorf("failed to write output: %w", err)
		return result
	}

	// Кэш нужен только для возобновления прерванного прогона
	if err := os.RemoveAll(cache.Dir()); err != nil {
		logger.Warn("Failed to clean batch cache", "dir", cache.Dir(), "error", err.Error())
	}

	result.Output = outputPath
	result.Rows = table.RowCount()
	result.Duration = time.Since(start)
	logger.Info("Manifest processed",
		"output", outputPath,
		"rows", result.Rows,
		"duration", result.Duration.String())
	return result
}

func (r *Runner) readManifest(path string, logger *slog.Logger) (*manifest.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return manifest.ReadExcel(path, logger)
	default:
		return manifest.ReadCSV(path, logger)
	}
}
