// Package config загрузка конфигурации пайплайна очистки манифестов:
// значения по умолчанию, переменные окружения и необязательный
// JSON-файл поверх них.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config конфигурация пайплайна
type Config struct {
	// Сервис нормализации
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`

	// Движок пакетной нормализации
	ChunkSize      int           `json:"chunk_size"`
	MaxConcurrency int           `json:"max_concurrency"`
	RetryAttempts  int           `json:"retry_attempts"`
	RetryBaseDelay time.Duration `json:"-"`
	RequestTimeout time.Duration `json:"-"`
	RateLimitRPS   float64       `json:"rate_limit_rps"`

	// Каталоги и справочники
	TempDir         string `json:"temp_dir"`
	ReferenceDBPath string `json:"reference_db_path"`

	// Шаблоны промптов
	PartyPromptPath string `json:"party_prompt_path"`
	CityPromptPath  string `json:"city_prompt_path"`

	// Колонки манифеста
	IDColumn       string   `json:"id_column"`
	PartyColumns   []string `json:"party_columns"`
	AddressColumns []string `json:"address_columns"`

	// Логирование
	LogLevel string `json:"log_level"`
}

// configJSON структура JSON-файла конфигурации: time.Duration как строки
type configJSON struct {
	Endpoint        string   `json:"endpoint"`
	Model           string   `json:"model"`
	ChunkSize       *int     `json:"chunk_size"`
	MaxConcurrency  *int     `json:"max_concurrency"`
	RetryAttempts   *int     `json:"retry_attempts"`
	RetryBaseDelay  string   `json:"retry_base_delay"`
	RequestTimeout  string   `json:"request_timeout"`
	RateLimitRPS    *float64 `json:"rate_limit_rps"`
	TempDir         string   `json:"temp_dir"`
	ReferenceDBPath string   `json:"reference_db_path"`
	PartyPromptPath string   `json:"party_prompt_path"`
	CityPromptPath  string   `json:"city_prompt_path"`
	IDColumn        string   `json:"id_column"`
	PartyColumns    []string `json:"party_columns"`
	AddressColumns  []string `json:"address_columns"`
	LogLevel        string   `json:"log_level"`
}

// LoadConfig собирает конфигурацию: значения по умолчанию, поверх них
// переменные окружения, поверх них JSON-файл (если путь непустой).
func LoadConfig(jsonPath string) (*Config, error) {
	config := &Config{
		Endpoint: getEnv("NORMALIZER_ENDPOINT", "http://localhost:8080"),
		Model:    getEnv("NORMALIZER_MODEL", "gemma-3-27b-it"),

		ChunkSize:      getEnvInt("CHUNK_SIZE", 10),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 6),
		RetryAttempts:  getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay: getEnvDuration("RETRY_BASE_DELAY", 2*time.Second),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0),

		TempDir:         getEnv("TEMP_DIR", "temp"),
		ReferenceDBPath: getEnv("REFERENCE_DB_PATH", "reference.db"),

		PartyPromptPath: getEnv("PARTY_PROMPT_PATH", "prompts/party_standardization.txt"),
		CityPromptPath:  getEnv("CITY_PROMPT_PATH", "prompts/city_extraction.txt"),

		IDColumn: getEnv("ID_COLUMN", "Row ID"),
		PartyColumns: getEnvList("PARTY_COLUMNS",
			[]string{"Shipper", "Consignee", "Notify Party 1", "Notify Party 2"}),
		AddressColumns: getEnvList("ADDRESS_COLUMNS",
			[]string{"Shipper Address", "Consignee Address"}),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	if jsonPath != "" {
		if err := config.applyJSONFile(jsonPath); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

// applyJSONFile накладывает значения из JSON-файла. Отсутствующие в
// файле поля не трогают уже загруженные значения.
func (c *Config) applyJSONFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfgJSON configJSON
	if err := json.Unmarshal(data, &cfgJSON); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfgJSON.Endpoint != "" {
		c.Endpoint = cfgJSON.Endpoint
	}
	if cfgJSON.Model != "" {
		c.Model = cfgJSON.Model
	}
	if cfgJSON.ChunkSize != nil {
		c.ChunkSize = *cfgJSON.ChunkSize
	}
	if cfgJSON.MaxConcurrency != nil {
		c.MaxConcurrency = *cfgJSON.MaxConcurrency
	}
	if cfgJSON.RetryAttempts != nil {
		c.RetryAttempts = *cfgJSON.RetryAttempts
	}
	if cfgJSON.RetryBaseDelay != "" {
		d, err := time.ParseDuration(cfgJSON.RetryBaseDelay)
		if err != nil {
			return fmt.Errorf("invalid retry_base_delay in %s: %w", path, err)
		}
		c.RetryBaseDelay = d
	}
	if cfgJSON.RequestTimeout != "" {
		d, err := time.ParseDuration(cfgJSON.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout in %s: %w", path, err)
		}
		c.RequestTimeout = d
	}
	if cfgJSON.RateLimitRPS != nil {
		c.RateLimitRPS = *cfgJSON.RateLimitRPS
	}
	if cfgJSON.TempDir != "" {
		c.TempDir = cfgJSON.TempDir
	}
	if cfgJSON.ReferenceDBPath != "" {
		c.ReferenceDBPath = cfgJSON.ReferenceDBPath
	}
	if cfgJSON.PartyPromptPath != "" {
		c.PartyPromptPath = cfgJSON.PartyPromptPath
	}
	if cfgJSON.CityPromptPath != "" {
		c.CityPromptPath = cfgJSON.CityPromptPath
	}
	if cfgJSON.IDColumn != "" {
		c.IDColumn = cfgJSON.IDColumn
	}
	if cfgJSON.PartyColumns != nil {
		c.PartyColumns = cfgJSON.PartyColumns
	}
	if cfgJSON.AddressColumns != nil {
		c.AddressColumns = cfgJSON.AddressColumns
	}
	if cfgJSON.LogLevel != "" {
		c.LogLevel = cfgJSON.LogLevel
	}
	return nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения как float64 или возвращает значение по умолчанию
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList получает переменную окружения как список значений через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
