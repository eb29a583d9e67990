package standardize

import "time"

const (
	// DefaultRetryAttempts количество попыток запроса по умолчанию
	DefaultRetryAttempts = 3
	// DefaultRetryDelay базовая задержка между попытками по умолчанию
	DefaultRetryDelay = 2 * time.Second
	// MaxRetryDelay максимальная задержка между попытками
	MaxRetryDelay = 30 * time.Second
)

// RetryConfig конфигурация retry-логики клиента. Одна и та же политика
// применяется и к сетевым ошибкам, и к структурно невалидным ответам:
// повторный запрос может дать валидный результат в обоих случаях.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64 // Множитель экспоненциальной задержки
}

// DefaultRetryConfig возвращает политику повторов по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultRetryAttempts,
		InitialDelay: DefaultRetryDelay,
		MaxDelay:     MaxRetryDelay,
		Multiplier:   2.0,
	}
}

// NextDelay возвращает задержку для следующей попытки с учетом потолка.
func (c RetryConfig) NextDelay(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.Multiplier)
	if next > c.MaxDelay {
		next = c.MaxDelay
	}
	return next
}
