package standardize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var (
	// ErrBatchFailed маркер исчерпания всех попыток для пакета. Отличается
	// от валидного ответа с пустыми output: здесь удаленного значения нет
	// вообще, и решение о fallback принимает вызывающая сторона.
	ErrBatchFailed = errors.New("batch normalization failed after retries")

	// ErrInvalidResponse структурно невалидный ответ сервиса: неверное
	// число элементов, отсутствует echo-поле или output. Для retry-логики
	// эквивалентен транзиентной ошибке.
	ErrInvalidResponse = errors.New("structurally invalid normalization response")
)

// codeFenceRegex вырезает полезную нагрузку из markdown-ограждения,
// которым генеративные модели часто оборачивают JSON.
var codeFenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ClientConfig конфигурация клиента внешнего сервиса нормализации.
type ClientConfig struct {
	Endpoint  string        // Базовый URL, без завершающего /chat/completions
	Model     string        // Идентификатор модели
	Timeout   time.Duration // Таймаут одного запроса
	Retry     RetryConfig
	RateLimit float64 // Запросов в секунду суммарно по всем воркерам; 0 — без лимита
}

// Client клиент chat/completions-совместимого сервиса нормализации.
// Потокобезопасен: один экземпляр разделяется всеми воркерами, общий
// rate limiter сглаживает нагрузку на сервис.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	retry      RetryConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient создает клиент с connection pooling и таймаутом запроса.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts <= 0 {
		retryCfg = DefaultRetryConfig()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxConnsPerHost:     5,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		retry:   retryCfg,
		limiter: limiter,
		logger:  logger.With("component", "normalization_client"),
	}
}

// normalizationItem элемент пакета: echo-поле input связывает выходное
// значение с запрошенным входным.
type normalizationItem struct {
	Input  string  `json:"input"`
	Output *string `json:"output,omitempty"`
}

type normalizationPayload struct {
	Items []normalizationItem `json:"items"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// LoadPromptTemplate читает файл шаблона промпта. Шаблон — непрозрачная
// параметризованная строка с плейсхолдером {{INPUT}}.
func LoadPromptTemplate(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt template %s: %w", path, err)
	}
	template := string(data)
	if !strings.Contains(template, "{{INPUT}}") {
		return "", fmt.Errorf("prompt template %s has no {{INPUT}} placeholder", path)
	}
	return template, nil
}

// Normalize отправляет пакет значений на нормализацию одним запросом.
// Возвращает маппинг вход -> выход либо ErrBatchFailed после исчерпания
// попыток. Сетевые ошибки, 5xx, 429 и структурно невалидные ответы
// повторяются по единой политике RetryConfig; прочие 4xx терминальны.
func (c *Client) Normalize(ctx context.Context, promptTemplate string, batch []string) (map[string]string, error) {
	if len(batch) == 0 {
		return map[string]string{}, nil
	}

	payload := normalizationPayload{Items: make([]normalizationItem, len(batch))}
	for i, v := range batch {
		payload.Items[i] = normalizationItem{Input: v}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch payload: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{INPUT}}", string(payloadJSON))
	requestID := uuid.NewString()

	var lastErr error
	delay := c.retry.InitialDelay

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Warn("Retrying batch normalization",
				"request_id", requestID,
				"attempt", attempt,
				"max_attempts", c.retry.MaxAttempts,
				"delay", delay.String(),
				"error", lastErr.Error())
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay = c.retry.NextDelay(delay)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}

		content, retryable, err := c.chatCompletion(ctx, prompt, requestID, attempt)
		if err != nil {
			if !retryable {
				return nil, err
			}
			lastErr = err
			continue
		}

		mapping, err := decodeBatchPayload(content, batch)
		if err != nil {
			lastErr = err
			continue
		}

		c.logger.Info("Received valid normalization response",
			"request_id", requestID,
			"attempt", attempt,
			"items", len(mapping))
		return mapping, nil
	}

	return nil, fmt.Errorf("%w: request %s after %d attempts: %v",
		ErrBatchFailed, requestID, c.retry.MaxAttempts, lastErr)
}

// chatCompletion выполняет один HTTP-запрос к сервису. Второй результат
// сообщает, имеет ли смысл повтор при ошибке.
func (c *Client) chatCompletion(ctx context.Context, prompt, requestID string, attempt int) (string, bool, error) {
	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.endpoint + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	c.logger.Info("Sending normalization request",
		"request_id", requestID,
		"attempt", attempt,
		"url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Таймаут и сетевые ошибки трактуются одинаково
		return "", true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("failed to read response body: %w", err)
	}

	duration := time.Since(start)
	c.logger.Info("Received HTTP response",
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Разбираем ниже
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", true, fmt.Errorf("rate limit exceeded (429): %s", snippet(respBody))
	case resp.StatusCode >= 500:
		return "", true, fmt.Errorf("server error %d: %s", resp.StatusCode, snippet(respBody))
	default:
		return "", false, fmt.Errorf("client error %d: %s", resp.StatusCode, snippet(respBody))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", true, fmt.Errorf("failed to decode response envelope: %w", err)
	}
	if response.Error != nil {
		return "", true, fmt.Errorf("API error: %s (type: %s)", response.Error.Message, response.Error.Type)
	}
	if len(response.Choices) == 0 {
		return "", true, fmt.Errorf("no choices in response")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", true, fmt.Errorf("empty assistant content")
	}
	return content, true, nil
}

// decodeBatchPayload разбирает и валидирует содержимое ответа. Ответ
// принимается только целиком: ровно один элемент на каждый запрошенный
// вход, каждый элемент связан echo-полем с одним из входов. Любой
// несвязываемый или неполный элемент инвалидирует весь ответ — ценой
// повтора уже удачных элементов модель отказа остается простой.
func decodeBatchPayload(content string, requested []string) (map[string]string, error) {
	if m := codeFenceRegex.FindStringSubmatch(content); m != nil {
		content = m[1]
	}

	var payload normalizationPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: not a JSON payload: %v", ErrInvalidResponse, err)
	}

	if len(payload.Items) != len(requested) {
		return nil, fmt.Errorf("%w: item count mismatch: got %d, want %d",
			ErrInvalidResponse, len(payload.Items), len(requested))
	}

	requestedSet := make(map[string]struct{}, len(requested))
	for _, v := range requested {
		requestedSet[v] = struct{}{}
	}

	mapping := make(map[string]string, len(payload.Items))
	for i, item := range payload.Items {
		input := strings.TrimSpace(item.Input)
		if input == "" {
			return nil, fmt.Errorf("%w: item %d has empty echo field", ErrInvalidResponse, i)
		}
		if _, ok := requestedSet[input]; !ok {
			return nil, fmt.Errorf("%w: item %d echoes unknown input %q", ErrInvalidResponse, i, input)
		}
		if _, dup := mapping[input]; dup {
			return nil, fmt.Errorf("%w: duplicate echo for input %q", ErrInvalidResponse, input)
		}
		if item.Output == nil {
			return nil, fmt.Errorf("%w: item %d has no output field", ErrInvalidResponse, i)
		}
		// Пустой output допустим: сервис явно вернул "ничего"
		mapping[input] = strings.TrimSpace(*item.Output)
	}

	return mapping, nil
}

func snippet(body []byte) string {
	const limit = 200
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "... (" + strconv.Itoa(len(s)) + " bytes)"
	}
	return s
}
