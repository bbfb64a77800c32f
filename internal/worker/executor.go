package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// defaultMaxResultBytes — лимит сохраняемого тела ответа по умолчанию (64 KiB).
const defaultMaxResultBytes = 64 * 1024

// Request — подготовленный HTTP-вызов job или шага workflow.
type Request struct {
	Method  string
	URL     string
	Headers map[string]any
	Params  map[string]any // query-параметры
	Body    any
	Timeout time.Duration
}

// Result — результат выполнения HTTP-вызова.
//
// Error — логическая ошибка (не-2xx статус): ответ при этом сохранён.
// Транспортные ошибки возвращаются через error из Execute.
type Result struct {
	StatusCode *int
	Headers    map[string]any
	Body       any
	DurationMs int
	Error      string
}

// HTTPExecutor выполняет HTTP-вызовы jobs.
//
// Тело ответа сохраняется как JSON, если парсится; иначе как
// {"text": "..."}. Тела длиннее maxResultBytes заменяются маркером
// {"truncated": true, "size": N} — это не ошибка выполнения.
type HTTPExecutor struct {
	client         *http.Client
	maxResultBytes int
}

// NewHTTPExecutor создаёт executor. Лимит тела ответа настраивается
// переменной окружения RESULT_MAX_BYTES.
func NewHTTPExecutor() *HTTPExecutor {
	maxBytes := defaultMaxResultBytes
	if v := os.Getenv("RESULT_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxBytes = n
		}
	}

	return &HTTPExecutor{
		client:         &http.Client{},
		maxResultBytes: maxBytes,
	}
}

// Execute выполняет HTTP-вызов.
//
// Возвращает error только при транспортных проблемах (DNS, соединение,
// таймаут) и некорректной конфигурации запроса. Ответы с любым HTTP
// статусом возвращаются как Result; не-2xx дополнительно помечается
// через Result.Error.
func (e *HTTPExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	targetURL, err := buildURL(req.URL, req.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrHTTPRequest, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, targetURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
	}

	for key, val := range req.Headers {
		if s, ok := val.(string); ok {
			httpReq.Header.Set(key, s)
		}
	}
	if bodyReader != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
	}
	durationMs := int(time.Since(started).Milliseconds())

	result := &Result{
		StatusCode: &resp.StatusCode,
		Headers:    responseHeaders(resp),
		Body:       e.parseBody(respBody),
		DurationMs: durationMs,
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Error = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}

	return result, nil
}

// parseBody превращает сырое тело ответа в сохраняемое значение.
func (e *HTTPExecutor) parseBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if len(body) > e.maxResultBytes {
		return map[string]any{"truncated": true, "size": len(body)}
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return map[string]any{"text": string(body)}
	}
	return parsed
}

// buildURL добавляет query-параметры к URL.
func buildURL(rawURL string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	query := u.Query()
	for key, val := range params {
		query.Set(key, paramString(val))
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// paramString приводит значение query-параметра к строке.
func paramString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// responseHeaders собирает заголовки ответа в документ.
func responseHeaders(resp *http.Response) map[string]any {
	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}
	return headers
}
