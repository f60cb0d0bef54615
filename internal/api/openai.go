package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	defaultTimeout     = 60 * time.Second
	defaultRateLimit   = 5.0
	defaultBurst       = 5
	defaultMaxRetries  = 2
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxTokens   = 1000
)

// Options: параметры клиента OpenAI-совместимого API
type Options struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	RateLimit   float64
	Burst       int
	MaxRetries  int
	BaseBackoff time.Duration
	Recorder    CallRecorder
	Logger      *zap.Logger
}

// OpenAIClient выполняет запросы chat completions
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	baseBackoff time.Duration
	recorder    CallRecorder
	logger      *zap.Logger
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Message: сообщение диалога в формате OpenAI
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage: статистика токенов ответа
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError: ошибка, которую вернул сервис
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// NewOpenAIClient создает клиент API
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY не задан")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = defaultBaseBackoff
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &OpenAIClient{
		apiKey:  opts.APIKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		maxRetries:  opts.MaxRetries,
		baseBackoff: opts.BaseBackoff,
		recorder:    opts.Recorder,
		logger:      opts.Logger,
	}, nil
}

// Complete отправляет запрос и возвращает текст ответа.
// Для JSON-режима ответ очищается от markdown-обрамления.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	start := time.Now()
	content, err := c.complete(ctx, req)
	if c.recorder != nil {
		c.recorder.RecordAPICall(string(req.Role), time.Since(start), err)
	}
	if err != nil {
		c.logger.Warn("запрос к модели не выполнен",
			zap.String("role", string(req.Role)),
			zap.String("model", req.Model),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	if req.JSONMode {
		content = cleanJSONResponse(content)
	}
	return content, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req CompletionRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ошибка ограничителя запросов: %w", err)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body := openAIRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, Message{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, Message{Role: "user", Content: req.User})
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.baseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, err := c.doRequest(ctx, body)
		if err == nil {
			return content, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return "", err
		}
		c.logger.Debug("повтор запроса к модели", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return "", fmt.Errorf("превышено число повторов: %w", lastErr)
}

func (c *OpenAIClient) doRequest(ctx context.Context, body openAIRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("ошибка выполнения запроса: %w", err)
		}
		return "", &retryableError{err: fmt.Errorf("ошибка выполнения запроса: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &retryableError{err: fmt.Errorf("превышен лимит запросов (429)")}
	}
	if resp.StatusCode >= 500 {
		return "", &retryableError{err: fmt.Errorf("ошибка сервера %d: %s", resp.StatusCode, string(respBody))}
	}

	var parsed openAIResponse
	if resp.StatusCode != http.StatusOK {
		if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.Error != nil {
			return "", fmt.Errorf("ошибка API %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("HTTP ошибка %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("ошибка парсинга ответа: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("ошибка API: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("пустой ответ от API")
	}

	return parsed.Choices[0].Message.Content, nil
}

// cleanJSONResponse удаляет markdown форматирование из ответа
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

// DecodeJSON разбирает JSON-объект из ответа модели.
// Текст вокруг объекта и markdown-обрамление игнорируются.
func DecodeJSON(raw string, v any) error {
	s := cleanJSONResponse(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return fmt.Errorf("ответ не содержит JSON-объекта")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("ошибка парсинга JSON ответа: %w", err)
	}
	return nil
}

var _ Completer = (*OpenAIClient)(nil)
