package telegram

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
)

// DefaultAPIURL: адрес Bot API
const DefaultAPIURL = "https://api.telegram.org"

// New создает новый Telegram бот
func New(token string, logger *zap.Logger) *Bot {
	return NewWithAPIURL(token, DefaultAPIURL, logger)
}

// NewWithAPIURL создает бота с другим адресом Bot API
func NewWithAPIURL(token, apiURL string, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		baseURL: fmt.Sprintf("%s/bot%s", strings.TrimRight(apiURL, "/"), token),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// GetUpdates получает обновления от Telegram
func (b *Bot) GetUpdates(ctx context.Context, offset, timeout int) ([]Update, error) {
	url := fmt.Sprintf("%s/getUpdates?offset=%d&timeout=%d", b.baseURL, offset, timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса getUpdates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response GetUpdatesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("ошибка парсинга JSON: %w", err)
	}
	if !response.OK {
		return nil, fmt.Errorf("Telegram API вернул ошибку: %s", response.Description)
	}
	return response.Result, nil
}

// SendMessage отправляет сообщение с Markdown разметкой.
// Если Telegram не смог разобрать разметку, сообщение отправляется как обычный текст.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	err := b.send(ctx, SendMessageRequest{ChatID: chatID, Text: text, ParseMode: "Markdown"})
	if err == nil || !errors.Is(err, errBadMarkup) {
		return err
	}
	return b.send(ctx, SendMessageRequest{ChatID: chatID, Text: text})
}

var errBadMarkup = errors.New("ошибка разметки")

func (b *Bot) send(ctx context.Context, request SendMessageRequest) error {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/sendMessage", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки сообщения: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var response SendMessageResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return fmt.Errorf("ошибка парсинга ответа: %w", err)
	}
	if !response.OK {
		if strings.Contains(response.Description, "can't parse entities") {
			return fmt.Errorf("%w: %s", errBadMarkup, response.Description)
		}
		return fmt.Errorf("Telegram API вернул ошибку при отправке сообщения: %s", response.Description)
	}
	return nil
}

// StartPolling получает обновления до отмены ctx и передает каждое в handler
func (b *Bot) StartPolling(ctx context.Context, timeout int, handler func(context.Context, Update)) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := b.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Warn("ошибка получения обновлений", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			offset = update.UpdateID + 1
			go handler(ctx, update)
		}
	}
}
