package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBotGetUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/getUpdates", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"message_id":1,"from":{"id":42,"first_name":"Алекс"},"chat":{"id":42,"type":"private"},"text":"привет"}}]}`))
	}))
	defer srv.Close()

	bot := NewWithAPIURL("TOKEN", srv.URL, nil)
	updates, err := bot.GetUpdates(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(42), updates[0].Message.From.ID)
	assert.Equal(t, "привет", updates[0].Message.Text)
}

func TestBotGetUpdatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	_, err := NewWithAPIURL("bad", srv.URL, nil).GetUpdates(context.Background(), 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}

func TestBotSendMessageFallsBackToPlainText(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []SendMessageRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		if req.ParseMode != "" {
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities: unexpected end"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":2,"chat":{"id":1,"type":"private"}}}`))
	}))
	defer srv.Close()

	err := NewWithAPIURL("TOKEN", srv.URL, nil).SendMessage(context.Background(), 1, "*незакрытая разметка")
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "Markdown", requests[0].ParseMode)
	assert.Empty(t, requests[1].ParseMode)
}

func TestBotSendMessageError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer srv.Close()

	err := NewWithAPIURL("TOKEN", srv.URL, nil).SendMessage(context.Background(), 1, "текст")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}

func TestBotStartPollingStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "0" {
			_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":1,"message":{"message_id":1,"from":{"id":1,"first_name":"a"},"chat":{"id":1,"type":"private"},"text":"/help"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got := make(chan Update, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- NewWithAPIURL("TOKEN", srv.URL, nil).StartPolling(ctx, 0, func(_ context.Context, u Update) {
			select {
			case got <- u:
			default:
			}
		})
	}()

	select {
	case u := <-got:
		assert.Equal(t, 1, u.UpdateID)
	case <-ctx.Done():
		t.Fatal("обновление не получено")
	}
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}
