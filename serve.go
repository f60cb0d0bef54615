package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"interview-coach/internal/telegram"
)

var telegramMock bool

// telegramCmd запускает Telegram бота
var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Запустить Telegram бота",
	Long: `Запускает Telegram бота с long polling.

Нужны переменные TELEGRAM_BOT_TOKEN и OPENAI_API_KEY (или OPENROUTER_API_KEY).
Если задан METRICS_ADDR, метрики Prometheus доступны по /metrics.

Examples:
  # Обычный запуск
  interview-coach telegram

  # Без внешнего API
  interview-coach telegram --mock`,
	RunE: runTelegram,
}

func init() {
	telegramCmd.Flags().BoolVar(&telegramMock, "mock", false, "использовать мок вместо внешнего API")
}

func runTelegram(cmd *cobra.Command, _ []string) error {
	a, err := newApplication(telegramMock)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.app.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN не установлен")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot := telegram.New(a.app.Telegram.Token, a.logger)
	handler := telegram.NewHandler(bot, a.registry, telegram.Options{
		RateLimit:     a.app.Telegram.RateLimit,
		SessionMaxAge: a.app.Telegram.SessionMaxAge,
		Roles:         a.bank.RoleNames(),
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		handler.RunCleanup(gctx)
		return nil
	})
	if addr := a.app.Metrics.Addr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			a.logger.Info("метрики доступны", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ошибка сервера метрик: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		a.logger.Info("Telegram бот запущен")
		err := bot.StartPolling(gctx, a.app.Telegram.PollTimeout, handler.HandleUpdate)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	a.logger.Info("Telegram бот остановлен", zap.Error(err))
	return err
}

func metricsMux(a *application) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "ok active=%d\n", a.registry.Len())
	})
	return mux
}
