package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"interview-coach/internal/api"
	"interview-coach/internal/config"
	"interview-coach/internal/logging"
	"interview-coach/internal/metrics"
	"interview-coach/internal/questionbank"
	"interview-coach/internal/session"
	"interview-coach/internal/storage"
)

// application: собранные зависимости одного запуска
type application struct {
	app      *config.AppConfig
	cfg      *config.Config
	bank     *questionbank.Bank
	logger   *zap.Logger
	metrics  *metrics.Metrics
	registry *session.Registry
	closers  []func() error
}

// newApplication читает конфигурацию и собирает реестр сессий.
// При mock вместо внешнего API используется детерминированный мок.
func newApplication(mock bool) (*application, error) {
	appCfg := config.LoadAppConfig()
	if configPath != "" {
		appCfg.ConfigPath = configPath
	}
	if err := appCfg.Validate(); err != nil {
		return nil, fmt.Errorf("ошибка конфигурации приложения: %w", err)
	}

	logger, err := logging.New(appCfg.Log.Level, appCfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания логгера: %w", err)
	}

	a := &application{app: appCfg, logger: logger, metrics: metrics.NewMetrics()}
	a.closers = append(a.closers, func() error {
		// sync для stderr возвращает EINVAL на части платформ
		_ = logger.Sync()
		return nil
	})

	a.cfg, err = loadInterviewConfig(appCfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.bank, err = questionbank.Load(a.cfg.QuestionBank)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки банка вопросов: %w", err)
	}

	var llm api.Completer
	if mock {
		llm = api.NewMockCompleter()
		logger.Info("используется мок модели")
	} else {
		if err := appCfg.OpenAI.ValidateConfig(); err != nil {
			return nil, err
		}
		client, err := api.NewOpenAIClient(appCfg.OpenAI.ClientOptions(a.metrics, logger))
		if err != nil {
			return nil, fmt.Errorf("ошибка создания клиента API: %w", err)
		}
		llm = client
	}

	journal, err := a.openJournal()
	if err != nil {
		return nil, err
	}

	a.registry = session.NewRegistry(session.NewFactory(llm, a.bank, a.cfg, journal, a.metrics, logger))
	logger.Info("приложение инициализировано",
		zap.String("config", appCfg.ConfigPath),
		zap.String("storage", appCfg.Storage.Backend),
		zap.Int("max_turns", a.cfg.Interview.MaxTurns),
		zap.Strings("roles", a.bank.RoleNames()),
	)
	return a, nil
}

// loadInterviewConfig читает YAML конфигурацию. Отсутствующий файл по умолчанию заменяется встроенными настройками.
func loadInterviewConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if configPath == "" && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, fmt.Errorf("ошибка загрузки конфигурации интервью: %w", err)
}

// openJournal открывает журнал по STORAGE_BACKEND. Для none возвращает nil.
func (a *application) openJournal() (session.TurnLogger, error) {
	switch a.app.Storage.Backend {
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(a.app.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("ошибка создания каталога базы: %w", err)
		}
		store, err := storage.NewSQLiteStore(a.app.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.StorageNone:
		return nil, nil
	default:
		fl, err := storage.NewFileLogger(a.app.Storage.Dir)
		if err != nil {
			return nil, err
		}
		return fl, nil
	}
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("ошибка закрытия ресурса", zap.Error(err))
		}
	}
}
