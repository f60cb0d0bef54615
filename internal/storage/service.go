package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultResultsDir: каталог журналов по умолчанию
const DefaultResultsDir = "results"

// FileLogger пишет журнал каждой сессии в отдельный JSON файл
type FileLogger struct {
	mu  sync.Mutex
	dir string
}

// NewFileLogger создает журнал в каталоге dir
func NewFileLogger(dir string) (*FileLogger, error) {
	if dir == "" {
		dir = DefaultResultsDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}
	return &FileLogger{dir: dir}, nil
}

// LogTurn дописывает ход в журнал сессии
func (l *FileLogger) LogTurn(_ context.Context, rec TurnRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	log, err := l.loadOrNew(rec.SessionID)
	if err != nil {
		return err
	}
	if log.ParticipantName == "" {
		log.ParticipantName = rec.Candidate.Name
		log.Role = rec.Candidate.Role
		log.Grade = rec.Candidate.Grade
	}
	log.Turns = append(log.Turns, rec)
	log.UpdatedAt = rec.At
	return l.save(log)
}

// LogReport записывает итоговый отчет в журнал сессии
func (l *FileLogger) LogReport(_ context.Context, rec ReportRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	log, err := l.loadOrNew(rec.SessionID)
	if err != nil {
		return err
	}
	if log.FinalFeedback != nil {
		return fmt.Errorf("отчет сессии %s уже записан", rec.SessionID)
	}
	log.FinalFeedback = &rec
	if rec.Report != nil {
		log.UpdatedAt = rec.Report.GeneratedAt
	}
	return l.save(log)
}

// Load загружает журнал интервью из JSON файла
func (l *FileLogger) Load(sessionID string) (*InterviewLog, error) {
	path := l.path(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", path, err)
	}

	var log InterviewLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("ошибка десериализации JSON: %w", err)
	}
	return &log, nil
}

// List возвращает идентификаторы всех сохраненных интервью
func (l *FileLogger) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения директории %s: %w", l.dir, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || !strings.HasPrefix(name, "interview_") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, "interview_"), ".json"))
	}
	return ids, nil
}

func (l *FileLogger) loadOrNew(sessionID string) (*InterviewLog, error) {
	log, err := l.Load(sessionID)
	if errors.Is(err, os.ErrNotExist) {
		return &InterviewLog{SessionID: sessionID, Turns: []TurnRecord{}, UpdatedAt: time.Now()}, nil
	}
	return log, err
}

func (l *FileLogger) save(log *InterviewLog) error {
	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации журнала: %w", err)
	}

	// запись через временный файл, чтобы журнал не оставался недописанным
	path := l.path(log.SessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}
	return nil
}

func (l *FileLogger) path(sessionID string) string {
	return filepath.Join(l.dir, fmt.Sprintf("interview_%s.json", sessionID))
}
