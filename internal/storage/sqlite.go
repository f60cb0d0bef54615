package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"interview-coach/internal/hiring"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	participant  TEXT NOT NULL,
	role         TEXT,
	grade        TEXT,
	started_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	session_id     TEXT NOT NULL,
	turn_id        INTEGER NOT NULL,
	user_message   TEXT NOT NULL,
	agent_message  TEXT NOT NULL,
	next_action    TEXT NOT NULL,
	directive_json TEXT NOT NULL,
	thoughts_json  TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	PRIMARY KEY (session_id, turn_id),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS reports (
	session_id     TEXT PRIMARY KEY,
	recommendation TEXT NOT NULL,
	report_json    TEXT NOT NULL,
	markdown       TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// SQLiteStore хранит журналы интервью в SQLite
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore открывает базу и применяет схему
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы %s: %w", path, err)
	}
	// одно соединение: in-memory база видна только ему
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("ошибка %s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка миграции: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close закрывает соединение с базой
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LogTurn сохраняет ход. Повторная запись того же хода отклоняется.
func (s *SQLiteStore) LogTurn(ctx context.Context, rec TurnRecord) error {
	directive, err := json.Marshal(rec.Directive)
	if err != nil {
		return fmt.Errorf("ошибка сериализации директивы: %w", err)
	}
	thoughts, err := json.Marshal(rec.Thoughts)
	if err != nil {
		return fmt.Errorf("ошибка сериализации рассуждений: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, participant, role, grade, started_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Candidate.Name, rec.Candidate.Role, rec.Candidate.Grade, rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ошибка записи сессии: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (session_id, turn_id, user_message, agent_message, next_action, directive_json, thoughts_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.TurnID, rec.CandidateMessage, rec.AgentMessage, string(rec.Directive.NextAction),
		string(directive), string(thoughts), rec.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ошибка записи хода %d: %w", rec.TurnID, err)
	}
	return tx.Commit()
}

// LogReport сохраняет итоговый отчет сессии
func (s *SQLiteStore) LogReport(ctx context.Context, rec ReportRecord) error {
	if rec.Report == nil {
		return errors.New("пустой отчет")
	}
	data, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("ошибка сериализации отчета: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (session_id, recommendation, report_json, markdown, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, string(rec.Report.Recommendation), string(data), rec.Markdown,
		rec.Report.GeneratedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("ошибка записи отчета сессии %s: %w", rec.SessionID, err)
	}
	return nil
}

// Turns возвращает ходы сессии в порядке номеров
func (s *SQLiteStore) Turns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, user_message, agent_message, directive_json, thoughts_json, created_at
		 FROM turns WHERE session_id = ? ORDER BY turn_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ходов: %w", err)
	}
	defer rows.Close()

	var out []TurnRecord
	for rows.Next() {
		rec := TurnRecord{SessionID: sessionID}
		var directive, thoughts, at string
		if err := rows.Scan(&rec.TurnID, &rec.CandidateMessage, &rec.AgentMessage, &directive, &thoughts, &at); err != nil {
			return nil, fmt.Errorf("ошибка чтения хода: %w", err)
		}
		if err := json.Unmarshal([]byte(directive), &rec.Directive); err != nil {
			return nil, fmt.Errorf("ошибка разбора директивы: %w", err)
		}
		if err := json.Unmarshal([]byte(thoughts), &rec.Thoughts); err != nil {
			return nil, fmt.Errorf("ошибка разбора рассуждений: %w", err)
		}
		if rec.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("ошибка разбора времени: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Report возвращает отчет сессии или nil, если его нет
func (s *SQLiteStore) Report(ctx context.Context, sessionID string) (*hiring.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM reports WHERE session_id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения отчета: %w", err)
	}
	var r hiring.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("ошибка разбора отчета: %w", err)
	}
	return &r, nil
}
