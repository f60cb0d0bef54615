package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrStateFrozen возвращается при попытке изменить состояние после финального отчета
	ErrStateFrozen = errors.New("состояние интервью закрыто для изменений")

	// ErrTurnInProgress возвращается, если ход сессии уже обрабатывается
	ErrTurnInProgress = errors.New("предыдущий ход еще обрабатывается")
)

// ClassificationError: ответ классификатора не удалось привести к набору меток
type ClassificationError struct {
	Raw string
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("ошибка классификации: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// HallucinationCheckError: проверка фактов не дала результата
type HallucinationCheckError struct {
	Raw string
	Err error
}

func (e *HallucinationCheckError) Error() string {
	return fmt.Sprintf("ошибка проверки фактов: %v", e.Err)
}

func (e *HallucinationCheckError) Unwrap() error { return e.Err }

// PlanningError: внешний вызов планировщика не состоялся
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("ошибка планирования: %v", e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// SessionClosedError: обращение к завершенной сессии
type SessionClosedError struct {
	SessionID string
}

func (e *SessionClosedError) Error() string {
	return fmt.Sprintf("сессия %s завершена", e.SessionID)
}
