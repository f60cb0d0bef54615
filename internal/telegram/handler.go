package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"interview-coach/internal/interview"
	"interview-coach/internal/session"
)

// Messenger отправляет сообщения пользователю
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type RateLimiter struct {
	requests map[int64][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimiter) IsAllowed(userID int64) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()

	var valid []time.Time
	for _, t := range rl.requests[userID] {
		if now.Sub(t) < rl.window {
			valid = append(valid, t)
		}
	}
	if len(valid) >= rl.limit {
		rl.requests[userID] = valid
		return false
	}
	rl.requests[userID] = append(valid, now)
	return true
}

// Options: параметры обработчика
type Options struct {
	RateLimit     int
	SessionMaxAge time.Duration
	Roles         []string
}

// maxChunk: длина части длинного сообщения с запасом до лимита Telegram в 4096 символов
const maxChunk = 3500

type Handler struct {
	bot           Messenger
	registry      *session.Registry
	opts          Options
	logger        *zap.Logger
	sessions      map[int64]*userState
	sessionsMutex sync.Mutex
	rateLimiter   *RateLimiter
}

// userState: диалог пользователя под собственной блокировкой
type userState struct {
	mu sync.Mutex
	UserSession
}

func NewHandler(bot Messenger, registry *session.Registry, opts Options, logger *zap.Logger) *Handler {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 20
	}
	if opts.SessionMaxAge <= 0 {
		opts.SessionMaxAge = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		bot:         bot,
		registry:    registry,
		opts:        opts,
		logger:      logger,
		sessions:    make(map[int64]*userState),
		rateLimiter: NewRateLimiter(opts.RateLimit, time.Minute),
	}
}

// RunCleanup раз в час удаляет неактивные диалоги и завершенные сессии, пока не отменен ctx
func (h *Handler) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupInactiveSessions()
		}
	}
}

func (h *Handler) cleanupInactiveSessions() {
	cutoff := time.Now().Add(-h.opts.SessionMaxAge)

	h.sessionsMutex.Lock()
	for uid, st := range h.sessions {
		st.mu.Lock()
		stale := st.LastActivity.Before(cutoff)
		st.mu.Unlock()
		if stale {
			delete(h.sessions, uid)
		}
	}
	h.sessionsMutex.Unlock()

	removed := h.registry.Sweep(h.opts.SessionMaxAge)
	h.logger.Info("очистка сессий", zap.Int("removed", removed), zap.Int("active", h.registry.Len()))
}

func (h *Handler) HandleUpdate(ctx context.Context, update Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}
	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	text := strings.TrimSpace(update.Message.Text)

	if !h.rateLimiter.IsAllowed(userID) {
		h.send(ctx, chatID, "⏳ Слишком много сообщений. Пожалуйста, подождите минуту.")
		return
	}

	st := h.getOrCreateSession(userID)

	if strings.HasPrefix(text, "/") {
		h.handleCommand(ctx, chatID, strings.Fields(text)[0], st)
		return
	}
	h.handleUserInput(ctx, chatID, text, st)
}

// handleCommand обрабатывает команды бота
func (h *Handler) handleCommand(ctx context.Context, chatID int64, command string, st *userState) {
	switch command {
	case "/start":
		h.handleStartCommand(ctx, chatID, st)
	case "/help":
		h.handleHelpCommand(ctx, chatID)
	case "/status":
		h.handleStatusCommand(ctx, chatID, st)
	case "/restart":
		h.handleRestartCommand(ctx, chatID, st)
	case "/stop":
		h.handleStopCommand(ctx, chatID, st)
	default:
		h.send(ctx, chatID, "Неизвестная команда. Используйте /help для получения списка команд.")
	}
}

// handleStartCommand начинает сбор профиля кандидата
func (h *Handler) handleStartCommand(ctx context.Context, chatID int64, st *userState) {
	st.mu.Lock()
	if st.State == StateInterview {
		st.mu.Unlock()
		h.send(ctx, chatID, "У вас уже идет интервью. Используйте /status для проверки прогресса или /restart для начала нового интервью.")
		return
	}
	h.resetSession(st)
	st.State = StateAwaitingName
	st.mu.Unlock()

	h.send(ctx, chatID, "🎯 *Техническое интервью*\n\nОтвечайте так, как ответили бы на настоящем собеседовании. В конце вы получите подробный отчет.\n\nКак вас зовут?")
}

// handleHelpCommand обрабатывает команду /help
func (h *Handler) handleHelpCommand(ctx context.Context, chatID int64) {
	h.send(ctx, chatID, `🤖 *Тренажер технических интервью*

*Команды:*
/start - Начать новое интервью
/status - Проверить прогресс текущего интервью
/restart - Сбросить интервью
/stop - Завершить интервью и получить отчет
/help - Показать это сообщение

*Как это работает:*
1. Представьтесь и укажите позицию и грейд
2. Отвечайте на вопросы интервьюера
3. Сложность подстраивается под ваши ответы
4. Напишите "стоп" или /stop, чтобы получить отчет`)
}

// handleStatusCommand показывает прогресс интервью
func (h *Handler) handleStatusCommand(ctx context.Context, chatID int64, st *userState) {
	st.mu.Lock()
	state, sessionID := st.State, st.SessionID
	st.mu.Unlock()

	switch state {
	case StateIdle:
		h.send(ctx, chatID, "Интервью не начато. Используйте /start для начала.")
	case StateAwaitingName, StateAwaitingRole, StateAwaitingGrade:
		h.send(ctx, chatID, "Заполняем профиль кандидата. Ответьте на последний вопрос бота.")
	case StateInterview:
		s, ok := h.registry.Get(sessionID)
		if !ok {
			h.send(ctx, chatID, "Сессия не найдена. Используйте /start для нового интервью.")
			return
		}
		snap := s.Snapshot()
		h.send(ctx, chatID, fmt.Sprintf("📊 *Прогресс интервью*\n\n"+
			"🆔 ID: `%s`\n"+
			"💬 Ответов: %d\n"+
			"❓ Вопросов задано: %d\n"+
			"📚 Тем затронуто: %d\n"+
			"📈 Текущая сложность: %d/%d",
			s.ID(), snap.CandidateTurns, len(snap.QuestionsAsked), len(snap.TopicsCovered),
			snap.Difficulty, snap.Limits.MaxDifficulty))
	case StateCompleted:
		h.send(ctx, chatID, fmt.Sprintf("✅ Интервью завершено!\n🆔 ID: `%s`\n\nИспользуйте /start для нового интервью.", sessionID))
	}
}

// handleRestartCommand сбрасывает интервью
func (h *Handler) handleRestartCommand(ctx context.Context, chatID int64, st *userState) {
	st.mu.Lock()
	if st.SessionID != "" {
		h.registry.Remove(st.SessionID)
	}
	h.resetSession(st)
	st.mu.Unlock()
	h.send(ctx, chatID, "🔄 Интервью сброшено. Используйте /start для начала нового интервью.")
}

// handleStopCommand завершает интервью с отчетом
func (h *Handler) handleStopCommand(ctx context.Context, chatID int64, st *userState) {
	st.mu.Lock()
	state := st.State
	if state != StateInterview {
		if state != StateCompleted {
			h.resetSession(st)
		}
		st.mu.Unlock()
		h.send(ctx, chatID, "Интервью не запущено.")
		return
	}
	st.mu.Unlock()
	h.processAnswer(ctx, chatID, "Стоп, давай фидбэк", st)
}

// validateUserInput проверяет сообщение кандидата
func (h *Handler) validateUserInput(text string) error {
	if text == "" {
		return fmt.Errorf("пустое сообщение")
	}
	if utf8.RuneCountInString(text) > 4000 {
		return fmt.Errorf("сообщение слишком длинное (максимум 4000 символов)")
	}

	first, _ := utf8.DecodeRuneInString(text)
	n := utf8.RuneCountInString(text)
	if n > 10 && strings.Count(text, string(first)) > n*8/10 {
		return fmt.Errorf("сообщение содержит слишком много повторяющихся символов")
	}
	return nil
}

// handleUserInput обрабатывает обычные сообщения пользователя
func (h *Handler) handleUserInput(ctx context.Context, chatID int64, text string, st *userState) {
	if err := h.validateUserInput(text); err != nil {
		h.send(ctx, chatID, "❌ "+err.Error())
		return
	}

	st.mu.Lock()
	st.LastActivity = time.Now()
	switch st.State {
	case StateAwaitingName:
		st.Profile.Name = text
		st.State = StateAwaitingRole
		st.mu.Unlock()
		h.send(ctx, chatID, fmt.Sprintf("Приятно познакомиться, %s! На какую позицию вы претендуете?\nНапример: %s", text, strings.Join(h.opts.Roles, ", ")))
	case StateAwaitingRole:
		st.Profile.Role = text
		st.State = StateAwaitingGrade
		st.mu.Unlock()
		h.send(ctx, chatID, "Какой у вас грейд: Junior, Middle или Senior?")
	case StateAwaitingGrade:
		st.Profile.Grade = text
		profile := st.Profile
		s, err := h.registry.Start(profile)
		if err != nil {
			h.resetSession(st)
			st.mu.Unlock()
			h.logger.Error("не удалось начать интервью", zap.Int64("user_id", st.UserID), zap.Error(err))
			h.send(ctx, chatID, "❌ Не удалось начать интервью. Попробуйте /start позже.")
			return
		}
		st.SessionID = s.ID()
		st.State = StateInterview
		st.mu.Unlock()
		h.send(ctx, chatID, fmt.Sprintf("🚀 Интервью началось!\n🆔 ID: `%s`\n\nПоздоровайтесь и коротко расскажите о своем опыте.", s.ID()))
	case StateInterview:
		st.mu.Unlock()
		h.processAnswer(ctx, chatID, text, st)
	default:
		st.mu.Unlock()
		h.send(ctx, chatID, "Сейчас не время для ответов. Используйте /start для начала интервью или /help для помощи.")
	}
}

// processAnswer передает сообщение в сессию и отправляет ответ интервьюера
func (h *Handler) processAnswer(ctx context.Context, chatID int64, text string, st *userState) {
	st.mu.Lock()
	sessionID := st.SessionID
	st.mu.Unlock()

	s, ok := h.registry.Get(sessionID)
	if !ok {
		st.mu.Lock()
		h.resetSession(st)
		st.mu.Unlock()
		h.send(ctx, chatID, "Сессия истекла. Используйте /start для нового интервью.")
		return
	}

	res, err := s.ProcessTurn(ctx, text)
	var closed *interview.SessionClosedError
	switch {
	case errors.Is(err, interview.ErrTurnInProgress):
		h.send(ctx, chatID, "⏳ Обрабатываю предыдущий ответ, подождите немного.")
		return
	case errors.As(err, &closed):
		h.send(ctx, chatID, "Интервью уже завершено. Используйте /start для нового.")
		return
	case err != nil:
		h.logger.Error("ошибка обработки хода", zap.String("session_id", sessionID), zap.Error(err))
		h.send(ctx, chatID, "❌ Не удалось обработать сообщение. Попробуйте еще раз.")
		return
	}

	h.send(ctx, chatID, res.Reply)
	if res.Report == nil {
		return
	}

	st.mu.Lock()
	st.State = StateCompleted
	st.mu.Unlock()
	h.sendLong(ctx, chatID, res.Report.Markdown())
	h.send(ctx, chatID, "Используйте /start для нового интервью.")
}

// sendLong отправляет длинный текст частями по границам строк
func (h *Handler) sendLong(ctx context.Context, chatID int64, text string) {
	for _, chunk := range splitMessage(text, maxChunk) {
		h.send(ctx, chatID, chunk)
	}
}

func splitMessage(text string, limit int) []string {
	var (
		chunks []string
		b      strings.Builder
	)
	for _, line := range strings.SplitAfter(text, "\n") {
		if b.Len() > 0 && b.Len()+len(line) > limit {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		for len(line) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.bot.SendMessage(ctx, chatID, text); err != nil {
		h.logger.Warn("ошибка отправки сообщения", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// Вспомогательные методы
func (h *Handler) getOrCreateSession(userID int64) *userState {
	h.sessionsMutex.Lock()
	defer h.sessionsMutex.Unlock()

	if st, exists := h.sessions[userID]; exists {
		return st
	}

	st := &userState{UserSession: UserSession{
		UserID:       userID,
		State:        StateIdle,
		LastActivity: time.Now(),
	}}
	h.sessions[userID] = st
	return st
}

// resetSession сбрасывает диалог. Вызывается под st.mu.
func (h *Handler) resetSession(st *userState) {
	st.State = StateIdle
	st.Profile = interview.CandidateProfile{}
	st.SessionID = ""
	st.LastActivity = time.Now()
}
