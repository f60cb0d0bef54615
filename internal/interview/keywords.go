package interview

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"стоп":      {},
	"stop":      {},
	"хватит":    {},
	"завершить": {},
	"закончить": {},
}

var stopPhrases = [][2]string{
	{"давай", "фидбэк"},
	{"давай", "фидбек"},
	{"давай", "feedback"},
}

var offTopicStems = []string{
	"погод", "кофе", "обед", "выходн", "отпуск", "анекдот", "шутк",
	"спорт", "футбол", "кино", "фильм", "сериал", "музык",
}

var greetingWords = map[string]struct{}{
	"привет":       {},
	"здравствуйте": {},
	"здравствуй":   {},
	"добрый":       {},
	"hello":        {},
	"hi":           {},
}

var candidateQuestionMarkers = []string{
	"а вы", "а у вас", "а как у вас", "расскажите о компании", "какие задачи", "какой стек", "есть ли у вас",
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// IsStopRequest сообщает, содержит ли сообщение явную команду завершить интервью
func IsStopRequest(text string) bool {
	ws := words(text)
	for i, w := range ws {
		if _, ok := stopWords[w]; ok {
			return true
		}
		if i+1 < len(ws) {
			for _, p := range stopPhrases {
				if w == p[0] && ws[i+1] == p[1] {
					return true
				}
			}
		}
	}
	return false
}

// LooksOffTopic сообщает, похоже ли сообщение на разговор не по теме
func LooksOffTopic(text string) bool {
	for _, w := range words(text) {
		for _, stem := range offTopicStems {
			if strings.HasPrefix(w, stem) {
				return true
			}
		}
	}
	return false
}

// LooksLikeGreeting сообщает, начинается ли короткое сообщение с приветствия
func LooksLikeGreeting(text string) bool {
	ws := words(text)
	if len(ws) == 0 {
		return false
	}
	_, ok := greetingWords[ws[0]]
	return ok
}

// LooksLikeCandidateQuestion сообщает, похоже ли сообщение на вопрос кандидата к интервьюеру
func LooksLikeCandidateQuestion(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if !strings.Contains(lower, "?") {
		return false
	}
	padded := " " + strings.Join(words(lower), " ") + " "
	for _, m := range candidateQuestionMarkers {
		if strings.Contains(padded, " "+m+" ") {
			return true
		}
	}
	return false
}
