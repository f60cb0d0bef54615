package questionbank

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"interview-coach/internal/interview"
)

//go:embed bank.yaml
var defaultBank []byte

// Question представляет вопрос банка
type Question struct {
	ID         string `yaml:"id"`
	Difficulty int    `yaml:"difficulty"`
	Text       string `yaml:"text"`
}

// Topic представляет тему с вопросами в порядке приоритета
type Topic struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Questions []Question `yaml:"questions"`
}

// Role задает порядок тем для позиции по грейдам
type Role struct {
	Name    string              `yaml:"name"`
	Aliases []string            `yaml:"aliases"`
	Grades  map[string][]string `yaml:"grades"`
}

type file struct {
	Roles  []Role  `yaml:"roles"`
	Topics []Topic `yaml:"topics"`
}

// Bank: банк вопросов только для чтения
type Bank struct {
	roles  []Role
	topics []Topic
	index  map[string]int
}

// Default загружает встроенный банк вопросов
func Default() (*Bank, error) {
	return Parse(defaultBank)
}

// LoadFile загружает банк из YAML файла
func LoadFile(filename string) (*Bank, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения банка вопросов %s: %w", filename, err)
	}
	return Parse(data)
}

// Load возвращает банк из файла, если путь задан, иначе встроенный
func Load(filename string) (*Bank, error) {
	if filename == "" {
		return Default()
	}
	return LoadFile(filename)
}

// Parse разбирает и проверяет YAML банка
func Parse(data []byte) (*Bank, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ошибка парсинга банка вопросов: %w", err)
	}

	b := &Bank{roles: f.Roles, topics: f.Topics, index: make(map[string]int, len(f.Topics))}
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("ошибка валидации банка вопросов: %w", err)
	}
	return b, nil
}

func (b *Bank) validate() error {
	if len(b.topics) == 0 {
		return fmt.Errorf("банк не содержит тем")
	}
	if len(b.roles) == 0 {
		return fmt.Errorf("банк не содержит позиций")
	}

	seen := make(map[string]struct{})
	for i, t := range b.topics {
		if t.ID == "" {
			return fmt.Errorf("тема %d должна иметь id", i)
		}
		if _, dup := b.index[t.ID]; dup {
			return fmt.Errorf("тема %s объявлена дважды", t.ID)
		}
		b.index[t.ID] = i
		for _, q := range t.Questions {
			if q.ID == "" || q.Text == "" {
				return fmt.Errorf("вопрос темы %s должен иметь id и text", t.ID)
			}
			if _, dup := seen[q.ID]; dup {
				return fmt.Errorf("вопрос %s объявлен дважды", q.ID)
			}
			if q.Difficulty < 1 {
				return fmt.Errorf("вопрос %s имеет неверную сложность %d", q.ID, q.Difficulty)
			}
			seen[q.ID] = struct{}{}
		}
	}

	for _, r := range b.roles {
		if r.Name == "" || len(r.Grades) == 0 {
			return fmt.Errorf("позиция должна иметь name и grades")
		}
		for grade, topics := range r.Grades {
			for _, t := range topics {
				if _, ok := b.index[t]; !ok {
					return fmt.Errorf("позиция %s (%s) ссылается на неизвестную тему %s", r.Name, grade, t)
				}
			}
		}
	}
	return nil
}

// TopicsFor возвращает порядок тем для позиции и грейда.
// Неизвестная позиция сводится к первой в банке, неизвестный грейд к Junior.
func (b *Bank) TopicsFor(role, grade string) []string {
	r := b.matchRole(role)
	g := normalizeGrade(grade)

	topics, ok := r.Grades[g]
	if !ok {
		topics = r.Grades["Junior"]
	}
	return append([]string(nil), topics...)
}

// RoleNames возвращает названия позиций банка
func (b *Bank) RoleNames() []string {
	names := make([]string, 0, len(b.roles))
	for _, r := range b.roles {
		names = append(names, r.Name)
	}
	return names
}

// Title возвращает человекочитаемое название темы
func (b *Bank) Title(topic string) string {
	if i, ok := b.index[topic]; ok && b.topics[i].Title != "" {
		return b.topics[i].Title
	}
	return strings.ReplaceAll(topic, "_", " ")
}

// HasDifficulty сообщает, есть ли в темах вопросы указанной сложности
func (b *Bank) HasDifficulty(topics []string, difficulty int) bool {
	for _, t := range topics {
		i, ok := b.index[t]
		if !ok {
			continue
		}
		for _, q := range b.topics[i].Questions {
			if q.Difficulty == difficulty {
				return true
			}
		}
	}
	return false
}

// EligibleQuestions возвращает вопросы указанной сложности из тем фильтра.
// Порядок: темы в порядке фильтра, внутри темы порядок банка.
// Вопросы с идентификаторами из excluded пропускаются.
func (b *Bank) EligibleQuestions(topicFilter []string, difficulty int, excluded map[string]struct{}) []interview.QuestionPlan {
	var out []interview.QuestionPlan
	for _, topic := range topicFilter {
		i, ok := b.index[topic]
		if !ok {
			continue
		}
		for _, q := range b.topics[i].Questions {
			if q.Difficulty != difficulty {
				continue
			}
			if _, skip := excluded[q.ID]; skip {
				continue
			}
			out = append(out, interview.QuestionPlan{
				ID:         q.ID,
				Topic:      topic,
				Difficulty: q.Difficulty,
				Text:       q.Text,
			})
		}
	}
	return out
}

func (b *Bank) matchRole(role string) Role {
	needle := strings.ToLower(strings.TrimSpace(role))
	if needle != "" {
		for _, r := range b.roles {
			if strings.ToLower(r.Name) == needle {
				return r
			}
		}
		for _, r := range b.roles {
			if strings.Contains(needle, strings.ToLower(r.Name)) {
				return r
			}
			for _, a := range r.Aliases {
				if strings.Contains(needle, strings.ToLower(a)) {
					return r
				}
			}
		}
	}
	return b.roles[0]
}

func normalizeGrade(grade string) string {
	g := strings.ToLower(strings.TrimSpace(grade))
	switch {
	case strings.Contains(g, "senior"), strings.Contains(g, "сеньор"), strings.Contains(g, "синьор"), strings.Contains(g, "lead"):
		return "Senior"
	case strings.Contains(g, "middle"), strings.Contains(g, "мидл"):
		return "Middle"
	default:
		return "Junior"
	}
}
