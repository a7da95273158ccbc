package mockbackend

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/abhisek/prepquiz/internal/quiz"
	"github.com/abhisek/prepquiz/internal/source"
)

//go:embed bank.yaml
var defaultBank []byte

// Bank holds the questions the mock backend serves.
type Bank struct {
	topics map[string]topicBank
	order  []string
}

type topicBank struct {
	Name     string          `yaml:"name"`
	Easy     []quiz.Question `yaml:"easy"`
	Moderate []quiz.Question `yaml:"moderate"`
	Hard     []quiz.Question `yaml:"hard"`
}

type bankFile struct {
	Topics []topicBank `yaml:"topics"`
}

// DefaultBank returns the embedded question bank.
func DefaultBank() (*Bank, error) {
	return ParseBank(defaultBank)
}

// LoadBank reads a bank from a YAML file.
func LoadBank(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	return ParseBank(data)
}

// ParseBank parses and validates a YAML bank. Every question must match
// the MCQ schema and have its answer among its options.
func ParseBank(data []byte) (*Bank, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse bank: %w", err)
	}

	b := &Bank{topics: make(map[string]topicBank)}
	for _, t := range f.Topics {
		key := topicKey(t.Name)
		if key == "" {
			return nil, fmt.Errorf("parse bank: topic without a name")
		}
		if _, dup := b.topics[key]; dup {
			return nil, fmt.Errorf("parse bank: duplicate topic %q", t.Name)
		}
		for level, qs := range map[string][]quiz.Question{"easy": t.Easy, "moderate": t.Moderate, "hard": t.Hard} {
			for i, q := range qs {
				if err := checkQuestion(q); err != nil {
					return nil, fmt.Errorf("parse bank: %s/%s #%d: %w", t.Name, level, i+1, err)
				}
			}
		}
		b.topics[key] = t
		b.order = append(b.order, t.Name)
	}
	return b, nil
}

func checkQuestion(q quiz.Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := llm.Validate(source.QuestionSchema, raw); err != nil {
		return err
	}
	return q.Validate()
}

// Topics returns the topic names in file order.
func (b *Bank) Topics() []string {
	return append([]string(nil), b.order...)
}

// Has reports whether the bank knows topic.
func (b *Bank) Has(topic string) bool {
	_, ok := b.topics[topicKey(topic)]
	return ok
}

// Pick returns count questions for topic at mode, cycling through the
// pool when it is smaller than count. offset rotates the starting point.
// Unknown difficulties and empty pools fall back to the whole topic.
func (b *Bank) Pick(topic string, mode quiz.Mode, count, offset int) []quiz.Question {
	t, ok := b.topics[topicKey(topic)]
	if !ok || count <= 0 {
		return nil
	}

	var pool []quiz.Question
	switch mode {
	case quiz.ModeEasy:
		pool = t.Easy
	case quiz.ModeModerate:
		pool = t.Moderate
	case quiz.ModeHard:
		pool = t.Hard
	}
	if len(pool) == 0 {
		pool = append(append(append([]quiz.Question(nil), t.Easy...), t.Moderate...), t.Hard...)
	}
	if len(pool) == 0 {
		return nil
	}

	out := make([]quiz.Question, count)
	for i := range out {
		out[i] = pool[(offset+i)%len(pool)]
	}
	return out
}

func topicKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
