package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed questionbank.yaml
var defaultQuestionBank []byte

// BankQuestion is one entry of the fallback question bank.
type BankQuestion struct {
	Text     string   `yaml:"text"`
	Category string   `yaml:"category"`
	MaxScore int      `yaml:"max_score"`
	Tags     []string `yaml:"tags"`
}

// QuestionBank holds questions used when the model cannot generate any.
type QuestionBank struct {
	Questions []BankQuestion `yaml:"questions"`
}

// LoadQuestionBank reads the bank at path, or the embedded default when path is empty.
func LoadQuestionBank(path string) (*QuestionBank, error) {
	content := defaultQuestionBank
	if strings.TrimSpace(path) != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadQuestionBank: %w", err)
		}
		// #nosec G304 -- operator supplied configuration file
		content, err = os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadQuestionBank: %w", err)
		}
	}
	return ParseQuestionBank(content)
}

// ParseQuestionBank decodes and validates a YAML question bank.
func ParseQuestionBank(content []byte) (*QuestionBank, error) {
	var bank QuestionBank
	if err := yaml.Unmarshal(content, &bank); err != nil {
		return nil, fmt.Errorf("op=config.ParseQuestionBank: %w", err)
	}
	kept := bank.Questions[:0]
	for _, q := range bank.Questions {
		q.Text = strings.TrimSpace(q.Text)
		if q.Text == "" {
			continue
		}
		if q.Category == "" {
			q.Category = "HR"
		}
		q.Category = strings.ToUpper(q.Category)
		kept = append(kept, q)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("op=config.ParseQuestionBank: question bank is empty")
	}
	bank.Questions = kept
	return &bank, nil
}

// Pick returns up to n questions, preferring those tagged with any of skills.
// Tagged matches keep bank order and are followed by untagged entries.
func (b *QuestionBank) Pick(n int, skills []string) []BankQuestion {
	if b == nil || n <= 0 {
		return nil
	}
	want := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			want[s] = struct{}{}
		}
	}
	var preferred, rest []BankQuestion
	for _, q := range b.Questions {
		if matchesAny(q.Tags, want) {
			preferred = append(preferred, q)
		} else {
			rest = append(rest, q)
		}
	}
	out := append(preferred, rest...)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func matchesAny(tags []string, want map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := want[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}
