package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Intent is one entry of the intents corpus.
type Intent struct {
	Tag               string   `json:"tag"`
	Patterns          []string `json:"patterns"`
	Responses         []string `json:"responses"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
}

// Corpus holds the intents and the optional follow-up override table.
type Corpus struct {
	Intents []Intent `json:"intents"`
	// FollowUps maps a tag to its questions and takes precedence over
	// Intent.FollowUpQuestions.
	FollowUps map[string][]string `json:"-"`
}

// LoadCorpus reads the intents file and, when followUpsPath is non-empty
// and exists, the follow-up override file.
func LoadCorpus(intentsPath, followUpsPath string) (*Corpus, error) {
	data, err := os.ReadFile(intentsPath)
	if err != nil {
		return nil, fmt.Errorf("read intents: %w", err)
	}
	var corpus Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("decode intents %s: %w", intentsPath, err)
	}

	if followUpsPath != "" {
		data, err := os.ReadFile(followUpsPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read follow-up questions: %w", err)
		default:
			if err := json.Unmarshal(data, &corpus.FollowUps); err != nil {
				return nil, fmt.Errorf("decode follow-up questions %s: %w", followUpsPath, err)
			}
		}
	}
	return &corpus, nil
}

// Lookup finds an intent by tag.
func (c *Corpus) Lookup(tag string) (Intent, bool) {
	for _, in := range c.Intents {
		if in.Tag == tag {
			return in, true
		}
	}
	return Intent{}, false
}

// FollowUpsFor returns the follow-up questions for tag, blanks removed.
func (c *Corpus) FollowUpsFor(tag string) []string {
	questions, ok := c.FollowUps[tag]
	if !ok {
		if in, found := c.Lookup(tag); found {
			questions = in.FollowUpQuestions
		}
	}
	var out []string
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
