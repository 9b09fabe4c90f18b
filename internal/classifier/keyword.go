package classifier

import (
	"context"
	"strings"
	"unicode"
)

// KeywordPredictor picks the intent whose patterns best match the text.
// A pattern found verbatim scores well above scattered word overlap.
type KeywordPredictor struct {
	intents []scoredIntent
}

type scoredIntent struct {
	tag      string
	patterns []string
	words    map[string]bool
}

const (
	phraseWeight = 10
	minWordLen   = 3
)

// NewKeywordPredictor builds a predictor over the corpus patterns.
func NewKeywordPredictor(corpus *Corpus) *KeywordPredictor {
	p := &KeywordPredictor{}
	for _, in := range corpus.Intents {
		si := scoredIntent{tag: in.Tag, words: make(map[string]bool)}
		for _, pattern := range in.Patterns {
			pattern = strings.ToLower(strings.TrimSpace(pattern))
			if pattern == "" {
				continue
			}
			si.patterns = append(si.patterns, pattern)
			for _, w := range tokenize(pattern) {
				si.words[w] = true
			}
		}
		p.intents = append(p.intents, si)
	}
	return p
}

// Predict returns the best tag, or "" when nothing matches. Ties go to
// the intent listed first.
func (p *KeywordPredictor) Predict(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text = strings.ToLower(text)
	tokens := tokenize(text)

	best, bestScore := "", 0
	for _, si := range p.intents {
		score := 0
		for _, pattern := range si.patterns {
			if strings.Contains(text, pattern) {
				score += phraseWeight
			}
		}
		for _, tok := range tokens {
			if si.words[tok] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = si.tag, score
		}
	}
	return best, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= minWordLen {
			out = append(out, f)
		}
	}
	return out
}
