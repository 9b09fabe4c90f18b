package classifier

import (
	"context"
	"math/rand"

	"medbot-server/internal/logging"
)

// FallbackReply is returned when no intent can be determined.
const FallbackReply = "Sorry, I don't understand. Please describe your symptom clearly."

const emptyResponsesReply = "Sorry, I don't understand."

// Predictor labels free text with an intent tag. "" means unknown.
type Predictor interface {
	Predict(ctx context.Context, text string) (string, error)
}

// Result is the outcome of classifying one utterance. Tag is empty when
// the utterance could not be classified.
type Result struct {
	Tag       string   `json:"tag,omitempty"`
	Reply     string   `json:"reply"`
	FollowUps []string `json:"followUps,omitempty"`
}

// Adapter turns predictor output into a reply and follow-up questions
// using the intents corpus.
type Adapter struct {
	corpus    *Corpus
	predictor Predictor
	logger    *logging.Logger
	pick      func(n int) int
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPicker overrides how a canned response is chosen among n.
func WithPicker(pick func(n int) int) Option {
	return func(a *Adapter) { a.pick = pick }
}

// NewAdapter creates an adapter. A nil predictor means keyword matching
// over the corpus patterns.
func NewAdapter(corpus *Corpus, predictor Predictor, logger *logging.Logger, opts ...Option) *Adapter {
	if predictor == nil {
		predictor = NewKeywordPredictor(corpus)
	}
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{
		corpus:    corpus,
		predictor: predictor,
		logger:    logger,
		pick:      rand.Intn,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify never fails: predictor errors and unknown tags produce the
// fallback reply with no tag.
func (a *Adapter) Classify(ctx context.Context, text string) Result {
	tag, err := a.predictor.Predict(ctx, text)
	if err != nil {
		a.logger.Warn("intent prediction failed", "error", err)
		return Result{Reply: FallbackReply}
	}
	if tag == "" {
		return Result{Reply: FallbackReply}
	}
	intent, ok := a.corpus.Lookup(tag)
	if !ok {
		a.logger.Warn("predicted tag not in corpus", "tag", tag)
		return Result{Reply: FallbackReply}
	}

	reply := emptyResponsesReply
	if n := len(intent.Responses); n > 0 {
		reply = intent.Responses[a.pick(n)]
	}
	return Result{
		Tag:       tag,
		Reply:     reply,
		FollowUps: a.corpus.FollowUpsFor(tag),
	}
}
