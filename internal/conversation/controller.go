package conversation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"medbot-server/internal/classifier"
)

// NeutralAcknowledgement replaces a classifier reply that would repeat a
// follow-up question verbatim.
const NeutralAcknowledgement = "Thanks for letting me know. I have a few questions first."

const answerSeparator = " / "

var (
	ErrBlankUtterance         = errors.New("symptom description is required")
	ErrBlankAnswer            = errors.New("answer is required")
	ErrNotAwaiting            = errors.New("no follow-up question is pending")
	ErrConversationInProgress = errors.New("a follow-up question is still pending")
)

// Classifier labels an utterance. It must not fail; see classifier.Adapter.
type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Result
}

// Reply is what the patient sees after one step.
type Reply struct {
	Message   string   `json:"message"`
	Tag       string   `json:"tag,omitempty"`
	FollowUps []string `json:"followUps,omitempty"`
	Question  string   `json:"question,omitempty"`
	Resolved  bool     `json:"resolved"`
	Symptom   string   `json:"symptom,omitempty"`
}

// Controller drives the follow-up protocol over a State.
type Controller struct {
	classifier Classifier
}

// NewController creates a controller around c.
func NewController(c Classifier) *Controller {
	return &Controller{classifier: c}
}

// Start begins a round with the patient's initial utterance. A new round
// may follow a resolved one; it may not interrupt pending questions.
func (c *Controller) Start(ctx context.Context, st *State, utterance string) (Reply, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Reply{}, ErrBlankUtterance
	}
	if st.AskingFollowUp {
		return Reply{}, ErrConversationInProgress
	}

	res := c.classifier.Classify(ctx, utterance)
	message := res.Reply
	if slices.Contains(res.FollowUps, message) {
		message = NeutralAcknowledgement
	}
	st.Transcript = append(st.Transcript, Turn{User: utterance, Bot: message})

	st.CurrentSymptom = res.Tag
	if st.CurrentSymptom == "" {
		st.CurrentSymptom = utterance
	}
	reply := Reply{Message: message, Tag: res.Tag, FollowUps: res.FollowUps}

	if len(res.FollowUps) == 0 {
		st.clearFollowUps()
		return c.finalize(st, reply), nil
	}

	st.FollowUpAnswers = nil
	st.PendingFollowUp = res.FollowUps[0]
	st.FollowUpQueue = append([]string(nil), res.FollowUps[1:]...)
	st.AskingFollowUp = true
	st.Status = StatusAwaitingAnswer
	appendQuestion(st, st.PendingFollowUp)

	reply.Question = st.PendingFollowUp
	return reply, nil
}

// Answer records text for the pending question. A blank answer changes
// nothing and returns ErrBlankAnswer.
func (c *Controller) Answer(st *State, text string) (Reply, error) {
	if !st.AskingFollowUp {
		return Reply{}, ErrNotAwaiting
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrBlankAnswer
	}

	st.Transcript = append(st.Transcript, Turn{User: text})
	st.FollowUpAnswers = append(st.FollowUpAnswers, Answer{Question: st.PendingFollowUp, Text: text})

	if len(st.FollowUpQueue) > 0 {
		st.PendingFollowUp = st.FollowUpQueue[0]
		st.FollowUpQueue = st.FollowUpQueue[1:]
		appendQuestion(st, st.PendingFollowUp)
		return Reply{Message: st.PendingFollowUp, Question: st.PendingFollowUp}, nil
	}
	return c.finalize(st, Reply{}), nil
}

// finalize resolves the round and appends the closing message.
func (c *Controller) finalize(st *State, reply Reply) Reply {
	symptom := st.CurrentSymptom
	if symptom == "" {
		texts := make([]string, 0, len(st.FollowUpAnswers))
		for _, a := range st.FollowUpAnswers {
			texts = append(texts, a.Text)
		}
		symptom = strings.Join(texts, answerSeparator)
	}

	name := st.Username
	if name == "" {
		name = "User"
	}
	closing := fmt.Sprintf("Thank you, %s. Based on what you've shared, it seems you're experiencing symptoms related to %s. Here are some doctors who can help you.", name, symptom)
	st.Transcript = append(st.Transcript, Turn{Bot: closing})
	st.SymptomsCollected = append(st.SymptomsCollected, symptom)
	st.clearFollowUps()
	st.Status = StatusResolved

	reply.Resolved = true
	reply.Symptom = symptom
	if reply.Message == "" {
		reply.Message = closing
	}
	return reply
}

// ClearAfterBooking drops the symptom and follow-up state but keeps the
// transcript.
func ClearAfterBooking(st *State) {
	st.CurrentSymptom = ""
	st.SymptomsCollected = nil
	st.clearFollowUps()
	st.Status = StatusIdle
}

// appendQuestion adds q to the transcript unless it is already the last
// bot line.
func appendQuestion(st *State, q string) {
	if n := len(st.Transcript); n > 0 {
		last := st.Transcript[n-1]
		if last.User == "" && last.Bot == q {
			return
		}
	}
	st.Transcript = append(st.Transcript, Turn{Bot: q})
}
