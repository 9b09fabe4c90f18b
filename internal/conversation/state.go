package conversation

// Status is the phase of the current conversation round.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusAwaitingAnswer Status = "awaiting_answer"
	StatusResolved       Status = "resolved"
)

// Turn is one transcript entry. Either side may be empty.
type Turn struct {
	User string `json:"user,omitempty"`
	Bot  string `json:"bot,omitempty"`
}

// Answer records the reply given to one follow-up question.
type Answer struct {
	Question string `json:"question"`
	Text     string `json:"text"`
}

// State is the per-patient conversation. AskingFollowUp is true exactly
// when PendingFollowUp is set.
type State struct {
	Username          string   `json:"username"`
	Status            Status   `json:"status"`
	CurrentSymptom    string   `json:"currentSymptom,omitempty"`
	FollowUpQueue     []string `json:"followUpQueue,omitempty"`
	PendingFollowUp   string   `json:"pendingFollowUp,omitempty"`
	FollowUpAnswers   []Answer `json:"followUpAnswers,omitempty"`
	AskingFollowUp    bool     `json:"askingFollowUp"`
	SymptomsCollected []string `json:"symptomsCollected,omitempty"`
	Transcript        []Turn   `json:"transcript"`
}

// NewState returns an idle conversation for username.
func NewState(username string) *State {
	return &State{Username: username, Status: StatusIdle, Transcript: []Turn{}}
}

// LatestSymptom returns the most recently resolved symptom.
func (s *State) LatestSymptom() (string, bool) {
	if len(s.SymptomsCollected) == 0 {
		return "", false
	}
	return s.SymptomsCollected[len(s.SymptomsCollected)-1], true
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.FollowUpQueue = append([]string(nil), s.FollowUpQueue...)
	c.FollowUpAnswers = append([]Answer(nil), s.FollowUpAnswers...)
	c.SymptomsCollected = append([]string(nil), s.SymptomsCollected...)
	c.Transcript = append([]Turn{}, s.Transcript...)
	return &c
}

func (s *State) clearFollowUps() {
	s.FollowUpQueue = nil
	s.PendingFollowUp = ""
	s.FollowUpAnswers = nil
	s.AskingFollowUp = false
}
