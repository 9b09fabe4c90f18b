package conversation

import (
	"context"
	"sync"

	"medbot-server/internal/logging"
	"medbot-server/internal/metrics"
)

// Exchange is the reply to one patient action plus the resulting state.
type Exchange struct {
	Reply Reply  `json:"reply"`
	State *State `json:"state"`
}

// Service runs conversations for many patients. Operations for the same
// username are serialized; different usernames proceed in parallel.
type Service struct {
	controller *Controller
	store      SessionStore
	logger     *logging.Logger
	metrics    *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the controller to a session store. logger and m may be nil.
func NewService(controller *Controller, store SessionStore, logger *logging.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		controller: controller,
		store:      store,
		logger:     logger,
		metrics:    m,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Submit starts a new round with the patient's symptom description.
func (s *Service) Submit(ctx context.Context, username, text string) (Exchange, error) {
	return s.step(ctx, username, func(st *State) (Reply, error) {
		return s.controller.Start(ctx, st, text)
	})
}

// Answer answers the pending follow-up question.
func (s *Service) Answer(ctx context.Context, username, text string) (Exchange, error) {
	return s.step(ctx, username, func(st *State) (Reply, error) {
		return s.controller.Answer(st, text)
	})
}

// Get returns the current state.
func (s *Service) Get(ctx context.Context, username string) (*State, error) {
	unlock := s.lock(username)
	defer unlock()
	return s.store.Load(ctx, username)
}

// Clear wipes the conversation, transcript included.
func (s *Service) Clear(ctx context.Context, username string) error {
	unlock := s.lock(username)
	defer unlock()
	if err := s.store.Delete(ctx, username); err != nil {
		return err
	}
	s.logger.Info("conversation cleared", "patient", username)
	return nil
}

// FinishBooking drops the resolved symptom after a booking.
func (s *Service) FinishBooking(ctx context.Context, username string) error {
	unlock := s.lock(username)
	defer unlock()

	st, err := s.store.Load(ctx, username)
	if err != nil {
		return err
	}
	ClearAfterBooking(st)
	return s.store.Save(ctx, st)
}

// LatestSymptom returns the symptom resolved most recently for username.
func (s *Service) LatestSymptom(ctx context.Context, username string) (string, bool, error) {
	st, err := s.Get(ctx, username)
	if err != nil {
		return "", false, err
	}
	symptom, ok := st.LatestSymptom()
	return symptom, ok, nil
}

// step applies fn to a working copy and saves it only when fn succeeds.
func (s *Service) step(ctx context.Context, username string, fn func(*State) (Reply, error)) (Exchange, error) {
	unlock := s.lock(username)
	defer unlock()

	st, err := s.store.Load(ctx, username)
	if err != nil {
		return Exchange{}, err
	}
	st.Username = username
	reply, err := fn(st)
	if err != nil {
		return Exchange{}, err
	}
	if err := s.store.Save(ctx, st); err != nil {
		return Exchange{}, err
	}
	if reply.Resolved {
		s.metrics.ObserveResolved()
		s.logger.Info("conversation resolved", "patient", username, "symptom", reply.Symptom)
	}
	return Exchange{Reply: reply, State: st}, nil
}

func (s *Service) lock(username string) func() {
	s.mu.Lock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}
