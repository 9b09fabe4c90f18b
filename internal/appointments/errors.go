package appointments

import (
	"errors"
	"fmt"

	"medbot-server/internal/models"
)

var (
	// ErrNotFound means no appointment matched the id, key or index.
	ErrNotFound = errors.New("appointment not found")
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrForbidden means the actor may not touch the appointment.
	ErrForbidden = errors.New("not allowed to modify this appointment")
	// ErrInvalidRequest is returned for blank required fields or bad arguments.
	ErrInvalidRequest = errors.New("invalid appointment request")
)

// TransitionError reports a status change the state machine does not allow.
type TransitionError struct {
	From models.AppointmentStatus
	To   models.AppointmentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move appointment from %s to %s", e.From, e.To)
}

// Is matches ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// allowed lists the legal targets for each status.
var allowed = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:  {models.StatusAccepted, models.StatusRejected},
	models.StatusAccepted: {models.StatusCompleted},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to models.AppointmentStatus) bool {
	if from.Terminal() {
		return false
	}
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}
