package session

import (
	"errors"
	"fmt"

	"github.com/abhisek/prepquiz/internal/auth"
)

var (
	// ErrNoUser is returned when a session is created without a user.
	ErrNoUser = auth.ErrNoUser

	// ErrNoQuestions is returned when a load succeeds with nothing usable.
	ErrNoQuestions = errors.New("no questions available for this test")

	// ErrAlreadySubmitting is returned by Submit while another submission holds the lock.
	ErrAlreadySubmitting = errors.New("submission already in progress")

	// ErrNotInProgress is returned for answers or submits outside the in-progress state.
	ErrNotInProgress = errors.New("test is not in progress")

	// ErrInvalidSelection is returned for an out-of-range index or an unknown option.
	ErrInvalidSelection = errors.New("invalid selection")

	// ErrStale is returned when a load finishes after its session was closed.
	ErrStale = errors.New("stale response discarded")

	// ErrAlreadyLoaded is returned by Load once questions are in place.
	ErrAlreadyLoaded = errors.New("questions already loaded")

	// ErrLoadInFlight is returned by Load while another load is running.
	ErrLoadInFlight = errors.New("question load already in flight")
)

// AutoSubmitNotice is shown when the timer submits a test.
const AutoSubmitNotice = "Time's up! Your test was submitted automatically."

// DeliveryError reports that a scored result could not be posted. The
// session is still completed and the result is kept for a resend.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("result not delivered: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsDeliveryError reports whether err is a delivery failure.
func IsDeliveryError(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
