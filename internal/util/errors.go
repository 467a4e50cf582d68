package util

import (
	"errors"
	"net/http"
)

// Domain sentinel errors. Services return these; controllers map them
// to HTTP statuses via ErrorStatus.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Lesson state machine.
	ErrLessonClosed           = errors.New("lesson is not opened yet")
	ErrLessonNotStarted       = errors.New("lesson is not started")
	ErrLessonNotCompleted     = errors.New("lesson is not completed")
	ErrLessonAlreadyCompleted = errors.New("lesson is already completed")
	ErrLessonAlreadySkipped   = errors.New("lesson is already skipped")
	ErrTasksAlreadyCompleted  = errors.New("lesson tasks are already completed")
	ErrLessonExcludesTask     = errors.New("task does not belong to the lesson")
	ErrHomeworkNotIncluded    = errors.New("subscription does not include homework")
	ErrHomeworkDeadlinePassed = errors.New("homework deadline has passed")

	// Task progress.
	ErrAnswerEmpty           = errors.New("answer must not be empty")
	ErrCorrectAnswerRequired = errors.New("non-file task requires a correct answer")
	ErrTaskAnswered          = errors.New("task is already answered")
	ErrTaskSkipped           = errors.New("task is already skipped")
	ErrTaskNotAnswerable     = errors.New("task cannot be answered")

	// Variant state machine.
	ErrVariantNotStarted       = errors.New("variant is not started")
	ErrVariantAlreadyStarted   = errors.New("variant is already started")
	ErrVariantAlreadyCompleted = errors.New("variant is already completed")
	ErrVariantExcludesTask     = errors.New("task does not belong to the variant")
	ErrNoTasksForVariant       = errors.New("not enough tasks to generate a variant")

	// Subscriptions and payments.
	ErrSubscriptionInactive   = errors.New("subscription plan is not available")
	ErrNoActiveSubscription   = errors.New("no active subscription")
	ErrAlreadyHasSubscription = errors.New("user already has an active subscription")
	ErrAlreadyCanceled        = errors.New("subscription is already canceled")
	ErrOrderNotFound          = errors.New("order not found for payment")
	ErrInvalidSignature       = errors.New("notification signature mismatch")
	ErrPaymentGateway         = errors.New("payment gateway unavailable")
)

// ErrorStatus maps a domain error to its HTTP status code.
// State-conflict errors are plain 400s: the client issued a request the
// aggregate's current state rejects, and the message names the state.
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrLessonClosed),
		errors.Is(err, ErrHomeworkNotIncluded),
		errors.Is(err, ErrHomeworkDeadlinePassed):
		return http.StatusForbidden
	case errors.Is(err, ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ErrPaymentGateway):
		return http.StatusBadGateway
	case errors.Is(err, ErrLessonNotStarted),
		errors.Is(err, ErrLessonNotCompleted),
		errors.Is(err, ErrLessonAlreadyCompleted),
		errors.Is(err, ErrLessonAlreadySkipped),
		errors.Is(err, ErrTasksAlreadyCompleted),
		errors.Is(err, ErrLessonExcludesTask),
		errors.Is(err, ErrAnswerEmpty),
		errors.Is(err, ErrCorrectAnswerRequired),
		errors.Is(err, ErrTaskAnswered),
		errors.Is(err, ErrTaskSkipped),
		errors.Is(err, ErrTaskNotAnswerable),
		errors.Is(err, ErrVariantNotStarted),
		errors.Is(err, ErrVariantAlreadyStarted),
		errors.Is(err, ErrVariantAlreadyCompleted),
		errors.Is(err, ErrVariantExcludesTask),
		errors.Is(err, ErrNoTasksForVariant),
		errors.Is(err, ErrSubscriptionInactive),
		errors.Is(err, ErrNoActiveSubscription),
		errors.Is(err, ErrAlreadyHasSubscription),
		errors.Is(err, ErrAlreadyCanceled),
		// Webhook rejections are 400 so the gateway stops retrying.
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrInvalidSignature):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
