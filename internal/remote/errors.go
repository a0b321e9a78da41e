package remote

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

var (
	ErrNotRemote     = errors.New("question type is not evaluated remotely")
	ErrEmptyPayload  = errors.New("payload is empty")
	ErrEmptyTaskID   = errors.New("remote service returned no task id")
	ErrRejected      = errors.New("remote service rejected the submission")
	ErrTaskCancelled = errors.New("pending evaluation was cleared")
)

// SubmissionError means the submit request failed. Nothing was recorded for the question and
// the caller may submit again.
type SubmissionError struct {
	QuestionID int
	Kind       models.PayloadKind
	Err        error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s evaluation for question %d: %v", e.Kind, e.QuestionID, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// PollError means a status request failed mid-loop. The pending task was cleared, so the
// question is unanswered again and may be resubmitted.
type PollError struct {
	QuestionID int
	Kind       models.PayloadKind
	TaskID     string
	Err        error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll %s evaluation %s for question %d: %v", e.Kind, e.TaskID, e.QuestionID, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx answer from the remote service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote service returned status %d: %s", e.StatusCode, e.Body)
}

// IsRecoverable reports whether err leaves the question resubmittable.
func IsRecoverable(err error) bool {
	var subErr *SubmissionError
	var pollErr *PollError
	return errors.As(err, &subErr) || errors.As(err, &pollErr)
}
