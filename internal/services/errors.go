package services

import (
	"errors"
	"fmt"

	apperrors "github.com/SAP-F-2025/screening-service/internal/errors"
	"github.com/SAP-F-2025/screening-service/internal/remote"
	"github.com/SAP-F-2025/screening-service/internal/repositories"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
	"github.com/SAP-F-2025/screening-service/internal/session"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound = errors.New("resource not found")

	// Session specific errors
	ErrSessionNotFound  = errors.New("session not found")
	ErrLanguageNotFound = errors.New("question set not found for language")
	ErrReportNotReady   = errors.New("report is not available before the test is finished")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// BusinessRuleError is a request that is well formed but not allowed in the current state
type BusinessRuleError struct {
	Rule    string                 `json:"rule"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Err     error                  `json:"-"`
}

func (bre *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", bre.Rule, bre.Message)
}

func (bre *BusinessRuleError) Unwrap() error {
	return bre.Err
}

// ===== ERROR HELPERS =====

// NewBusinessRuleError wraps a sentinel so callers can still match it with errors.Is
func NewBusinessRuleError(rule string, err error, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{
		Rule:    rule,
		Message: err.Error(),
		Context: context,
		Err:     err,
	}
}

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrLanguageNotFound) ||
		errors.Is(err, repositories.ErrNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, session.ErrInvalidAnswer) ||
		errors.Is(err, scoring.ErrInvalidCanvas) ||
		errors.Is(err, scoring.ErrUnknownObject) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsBusinessRule checks if error represents a business rule violation
func IsBusinessRule(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}

// IsConflict checks if error represents a navigation or state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrReportNotReady) ||
		errors.Is(err, session.ErrInvalidTransition) ||
		errors.Is(err, session.ErrAnswerRequired) ||
		errors.Is(err, session.ErrProfileRequired) ||
		errors.Is(err, session.ErrNotTesting) ||
		errors.Is(err, session.ErrNoActionGame) ||
		errors.Is(err, session.ErrClosed) ||
		errors.Is(err, scoring.ErrGameFinished)
}

// IsWrongQuestionType checks if an answer was sent for a question of another type
func IsWrongQuestionType(err error) bool {
	return errors.Is(err, session.ErrWrongQuestionType)
}

// IsRemoteFailure checks if the remote evaluation service failed a request
func IsRemoteFailure(err error) bool {
	return remote.IsRecoverable(err)
}
