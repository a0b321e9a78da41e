package session

import "errors"

var (
	ErrNotTesting        = errors.New("session is not on a question")
	ErrWrongQuestionType = errors.New("answer does not fit the current question type")
	ErrAnswerRequired    = errors.New("current question has no answer yet")
	ErrProfileRequired   = errors.New("user profile is required to start the test")
	ErrInvalidTransition = errors.New("navigation not allowed from the current screen")
	ErrInvalidAnswer     = errors.New("answer is out of range")
	ErrNoQuestions       = errors.New("question set is empty")
	ErrNoActionGame      = errors.New("no action sequence in progress")
	ErrClosed            = errors.New("session is closed")
)
