// Package scoring judges answers that can be scored without the remote evaluation service.
package scoring

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/screening-service/internal/models"
)

var (
	// ErrRemoteOnly is returned when a remotely evaluated question is handed to the local scorer.
	// Reaching it is a programming error.
	ErrRemoteOnly = errors.New("question type is only scored remotely")

	ErrAnswerTypeMismatch = errors.New("answer does not match question type")
)

// Score computes the local score for an answer.
//
// SingleChoice, Text and ImageRegionSelect scores always fall in [0, MaxScore]. ActionSequence
// returns the accumulated mini-game score untouched; the report clamps it with every other
// score when aggregating.
func Score(q *models.Question, answer models.Answer) (int, error) {
	if q.Type.IsRemote() {
		return 0, fmt.Errorf("%w: %s", ErrRemoteOnly, q.Type)
	}
	if answer == nil || answer.QuestionType() != q.Type {
		return 0, fmt.Errorf("%w: question %d is %s", ErrAnswerTypeMismatch, q.ID, q.Type)
	}

	switch a := answer.(type) {
	case models.ChoiceAnswer:
		if q.CorrectOptionIndex != nil && a.Index == *q.CorrectOptionIndex {
			return q.MaxScore, nil
		}
		return 0, nil
	case models.TextAnswer:
		return MatchText(a.Text, q.CorrectTextAnswers, q.MaxScore), nil
	case models.RegionAnswer:
		if a.Region != "" && a.Region == q.CorrectRegion {
			return q.MaxScore, nil
		}
		return 0, nil
	case models.ActionSequenceAnswer:
		return a.Score, nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrAnswerTypeMismatch, answer)
	}
}

// MustScore is Score for callers that have already routed remote types elsewhere.
// It panics on ErrRemoteOnly so the mistake surfaces during development.
func MustScore(q *models.Question, answer models.Answer) int {
	score, err := Score(q, answer)
	if errors.Is(err, ErrRemoteOnly) {
		panic(err)
	}
	return score
}

// Clamp limits a score to [0, limit].
func Clamp(score, limit int) int {
	switch {
	case score < 0 || limit < 0:
		return 0
	case score > limit:
		return limit
	default:
		return score
	}
}
