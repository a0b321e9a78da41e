package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SAP-F-2025/screening-service/internal/errors"
	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// QuestionValidator checks question definitions as they are loaded. It reports every
// problem it finds and never repairs a definition.
type QuestionValidator struct {
	structValidator *validator.Validate
}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator(structValidator *validator.Validate) *QuestionValidator {
	return &QuestionValidator{structValidator: structValidator}
}

// ValidateSet validates a complete question set. The returned error is ValidationErrors.
func (v *QuestionValidator) ValidateSet(set *models.QuestionSet) error {
	if set == nil || len(set.Questions) == 0 {
		return ValidationErrors{}.Add("questions", "question set cannot be empty", "required", nil)
	}

	var errs ValidationErrors
	seen := make(map[int]int, len(set.Questions))
	for i := range set.Questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		q := &set.Questions[i]

		if first, dup := seen[q.ID]; dup && q.ID > 0 {
			errs = errs.Add(prefix+".id", fmt.Sprintf("duplicates the id of questions[%d]", first), "unique", q.ID)
		} else {
			seen[q.ID] = i
		}

		errs = append(errs, v.ValidateQuestion(prefix, q)...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateQuestion validates one question and returns its field errors
func (v *QuestionValidator) ValidateQuestion(prefix string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if err := v.structValidator.Struct(q); err != nil {
		errs = append(errs, errors.ToValidationErrors(err, prefix)...)
		// Type-specific rules are meaningless for an unknown type
		if !q.Type.IsValid() {
			return errs
		}
	}

	switch q.Type {
	case models.SingleChoice:
		errs = append(errs, v.validateSingleChoice(prefix, q)...)
	case models.Text:
		errs = append(errs, v.validateText(prefix, q)...)
	case models.ActionSequence:
		errs = append(errs, v.validateActionSequence(prefix, q)...)
	case models.ImageRegionSelect:
		errs = append(errs, v.validateRegionSelect(prefix, q)...)
	case models.Audio, models.ImageUpload:
		// scored remotely, nothing type-specific to check
	}

	return errs
}

func (v *QuestionValidator) validateSingleChoice(prefix string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if len(q.Options) == 0 {
		errs = errs.Add(prefix+".options", "must have at least 1 option", "required", nil)
	}

	switch {
	case q.CorrectOptionIndex == nil:
		errs = errs.Add(prefix+".correctOptionIndex", "is required", "required", nil)
	case *q.CorrectOptionIndex < 0 || *q.CorrectOptionIndex >= len(q.Options):
		errs = errs.Add(prefix+".correctOptionIndex",
			fmt.Sprintf("must be between 0 and %d", len(q.Options)-1), "index_in_bounds", *q.CorrectOptionIndex)
	}

	return errs
}

func (v *QuestionValidator) validateText(prefix string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if len(q.CorrectTextAnswers) == 0 {
		return errs.Add(prefix+".correctTextAnswers", "must have at least 1 accepted answer", "required", nil)
	}

	for i, answer := range q.CorrectTextAnswers {
		if strings.TrimSpace(answer) == "" {
			errs = errs.Add(fmt.Sprintf("%s.correctTextAnswers[%d]", prefix, i), "cannot be blank", "required", answer)
		}
	}

	return errs
}

func (v *QuestionValidator) validateActionSequence(prefix string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if len(q.Steps) == 0 {
		return errs.Add(prefix+".steps", "must have at least 1 step", "required", nil)
	}

	for i, step := range q.Steps {
		field := fmt.Sprintf("%s.steps[%d].requiredActions", prefix, i)
		if len(step.RequiredActions) == 0 {
			errs = errs.Add(field, "must have at least 1 required action", "required", nil)
			continue
		}
		for _, tag := range step.RequiredActions {
			if !slices.Contains(models.ActionTags, tag) {
				errs = errs.Add(field, fmt.Sprintf("unknown action tag %q", tag), "action_tag", tag)
			}
		}
	}

	return errs
}

func (v *QuestionValidator) validateRegionSelect(prefix string, q *models.Question) ValidationErrors {
	var errs ValidationErrors

	grid := q.Grid()
	width := len(grid[0])
	if width == 0 {
		return errs.Add(prefix+".regionGrid", "rows cannot be empty", "grid_shape", nil)
	}
	for i, row := range grid {
		if len(row) != width {
			errs = errs.Add(fmt.Sprintf("%s.regionGrid[%d]", prefix, i),
				fmt.Sprintf("must have %d columns", width), "grid_shape", len(row))
		}
	}

	if q.CorrectRegion == "" {
		return errs.Add(prefix+".correctRegion", "is required", "required", nil)
	}

	found := false
	for _, row := range grid {
		if slices.Contains(row, q.CorrectRegion) {
			found = true
			break
		}
	}
	if !found {
		errs = errs.Add(prefix+".correctRegion", "must name a cell of the region grid", "region_in_grid", q.CorrectRegion)
	}

	return errs
}
