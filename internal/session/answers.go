package session

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/remote"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
)

// SelectOption answers the current SingleChoice question.
func (s *Session) SelectOption(index int) (models.AnswerRecord, error) {
	q, err := s.current(models.SingleChoice)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	if index < 0 || index >= len(q.Options) {
		return models.AnswerRecord{}, fmt.Errorf("%w: option %d of %d", ErrInvalidAnswer, index, len(q.Options))
	}
	return s.scoreLocally(q, models.ChoiceAnswer{Index: index})
}

// EnterText answers the current Text question. Blank text is stored but keeps Next disabled.
func (s *Session) EnterText(text string) (models.AnswerRecord, error) {
	q, err := s.current(models.Text)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	return s.scoreLocally(q, models.TextAnswer{Text: text})
}

// TapRegion answers the current ImageRegionSelect question with a tap at normalized image
// coordinates.
func (s *Session) TapRegion(x, y float64) (models.AnswerRecord, error) {
	q, err := s.current(models.ImageRegionSelect)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	region, ok := scoring.LocateRegion(q.Grid(), x, y)
	if !ok {
		return models.AnswerRecord{}, fmt.Errorf("%w: no region at (%.2f, %.2f)", ErrInvalidAnswer, x, y)
	}
	return s.scoreLocally(q, models.RegionAnswer{Region: region, X: x, Y: y})
}

// CompleteActionSequence stores the final mini-game score of the current ActionSequence
// question and moves on to the next screen.
func (s *Session) CompleteActionSequence(score int) (models.AnswerRecord, error) {
	q, err := s.current(models.ActionSequence)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	if score < 0 {
		return models.AnswerRecord{}, fmt.Errorf("%w: negative score %d", ErrInvalidAnswer, score)
	}

	record, err := s.scoreLocally(q, models.ActionSequenceAnswer{Score: score})
	if err != nil {
		return record, err
	}
	return record, s.Next()
}

func (s *Session) scoreLocally(q *models.Question, answer models.Answer) (models.AnswerRecord, error) {
	score, err := scoring.Score(q, answer)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	if err := s.store.SetLocalResult(q.ID, answer, score); err != nil {
		return models.AnswerRecord{}, err
	}

	record, _ := s.store.Get(q.ID)
	s.logger.Debug("answer scored", "question_id", q.ID, "type", q.Type, "score", score)
	return record, nil
}

// Payload is a recorded clip or drawing handed to the remote evaluator.
type Payload struct {
	Ref         string
	Filename    string
	ContentType string
	Data        []byte
}

// SubmitAudio records the clip for the current Audio question and submits it for
// evaluation in the background.
func (s *Session) SubmitAudio(p Payload) (models.AnswerRecord, error) {
	q, err := s.current(models.Audio)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	return s.submitRemote(q, models.AudioAnswer{Ref: p.Ref}, p)
}

// UploadDrawing records the drawing for the current ImageUpload question and submits it
// for evaluation in the background.
func (s *Session) UploadDrawing(p Payload) (models.AnswerRecord, error) {
	q, err := s.current(models.ImageUpload)
	if err != nil {
		return models.AnswerRecord{}, err
	}
	return s.submitRemote(q, models.ImageUploadAnswer{Ref: p.Ref}, p)
}

// submitRemote never waits for the remote service. A question that already has a task
// outstanding, or a submit still in flight, keeps it and ignores the new payload.
func (s *Session) submitRemote(q *models.Question, answer models.Answer, p Payload) (models.AnswerRecord, error) {
	if len(p.Data) == 0 {
		return models.AnswerRecord{}, fmt.Errorf("%w: empty payload", ErrInvalidAnswer)
	}
	if s.submitter == nil {
		return models.AnswerRecord{}, fmt.Errorf("%w: no remote evaluator configured", remote.ErrNotRemote)
	}

	s.mu.Lock()
	_, busy := s.submitting[q.ID]
	if _, pending := s.store.PendingTask(q.ID); pending || busy {
		s.mu.Unlock()
		return s.record(q.ID), nil
	}
	s.submitting[q.ID] = struct{}{}
	run := s.run
	s.mu.Unlock()

	if err := s.store.SetAnswer(q.ID, answer); err != nil {
		s.mu.Lock()
		if s.run == run {
			delete(s.submitting, q.ID)
		}
		s.mu.Unlock()
		return models.AnswerRecord{}, err
	}

	req := remote.Request{Question: q, Filename: p.Filename, ContentType: p.ContentType, Payload: p.Data}
	s.wg.Add(1)
	go s.evaluate(q, req, run)

	return s.record(q.ID), nil
}

func (s *Session) evaluate(q *models.Question, req remote.Request, run uint64) {
	defer s.wg.Done()

	outcome, task, err := s.submitter.Submit(s.ctx, req)
	if err != nil {
		s.fail(q, err, run)
	}
	s.mu.Lock()
	if s.run == run {
		delete(s.submitting, q.ID)
	}
	s.mu.Unlock()
	// the run may have reached the report while this submission was in flight
	s.maybeComplete()
	if err != nil {
		return
	}
	if outcome == remote.OutcomeAlreadyPending {
		s.logger.Debug("evaluation already pending", "question_id", q.ID)
		return
	}

	if s.listener != nil {
		s.listener.EvaluationSubmitted(s, q.ID, task.ID)
	}

	<-task.Done()
	switch err := task.Err(); {
	case err == nil:
		if s.listener != nil {
			s.listener.EvaluationResolved(s, q.ID, task.Score())
		}
	case isStop(err):
		s.logger.Debug("evaluation stopped", "question_id", q.ID, "task_id", task.ID, "reason", err)
	default:
		s.fail(q, err, run)
	}
}

// fail reverts the question to unanswered and reports the error. Context errors from a
// closing session are not failures, and neither is anything from a run that was restarted.
func (s *Session) fail(q *models.Question, err error, run uint64) {
	if isStop(err) || errors.Is(err, ErrClosed) {
		return
	}
	s.mu.Lock()
	stale := s.run != run
	s.mu.Unlock()
	if stale {
		s.logger.Debug("dropping failure from a restarted run", "question_id", q.ID, "error", err)
		return
	}

	s.store.Revert(q.ID)
	s.logger.Warn("remote evaluation failed", "question_id", q.ID, "type", q.Type, "error", err)
	if s.listener != nil {
		s.listener.EvaluationFailed(s, q.ID, err)
	}
	s.reportError(err)
}
