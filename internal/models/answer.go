package models

import (
	"encoding/json"
	"fmt"
)

// Answer is the raw user answer. Each question type has exactly one implementation,
// so a type switch over Answer covers every case the scorer must handle.
type Answer interface {
	QuestionType() QuestionType
	isAnswer()
}

type ChoiceAnswer struct {
	Index int `json:"index"`
}

type TextAnswer struct {
	Text string `json:"text"`
}

// AudioAnswer references a locally recorded clip.
type AudioAnswer struct {
	Ref string `json:"ref"`
}

// ActionSequenceAnswer holds the accumulated mini-game score, unclamped.
type ActionSequenceAnswer struct {
	Score int `json:"score"`
}

type RegionAnswer struct {
	Region string  `json:"region"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// ImageUploadAnswer references an uploaded drawing.
type ImageUploadAnswer struct {
	Ref string `json:"ref"`
}

func (ChoiceAnswer) QuestionType() QuestionType         { return SingleChoice }
func (TextAnswer) QuestionType() QuestionType           { return Text }
func (AudioAnswer) QuestionType() QuestionType          { return Audio }
func (ActionSequenceAnswer) QuestionType() QuestionType { return ActionSequence }
func (RegionAnswer) QuestionType() QuestionType         { return ImageRegionSelect }
func (ImageUploadAnswer) QuestionType() QuestionType    { return ImageUpload }

func (ChoiceAnswer) isAnswer()         {}
func (TextAnswer) isAnswer()           {}
func (AudioAnswer) isAnswer()          {}
func (ActionSequenceAnswer) isAnswer() {}
func (RegionAnswer) isAnswer()         {}
func (ImageUploadAnswer) isAnswer()    {}

type AnswerStatus string

const (
	AnswerUnanswered AnswerStatus = "unanswered"
	AnswerRecorded   AnswerStatus = "answered"
	AnswerPending    AnswerStatus = "pending"
	AnswerResolved   AnswerStatus = "resolved"
)

// AnswerRecord is the per-question state of a session. Values are copied in and out
// of the answer store, never shared.
type AnswerRecord struct {
	QuestionID    int
	Answer        Answer
	LocalScore    *int
	RemoteScore   *int
	PendingTaskID *string
	// Submitting marks a remote submission that has no task id yet. The answer store never
	// sets it; sessions add it to the records they hand out.
	Submitting bool
}

func (r AnswerRecord) IsPending() bool {
	return r.PendingTaskID != nil || r.Submitting
}

// ResolvedScore is the remote score when present, otherwise the local score.
func (r AnswerRecord) ResolvedScore() (int, bool) {
	if r.RemoteScore != nil {
		return *r.RemoteScore, true
	}
	if r.LocalScore != nil {
		return *r.LocalScore, true
	}
	return 0, false
}

func (r AnswerRecord) Status() AnswerStatus {
	switch {
	case r.IsPending():
		return AnswerPending
	case r.RemoteScore != nil || r.LocalScore != nil:
		return AnswerResolved
	case r.Answer != nil:
		return AnswerRecorded
	default:
		return AnswerUnanswered
	}
}

// Clone returns a deep copy so callers cannot mutate store-owned pointers.
func (r AnswerRecord) Clone() AnswerRecord {
	out := AnswerRecord{QuestionID: r.QuestionID, Answer: r.Answer, Submitting: r.Submitting}
	if r.LocalScore != nil {
		v := *r.LocalScore
		out.LocalScore = &v
	}
	if r.RemoteScore != nil {
		v := *r.RemoteScore
		out.RemoteScore = &v
	}
	if r.PendingTaskID != nil {
		v := *r.PendingTaskID
		out.PendingTaskID = &v
	}
	return out
}

type answerRecordWire struct {
	QuestionID    int          `json:"question_id"`
	AnswerType    QuestionType `json:"answer_type,omitempty"`
	Answer        Answer       `json:"answer,omitempty"`
	LocalScore    *int         `json:"local_score,omitempty"`
	RemoteScore   *int         `json:"remote_score,omitempty"`
	PendingTaskID *string      `json:"pending_task_id,omitempty"`
	Status        AnswerStatus `json:"status"`
}

func (r AnswerRecord) MarshalJSON() ([]byte, error) {
	wire := answerRecordWire{
		QuestionID:    r.QuestionID,
		Answer:        r.Answer,
		LocalScore:    r.LocalScore,
		RemoteScore:   r.RemoteScore,
		PendingTaskID: r.PendingTaskID,
		Status:        r.Status(),
	}
	if r.Answer != nil {
		wire.AnswerType = r.Answer.QuestionType()
	}
	return json.Marshal(wire)
}

func IntPtr(v int) *int {
	return &v
}

func StringPtr(v string) *string {
	return &v
}

// UnmarshalJSON reads the answer back into its concrete type using answer_type.
func (r *AnswerRecord) UnmarshalJSON(data []byte) error {
	var wire struct {
		answerRecordWire
		Answer json.RawMessage `json:"answer,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*r = AnswerRecord{
		QuestionID:    wire.QuestionID,
		LocalScore:    wire.LocalScore,
		RemoteScore:   wire.RemoteScore,
		PendingTaskID: wire.PendingTaskID,
		Submitting:    wire.Status == AnswerPending && wire.PendingTaskID == nil,
	}
	if wire.AnswerType == "" || len(wire.Answer) == 0 || string(wire.Answer) == "null" {
		return nil
	}

	answer, err := decodeAnswer(wire.AnswerType, wire.Answer)
	if err != nil {
		return err
	}
	r.Answer = answer
	return nil
}

func decodeAnswer(t QuestionType, raw json.RawMessage) (Answer, error) {
	switch t {
	case SingleChoice:
		return decodeAs[ChoiceAnswer](raw)
	case Text:
		return decodeAs[TextAnswer](raw)
	case Audio:
		return decodeAs[AudioAnswer](raw)
	case ActionSequence:
		return decodeAs[ActionSequenceAnswer](raw)
	case ImageRegionSelect:
		return decodeAs[RegionAnswer](raw)
	case ImageUpload:
		return decodeAs[ImageUploadAnswer](raw)
	default:
		return nil, fmt.Errorf("unknown answer type %q", t)
	}
}

func decodeAs[T Answer](raw json.RawMessage) (Answer, error) {
	var a T
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return a, nil
}
