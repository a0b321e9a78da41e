package models

import (
	"encoding/json"
	"strings"
)

type QuestionType string

const (
	SingleChoice      QuestionType = "SINGLE_CHOICE"
	Text              QuestionType = "TEXT"
	Audio             QuestionType = "AUDIO"
	ActionSequence    QuestionType = "ACTION_SEQUENCE"
	ImageRegionSelect QuestionType = "IMAGE_MAP_SELECTION"
	ImageUpload       QuestionType = "IMAGE_UPLOAD"
)

// QuestionTypes lists every supported question type in presentation order.
var QuestionTypes = []QuestionType{
	SingleChoice,
	Text,
	Audio,
	ActionSequence,
	ImageRegionSelect,
	ImageUpload,
}

// PayloadKind names the remote endpoint family that evaluates a question.
type PayloadKind string

const (
	PayloadDrawing PayloadKind = "drawing"
	PayloadAudio   PayloadKind = "audio"
)

func (t QuestionType) IsValid() bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsRemote reports whether answers of this type are judged by the remote evaluation service.
func (t QuestionType) IsRemote() bool {
	_, ok := t.PayloadKind()
	return ok
}

func (t QuestionType) PayloadKind() (PayloadKind, bool) {
	switch t {
	case Audio:
		return PayloadAudio, true
	case ImageUpload:
		return PayloadDrawing, true
	default:
		return "", false
	}
}

// DefaultMaxScore is applied when a question definition omits its score.
const DefaultMaxScore = 10

// Action tags understood by the action-sequence mini-game.
const (
	ActionPickPencil           = "PICK_PENCIL"
	ActionPickPaper            = "PICK_PAPER"
	ActionPlacePaperOnPencil   = "PLACE_PAPER_ON_PENCIL"
	ActionPickPencilOnly       = "PICK_PENCIL_ONLY"
	ActionPickPencilAfterTouch = "PICK_PENCIL_AFTER_TOUCH"
)

var ActionTags = []string{
	ActionPickPencil,
	ActionPickPaper,
	ActionPlacePaperOnPencil,
	ActionPickPencilOnly,
	ActionPickPencilAfterTouch,
}

// DefaultRegionGrid is the 4 rows x 3 columns label grid of the picture-naming image.
var DefaultRegionGrid = [][]string{
	{"book", "spoon", "goat"},
	{"candle", "flag", "camel"},
	{"sickle", "giraffe", "drum"},
	{"umbrella", "pig", "crocodile"},
}

type ActionStep struct {
	Command         string   `json:"command"`
	RequiredActions []string `json:"requiredActions"`
}

// Question is one immutable test item as delivered by the question bank.
type Question struct {
	ID                 int          `json:"id" validate:"gt=0"`
	Title              string       `json:"title"`
	Description        string       `json:"description,omitempty"`
	Type               QuestionType `json:"type" validate:"required,question_type"`
	MaxScore           int          `json:"score" validate:"min=0"`
	Category           string       `json:"category,omitempty"`
	Options            []string     `json:"options,omitempty"`
	CorrectOptionIndex *int         `json:"correctOptionIndex,omitempty"`
	CorrectTextAnswers []string     `json:"correctTextAnswers,omitempty"`
	CorrectRegion      string       `json:"correctRegion,omitempty"`
	RegionGrid         [][]string   `json:"regionGrid,omitempty"`
	Image              string       `json:"image,omitempty"`
	Steps              []ActionStep `json:"steps,omitempty"`
}

// UnmarshalJSON applies DefaultMaxScore when "score" is absent.
func (q *Question) UnmarshalJSON(data []byte) error {
	type alias Question
	aux := struct {
		*alias
		MaxScore *int `json:"score"`
	}{alias: (*alias)(q)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	q.MaxScore = DefaultMaxScore
	if aux.MaxScore != nil {
		q.MaxScore = *aux.MaxScore
	}
	return nil
}

func (q *Question) HasCategory() bool {
	return strings.TrimSpace(q.Category) != ""
}

// Grid returns the region label grid used to resolve taps for this question.
func (q *Question) Grid() [][]string {
	if len(q.RegionGrid) > 0 {
		return q.RegionGrid
	}
	return DefaultRegionGrid
}

// QuestionSet is the ordered list of questions for one language.
type QuestionSet struct {
	Language  string     `json:"language"`
	Questions []Question `json:"questions"`
}

func (s *QuestionSet) IDs() []int {
	ids := make([]int, len(s.Questions))
	for i, q := range s.Questions {
		ids[i] = q.ID
	}
	return ids
}
