package models

import "time"

// Screen is the position of a session in the intro -> testing -> report flow.
type Screen string

const (
	ScreenIntro1  Screen = "intro_1"
	ScreenIntro2  Screen = "intro_2"
	ScreenIntro3  Screen = "intro_3"
	ScreenTesting Screen = "testing"
	ScreenReport  Screen = "report"
)

// UserProfile identifies the person taking the test. None of it is scored.
type UserProfile struct {
	Name      string `json:"name" validate:"omitempty,max=200"`
	Age       int    `json:"age" validate:"min=0,max=130"`
	Education int    `json:"education" validate:"min=0,max=40"` // years of schooling
	DOB       string `json:"dob" validate:"omitempty,max=32"`
}

// SessionView is a read-only snapshot of a session used by the HTTP layer.
type SessionView struct {
	ID            string         `json:"id"`
	Language      string         `json:"language"`
	Screen        Screen         `json:"screen"`
	CurrentIndex  int            `json:"current_index"`
	QuestionCount int            `json:"question_count"`
	Question      *Question      `json:"question,omitempty"`
	Record        *AnswerRecord  `json:"record,omitempty"`
	CanAdvance    bool           `json:"can_advance"`
	Profile       UserProfile    `json:"profile"`
	PendingCount  int            `json:"pending_count"`
	CreatedAt     time.Time      `json:"created_at"`
	Records       []AnswerRecord `json:"records,omitempty"`
}
