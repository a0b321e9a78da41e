package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// Remote evaluation events
	EventEvaluationSubmitted EventType = "evaluation.submitted"
	EventEvaluationResolved  EventType = "evaluation.resolved"
	EventEvaluationFailed    EventType = "evaluation.failed"

	// Session events
	EventSessionCompleted EventType = "session.completed"
)

const (
	eventSource  = "screening-service"
	eventVersion = "1.0"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Evaluation event payloads

type EvaluationSubmittedEvent struct {
	SessionID  string `json:"session_id"`
	QuestionID int    `json:"question_id"`
	Kind       string `json:"kind"`
	TaskID     string `json:"task_id"`
}

type EvaluationResolvedEvent struct {
	SessionID  string `json:"session_id"`
	QuestionID int    `json:"question_id"`
	Score      int    `json:"score"`
}

type EvaluationFailedEvent struct {
	SessionID  string `json:"session_id"`
	QuestionID int    `json:"question_id"`
	Error      string `json:"error"`
}

// Session event payload

type SessionCompletedEvent struct {
	SessionID      string         `json:"session_id"`
	Language       string         `json:"language"`
	TotalScore     int            `json:"total_score"`
	MaxTotal       int            `json:"max_total"`
	CategoryScores map[string]int `json:"category_scores"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// Event factory functions

func NewEvaluationSubmittedEvent(sessionID string, questionID int, kind, taskID string) *NotificationEvent {
	return newEvent(EventEvaluationSubmitted, EvaluationSubmittedEvent{
		SessionID:  sessionID,
		QuestionID: questionID,
		Kind:       kind,
		TaskID:     taskID,
	})
}

func NewEvaluationResolvedEvent(sessionID string, questionID, score int) *NotificationEvent {
	return newEvent(EventEvaluationResolved, EvaluationResolvedEvent{
		SessionID:  sessionID,
		QuestionID: questionID,
		Score:      score,
	})
}

func NewEvaluationFailedEvent(sessionID string, questionID int, err error) *NotificationEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return newEvent(EventEvaluationFailed, EvaluationFailedEvent{
		SessionID:  sessionID,
		QuestionID: questionID,
		Error:      msg,
	})
}

func NewSessionCompletedEvent(sessionID, language string, total, maxTotal int, categories map[string]int, completedAt time.Time) *NotificationEvent {
	return newEvent(EventSessionCompleted, SessionCompletedEvent{
		SessionID:      sessionID,
		Language:       language,
		TotalScore:     total,
		MaxTotal:       maxTotal,
		CategoryScores: categories,
		CompletedAt:    completedAt,
	})
}

func newEvent(t EventType, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// GenerateEventID returns a random UUID string
func GenerateEventID() string {
	return uuid.NewString()
}
