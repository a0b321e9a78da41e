package models

import "time"

// DefaultCategoryCeilings are the per-category maxima of the deployed test (total 100).
var DefaultCategoryCeilings = map[string]int{
	"attention & orientation": 18,
	"memory":                  26,
	"fluency":                 14,
	"language":                26,
	"visuospatial skills":     16,
}

type QuestionResult struct {
	QuestionID int          `json:"question_id"`
	Title      string       `json:"title"`
	Type       QuestionType `json:"type"`
	Category   string       `json:"category,omitempty"`
	Score      int          `json:"score"`
	MaxScore   int          `json:"max_score"`
	Status     AnswerStatus `json:"status"`
}

type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Ceiling  int    `json:"ceiling"`
}

// CategoryReport is the aggregated outcome of a session. Pending questions contribute 0
// and keep Final false until they resolve.
type CategoryReport struct {
	Questions    []QuestionResult `json:"questions"`
	Categories   []CategoryScore  `json:"categories"`
	Total        int              `json:"total"`
	MaxTotal     int              `json:"max_total"`
	PendingCount int              `json:"pending_count"`
	Final        bool             `json:"final"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

func (r *CategoryReport) CategoryMap() map[string]int {
	out := make(map[string]int, len(r.Categories))
	for _, c := range r.Categories {
		out[c.Category] = c.Score
	}
	return out
}

// HistoryEntry is one completed session in the trend log. Entries are never mutated.
type HistoryEntry struct {
	Timestamp      time.Time      `json:"timestamp"`
	TotalScore     int            `json:"total_score"`
	CategoryScores map[string]int `json:"category_scores"`
}

type TrendBand string

const (
	BandHealthy    TrendBand = "healthy"
	BandBorderline TrendBand = "borderline"
	BandImpaired   TrendBand = "impaired"
)

type Trend struct {
	Entries []HistoryEntry `json:"entries"`
	Latest  *HistoryEntry  `json:"latest,omitempty"`
	Delta   *int           `json:"delta,omitempty"`
	Band    TrendBand      `json:"band,omitempty"`
}

// ScoreSnapshot is the persisted per-question score view of one session.
type ScoreSnapshot struct {
	SessionID string      `json:"session_id"`
	Language  string      `json:"language"`
	Scores    map[int]int `json:"scores"`
	Pending   []int       `json:"pending,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
