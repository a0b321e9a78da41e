package services

import (
	"strings"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/scoring"
)

// ReportService aggregates answer records into category totals
type ReportService interface {
	BuildReport(questions []models.Question, records []models.AnswerRecord) models.CategoryReport
	Ceilings() map[string]int
}

type reportService struct {
	ceilings map[string]int
}

// NewReportService uses the given category ceilings, keyed case-insensitively.
// A nil map means the deployed defaults.
func NewReportService(ceilings map[string]int) ReportService {
	if ceilings == nil {
		ceilings = models.DefaultCategoryCeilings
	}
	normalized := make(map[string]int, len(ceilings))
	for name, limit := range ceilings {
		normalized[categoryKey(name)] = limit
	}
	return &reportService{ceilings: normalized}
}

func (s *reportService) BuildReport(questions []models.Question, records []models.AnswerRecord) models.CategoryReport {
	return BuildReport(questions, records, s.ceilings)
}

func (s *reportService) Ceilings() map[string]int {
	out := make(map[string]int, len(s.ceilings))
	for k, v := range s.ceilings {
		out[k] = v
	}
	return out
}

// BuildReport sums resolved scores per category. Every question score is clamped to
// [0, maxScore] here and nowhere else. A category sum is capped at its configured ceiling,
// or at the sum of its questions' maxScore when no ceiling is configured. Questions
// without a category count toward the total only. Pending questions count 0.
func BuildReport(questions []models.Question, records []models.AnswerRecord, ceilings map[string]int) models.CategoryReport {
	byID := make(map[int]models.AnswerRecord, len(records))
	for _, r := range records {
		byID[r.QuestionID] = r
	}

	type bucket struct {
		name    string
		sum     int
		maxSum  int
		ceiling int
		capped  bool
	}
	var order []string
	buckets := make(map[string]*bucket)

	report := models.CategoryReport{Questions: make([]models.QuestionResult, 0, len(questions))}
	uncategorized := 0
	uncategorizedMax := 0

	for i := range questions {
		q := &questions[i]
		r := byID[q.ID]

		result := models.QuestionResult{
			QuestionID: q.ID,
			Title:      q.Title,
			Type:       q.Type,
			Category:   strings.TrimSpace(q.Category),
			MaxScore:   q.MaxScore,
			Status:     r.Status(),
		}
		if r.IsPending() {
			report.PendingCount++
		} else if score, ok := r.ResolvedScore(); ok {
			result.Score = scoring.Clamp(score, q.MaxScore)
		}
		report.Questions = append(report.Questions, result)

		if !q.HasCategory() {
			uncategorized += result.Score
			uncategorizedMax += max(q.MaxScore, 0)
			continue
		}

		key := categoryKey(q.Category)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: key}
			b.ceiling, b.capped = ceilings[key]
			buckets[key] = b
			order = append(order, key)
		}
		b.sum += result.Score
		b.maxSum += max(q.MaxScore, 0)
	}

	for _, key := range order {
		b := buckets[key]
		ceiling := b.maxSum
		if b.capped {
			ceiling = b.ceiling
		}
		score := scoring.Clamp(b.sum, ceiling)

		report.Categories = append(report.Categories, models.CategoryScore{
			Category: b.name,
			Score:    score,
			Ceiling:  ceiling,
		})
		report.Total += score
		report.MaxTotal += ceiling
	}

	report.Total += uncategorized
	report.MaxTotal += uncategorizedMax
	report.Final = report.PendingCount == 0
	return report
}

func categoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
