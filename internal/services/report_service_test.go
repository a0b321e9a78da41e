package services

import (
	"testing"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(id, local int) models.AnswerRecord {
	return models.AnswerRecord{QuestionID: id, Answer: models.ChoiceAnswer{}, LocalScore: models.IntPtr(local)}
}

func TestBuildReport_CategoryCeiling(t *testing.T) {
	questions := []models.Question{
		{ID: 1, Type: models.SingleChoice, MaxScore: 10, Category: "Memory"},
		{ID: 2, Type: models.SingleChoice, MaxScore: 10, Category: "memory "},
		{ID: 3, Type: models.SingleChoice, MaxScore: 10, Category: "MEMORY"},
	}
	records := []models.AnswerRecord{resolved(1, 10), resolved(2, 10), resolved(3, 10)}

	report := BuildReport(questions, records, map[string]int{"memory": 26})

	require.Len(t, report.Categories, 1)
	assert.Equal(t, models.CategoryScore{Category: "memory", Score: 26, Ceiling: 26}, report.Categories[0])
	assert.Equal(t, 26, report.Total)
	assert.Equal(t, 26, report.MaxTotal)
	assert.True(t, report.Final)
}

func TestBuildReport_ClampsQuestionScores(t *testing.T) {
	questions := []models.Question{
		{ID: 1, Type: models.ActionSequence, MaxScore: 3, Category: "Language"},
		{ID: 2, Type: models.Text, MaxScore: 5, Category: "Language"},
	}
	records := []models.AnswerRecord{
		{QuestionID: 1, Answer: models.ActionSequenceAnswer{Score: 7}, LocalScore: models.IntPtr(7)},
		{QuestionID: 2, Answer: models.TextAnswer{}, LocalScore: models.IntPtr(-2)},
	}

	report := BuildReport(questions, records, nil)

	require.Len(t, report.Questions, 2)
	assert.Equal(t, 3, report.Questions[0].Score)
	assert.Equal(t, 0, report.Questions[1].Score)
	// no configured ceiling: capped at the sum of member max scores
	assert.Equal(t, models.CategoryScore{Category: "language", Score: 3, Ceiling: 8}, report.Categories[0])
	assert.Equal(t, 3, report.Total)
}

func TestBuildReport_PendingAndUncategorized(t *testing.T) {
	questions := []models.Question{
		{ID: 1, Type: models.SingleChoice, MaxScore: 10},
		{ID: 2, Type: models.Audio, MaxScore: 2, Category: "Memory"},
		{ID: 3, Type: models.ImageUpload, MaxScore: 4, Category: "Visuospatial Skills"},
		{ID: 4, Type: models.Text, MaxScore: 1, Category: "Fluency"},
	}
	records := []models.AnswerRecord{
		resolved(1, 10),
		{QuestionID: 2, Answer: models.AudioAnswer{Ref: "a"}, PendingTaskID: models.StringPtr("9")},
		{QuestionID: 3, Answer: models.ImageUploadAnswer{Ref: "d"}, RemoteScore: models.IntPtr(4)},
		{QuestionID: 4},
	}

	report := BuildReport(questions, records, map[string]int{"memory": 26, "visuospatial skills": 16})

	assert.Equal(t, 1, report.PendingCount)
	assert.False(t, report.Final)
	assert.Equal(t, 14, report.Total)
	assert.Equal(t, 10+26+16+1, report.MaxTotal)

	statuses := make([]models.AnswerStatus, 0, len(report.Questions))
	for _, q := range report.Questions {
		statuses = append(statuses, q.Status)
	}
	assert.Equal(t, []models.AnswerStatus{
		models.AnswerResolved, models.AnswerPending, models.AnswerResolved, models.AnswerUnanswered,
	}, statuses)

	// categories keep the order in which they first appear
	names := make([]string, 0, len(report.Categories))
	for _, c := range report.Categories {
		names = append(names, c.Category)
	}
	assert.Equal(t, []string{"memory", "visuospatial skills", "fluency"}, names)
	assert.Equal(t, map[string]int{"memory": 0, "visuospatial skills": 4, "fluency": 0}, report.CategoryMap())
}

func TestBuildReport_RemoteScoreWins(t *testing.T) {
	questions := []models.Question{{ID: 1, Type: models.ImageUpload, MaxScore: 10}}
	records := []models.AnswerRecord{
		{QuestionID: 1, Answer: models.ImageUploadAnswer{}, LocalScore: models.IntPtr(1), RemoteScore: models.IntPtr(6)},
	}

	report := BuildReport(questions, records, nil)
	assert.Equal(t, 6, report.Total)
}

func TestReportService_NormalizesCeilings(t *testing.T) {
	svc := NewReportService(map[string]int{" Memory ": 5})
	assert.Equal(t, map[string]int{"memory": 5}, svc.Ceilings())

	report := svc.BuildReport(
		[]models.Question{{ID: 1, Type: models.SingleChoice, MaxScore: 10, Category: "memory"}},
		[]models.AnswerRecord{resolved(1, 10)},
	)
	assert.Equal(t, 5, report.Total)

	defaults := NewReportService(nil)
	assert.Equal(t, 26, defaults.Ceilings()["memory"])
}
