package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExportService_Report(t *testing.T) {
	svc := NewExportService(discardLogger())
	report := models.CategoryReport{
		Questions: []models.QuestionResult{
			{QuestionID: 1, Title: "Day", Type: models.SingleChoice, Category: "Attention & Orientation", Score: 10, MaxScore: 10, Status: models.AnswerResolved},
			{QuestionID: 3, Title: "Words", Type: models.Audio, Category: "Memory", MaxScore: 2, Status: models.AnswerPending},
		},
		Categories: []models.CategoryScore{
			{Category: "attention & orientation", Score: 10, Ceiling: 18},
			{Category: "memory", Score: 0, Ceiling: 26},
		},
		Total:        10,
		MaxTotal:     44,
		PendingCount: 1,
	}

	data, err := svc.ExportReportToExcel(context.Background(), report)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{"Questions", "Categories"}, f.GetSheetList())

	rows, err := f.GetRows("Questions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Question ID", rows[0][0])
	assert.Equal(t, []string{"3", "Words", "AUDIO", "Memory", "0", "2", "pending"}, rows[2])

	summary, err := f.GetRows("Categories")
	require.NoError(t, err)
	assert.Equal(t, []string{"memory", "0", "26"}, summary[2])
	assert.Equal(t, []string{"Total", "10", "44"}, summary[3])
	assert.Equal(t, []string{"Pending", "1"}, summary[4])
}

func TestExportService_History(t *testing.T) {
	svc := NewExportService(discardLogger())
	ts := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	entries := []models.HistoryEntry{
		{Timestamp: ts, TotalScore: 90, CategoryScores: map[string]int{"memory": 20, "fluency": 12}},
		{Timestamp: ts.Add(24 * time.Hour), TotalScore: 80, CategoryScores: map[string]int{"memory": 18}},
	}

	data, err := svc.ExportHistoryToExcel(context.Background(), entries)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	rows, err := f.GetRows("History")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Timestamp", "Total Score", "Band", "fluency", "memory"}, rows[0])
	assert.Equal(t, []string{"2026-05-01 09:30:00", "90", "healthy", "12", "20"}, rows[1])
	// trailing empty cells are dropped by GetRows
	assert.Equal(t, []string{"2026-05-02 09:30:00", "80", "impaired", "", "18"}, rows[2])
}
