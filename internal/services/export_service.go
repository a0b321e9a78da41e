package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/xuri/excelize/v2"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportService renders reports and history as spreadsheets
type ExportService interface {
	ExportReportToExcel(ctx context.Context, report models.CategoryReport) ([]byte, error)
	ExportHistoryToExcel(ctx context.Context, entries []models.HistoryEntry) ([]byte, error)
}

type exportService struct {
	logger *slog.Logger
}

func NewExportService(logger *slog.Logger) ExportService {
	return &exportService{logger: logger}
}

func (s *exportService) ExportReportToExcel(ctx context.Context, report models.CategoryReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Questions"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"Question ID", "Title", "Type", "Category", "Score", "Max Score", "Status"}
	writeRow(f, sheetName, 1, toCells(headers))
	for i, q := range report.Questions {
		writeRow(f, sheetName, i+2, []interface{}{
			q.QuestionID, q.Title, string(q.Type), q.Category, q.Score, q.MaxScore, string(q.Status),
		})
	}

	summary := "Categories"
	if _, err := f.NewSheet(summary); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	writeRow(f, summary, 1, toCells([]string{"Category", "Score", "Ceiling"}))
	row := 2
	for _, c := range report.Categories {
		writeRow(f, summary, row, []interface{}{c.Category, c.Score, c.Ceiling})
		row++
	}
	writeRow(f, summary, row, []interface{}{"Total", report.Total, report.MaxTotal})
	if report.PendingCount > 0 {
		writeRow(f, summary, row+1, []interface{}{"Pending", report.PendingCount})
	}

	f.DeleteSheet("Sheet1")
	return s.write(f, "report")
}

// ExportHistoryToExcel writes one row per entry with a column per category seen in any entry.
func (s *exportService) ExportHistoryToExcel(ctx context.Context, entries []models.HistoryEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "History"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	categorySet := make(map[string]struct{})
	for _, e := range entries {
		for c := range e.CategoryScores {
			categorySet[c] = struct{}{}
		}
	}
	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	headers := append([]string{"Timestamp", "Total Score", "Band"}, categories...)
	writeRow(f, sheetName, 1, toCells(headers))

	for i, e := range entries {
		row := []interface{}{e.Timestamp.Format(exportTimeLayout), e.TotalScore, string(BandFor(e.TotalScore))}
		for _, c := range categories {
			if v, ok := e.CategoryScores[c]; ok {
				row = append(row, v)
			} else {
				row = append(row, "")
			}
		}
		writeRow(f, sheetName, i+2, row)
	}

	f.DeleteSheet("Sheet1")
	return s.write(f, "history")
}

func (s *exportService) write(f *excelize.File, what string) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("excel export failed", "export", what, "error", err)
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		f.SetCellValue(sheet, cell, value)
	}
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
