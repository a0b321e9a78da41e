package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/screening-service/internal/models"
	"github.com/SAP-F-2025/screening-service/internal/repositories"
)

// Trend bands of the total score, as drawn on the trend graph.
const (
	HealthyThreshold    = 88
	BorderlineThreshold = 82
)

// HistoryService keeps the append-only log of completed sessions
type HistoryService interface {
	Append(ctx context.Context, report models.CategoryReport) (*models.HistoryEntry, error)
	List(ctx context.Context) ([]models.HistoryEntry, error)
	Trend(ctx context.Context) (*models.Trend, error)
}

type historyService struct {
	repo   repositories.HistoryRepository
	logger *ServiceLogger
	now    func() time.Time
}

func NewHistoryService(repo repositories.HistoryRepository, logger *slog.Logger) HistoryService {
	return &historyService{
		repo:   repo,
		logger: NewServiceLogger(logger, LogConfig{Service: "screening", Component: "history"}),
		now:    time.Now,
	}
}

func (s *historyService) Append(ctx context.Context, report models.CategoryReport) (*models.HistoryEntry, error) {
	op := s.logger.WithOperation(ctx, "append_history", "")

	entry := models.HistoryEntry{
		Timestamp:      s.now().UTC(),
		TotalScore:     report.Total,
		CategoryScores: report.CategoryMap(),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		err = fmt.Errorf("failed to append history: %w", err)
		op.LogResult(err)
		return nil, err
	}

	op.LogResult(nil)
	return &entry, nil
}

func (s *historyService) List(ctx context.Context) ([]models.HistoryEntry, error) {
	entries, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

// Trend compares the latest entry with the one before it.
func (s *historyService) Trend(ctx context.Context) (*models.Trend, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	trend := &models.Trend{Entries: entries}
	if len(entries) == 0 {
		return trend, nil
	}

	latest := entries[len(entries)-1]
	trend.Latest = &latest
	trend.Band = BandFor(latest.TotalScore)
	if len(entries) > 1 {
		delta := latest.TotalScore - entries[len(entries)-2].TotalScore
		trend.Delta = &delta
	}
	return trend, nil
}

// BandFor classifies a total score.
func BandFor(total int) models.TrendBand {
	switch {
	case total >= HealthyThreshold:
		return models.BandHealthy
	case total >= BorderlineThreshold:
		return models.BandBorderline
	default:
		return models.BandImpaired
	}
}
