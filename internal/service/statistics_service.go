package service

import (
	"context"
	"time"

	"weddingplanner/internal/model"
	"weddingplanner/internal/repository"
	"weddingplanner/pkg/apperrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StatisticsService interface {
	GetDashboard(ctx context.Context, plannerID uuid.UUID, startDate, endDate time.Time) (model.DashboardResponse, error)
}

type statisticsService struct {
	statsRepo   repository.StatisticsRepository
	revenueRepo repository.RevenueRepository
	logger      *zap.Logger
}

func NewStatisticsService(statsRepo repository.StatisticsRepository, revenueRepo repository.RevenueRepository, logger *zap.Logger) StatisticsService {
	return &statisticsService{statsRepo: statsRepo, revenueRepo: revenueRepo, logger: logger}
}

// GetDashboard aggregates the planner's quote funnel and billing totals
// bounded by the time range.
func (s *statisticsService) GetDashboard(ctx context.Context, plannerID uuid.UUID, startDate, endDate time.Time) (model.DashboardResponse, error) {
	response := model.DashboardResponse{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	funnel, err := s.statsRepo.GetQuoteFunnel(ctx, plannerID, startDate, endDate)
	if err != nil {
		return model.DashboardResponse{}, apperrors.Store("quote funnel", err)
	}
	for _, row := range funnel {
		response.TotalQuoted += row.Value
		switch row.Status {
		case model.QuoteDraft:
			response.QuotesDraft = row.Count
		case model.QuoteSent:
			response.QuotesSent = row.Count
		case model.QuoteAccepted:
			response.QuotesAccepted = row.Count
			response.TotalAccepted = row.Value
		case model.QuoteRejected:
			response.QuotesRejected = row.Count
		}
	}

	totals, err := s.statsRepo.GetInvoiceTotals(ctx, plannerID, startDate, endDate)
	if err != nil {
		return model.DashboardResponse{}, apperrors.Store("invoice totals", err)
	}
	response.TotalInvoiced = totals.Invoiced
	response.TotalCollected = totals.Collected
	response.TotalOutstanding = totals.Invoiced - totals.Collected

	topClients, err := s.statsRepo.GetTopClients(ctx, plannerID, startDate, endDate, 5)
	if err != nil {
		return model.DashboardResponse{}, apperrors.Store("top clients", err)
	}
	response.TopClients = topClients

	if s.revenueRepo != nil {
		monthly, err := s.revenueRepo.GetMonthlyBilling(ctx, plannerID, startDate, endDate)
		if err != nil {
			// The series is decoration on top of the totals, not worth
			// failing the whole dashboard over.
			s.logger.Warn("monthly billing series failed", zap.Error(err))
		} else {
			response.MonthlyBilling = monthly
		}
	}

	return response, nil
}
