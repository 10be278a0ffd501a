package repository

import (
	"context"
	"fmt"
	"time"

	"weddingplanner/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuoteFunnelRow is one status bucket of the quote funnel.
type QuoteFunnelRow struct {
	Status string  `gorm:"column:status"`
	Count  int     `gorm:"column:count"`
	Value  float64 `gorm:"column:value"`
}

// InvoiceTotalsRow carries the billing aggregates of a time range.
type InvoiceTotalsRow struct {
	Invoiced  float64 `gorm:"column:invoiced"`
	Collected float64 `gorm:"column:collected"`
}

type StatisticsRepository interface {
	GetQuoteFunnel(ctx context.Context, plannerID uuid.UUID, start, end time.Time) ([]QuoteFunnelRow, error)
	GetInvoiceTotals(ctx context.Context, plannerID uuid.UUID, start, end time.Time) (InvoiceTotalsRow, error)
	GetTopClients(ctx context.Context, plannerID uuid.UUID, start, end time.Time, limit int) ([]model.ClientRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) GetQuoteFunnel(ctx context.Context, plannerID uuid.UUID, start, end time.Time) ([]QuoteFunnelRow, error) {
	var rows []QuoteFunnelRow
	if err := r.db.WithContext(ctx).Table("quotes").
		Select("status, COUNT(*) as count, COALESCE(SUM(montant_ttc), 0) as value").
		Where("planner_id = ? AND created_at >= ? AND created_at <= ?", plannerID, start, end).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query quote funnel: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) GetInvoiceTotals(ctx context.Context, plannerID uuid.UUID, start, end time.Time) (InvoiceTotalsRow, error) {
	var row InvoiceTotalsRow
	if err := r.db.WithContext(ctx).Table("invoices").
		Select("COALESCE(SUM(montant_ttc), 0) as invoiced, COALESCE(SUM(paid), 0) as collected").
		Where("planner_id = ? AND created_at >= ? AND created_at <= ?", plannerID, start, end).
		Scan(&row).Error; err != nil {
		return InvoiceTotalsRow{}, fmt.Errorf("failed to query invoice totals: %w", err)
	}
	return row, nil
}

func (r *statisticsRepository) GetTopClients(ctx context.Context, plannerID uuid.UUID, start, end time.Time, limit int) ([]model.ClientRanking, error) {
	var rankings []model.ClientRanking
	if err := r.db.WithContext(ctx).Table("quotes").
		Select("quotes.client_id as client_id, quotes.client_name as client_name, COUNT(*) as quote_count, COALESCE(SUM(quotes.montant_ttc), 0) as accepted_value").
		Where("quotes.planner_id = ? AND quotes.status = ? AND quotes.created_at >= ? AND quotes.created_at <= ?", plannerID, model.QuoteAccepted, start, end).
		Group("quotes.client_id, quotes.client_name").
		Order("accepted_value DESC").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top clients: %w", err)
	}
	return rankings, nil
}
