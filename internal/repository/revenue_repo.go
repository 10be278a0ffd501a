package repository

import (
	"context"
	"fmt"
	"time"

	"weddingplanner/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevenueRepository computes the month-by-month invoiced/collected series
// shown on the planner dashboard. The query leans on DATE_TRUNC, so it is
// postgres-only; callers that run on another driver skip the series.
type RevenueRepository interface {
	GetMonthlyBilling(ctx context.Context, plannerID uuid.UUID, start, end time.Time) ([]model.MonthlyBilling, error)
}

type revenueRepository struct {
	db *gorm.DB
}

func NewRevenueRepository(db *gorm.DB) RevenueRepository {
	return &revenueRepository{db: db}
}

func (r *revenueRepository) GetMonthlyBilling(ctx context.Context, plannerID uuid.UUID, start, end time.Time) ([]model.MonthlyBilling, error) {
	query := `
		SELECT
			TO_CHAR(DATE_TRUNC('month', i.created_at), 'YYYY-MM-DD') AS period,
			COALESCE(SUM(i.montant_ttc), 0) AS invoiced,
			COALESCE(SUM(i.paid), 0) AS collected
		FROM invoices i
		WHERE i.planner_id = $1
		  AND i.created_at >= $2::timestamptz
		  AND i.created_at <= $3::timestamptz
		GROUP BY DATE_TRUNC('month', i.created_at)
		ORDER BY period
	`

	var rows []model.MonthlyBilling
	if err := r.db.WithContext(ctx).Raw(query, plannerID, start, end).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query monthly billing: %w", err)
	}
	return rows, nil
}
