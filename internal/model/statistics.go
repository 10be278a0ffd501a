package model

import (
	"time"
)

// DashboardResponse aggregates a planner's quote funnel and billing totals
// over a time range.
type DashboardResponse struct {
	QuotesDraft      int              `json:"quotes_draft"`
	QuotesSent       int              `json:"quotes_sent"`
	QuotesAccepted   int              `json:"quotes_accepted"`
	QuotesRejected   int              `json:"quotes_rejected"`
	TotalQuoted      float64          `json:"total_quoted"`   // TTC of every quote issued
	TotalAccepted    float64          `json:"total_accepted"` // TTC of accepted quotes
	TotalInvoiced    float64          `json:"total_invoiced"`
	TotalCollected   float64          `json:"total_collected"`
	TotalOutstanding float64          `json:"total_outstanding"`
	TopClients       []ClientRanking  `json:"top_clients"`
	MonthlyBilling   []MonthlyBilling `json:"monthly_billing,omitempty"`

	TimeRangeStartDate time.Time `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time `json:"time_range_end_date"`
}

// ClientRanking represents a client ranked by accepted quote value.
type ClientRanking struct {
	ClientID      string  `json:"client_id"`
	ClientName    string  `json:"client_name"`
	QuoteCount    int     `json:"quote_count"`
	AcceptedValue float64 `json:"accepted_value"`
}

// MonthlyBilling is one month of the invoiced/collected series.
type MonthlyBilling struct {
	Period    string  `json:"period"` // YYYY-MM-01
	Invoiced  float64 `json:"invoiced"`
	Collected float64 `json:"collected"`
}
