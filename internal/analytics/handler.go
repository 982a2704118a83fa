package analytics

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/pkg/response"
)

// Handler serves revenue and booking statistics for the admin dashboard.
// Aggregates are computed in SQL; only confirmed bookings count as revenue.
type Handler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHandler creates an analytics handler.
func NewHandler(pool *pgxpool.Pool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pool: pool, logger: logger}
}

// RevenueReport summarizes booking revenue and volume.
type RevenueReport struct {
	TotalRevenue        float64        `json:"total_revenue"`
	MonthRevenue        float64        `json:"month_revenue"`
	AverageBookingValue float64        `json:"average_booking_value"`
	BookingsByStatus    map[string]int `json:"bookings_by_status"`
	MonthlyRevenue      []MonthRevenue `json:"monthly_revenue"`
}

// MonthRevenue is confirmed revenue for one calendar month.
type MonthRevenue struct {
	Month   string  `json:"month"` // YYYY-MM
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

// TourPerformance is one tour's booking figures.
type TourPerformance struct {
	TourID          uuid.UUID `json:"tour_id"`
	TourName        string    `json:"tour_name"`
	Location        string    `json:"location"`
	ConfirmedCount  int       `json:"confirmed_count"`
	ConfirmedPeople int       `json:"confirmed_people"`
	Revenue         float64   `json:"revenue"`
	Capacity        int       `json:"capacity"`
	CurrentBookings int       `json:"current_bookings"`
}

// Revenue handles GET /admin/analytics/revenue.
func (h *Handler) Revenue(c *gin.Context) {
	report, err := h.buildRevenueReport(c.Request.Context(), time.Now())
	if err != nil {
		h.logger.Error("revenue report failed", zap.Error(err))
		response.Internal(c, "failed to build revenue report")
		return
	}
	response.OK(c, report)
}

func (h *Handler) buildRevenueReport(ctx context.Context, now time.Time) (*RevenueReport, error) {
	report := &RevenueReport{BookingsByStatus: map[string]int{
		models.BookingStatusPending:   0,
		models.BookingStatusConfirmed: 0,
		models.BookingStatusCancelled: 0,
	}}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	err := h.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_amount) FILTER (WHERE booking_status = $1), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE booking_status = $1 AND booking_date >= $2), 0),
			COALESCE(AVG(total_amount) FILTER (WHERE booking_status = $1), 0)
		FROM bookings`,
		models.BookingStatusConfirmed, monthStart).
		Scan(&report.TotalRevenue, &report.MonthRevenue, &report.AverageBookingValue)
	if err != nil {
		return nil, err
	}

	rows, err := h.pool.Query(ctx, `
		SELECT booking_status, COUNT(*) FROM bookings GROUP BY booking_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		report.BookingsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	monthly, err := h.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', booking_date), 'YYYY-MM'),
			COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM bookings
		WHERE booking_status = $1 AND booking_date >= $2
		GROUP BY 1 ORDER BY 1`,
		models.BookingStatusConfirmed, monthStart.AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}
	defer monthly.Close()
	for monthly.Next() {
		var m MonthRevenue
		if err := monthly.Scan(&m.Month, &m.Revenue, &m.Count); err != nil {
			return nil, err
		}
		report.MonthlyRevenue = append(report.MonthlyRevenue, m)
	}
	return report, monthly.Err()
}

// Tours handles GET /admin/analytics/tours: per-tour booking performance,
// best earners first.
func (h *Handler) Tours(c *gin.Context) {
	rows, err := h.pool.Query(c.Request.Context(), `
		SELECT t.id, t.name, t.location, t.capacity, t.current_bookings,
			COUNT(b.id) FILTER (WHERE b.booking_status = $1),
			COALESCE(SUM(b.number_of_people) FILTER (WHERE b.booking_status = $1), 0),
			COALESCE(SUM(b.total_amount) FILTER (WHERE b.booking_status = $1), 0)
		FROM tours t
		LEFT JOIN bookings b ON b.tour_id = t.id
		GROUP BY t.id, t.name, t.location, t.capacity, t.current_bookings
		ORDER BY 8 DESC`,
		models.BookingStatusConfirmed)
	if err != nil {
		h.logger.Error("tour performance query failed", zap.Error(err))
		response.Internal(c, "failed to build tour report")
		return
	}
	defer rows.Close()

	var list []TourPerformance
	for rows.Next() {
		var p TourPerformance
		if err := rows.Scan(&p.TourID, &p.TourName, &p.Location, &p.Capacity, &p.CurrentBookings,
			&p.ConfirmedCount, &p.ConfirmedPeople, &p.Revenue); err != nil {
			response.Internal(c, "failed to build tour report")
			return
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		response.Internal(c, "failed to build tour report")
		return
	}
	response.OK(c, list)
}
