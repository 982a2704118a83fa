package bookings

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/auth"
	"github.com/horizon-travel/tourbook/internal/discounts"
	"github.com/horizon-travel/tourbook/internal/mailer"
	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/internal/payments"
	"github.com/horizon-travel/tourbook/internal/realtime"
	"github.com/horizon-travel/tourbook/internal/tours"
	"github.com/horizon-travel/tourbook/pkg/queue"
	"github.com/horizon-travel/tourbook/pkg/response"
)

// Handler handles booking HTTP endpoints.
type Handler struct {
	repo      *Repository
	tours     *tours.Repository
	discounts *discounts.Repository
	users     *auth.Repository
	payments  *payments.Builder
	queue     *queue.Queue
	hub       *realtime.Hub
	logger    *zap.Logger
}

// NewHandler creates a bookings handler.
func NewHandler(repo *Repository, tourRepo *tours.Repository, discountRepo *discounts.Repository,
	userRepo *auth.Repository, builder *payments.Builder, q *queue.Queue, hub *realtime.Hub,
	logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:      repo,
		tours:     tourRepo,
		discounts: discountRepo,
		users:     userRepo,
		payments:  builder,
		queue:     q,
		hub:       hub,
		logger:    logger,
	}
}

func currentUser(c *gin.Context) (uuid.UUID, string) {
	return c.MustGet(auth.ContextUserID).(uuid.UUID), c.GetString(auth.ContextUserRole)
}

// view decorates a booking with its cancellation window state.
type view struct {
	models.Booking
	CanCancel                  bool `json:"can_cancel"`
	RemainingCancellationHours int  `json:"remaining_cancellation_hours"`
}

func newView(b *models.Booking, now time.Time) view {
	return view{
		Booking:                    *b,
		CanCancel:                  b.CanSelfCancel(now),
		RemainingCancellationHours: b.RemainingCancellationHours(now),
	}
}

// detailView decorates a joined booking row the same way.
type detailView struct {
	Detail
	CanCancel                  bool `json:"can_cancel"`
	RemainingCancellationHours int  `json:"remaining_cancellation_hours"`
}

func newDetailViews(list []Detail, now time.Time) []detailView {
	out := make([]detailView, 0, len(list))
	for _, d := range list {
		out = append(out, detailView{
			Detail:                     d,
			CanCancel:                  d.CanSelfCancel(now),
			RemainingCancellationHours: d.RemainingCancellationHours(now),
		})
	}
	return out
}

// QuoteRequest is the body for POST /bookings/quote.
type QuoteRequest struct {
	TourID         string `json:"tour_id" binding:"required,uuid"`
	NumberOfPeople int    `json:"number_of_people" binding:"required,min=1"`
}

// Quote handles POST /bookings/quote: price a party on a tour with the best
// available discount applied, without reserving anything.
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tourID := uuid.MustParse(req.TourID)
	tour, err := h.tours.GetByID(c.Request.Context(), tourID)
	if err != nil {
		response.NotFound(c, "tour not found")
		return
	}
	quote, err := h.quoteFor(c, tour, req.NumberOfPeople)
	if err != nil {
		response.Internal(c, "failed to evaluate discounts")
		return
	}
	response.OK(c, quote)
}

func (h *Handler) quoteFor(c *gin.Context, tour *models.Tour, people int) (discounts.Quote, error) {
	now := time.Now()
	candidates, err := h.discounts.CandidatesForTour(c.Request.Context(), tour.ID, now)
	if err != nil {
		return discounts.Quote{}, err
	}
	return discounts.BestDiscount(candidates, tour.TotalCost(people), now), nil
}

// CreateRequest is the body for POST /bookings.
type CreateRequest struct {
	TourID         string `json:"tour_id" binding:"required,uuid"`
	NumberOfPeople int    `json:"number_of_people" binding:"required,min=1"`
	Notes          string `json:"notes"`
}

// Create handles POST /bookings (authenticated). The booking is priced with
// the best discount available right now, seats are reserved atomically, and
// a payment QR payload is attached. The booking stays PENDING until an
// admin approves it.
func (h *Handler) Create(c *gin.Context) {
	userID, _ := currentUser(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	tourID := uuid.MustParse(req.TourID)
	tour, err := h.tours.GetByID(c.Request.Context(), tourID)
	if err != nil {
		response.NotFound(c, "tour not found")
		return
	}
	if !tour.IsActive {
		response.BadRequest(c, "tour is not open for booking")
		return
	}
	if time.Now().After(tour.ScheduledAt) {
		response.BadRequest(c, "tour has already departed")
		return
	}

	quote, err := h.quoteFor(c, tour, req.NumberOfPeople)
	if err != nil {
		response.Internal(c, "failed to evaluate discounts")
		return
	}

	b := &models.Booking{
		UserID:         userID,
		TourID:         tour.ID,
		NumberOfPeople: req.NumberOfPeople,
		TotalAmount:    quote.FinalPrice,
		Notes:          req.Notes,
		QRCode:         h.payments.BuildTransferPayload(quote.FinalPrice, tour.Name, req.NumberOfPeople),
	}
	if quote.Discount != nil {
		id := quote.Discount.ID
		b.DiscountID = &id
	}

	if err := h.repo.Create(c.Request.Context(), b); err != nil {
		if errors.Is(err, ErrNoCapacity) {
			response.Conflict(c, "not enough available slots on this tour")
			return
		}
		h.logger.Error("create booking failed", zap.Error(err), zap.String("tour_id", tour.ID.String()))
		response.Internal(c, "failed to create booking")
		return
	}

	h.publish(c, realtime.EventBookingCreated, b, tour.Name)

	response.Created(c, gin.H{
		"booking": newView(b, time.Now()),
		"quote":   quote,
	})
}

// MyBookings handles GET /bookings (authenticated): the caller's bookings.
func (h *Handler) MyBookings(c *gin.Context) {
	userID, _ := currentUser(c)
	list, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to list bookings")
		return
	}
	response.OK(c, newDetailViews(list, time.Now()))
}

// loadVisible fetches a booking the caller may see: the owner or any admin.
func (h *Handler) loadVisible(c *gin.Context) (*models.Booking, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return nil, false
	}
	b, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.NotFound(c, "booking not found")
		} else {
			response.Internal(c, "failed to load booking")
		}
		return nil, false
	}
	userID, role := currentUser(c)
	if b.UserID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "not your booking")
		return nil, false
	}
	return b, true
}

// GetByID handles GET /bookings/:id (owner or admin).
func (h *Handler) GetByID(c *gin.Context) {
	b, ok := h.loadVisible(c)
	if !ok {
		return
	}
	response.OK(c, newView(b, time.Now()))
}

// GetByReference handles GET /bookings/reference/:ref (owner or admin).
func (h *Handler) GetByReference(c *gin.Context) {
	ref := c.Param("ref")
	if !ValidReference(ref) {
		response.BadRequest(c, "invalid booking reference")
		return
	}
	b, err := h.repo.GetByReference(c.Request.Context(), ref)
	if err != nil {
		response.NotFound(c, "booking not found")
		return
	}
	userID, role := currentUser(c)
	if b.UserID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "not your booking")
		return
	}
	response.OK(c, newView(b, time.Now()))
}

// QRImage handles GET /bookings/:id/qr (owner or admin): the payment QR as
// a PNG.
func (h *Handler) QRImage(c *gin.Context) {
	b, ok := h.loadVisible(c)
	if !ok {
		return
	}
	if b.QRCode == "" {
		response.NotFound(c, "booking has no payment QR")
		return
	}
	png, err := payments.RenderPNG(b.QRCode, 256)
	if err != nil {
		response.Internal(c, "failed to render QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// Cancel handles POST /bookings/:id/cancel (owner): self-cancellation of a
// pending booking within the 24h window.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}
	userID, _ := currentUser(c)

	b, err := h.repo.SelfCancel(c.Request.Context(), id, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.NotFound(c, "booking not found")
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, "not your booking")
		case errors.Is(err, ErrInvalidStatus):
			response.Conflict(c, "only pending bookings can be cancelled")
		case errors.Is(err, ErrCancelWindowClosed):
			response.Conflict(c, "the 24 hour cancellation window has closed")
		default:
			h.logger.Error("cancel booking failed", zap.Error(err), zap.String("booking_id", id.String()))
			response.Internal(c, "failed to cancel booking")
		}
		return
	}

	h.publish(c, realtime.EventBookingCancelled, b, "")
	response.OK(c, newView(b, time.Now()))
}

// List handles GET /admin/bookings (admin), filterable by status and tour.
func (h *Handler) List(c *gin.Context) {
	var f ListFilter
	if s := c.Query("status"); s != "" {
		switch s {
		case models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusCancelled:
			f.Status = s
		default:
			response.BadRequest(c, "invalid status filter")
			return
		}
	}
	if v := c.Query("tour_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid tour_id")
			return
		}
		f.TourID = &id
	}
	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to list bookings")
		return
	}
	response.OK(c, newDetailViews(list, time.Now()))
}

// Approve handles POST /admin/bookings/:id/approve: confirm a pending
// booking, consume its discount use, and notify the customer.
func (h *Handler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}

	b, err := h.repo.Approve(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.NotFound(c, "booking not found")
		case errors.Is(err, ErrInvalidStatus):
			response.Conflict(c, "only pending bookings can be approved")
		case errors.Is(err, ErrDiscountExhausted):
			response.Conflict(c, "the attached discount has no uses left")
		default:
			h.logger.Error("approve booking failed", zap.Error(err), zap.String("booking_id", id.String()))
			response.Internal(c, "failed to approve booking")
		}
		return
	}

	user, tour := h.loadParties(c, b)
	if user != nil && tour != nil {
		subject, body := mailer.BookingConfirmationEmail(user.FullName, tour.Name,
			b.BookingReference, b.NumberOfPeople, b.TotalAmount)
		h.enqueueEmail(c, models.EmailTypeBookingConfirmation, b, user, subject, body)
		h.publish(c, realtime.EventBookingConfirmed, b, tour.Name)
	}

	response.OK(c, b)
}

// RejectRequest is the optional body for POST /admin/bookings/:id/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /admin/bookings/:id/reject: decline a pending
// booking, release its seats, and notify the customer.
func (h *Handler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking id")
		return
	}
	var req RejectRequest
	_ = c.ShouldBindJSON(&req)

	b, err := h.repo.Reject(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.NotFound(c, "booking not found")
		case errors.Is(err, ErrInvalidStatus):
			response.Conflict(c, "only pending bookings can be rejected")
		default:
			h.logger.Error("reject booking failed", zap.Error(err), zap.String("booking_id", id.String()))
			response.Internal(c, "failed to reject booking")
		}
		return
	}

	user, tour := h.loadParties(c, b)
	if user != nil && tour != nil {
		subject, body := mailer.BookingRejectionEmail(user.FullName, tour.Name,
			b.BookingReference, req.Reason)
		h.enqueueEmail(c, models.EmailTypeBookingRejection, b, user, subject, body)
		h.publish(c, realtime.EventBookingRejected, b, tour.Name)
	}

	response.OK(c, b)
}

// loadParties fetches the customer and tour for notifications. Failures are
// logged, not surfaced: the state change already committed.
func (h *Handler) loadParties(c *gin.Context, b *models.Booking) (*models.User, *models.Tour) {
	user, err := h.users.GetByID(c.Request.Context(), b.UserID)
	if err != nil {
		h.logger.Error("load booking user failed", zap.Error(err), zap.String("booking_id", b.ID.String()))
		return nil, nil
	}
	tour, err := h.tours.GetByID(c.Request.Context(), b.TourID)
	if err != nil {
		h.logger.Error("load booking tour failed", zap.Error(err), zap.String("booking_id", b.ID.String()))
		return nil, nil
	}
	return user, tour
}

func (h *Handler) enqueueEmail(c *gin.Context, emailType string, b *models.Booking, user *models.User, subject, body string) {
	err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:      emailType,
		BookingID:      &b.ID,
		UserID:         &user.ID,
		RecipientEmail: user.Email,
		Subject:        subject,
		BodyHTML:       body,
	})
	if err != nil {
		h.logger.Error("enqueue booking email failed", zap.Error(err), zap.String("booking_id", b.ID.String()))
	}
}

func (h *Handler) publish(c *gin.Context, eventType string, b *models.Booking, tourName string) {
	err := h.hub.Publish(c.Request.Context(), realtime.Event{
		Type:             eventType,
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		TourID:           b.TourID,
		TourName:         tourName,
		UserID:           b.UserID,
		NumberOfPeople:   b.NumberOfPeople,
		TotalAmount:      b.TotalAmount,
	})
	if err != nil {
		h.logger.Warn("publish booking event failed", zap.Error(err), zap.String("booking_id", b.ID.String()))
	}
}
