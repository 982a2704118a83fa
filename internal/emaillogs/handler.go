package emaillogs

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/auth"
	"github.com/horizon-travel/tourbook/internal/bookings"
	"github.com/horizon-travel/tourbook/internal/mailer"
	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/internal/tours"
	"github.com/horizon-travel/tourbook/pkg/queue"
	"github.com/horizon-travel/tourbook/pkg/response"
)

// Handler exposes the email delivery log to admins.
type Handler struct {
	repo     *Repository
	bookings *bookings.Repository
	tours    *tours.Repository
	users    *auth.Repository
	queue    *queue.Queue
	logger   *zap.Logger
}

// NewHandler creates an email log handler.
func NewHandler(repo *Repository, bookingRepo *bookings.Repository, tourRepo *tours.Repository,
	userRepo *auth.Repository, q *queue.Queue, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		repo:     repo,
		bookings: bookingRepo,
		tours:    tourRepo,
		users:    userRepo,
		queue:    q,
		logger:   logger,
	}
}

// List handles GET /admin/email-logs?status=&limit=.
func (h *Handler) List(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.EmailLogStatusPending, models.EmailLogStatusSent, models.EmailLogStatusFailed:
	default:
		response.BadRequest(c, "invalid status filter")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.repo.List(c.Request.Context(), status, limit)
	if err != nil {
		response.Internal(c, "failed to list email logs")
		return
	}
	response.OK(c, list)
}

// Resend handles POST /admin/email-logs/:id/resend. The notification is
// re-rendered from current booking state and queued again. Password reset
// emails cannot be resent; the temporary password is never stored.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid email log id")
		return
	}
	entry, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "email log not found")
		return
	}
	if entry.BookingID == nil {
		response.BadRequest(c, "only booking emails can be resent")
		return
	}

	b, err := h.bookings.GetByID(c.Request.Context(), *entry.BookingID)
	if err != nil {
		response.NotFound(c, "booking no longer exists")
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), b.UserID)
	if err != nil {
		response.NotFound(c, "customer no longer exists")
		return
	}
	tour, err := h.tours.GetByID(c.Request.Context(), b.TourID)
	if err != nil {
		response.NotFound(c, "tour no longer exists")
		return
	}

	var subject, body string
	switch entry.EmailType {
	case models.EmailTypeBookingConfirmation:
		subject, body = mailer.BookingConfirmationEmail(user.FullName, tour.Name,
			b.BookingReference, b.NumberOfPeople, b.TotalAmount)
	case models.EmailTypeBookingRejection:
		subject, body = mailer.BookingRejectionEmail(user.FullName, tour.Name, b.BookingReference, "")
	default:
		response.BadRequest(c, "this email type cannot be resent")
		return
	}

	err = h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:      entry.EmailType,
		BookingID:      entry.BookingID,
		UserID:         &user.ID,
		RecipientEmail: user.Email,
		Subject:        subject,
		BodyHTML:       body,
	})
	if err != nil {
		h.logger.Error("resend enqueue failed", zap.Error(err), zap.String("email_log_id", id.String()))
		response.Internal(c, "failed to queue email")
		return
	}
	response.OK(c, gin.H{"message": "email queued"})
}
