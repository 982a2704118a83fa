package discounts

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/pkg/response"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Handler handles discount HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a discounts handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /admin/discounts. Query ?tour_id= filters to one tour plus global records.
func (h *Handler) List(c *gin.Context) {
	var tourID *uuid.UUID
	if v := c.Query("tour_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid tour_id")
			return
		}
		tourID = &id
	}
	list, err := h.repo.List(c.Request.Context(), tourID)
	if err != nil {
		response.Internal(c, "failed to list discounts")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /admin/discounts/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid discount id")
		return
	}
	d, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "discount not found")
		return
	}
	response.OK(c, d)
}

// CreateRequest is the body for POST /admin/discounts.
type CreateRequest struct {
	TourID            *string `json:"tour_id"` // nil = global
	Name              string  `json:"name" binding:"required"`
	Description       string  `json:"description"`
	Type              string  `json:"type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value             float64 `json:"value" binding:"required,gt=0"`
	MaxDiscountAmount float64 `json:"max_discount_amount" binding:"min=0"`
	MinOrderAmount    float64 `json:"min_order_amount" binding:"min=0"`
	Code              string  `json:"code"`
	StartDate         string  `json:"start_date" binding:"required"`
	EndDate           string  `json:"end_date" binding:"required"`
	UsageLimit        int     `json:"usage_limit"`
	IsActive          *bool   `json:"is_active"`
}

// Create handles POST /admin/discounts (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Type == models.DiscountTypePercentage && req.Value > 100 {
		response.BadRequest(c, "percentage value cannot exceed 100")
		return
	}
	startDate, err := parseTime(req.StartDate)
	if err != nil {
		response.BadRequest(c, "invalid start_date")
		return
	}
	endDate, err := parseTime(req.EndDate)
	if err != nil {
		response.BadRequest(c, "invalid end_date")
		return
	}
	if endDate.Before(startDate) {
		response.BadRequest(c, "end_date must not precede start_date")
		return
	}
	var tourID *uuid.UUID
	if req.TourID != nil && *req.TourID != "" {
		id, err := uuid.Parse(*req.TourID)
		if err != nil {
			response.BadRequest(c, "invalid tour_id")
			return
		}
		tourID = &id
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	d := &models.Discount{
		TourID:            tourID,
		Name:              req.Name,
		Description:       req.Description,
		Type:              req.Type,
		Value:             req.Value,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinOrderAmount:    req.MinOrderAmount,
		Code:              req.Code,
		StartDate:         startDate,
		EndDate:           endDate,
		IsActive:          active,
		UsageLimit:        req.UsageLimit,
	}
	if err := h.repo.Create(c.Request.Context(), d); err != nil {
		h.logger.Error("create discount failed", zap.Error(err))
		response.Internal(c, "failed to create discount")
		return
	}
	response.Created(c, d)
}

// UpdateRequest is the body for PATCH /admin/discounts/:id.
type UpdateRequest struct {
	TourID            *string  `json:"tour_id"`
	Name              *string  `json:"name"`
	Description       *string  `json:"description"`
	Type              *string  `json:"type" binding:"omitempty,oneof=PERCENTAGE FIXED_AMOUNT"`
	Value             *float64 `json:"value"`
	MaxDiscountAmount *float64 `json:"max_discount_amount"`
	MinOrderAmount    *float64 `json:"min_order_amount"`
	Code              *string  `json:"code"`
	StartDate         *string  `json:"start_date"`
	EndDate           *string  `json:"end_date"`
	UsageLimit        *int     `json:"usage_limit"`
	IsActive          *bool    `json:"is_active"`
}

// Update handles PATCH /admin/discounts/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid discount id")
		return
	}
	d, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "discount not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.TourID != nil {
		if *req.TourID == "" {
			d.TourID = nil
		} else {
			tid, err := uuid.Parse(*req.TourID)
			if err != nil {
				response.BadRequest(c, "invalid tour_id")
				return
			}
			d.TourID = &tid
		}
	}
	if req.Name != nil {
		d.Name = *req.Name
	}
	if req.Description != nil {
		d.Description = *req.Description
	}
	if req.Type != nil {
		d.Type = *req.Type
	}
	if req.Value != nil {
		d.Value = *req.Value
	}
	if req.MaxDiscountAmount != nil {
		d.MaxDiscountAmount = *req.MaxDiscountAmount
	}
	if req.MinOrderAmount != nil {
		d.MinOrderAmount = *req.MinOrderAmount
	}
	if req.Code != nil {
		d.Code = *req.Code
	}
	if req.StartDate != nil {
		t, err := parseTime(*req.StartDate)
		if err != nil {
			response.BadRequest(c, "invalid start_date")
			return
		}
		d.StartDate = t
	}
	if req.EndDate != nil {
		t, err := parseTime(*req.EndDate)
		if err != nil {
			response.BadRequest(c, "invalid end_date")
			return
		}
		d.EndDate = t
	}
	if req.UsageLimit != nil {
		d.UsageLimit = *req.UsageLimit
	}
	if req.IsActive != nil {
		d.IsActive = *req.IsActive
	}
	if d.Type == models.DiscountTypePercentage && d.Value > 100 {
		response.BadRequest(c, "percentage value cannot exceed 100")
		return
	}
	if d.EndDate.Before(d.StartDate) {
		response.BadRequest(c, "end_date must not precede start_date")
		return
	}

	if err := h.repo.Update(c.Request.Context(), d); err != nil {
		response.Internal(c, "failed to update discount")
		return
	}
	response.OK(c, d)
}

// Delete handles DELETE /admin/discounts/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid discount id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		response.NotFound(c, "discount not found")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete discount")
		return
	}
	response.NoContent(c)
}

// ValidateCode handles GET /discounts/validate?code=&order_total= for
// customers checking a promotional code before booking.
func (h *Handler) ValidateCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.BadRequest(c, "code is required")
		return
	}
	orderTotal, err := strconv.ParseFloat(c.Query("order_total"), 64)
	if err != nil || orderTotal < 0 {
		response.BadRequest(c, "invalid order_total")
		return
	}

	d, err := h.repo.GetByCode(c.Request.Context(), code)
	if err != nil {
		response.NotFound(c, "code not found")
		return
	}
	now := time.Now()
	amount := d.DiscountAmount(orderTotal, now)
	response.OK(c, gin.H{
		"valid":           amount > 0,
		"discount":        d,
		"discount_amount": amount,
		"final_price":     d.Apply(orderTotal, now),
		"remaining_uses":  d.RemainingUses(),
	})
}

// DeactivateExpired handles POST /admin/discounts/deactivate-expired (admin only).
func (h *Handler) DeactivateExpired(c *gin.Context) {
	n, err := h.repo.DeactivateExpired(c.Request.Context(), time.Now())
	if err != nil {
		response.Internal(c, "failed to deactivate expired discounts")
		return
	}
	response.OK(c, gin.H{"deactivated": n})
}
