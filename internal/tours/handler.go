package tours

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/pkg/response"
	"github.com/horizon-travel/tourbook/pkg/storage"
)

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// Handler handles tour HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a tours handler. s3 may be nil when image uploads are disabled.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// List handles GET /tours: active tours only.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), false)
	if err != nil {
		response.Internal(c, "failed to list tours")
		return
	}
	response.OK(c, list)
}

// ListAll handles GET /admin/tours: every tour, inactive included.
func (h *Handler) ListAll(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context(), true)
	if err != nil {
		response.Internal(c, "failed to list tours")
		return
	}
	response.OK(c, list)
}

// Search handles GET /tours/search with name/location/min_price/max_price/available filters.
func (h *Handler) Search(c *gin.Context) {
	f := SearchFilter{
		Name:          c.Query("name"),
		Location:      c.Query("location"),
		AvailableOnly: c.Query("available") == "1",
	}
	if v := c.Query("min_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			response.BadRequest(c, "invalid min_price")
			return
		}
		f.MinPrice = &p
	}
	if v := c.Query("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			response.BadRequest(c, "invalid max_price")
			return
		}
		f.MaxPrice = &p
	}
	list, err := h.repo.Search(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to search tours")
		return
	}
	response.OK(c, list)
}

// Upcoming handles GET /tours/upcoming.
func (h *Handler) Upcoming(c *gin.Context) {
	list, err := h.repo.Upcoming(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list upcoming tours")
		return
	}
	response.OK(c, list)
}

// Popular handles GET /tours/popular?limit=N.
func (h *Handler) Popular(c *gin.Context) {
	limit := 10
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	list, err := h.repo.Popular(c.Request.Context(), limit)
	if err != nil {
		response.Internal(c, "failed to list popular tours")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /tours/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tour id")
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "tour not found")
		return
	}
	response.OK(c, t)
}

// CreateRequest is the body for POST /admin/tours.
type CreateRequest struct {
	Name          string  `json:"name" binding:"required"`
	ImageURL      string  `json:"image_url"`
	Location      string  `json:"location" binding:"required"`
	ScheduledAt   string  `json:"scheduled_at" binding:"required"`
	Description   string  `json:"description"`
	CostPerPerson float64 `json:"cost_per_person" binding:"required,gt=0"`
	Capacity      int     `json:"capacity" binding:"required,min=1"`
	DurationDays  int     `json:"duration_days" binding:"min=1"`
}

// Create handles POST /admin/tours (admin only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	scheduledAt, err := parseTime(req.ScheduledAt)
	if err != nil {
		response.BadRequest(c, "invalid scheduled_at")
		return
	}
	duration := req.DurationDays
	if duration == 0 {
		duration = 1
	}

	t := &models.Tour{
		Name:          req.Name,
		ImageURL:      req.ImageURL,
		Location:      req.Location,
		ScheduledAt:   scheduledAt,
		Description:   req.Description,
		CostPerPerson: req.CostPerPerson,
		Capacity:      req.Capacity,
		DurationDays:  duration,
		IsActive:      true,
	}
	if err := h.repo.Create(c.Request.Context(), t); err != nil {
		h.logger.Error("create tour failed", zap.Error(err))
		response.Internal(c, "failed to create tour")
		return
	}
	response.Created(c, t)
}

// UpdateRequest is the body for PATCH /admin/tours/:id.
type UpdateRequest struct {
	Name          *string  `json:"name"`
	ImageURL      *string  `json:"image_url"`
	Location      *string  `json:"location"`
	ScheduledAt   *string  `json:"scheduled_at"`
	Description   *string  `json:"description"`
	CostPerPerson *float64 `json:"cost_per_person"`
	Capacity      *int     `json:"capacity"`
	DurationDays  *int     `json:"duration_days"`
	IsActive      *bool    `json:"is_active"`
}

// Update handles PATCH /admin/tours/:id (admin only).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tour id")
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "tour not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.ImageURL != nil {
		t.ImageURL = *req.ImageURL
	}
	if req.Location != nil {
		t.Location = *req.Location
	}
	if req.ScheduledAt != nil {
		at, err := parseTime(*req.ScheduledAt)
		if err != nil {
			response.BadRequest(c, "invalid scheduled_at")
			return
		}
		t.ScheduledAt = at
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.CostPerPerson != nil {
		if *req.CostPerPerson <= 0 {
			response.BadRequest(c, "cost_per_person must be positive")
			return
		}
		t.CostPerPerson = *req.CostPerPerson
	}
	if req.Capacity != nil {
		if *req.Capacity < t.CurrentBookings {
			response.Conflict(c, "capacity cannot drop below booked seats")
			return
		}
		t.Capacity = *req.Capacity
	}
	if req.DurationDays != nil {
		t.DurationDays = *req.DurationDays
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := h.repo.Update(c.Request.Context(), t); err != nil {
		response.Internal(c, "failed to update tour")
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /admin/tours/:id (admin only).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tour id")
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "tour not found")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete tour")
		return
	}
	if h.s3 != nil && t.ImageURL != "" {
		key := strings.TrimPrefix(t.ImageURL, "s3://"+h.s3.ImagesBucket()+"/")
		if err := h.s3.Delete(c.Request.Context(), h.s3.ImagesBucket(), key); err != nil {
			h.logger.Warn("delete tour image failed", zap.Error(err), zap.String("tour_id", id.String()))
		}
	}
	response.NoContent(c)
}

// UploadImage handles POST /admin/tours/:id/image (admin only, multipart form field "image").
func (h *Handler) UploadImage(c *gin.Context) {
	if h.s3 == nil {
		response.Internal(c, "image storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tour id")
		return
	}
	if _, err := h.repo.GetByID(c.Request.Context(), id); err != nil {
		response.NotFound(c, "tour not found")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file required")
		return
	}
	if fileHeader.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "image exceeds size limit")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateImageFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read image")
		return
	}
	defer file.Close()

	key := storage.TourImageKey(id.String(), fileHeader.Filename)
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}
	url, err := h.s3.Upload(c.Request.Context(), h.s3.ImagesBucket(), key, contentType, file)
	if err != nil {
		h.logger.Error("tour image upload failed", zap.Error(err), zap.String("tour_id", id.String()))
		response.Internal(c, "failed to upload image")
		return
	}
	if err := h.repo.SetImageURL(c.Request.Context(), id, url); err != nil {
		response.Internal(c, "failed to store image reference")
		return
	}

	downloadURL, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.ImagesBucket(), key, h.s3.PresignExpiry())
	if err != nil {
		downloadURL = ""
	}
	response.OK(c, gin.H{"image_url": url, "download_url": downloadURL})
}

// ImageURL handles GET /tours/:id/image. Returns a pre-signed download URL.
func (h *Handler) ImageURL(c *gin.Context) {
	if h.s3 == nil {
		response.NotFound(c, "image storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid tour id")
		return
	}
	t, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "tour not found")
		return
	}
	if t.ImageURL == "" {
		response.NotFound(c, "tour has no image")
		return
	}
	key := strings.TrimPrefix(t.ImageURL, "s3://"+h.s3.ImagesBucket()+"/")
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.ImagesBucket(), key, h.s3.PresignExpiry())
	if err != nil {
		response.Internal(c, "failed to presign image url")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}
