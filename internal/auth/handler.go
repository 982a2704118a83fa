package auth

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/horizon-travel/tourbook/internal/mailer"
	"github.com/horizon-travel/tourbook/internal/models"
	"github.com/horizon-travel/tourbook/pkg/queue"
	"github.com/horizon-travel/tourbook/pkg/response"
	"github.com/horizon-travel/tourbook/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	queue  *queue.Queue
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, q *queue.Queue, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, queue: q, logger: logger}
}

// Register handles POST /auth/register. Self-registration always creates a customer.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.repo.GetByUsername(c.Request.Context(), req.Username); err == nil {
		response.Conflict(c, "username already taken")
		return
	}
	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         models.RoleCustomer,
	})
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword handles POST /auth/forgot-password. Stores a temporary
// password, flags the account for a forced change, and emails the user.
// Responds identically whether or not the email exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.OK(c, gin.H{"message": "if the email exists, a reset email has been sent"})
		return
	}

	tempPassword, err := utils.GenerateTempPassword(8)
	if err != nil {
		response.Internal(c, "failed to generate temporary password")
		return
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.ResetPassword(c.Request.Context(), user.ID, hash, time.Now()); err != nil {
		h.logger.Error("reset password failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to reset password")
		return
	}

	subject, body := mailer.PasswordResetEmail(user.FullName, user.Username, tempPassword)
	if err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:      models.EmailTypePasswordReset,
		UserID:         &user.ID,
		RecipientEmail: user.Email,
		Subject:        subject,
		BodyHTML:       body,
	}); err != nil {
		h.logger.Error("enqueue reset email failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	response.OK(c, gin.H{"message": "if the email exists, a reset email has been sent"})
}

// ChangePasswordRequest is the body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword handles POST /auth/change-password (authenticated).
// Also clears the forced-change flag set by a password reset.
func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "user not found")
		return
	}
	if !utils.CheckPassword(req.CurrentPassword, user.Password) {
		response.Unauthorized(c, "current password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), userID, hash); err != nil {
		response.Internal(c, "failed to update password")
		return
	}
	response.OK(c, gin.H{"message": "password updated"})
}

// Profile handles GET /profile.
func (h *Handler) Profile(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UpdateProfileRequest is the body for PATCH /profile.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// UpdateProfile handles PATCH /profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	fullName, email, phone, address := user.FullName, user.Email, user.Phone, user.Address
	if req.FullName != nil {
		fullName = *req.FullName
	}
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.Address != nil {
		address = *req.Address
	}

	updated, err := h.repo.UpdateProfile(c.Request.Context(), userID, fullName, email, phone, address)
	if err != nil {
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, updated.ToPublic())
}

// List handles GET /admin/users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// AdminCreateRequest is the body for POST /admin/users.
type AdminCreateRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Role     string `json:"role"`
}

// AdminCreate handles POST /admin/users (admin only). Unlike self-registration
// it may create admin accounts.
func (h *Handler) AdminCreate(c *gin.Context) {
	var req AdminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleCustomer
	switch req.Role {
	case "", "customer":
	case "admin":
		role = models.RoleAdmin
	default:
		response.BadRequest(c, "invalid role")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user, err := h.repo.Create(c.Request.Context(), CreateUserParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Address:      req.Address,
		Role:         role,
	})
	if err != nil {
		response.Internal(c, "failed to create user")
		return
	}
	response.Created(c, user.ToPublic())
}

// AdminUpdateRequest is the body for PATCH /admin/users/:id.
type AdminUpdateRequest struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Role     *string `json:"role"`
}

// AdminUpdate handles PATCH /admin/users/:id (admin only).
func (h *Handler) AdminUpdate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	fullName, email, phone, address := user.FullName, user.Email, user.Phone, user.Address
	if req.FullName != nil {
		fullName = *req.FullName
	}
	if req.Email != nil {
		email = *req.Email
	}
	if req.Phone != nil {
		phone = *req.Phone
	}
	if req.Address != nil {
		address = *req.Address
	}
	updated, err := h.repo.UpdateProfile(c.Request.Context(), id, fullName, email, phone, address)
	if err != nil {
		response.Internal(c, "failed to update user")
		return
	}

	if req.Role != nil {
		role := models.Role(*req.Role)
		if role != models.RoleAdmin && role != models.RoleCustomer {
			response.BadRequest(c, "invalid role")
			return
		}
		if err := h.repo.UpdateRole(c.Request.Context(), id, role); err != nil {
			response.Internal(c, "failed to update role")
			return
		}
		updated.Role = role
	}
	response.OK(c, updated.ToPublic())
}

// AdminResetPassword handles POST /admin/users/:id/reset-password (admin
// only). Issues a temporary password and emails it to the user, same as the
// self-service flow.
func (h *Handler) AdminResetPassword(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	tempPassword, err := utils.GenerateTempPassword(8)
	if err != nil {
		response.Internal(c, "failed to generate temporary password")
		return
	}
	hash, err := utils.HashPassword(tempPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.ResetPassword(c.Request.Context(), user.ID, hash, time.Now()); err != nil {
		h.logger.Error("admin reset password failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		response.Internal(c, "failed to reset password")
		return
	}

	subject, body := mailer.PasswordResetEmail(user.FullName, user.Username, tempPassword)
	if err := h.queue.EnqueueEmail(c.Request.Context(), queue.EmailPayload{
		EmailType:      models.EmailTypePasswordReset,
		UserID:         &user.ID,
		RecipientEmail: user.Email,
		Subject:        subject,
		BodyHTML:       body,
	}); err != nil {
		h.logger.Error("enqueue reset email failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	response.OK(c, gin.H{"message": "temporary password emailed to the user"})
}

// AdminDelete handles DELETE /admin/users/:id (admin only).
func (h *Handler) AdminDelete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if id == c.MustGet(ContextUserID).(uuid.UUID) {
		response.BadRequest(c, "cannot delete your own account")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete user")
		return
	}
	response.NoContent(c)
}
