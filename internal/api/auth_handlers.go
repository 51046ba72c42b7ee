// catalog-service/internal/api/auth_handlers.go
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"
	"catalog-service/pkg/auth"
)

// AuthHandler serves account registration, login and profile routes.
type AuthHandler struct {
	responder
	store        store.UserStore
	validator    *domain.Validator
	tokenManager auth.TokenManager
}

func NewAuthHandler(s store.UserStore, l *slog.Logger, v *domain.Validator, tm auth.TokenManager) *AuthHandler {
	return &AuthHandler{
		responder:    responder{logger: l},
		store:        s,
		validator:    v,
		tokenManager: tm,
	}
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, message string, user *domain.User) {
	tokenString, err := h.tokenManager.Generate(user.ID, string(user.Role))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to generate JWT token", slog.String("userID", user.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error generating token")
		return
	}
	h.respondSuccess(w, r, status, message, domain.LoginResponse{User: user, Token: tokenString})
}

// Register handles POST /api/auth/register. New accounts are always regular users.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.logger.InfoContext(ctx, "HTTP Register request received", slog.String("path", r.URL.Path))

	var req domain.RegisterRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validator.Struct(ctx, req); err != nil {
		h.respondInvalid(w, r, err)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to hash password", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error registering user")
		return
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleUser,
		IsActive:     true,
	}
	if err := h.store.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			h.respondError(w, r, http.StatusConflict, "User already exists with this email")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to create user in store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error registering user")
		return
	}

	h.logger.InfoContext(ctx, "User registered successfully", slog.String("userID", user.ID))
	h.issue(w, r, http.StatusCreated, "User registered successfully", user)
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.LoginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validator.Struct(ctx, req); err != nil {
		h.respondInvalid(w, r, err)
		return
	}

	user, err := h.store.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "Login attempt for non-existent email", slog.String("email", req.Email))
			h.respondError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get user by email from store", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error logging in")
		return
	}
	if !user.IsActive {
		h.respondError(w, r, http.StatusUnauthorized, "Account is deactivated")
		return
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.logger.WarnContext(ctx, "Invalid password attempt", slog.String("userID", user.ID))
		h.respondError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.logger.InfoContext(ctx, "User logged in successfully", slog.String("userID", user.ID))
	h.issue(w, r, http.StatusOK, "Login successful", user)
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}
	h.respondSuccess(w, r, http.StatusOK, "", user)
}

// UpdateProfile handles PUT /api/auth/profile.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	var req domain.UpdateProfileRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validator.Struct(ctx, req); err != nil {
		h.respondInvalid(w, r, err)
		return
	}

	user.Email = req.Email
	if err := h.store.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrUserAlreadyExists):
			h.respondError(w, r, http.StatusConflict, "Email is already taken")
		case errors.Is(err, store.ErrUserNotFound):
			h.respondError(w, r, http.StatusNotFound, "User not found")
		default:
			h.logger.ErrorContext(ctx, "Failed to update user profile in store", slog.String("userID", user.ID), slog.String("error", err.Error()))
			h.respondError(w, r, http.StatusInternalServerError, "Error updating profile")
		}
		return
	}
	h.respondSuccess(w, r, http.StatusOK, "Profile updated successfully", user)
}

// ChangePassword handles PUT /api/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := UserFromContext(ctx)
	if !ok {
		h.respondError(w, r, http.StatusInternalServerError, "Error processing user identity")
		return
	}

	var req domain.ChangePasswordRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Struct(ctx, req); err != nil {
		h.respondInvalid(w, r, err)
		return
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		h.respondError(w, r, http.StatusBadRequest, "Current password is incorrect")
		return
	}

	hashedPassword, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to hash password", slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error changing password")
		return
	}
	user.PasswordHash = hashedPassword
	if err := h.store.Update(ctx, user); err != nil {
		h.logger.ErrorContext(ctx, "Failed to store new password", slog.String("userID", user.ID), slog.String("error", err.Error()))
		h.respondError(w, r, http.StatusInternalServerError, "Error changing password")
		return
	}
	h.logger.InfoContext(ctx, "Password changed", slog.String("userID", user.ID))
	h.respondSuccess(w, r, http.StatusOK, "Password changed successfully", nil)
}
