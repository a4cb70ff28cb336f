package server

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"soundhub/core/auth"
	"soundhub/logger"
	"soundhub/model"
	"soundhub/repository"
)

type contextKey string

const userIDKey contextKey = "userID"

const permalinkAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,max=100,email"`
	DisplayName string  `json:"display_name" validate:"required,max=25"`
	Password    string  `json:"password" validate:"required,min=8,max=128"`
	Age         *int    `json:"age" validate:"required,gte=1"`
	Gender      *string `json:"gender" validate:"omitempty,max=20"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=100,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type tokenResponse struct {
	ID        int64  `json:"id"`
	Permalink string `json:"permalink"`
	Token     string `json:"token"`
}

// birthdayFromAge 生日按 (今年-年龄, 本月, 1日) 计算
func birthdayFromAge(now time.Time, age int) time.Time {
	return time.Date(now.Year()-age, now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func randomPermalink() (string, error) {
	b := make([]byte, 12)
	limit := big.NewInt(int64(len(permalinkAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = permalinkAlphabet[n.Int64()]
	}
	return string(b), nil
}

// newPermalink draws random permalinks until one is unused.
func (h *APIHandler) newPermalink(ctx context.Context) (string, error) {
	for {
		permalink, err := randomPermalink()
		if err != nil {
			return "", err
		}
		taken, err := h.userRepo.PermalinkExists(ctx, permalink)
		if err != nil {
			return "", err
		}
		if !taken {
			return permalink, nil
		}
	}
}

// RegisterHandler handles user registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	exists, err := h.userRepo.EmailExists(ctx, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if exists {
		logger.Warn("[Register] 邮箱已存在", logger.String("email", req.Email))
		writeError(w, r, &httpError{status: http.StatusConflict, body: map[string]string{"email": "Already existing email."}})
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	permalink, err := h.newPermalink(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	birthday := birthdayFromAge(h.now(), *req.Age)
	user := &model.User{
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hashedPassword,
		Permalink:    permalink,
		Birthday:     &birthday,
		IsActive:     true,
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, r, &httpError{status: http.StatusConflict, body: map[string]string{"email": "Already existing email."}})
			return
		}
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		writeError(w, r, err)
		return
	}

	h.writeToken(w, r, http.StatusCreated, user)
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	if user == nil || !user.IsActive || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 邮箱或密码错误", logger.String("email", req.Email))
		writeError(w, r, fieldError("non_field_errors", "Invalid email or password."))
		return
	}

	now := h.now()
	if err := h.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		writeError(w, r, err)
		return
	}
	user.LastLogin = &now

	logger.Info("[Login] 登录成功", logger.Int64("userID", user.ID))
	h.writeToken(w, r, http.StatusOK, user)
}

func (h *APIHandler) writeToken(w http.ResponseWriter, r *http.Request, status int, user *model.User) {
	token, err := h.tokens.GenerateToken(user.ID, user.Permalink)
	if err != nil {
		logger.Error("生成Token失败", logger.ErrorField(err))
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{ID: user.ID, Permalink: user.Permalink, Token: token})
}

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
// The JWT prefix is accepted as well.
func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || (parts[0] != "Bearer" && parts[0] != "JWT") {
		return "", false
	}
	return parts[1], true
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, r, errUnauthorized)
			return
		}
		claims, err := h.tokens.ParseToken(raw)
		if err != nil {
			writeError(w, r, detailError(http.StatusUnauthorized, "Invalid token."))
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through.
func (h *APIHandler) OptionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw, ok := bearerToken(r); ok {
			if claims, err := h.tokens.ParseToken(raw); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), userIDKey, claims.UserID))
			}
		}
		next.ServeHTTP(w, r)
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// viewerID is the authenticated user id, or zero for anonymous requests.
func viewerID(r *http.Request) int64 {
	id, _ := GetUserIDFromContext(r.Context())
	return id
}
