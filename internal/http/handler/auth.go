package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"jobtrack/internal/auth"
	"jobtrack/internal/http/respond"

	"gorm.io/gorm"
)

type AuthHandler struct {
	DB  *gorm.DB
	JWT *auth.JWT
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "bad json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "email and a password of at least 8 characters are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}

	u := auth.User{Email: req.Email, PasswordHash: hash}
	if err := h.DB.Create(&u).Error; err != nil {
		respond.Error(w, http.StatusConflict, respond.CodeConflict, "email already used")
		return
	}

	h.issueToken(w, u.ID)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "bad json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "email and password are required")
		return
	}

	var u auth.User
	if err := h.DB.Where("email = ?", req.Email).First(&u).Error; err != nil {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "invalid credentials")
		return
	}
	if !auth.ComparePassword(u.PasswordHash, req.Password) {
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthenticated, "invalid credentials")
		return
	}

	h.issueToken(w, u.ID)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, userID uint64) {
	token, err := h.JWT.Sign(userID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"token": token})
}
