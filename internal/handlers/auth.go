package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amendes/orderdesk/internal/auth"
	"github.com/amendes/orderdesk/internal/httpx"
	"github.com/amendes/orderdesk/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct{ DB *gorm.DB }

func NewAuthHandler(db *gorm.DB) *AuthHandler { return &AuthHandler{DB: db} }

// Login: POST /login. Issues the signed session cookie on success.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "email_and_password_required", nil)
		return
	}
	var emp models.Employee
	if err := h.DB.Where("email = ?", email).First(&emp).Error; err != nil {
		// same response for unknown email and bad password
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(emp.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, auth.Session{EmployeeID: emp.ID, TenantID: emp.TenantID, AccessLevel: emp.AccessLevel})
	httpx.JSON(w, http.StatusOK, map[string]any{
		"employee_id":  emp.ID,
		"tenant_id":    emp.TenantID,
		"access_level": emp.AccessLevel,
		"name":         emp.Name,
	})
}

// Logout: POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
