package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/amendes/orderdesk/internal/auth"
	"github.com/amendes/orderdesk/internal/httpx"
	"github.com/amendes/orderdesk/internal/models"
	"github.com/amendes/orderdesk/internal/validation"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EmployeeHandler manages staff accounts. All routes are admin-only and
// scoped to the session's tenant.
type EmployeeHandler struct{ DB *gorm.DB }

func NewEmployeeHandler(db *gorm.DB) *EmployeeHandler { return &EmployeeHandler{DB: db} }

type employeeReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	AccessLevel string `json:"access_level"`
}

func (req *employeeReq) validate(creating bool) validation.Violations {
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.Required("email", req.Email, v)
	if creating {
		validation.Required("password", req.Password, v)
	}
	if req.AccessLevel != models.AccessAdmin && req.AccessLevel != models.AccessStaff {
		v["access_level"] = "must_be_admin_or_staff"
	}
	return v
}

// List: GET /employees
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	var list []models.Employee
	if err := h.DB.Where("tenant_id = ?", s.TenantID).Order("id").Find(&list).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	for i := range list {
		list[i].Password = ""
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// Create: POST /employees
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	var req employeeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(true); !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "hash_error", nil)
		return
	}
	emp := models.Employee{
		TenantID:    s.TenantID,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(strings.ToLower(req.Email)),
		Password:    string(hash),
		AccessLevel: req.AccessLevel,
	}
	if err := h.DB.Create(&emp).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "email_already_used", nil)
		return
	}
	emp.Password = ""
	httpx.JSON(w, http.StatusCreated, emp)
}

// Update: PUT /employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req employeeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(false); !v.Empty() {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", v)
		return
	}
	var emp models.Employee
	if err := h.DB.Where("tenant_id = ? AND id = ?", s.TenantID, id).First(&emp).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "employee_not_found", nil)
		return
	}
	emp.Name = strings.TrimSpace(req.Name)
	emp.Email = strings.TrimSpace(strings.ToLower(req.Email))
	emp.AccessLevel = req.AccessLevel
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "hash_error", nil)
			return
		}
		emp.Password = string(hash)
	}
	if err := h.DB.Save(&emp).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	emp.Password = ""
	httpx.JSON(w, http.StatusOK, emp)
}

// Delete: DELETE /employees/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if uint(id) == s.EmployeeID {
		httpx.JSONError(w, http.StatusConflict, "cannot_delete_own_account", nil)
		return
	}
	res := h.DB.Where("tenant_id = ? AND id = ?", s.TenantID, id).Delete(&models.Employee{})
	if res.Error != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
		return
	}
	if res.RowsAffected == 0 {
		httpx.JSONError(w, http.StatusNotFound, "employee_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "id")})
}
