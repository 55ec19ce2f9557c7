package handler

import (
	"net/http"
	"strconv"
	"strings"

	"jobtrack/internal/auth"
	"jobtrack/internal/http/respond"
	"jobtrack/internal/tracking"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// TrackingReadHandler serves the list/stats/history reads. The list goes
// straight through gorm; stats and history go through the service so the
// zero-fill and ownership rules live in one place.
type TrackingReadHandler struct {
	DB  *gorm.DB
	Svc *tracking.Service
}

type listResponse struct {
	Items []tracking.TrackedApplication `json:"items"`
	Page  int                           `json:"page"`
	Limit int                           `json:"limit"`
	Total int64                         `json:"total"`
}

// List is GET /tracked-applications?status=&search=&page=&limit=.
func (h *TrackingReadHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	page := 1
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	limit := 20
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	q := h.DB.Model(&tracking.TrackedApplication{}).
		Select("tracked_applications.*").
		Where("tracked_applications.user_id = ?", uid)

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := tracking.ParseStatus(raw)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
			return
		}
		q = q.Where("tracked_applications.status = ?", status)
	}

	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		pat := "%" + search + "%"
		q = q.Joins("JOIN job_postings ON job_postings.id = tracked_applications.job_id").
			Where("job_postings.title ILIKE ? OR job_postings.company ILIKE ?", pat, pat)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}

	var rows []tracking.TrackedApplication
	err := q.Preload("Job").
		Order("tracked_applications.updated_at desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}

	respond.JSON(w, http.StatusOK, listResponse{
		Items: rows,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

// Stats is GET /tracked-applications/stats: per-status counts zero-filled
// over the full enumerated set.
func (h *TrackingReadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	counts, err := h.Svc.StatusCounts(r.Context(), uid)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}
	respond.JSON(w, http.StatusOK, counts)
}

// History is GET /tracked-applications/{id}/history, oldest entry first.
func (h *TrackingReadHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid id")
		return
	}

	entries, err := h.Svc.History(r.Context(), uid, id)
	if err != nil {
		writeTrackingErr(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, entries)
}
