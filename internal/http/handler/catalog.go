package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobtrack/internal/catalog"
	"jobtrack/internal/http/respond"

	"github.com/go-chi/chi/v5"
)

// CatalogHandler is the minimal ingestion surface the tracking core needs:
// postings arrive here, tracking only references them by id.
type CatalogHandler struct {
	Svc *catalog.Service
}

type upsertJobReq struct {
	Title       string  `json:"title"`
	Company     string  `json:"company"`
	Location    string  `json:"location"`
	JobType     string  `json:"job_type"`
	SourceID    string  `json:"source_id"`
	Platform    string  `json:"platform"`
	Deadline    *string `json:"deadline"` // RFC3339 optional
	Salary      string  `json:"salary"`
	Description string  `json:"description"`
}

func (h *CatalogHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertJobReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "bad json")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Company = strings.TrimSpace(req.Company)
	req.SourceID = strings.TrimSpace(req.SourceID)
	req.Platform = strings.TrimSpace(req.Platform)
	if req.Title == "" || req.Company == "" || req.SourceID == "" || req.Platform == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "title, company, source_id and platform are required")
		return
	}

	var deadline *time.Time
	if req.Deadline != nil && strings.TrimSpace(*req.Deadline) != "" {
		t, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid deadline (RFC3339)")
			return
		}
		deadline = &t
	}

	job, err := h.Svc.Upsert(r.Context(), catalog.UpsertInput{
		Title:       req.Title,
		Company:     req.Company,
		Location:    strings.TrimSpace(req.Location),
		JobType:     strings.TrimSpace(req.JobType),
		SourceID:    req.SourceID,
		Platform:    req.Platform,
		Deadline:    deadline,
		Salary:      strings.TrimSpace(req.Salary),
		Description: req.Description,
	})
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}
	respond.JSON(w, http.StatusCreated, job)
}

func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid id")
		return
	}

	job, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "job not found")
			return
		}
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
		return
	}
	respond.JSON(w, http.StatusOK, job)
}
