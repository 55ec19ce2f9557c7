package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobtrack/internal/auth"
	"jobtrack/internal/http/respond"
	"jobtrack/internal/tracking"

	"github.com/go-chi/chi/v5"
)

// TrackingHandler carries the write path: status transitions, field
// patches, deletion.
type TrackingHandler struct {
	Svc *tracking.Service
}

type setStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// SetStatus is PUT /tracked-applications/{jobId}/status. First touch
// creates the row implicitly.
func (h *TrackingHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	jobID, err := strconv.ParseUint(chi.URLParam(r, "jobId"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid job id")
		return
	}

	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "bad json")
		return
	}

	status, err := tracking.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
		return
	}

	app, err := h.Svc.SetStatus(r.Context(), uid, jobID, status, strings.TrimSpace(req.Notes))
	if err != nil {
		writeTrackingErr(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, app)
}

type patchReq struct {
	NextSteps      *[]string `json:"next_steps"`
	InterviewDates *[]string `json:"interview_dates"` // RFC3339
	CustomTags     *[]string `json:"custom_tags"`
	Notes          *string   `json:"notes"`
	IsFavorite     *bool     `json:"is_favorite"`
	ReminderDate   *string   `json:"reminder_date"` // RFC3339, "" clears
}

// Patch is PATCH /tracked-applications/{id}. Every provided field replaces
// the stored value wholesale; list fields are last-write-wins.
func (h *TrackingHandler) Patch(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid id")
		return
	}

	var req patchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "bad json")
		return
	}

	patch := tracking.FieldPatch{
		NextSteps:  req.NextSteps,
		CustomTags: req.CustomTags,
		Notes:      req.Notes,
		IsFavorite: req.IsFavorite,
	}

	if req.InterviewDates != nil {
		dates := make([]time.Time, 0, len(*req.InterviewDates))
		for _, raw := range *req.InterviewDates {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid interview date (RFC3339)")
				return
			}
			dates = append(dates, t)
		}
		patch.InterviewDates = &dates
	}

	if req.ReminderDate != nil {
		if strings.TrimSpace(*req.ReminderDate) == "" {
			patch.ClearReminder = true
		} else {
			t, err := time.Parse(time.RFC3339, *req.ReminderDate)
			if err != nil {
				respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid reminder_date (RFC3339)")
				return
			}
			patch.ReminderDate = &t
		}
	}

	app, err := h.Svc.PatchFields(r.Context(), uid, id, patch)
	if err != nil {
		writeTrackingErr(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, app)
}

// Delete is DELETE /tracked-applications/{id}; history cascades.
func (h *TrackingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, "invalid id")
		return
	}

	if err := h.Svc.Delete(r.Context(), uid, id); err != nil {
		writeTrackingErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTrackingErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracking.ErrNotFound), errors.Is(err, tracking.ErrJobNotFound):
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, err.Error())
	case errors.Is(err, tracking.ErrInvalidStatus):
		respond.Error(w, http.StatusBadRequest, respond.CodeValidation, err.Error())
	default:
		respond.Error(w, http.StatusInternalServerError, respond.CodeUnknown, "server error")
	}
}
