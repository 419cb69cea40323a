package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dom/athlete-log/internal/api/middleware"
	"github.com/dom/athlete-log/internal/domain"
	"github.com/dom/athlete-log/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activityService *service.ActivityService
	logger          *zap.Logger
}

func NewActivityHandler(activityService *service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, logger: logger}
}

// flexValue accepts a JSON string, number or null and keeps its text form, so
// the domain parser sees exactly what the client sent.
type flexValue string

func (v *flexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = flexValue(s)
		return nil
	}
	*v = flexValue(data)
	return nil
}

type ActivityRequest struct {
	Date         flexValue `json:"date"`
	ActivityType flexValue `json:"activityType"`
	Distance     flexValue `json:"distance"`
	Time         flexValue `json:"time"`
	Calories     flexValue `json:"calories"`
}

func (req ActivityRequest) input() domain.ActivityInput {
	return domain.ActivityInput{
		Date:         string(req.Date),
		ActivityType: string(req.ActivityType),
		Distance:     string(req.Distance),
		Time:         string(req.Time),
		Calories:     string(req.Calories),
	}
}

type ActivityResponse struct {
	Activity *domain.ActivityRecord `json:"activity"`
	Warnings []domain.FieldIssue    `json:"warnings"`
}

func newActivityResponse(record *domain.ActivityRecord, issues []domain.FieldIssue) ActivityResponse {
	if issues == nil {
		issues = []domain.FieldIssue{}
	}
	return ActivityResponse{Activity: record, Warnings: issues}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.activityService.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing activities failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*domain.ActivityRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (h *ActivityHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, issues, err := h.activityService.Create(r.Context(), userID, req.input())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newActivityResponse(record, issues))
}

func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, activityID, ok := h.ids(w, r)
	if !ok {
		return
	}

	record, err := h.activityService.Get(r.Context(), userID, activityID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *ActivityHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, activityID, ok := h.ids(w, r)
	if !ok {
		return
	}

	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, issues, err := h.activityService.Update(r.Context(), userID, activityID, req.input())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newActivityResponse(record, issues))
}

func (h *ActivityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, activityID, ok := h.ids(w, r)
	if !ok {
		return
	}

	if err := h.activityService.Delete(r.Context(), userID, activityID); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ActivityHandler) ids(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}

	activityID, ok := parseUUID(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "Invalid activity ID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, activityID, true
}

func (h *ActivityHandler) writeError(w http.ResponseWriter, err error) {
	var inputErr *domain.InputError
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "Invalid activity input",
			Issues: inputErr.Issues,
		})
	case errors.Is(err, domain.ErrActivityNotFound):
		http.Error(w, "Activity not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrNotOwner):
		http.Error(w, "You can only delete your own activities", http.StatusForbidden)
	default:
		h.logger.Error("activity request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
