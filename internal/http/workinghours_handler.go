package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/therapist-scheduler/internal/application"
	"github.com/example/therapist-scheduler/internal/timezone"
)

type workingHoursService interface {
	CreateWorkingHours(ctx context.Context, therapistID string, input application.WorkingHoursInput) (application.OccurrenceView, error)
	ListWorkingHours(ctx context.Context, therapistID string, rng application.ListRange) ([]application.OccurrenceView, error)
	UpdateWorkingHours(ctx context.Context, therapistID, occurrenceID string, input application.OccurrenceUpdateInput) (application.OccurrenceView, error)
	DeleteWorkingHours(ctx context.Context, therapistID, occurrenceID string, scope application.DeleteScope) error
}

type WorkingHoursHandler struct {
	service   workingHoursService
	tz        *timezone.Converter
	responder responder
}

func NewWorkingHoursHandler(service workingHoursService, tz *timezone.Converter, logger *slog.Logger) *WorkingHoursHandler {
	return &WorkingHoursHandler{service: service, tz: tz, responder: newResponder(logger)}
}

type workingHoursRequest struct {
	Weekday  *int           `json:"weekday"`
	StartsAt string         `json:"starts_at"`
	EndsAt   string         `json:"ends_at"`
	Repeat   *repeatRequest `json:"repeat"`
}

func (req workingHoursRequest) toInput() (application.WorkingHoursInput, error) {
	startsAt, err := parseLocalTime(req.StartsAt)
	if err != nil {
		return application.WorkingHoursInput{}, err
	}
	endsAt, err := parseLocalTime(req.EndsAt)
	if err != nil {
		return application.WorkingHoursInput{}, err
	}
	repeat, err := req.Repeat.toSpec()
	if err != nil {
		return application.WorkingHoursInput{}, err
	}
	return application.WorkingHoursInput{
		Weekday:  req.Weekday,
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Repeat:   repeat,
	}, nil
}

func (h *WorkingHoursHandler) Create(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	var req workingHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.CreateWorkingHours(r.Context(), therapistID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newOccurrenceDTO(view, h.tz))
}

func (h *WorkingHoursHandler) List(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	rng, err := parseRangeQuery(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	views, err := h.service.ListWorkingHours(r.Context(), therapistID, rng)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newOccurrenceDTOs(views, h.tz))
}

func (h *WorkingHoursHandler) Update(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	occurrenceID := strings.TrimSpace(chi.URLParam(r, "occurrenceID"))
	if therapistID == "" || occurrenceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOccurrence)
		return
	}

	var req occurrenceUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.UpdateWorkingHours(r.Context(), therapistID, occurrenceID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newOccurrenceDTO(view, h.tz))
}

func (h *WorkingHoursHandler) Delete(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	occurrenceID := strings.TrimSpace(chi.URLParam(r, "occurrenceID"))
	if therapistID == "" || occurrenceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOccurrence)
		return
	}

	scope := application.DeleteScope(strings.TrimSpace(r.URL.Query().Get("scope")))
	if err := h.service.DeleteWorkingHours(r.Context(), therapistID, occurrenceID, scope); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
