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

type timeOffService interface {
	CreateTimeOff(ctx context.Context, therapistID string, input application.TimeOffInput) (application.OccurrenceView, error)
	ListTimeOff(ctx context.Context, therapistID string, rng application.ListRange) ([]application.OccurrenceView, error)
	UpdateTimeOff(ctx context.Context, therapistID, occurrenceID string, input application.OccurrenceUpdateInput) (application.OccurrenceView, error)
	DeleteTimeOff(ctx context.Context, therapistID, occurrenceID string, scope application.DeleteScope) error
}

type TimeOffHandler struct {
	service   timeOffService
	tz        *timezone.Converter
	responder responder
}

func NewTimeOffHandler(service timeOffService, tz *timezone.Converter, logger *slog.Logger) *TimeOffHandler {
	return &TimeOffHandler{service: service, tz: tz, responder: newResponder(logger)}
}

type timeOffRequest struct {
	StartsAt string         `json:"starts_at"`
	EndsAt   string         `json:"ends_at"`
	Note     string         `json:"note"`
	Repeat   *repeatRequest `json:"repeat"`
}

func (req timeOffRequest) toInput() (application.TimeOffInput, error) {
	startsAt, err := parseLocalTime(req.StartsAt)
	if err != nil {
		return application.TimeOffInput{}, err
	}
	endsAt, err := parseLocalTime(req.EndsAt)
	if err != nil {
		return application.TimeOffInput{}, err
	}
	repeat, err := req.Repeat.toSpec()
	if err != nil {
		return application.TimeOffInput{}, err
	}
	return application.TimeOffInput{
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Note:     req.Note,
		Repeat:   repeat,
	}, nil
}

type occurrenceUpdateRequest struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Note     string `json:"note"`
}

func (req occurrenceUpdateRequest) toInput() (application.OccurrenceUpdateInput, error) {
	startsAt, err := parseLocalTime(req.StartsAt)
	if err != nil {
		return application.OccurrenceUpdateInput{}, err
	}
	endsAt, err := parseLocalTime(req.EndsAt)
	if err != nil {
		return application.OccurrenceUpdateInput{}, err
	}
	return application.OccurrenceUpdateInput{
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Note:     req.Note,
	}, nil
}

func (h *TimeOffHandler) Create(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	var req timeOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.CreateTimeOff(r.Context(), therapistID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newOccurrenceDTO(view, h.tz))
}

func (h *TimeOffHandler) List(w http.ResponseWriter, r *http.Request) {
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

	views, err := h.service.ListTimeOff(r.Context(), therapistID, rng)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newOccurrenceDTOs(views, h.tz))
}

func (h *TimeOffHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	view, err := h.service.UpdateTimeOff(r.Context(), therapistID, occurrenceID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newOccurrenceDTO(view, h.tz))
}

func (h *TimeOffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	occurrenceID := strings.TrimSpace(chi.URLParam(r, "occurrenceID"))
	if therapistID == "" || occurrenceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidOccurrence)
		return
	}

	scope := application.DeleteScope(strings.TrimSpace(r.URL.Query().Get("scope")))
	if err := h.service.DeleteTimeOff(r.Context(), therapistID, occurrenceID, scope); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
