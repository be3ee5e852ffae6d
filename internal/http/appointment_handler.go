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

type appointmentService interface {
	CreateAppointment(ctx context.Context, therapistID string, input application.AppointmentInput) (application.AppointmentView, error)
	ListAppointments(ctx context.Context, therapistID string, rng application.ListRange) ([]application.AppointmentView, error)
}

type AppointmentHandler struct {
	service   appointmentService
	tz        *timezone.Converter
	responder responder
}

func NewAppointmentHandler(service appointmentService, tz *timezone.Converter, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, tz: tz, responder: newResponder(logger)}
}

type appointmentRequest struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func (req appointmentRequest) toInput() (application.AppointmentInput, error) {
	startsAt, err := parseLocalTime(req.StartsAt)
	if err != nil {
		return application.AppointmentInput{}, err
	}
	endsAt, err := parseLocalTime(req.EndsAt)
	if err != nil {
		return application.AppointmentInput{}, err
	}
	return application.AppointmentInput{StartsAt: startsAt, EndsAt: endsAt}, nil
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.CreateAppointment(r.Context(), therapistID, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newAppointmentDTO(view, h.tz))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
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

	views, err := h.service.ListAppointments(r.Context(), therapistID, rng)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]appointmentDTO, 0, len(views))
	for _, view := range views {
		dtos = append(dtos, newAppointmentDTO(view, h.tz))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}
