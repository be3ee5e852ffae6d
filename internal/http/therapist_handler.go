package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/therapist-scheduler/internal/application"
)

type therapistService interface {
	CreateTherapist(ctx context.Context, input application.TherapistInput) (application.TherapistView, error)
	UpdateTherapist(ctx context.Context, id string, input application.TherapistInput) (application.TherapistView, error)
	GetTherapist(ctx context.Context, id string) (application.TherapistView, error)
	ListTherapists(ctx context.Context) ([]application.TherapistView, error)
}

type TherapistHandler struct {
	service   therapistService
	responder responder
}

func NewTherapistHandler(service therapistService, logger *slog.Logger) *TherapistHandler {
	return &TherapistHandler{service: service, responder: newResponder(logger)}
}

type therapistRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

func (req therapistRequest) toInput() application.TherapistInput {
	return application.TherapistInput{Name: req.Name, Timezone: req.Timezone}
}

func (h *TherapistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req therapistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	view, err := h.service.CreateTherapist(r.Context(), req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, newTherapistDTO(view))
}

func (h *TherapistHandler) Update(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	var req therapistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	view, err := h.service.UpdateTherapist(r.Context(), therapistID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newTherapistDTO(view))
}

func (h *TherapistHandler) Get(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	view, err := h.service.GetTherapist(r.Context(), therapistID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, newTherapistDTO(view))
}

func (h *TherapistHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListTherapists(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]therapistDTO, 0, len(views))
	for _, view := range views {
		dtos = append(dtos, newTherapistDTO(view))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dtos)
}
