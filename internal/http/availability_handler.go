package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/therapist-scheduler/internal/application"
	"github.com/example/therapist-scheduler/internal/timezone"
)

var errMissingRange = errors.New("start and end query parameters are required")

type availabilityService interface {
	GetAvailability(ctx context.Context, therapistID string, start, end time.Time) (application.Availability, error)
}

type AvailabilityHandler struct {
	service   availabilityService
	tz        *timezone.Converter
	responder responder
}

func NewAvailabilityHandler(service availabilityService, tz *timezone.Converter, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, tz: tz, responder: newResponder(logger)}
}

type availabilityDTO struct {
	TherapistID string      `json:"therapist_id"`
	Timezone    string      `json:"timezone"`
	RangeStart  string      `json:"range_start"`
	RangeEnd    string      `json:"range_end"`
	Available   []windowDTO `json:"available"`
	Blocked     []windowDTO `json:"blocked"`
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	therapistID := strings.TrimSpace(chi.URLParam(r, "therapistID"))
	if therapistID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTherapist)
		return
	}

	query := r.URL.Query()
	if query.Get("start") == "" || query.Get("end") == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingRange)
		return
	}
	rng, err := parseRangeQuery(query)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.GetAvailability(r.Context(), therapistID, rng.Start, rng.End)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityDTO{
		TherapistID: result.TherapistID,
		Timezone:    result.Timezone,
		RangeStart:  result.RangeStart.Format(time.RFC3339),
		RangeEnd:    result.RangeEnd.Format(time.RFC3339),
		Available:   newWindowDTOs(result.Available, result.Timezone, h.tz),
		Blocked:     newWindowDTOs(result.Blocked, result.Timezone, h.tz),
	})
}
