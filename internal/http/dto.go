package http

import (
	"net/url"
	"strings"
	"time"

	"github.com/example/therapist-scheduler/internal/application"
	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/scheduler"
	"github.com/example/therapist-scheduler/internal/timezone"
)

func persistenceCadence(value string) persistence.Cadence {
	return persistence.Cadence(strings.ToLower(strings.TrimSpace(value)))
}

// localTimeLayouts are the accepted request datetime forms. Values are
// wall-clock times in the therapist's timezone; an RFC 3339 offset is
// accepted but not used for conversion.
var localTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

func parseLocalTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range localTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidDateTime
}

func formatLocal(t time.Time, tzName string, tz *timezone.Converter) string {
	return tz.FromUTC(t, tzName).Format(time.RFC3339)
}

// parseRangeQuery reads the optional start and end query parameters.
func parseRangeQuery(query url.Values) (application.ListRange, error) {
	var rng application.ListRange
	if raw := query.Get("start"); raw != "" {
		start, err := parseLocalTime(raw)
		if err != nil {
			return application.ListRange{}, err
		}
		rng.Start = start
	}
	if raw := query.Get("end"); raw != "" {
		end, err := parseLocalTime(raw)
		if err != nil {
			return application.ListRange{}, err
		}
		rng.End = end
	}
	return rng, nil
}

type repeatRequest struct {
	Cadence  string `json:"cadence"`
	Interval int    `json:"interval"`
	Until    string `json:"until"`
}

func (req *repeatRequest) toSpec() (*application.RepeatSpec, error) {
	if req == nil {
		return nil, nil
	}
	spec := &application.RepeatSpec{
		Cadence:  persistenceCadence(req.Cadence),
		Interval: req.Interval,
	}
	if raw := strings.TrimSpace(req.Until); raw != "" {
		until, err := timezone.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		spec.Until = &until
	}
	return spec, nil
}

type occurrenceDTO struct {
	ID          string  `json:"id"`
	TherapistID string  `json:"therapist_id"`
	Kind        string  `json:"kind"`
	RuleID      *string `json:"rule_id,omitempty"`
	StartsAt    string  `json:"starts_at"`
	EndsAt      string  `json:"ends_at"`
	Timezone    string  `json:"timezone"`
	Note        string  `json:"note,omitempty"`
	IsRecurring bool    `json:"is_recurring"`
}

func newOccurrenceDTO(view application.OccurrenceView, tz *timezone.Converter) occurrenceDTO {
	return occurrenceDTO{
		ID:          view.ID,
		TherapistID: view.TherapistID,
		Kind:        string(view.Kind),
		RuleID:      view.RuleID,
		StartsAt:    formatLocal(view.StartsAt, view.Timezone, tz),
		EndsAt:      formatLocal(view.EndsAt, view.Timezone, tz),
		Timezone:    view.Timezone,
		Note:        view.Note,
		IsRecurring: view.IsRecurring,
	}
}

func newOccurrenceDTOs(views []application.OccurrenceView, tz *timezone.Converter) []occurrenceDTO {
	dtos := make([]occurrenceDTO, 0, len(views))
	for _, view := range views {
		dtos = append(dtos, newOccurrenceDTO(view, tz))
	}
	return dtos
}

type windowDTO struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func newWindowDTOs(windows []scheduler.Window, tzName string, tz *timezone.Converter) []windowDTO {
	dtos := make([]windowDTO, 0, len(windows))
	for _, w := range windows {
		dtos = append(dtos, windowDTO{
			StartsAt: formatLocal(w.Start, tzName, tz),
			EndsAt:   formatLocal(w.End, tzName, tz),
		})
	}
	return dtos
}

type therapistDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func newTherapistDTO(view application.TherapistView) therapistDTO {
	return therapistDTO{
		ID:        view.ID,
		Name:      view.Name,
		Timezone:  view.Timezone,
		CreatedAt: view.CreatedAt.Format(time.RFC3339),
		UpdatedAt: view.UpdatedAt.Format(time.RFC3339),
	}
}

type appointmentDTO struct {
	ID          string `json:"id"`
	TherapistID string `json:"therapist_id"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	Timezone    string `json:"timezone"`
}

func newAppointmentDTO(view application.AppointmentView, tz *timezone.Converter) appointmentDTO {
	return appointmentDTO{
		ID:          view.ID,
		TherapistID: view.TherapistID,
		StartsAt:    formatLocal(view.StartsAt, view.Timezone, tz),
		EndsAt:      formatLocal(view.EndsAt, view.Timezone, tz),
		Timezone:    view.Timezone,
	}
}
