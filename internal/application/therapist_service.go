package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
)

// TherapistStore exposes the therapist persistence operations.
type TherapistStore interface {
	CreateTherapist(ctx context.Context, therapist persistence.Therapist) error
	UpdateTherapist(ctx context.Context, therapist persistence.Therapist) error
	GetTherapist(ctx context.Context, id string) (persistence.Therapist, error)
	ListTherapists(ctx context.Context) ([]persistence.Therapist, error)
}

// TherapistService manages therapist registration.
type TherapistService struct {
	therapists      TherapistStore
	defaultTimezone string
	idGenerator     func() string
	now             func() time.Time
	logger          *slog.Logger
}

// NewTherapistService constructs a therapist service. defaultTimezone is
// assigned to therapists registered without one.
func NewTherapistService(
	therapists TherapistStore,
	defaultTimezone string,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *TherapistService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TherapistService{
		therapists:      therapists,
		defaultTimezone: defaultTimezone,
		idGenerator:     idGenerator,
		now:             now,
		logger:          defaultLogger(logger),
	}
}

func (s *TherapistService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TherapistService", operation, attrs...)
}

// CreateTherapist registers a therapist. An empty timezone falls back to
// the configured default; a non-empty one must be a known IANA name.
func (s *TherapistService) CreateTherapist(ctx context.Context, input TherapistInput) (view TherapistView, err error) {
	logger := s.loggerWith(ctx, "CreateTherapist")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create therapist", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("therapist_id", view.ID).InfoContext(ctx, "therapist created")
	}()

	tzName, vErr := s.validateInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	therapist := persistence.Therapist{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(input.Name),
		Timezone:  tzName,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if err = s.therapists.CreateTherapist(ctx, therapist); err != nil {
		err = mapRepoError(err)
		return
	}
	view = newTherapistView(therapist)
	return
}

// UpdateTherapist rewrites a therapist's name and timezone. A timezone
// change affects how future ranges are interpreted; already materialized
// occurrences keep their UTC instants.
func (s *TherapistService) UpdateTherapist(ctx context.Context, id string, input TherapistInput) (view TherapistView, err error) {
	logger := s.loggerWith(ctx, "UpdateTherapist", "therapist_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update therapist", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "therapist updated")
	}()

	tzName, vErr := s.validateInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	therapist, err := s.therapists.GetTherapist(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	therapist.Name = strings.TrimSpace(input.Name)
	therapist.Timezone = tzName
	therapist.UpdatedAt = s.now().UTC()

	if err = s.therapists.UpdateTherapist(ctx, therapist); err != nil {
		err = mapRepoError(err)
		return
	}
	view = newTherapistView(therapist)
	return
}

// GetTherapist returns a single therapist.
func (s *TherapistService) GetTherapist(ctx context.Context, id string) (view TherapistView, err error) {
	logger := s.loggerWith(ctx, "GetTherapist", "therapist_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to get therapist", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	therapist, err := s.therapists.GetTherapist(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	view = newTherapistView(therapist)
	return
}

// ListTherapists returns every registered therapist.
func (s *TherapistService) ListTherapists(ctx context.Context) (views []TherapistView, err error) {
	logger := s.loggerWith(ctx, "ListTherapists")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list therapists", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	therapists, err := s.therapists.ListTherapists(ctx)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	views = make([]TherapistView, 0, len(therapists))
	for _, therapist := range therapists {
		views = append(views, newTherapistView(therapist))
	}
	return
}

func (s *TherapistService) validateInput(input TherapistInput) (string, *ValidationError) {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}

	tzName := strings.TrimSpace(input.Timezone)
	if tzName == "" {
		tzName = s.defaultTimezone
	} else if _, locErr := time.LoadLocation(tzName); locErr != nil {
		vErr.add("timezone", "timezone must be a valid IANA timezone name")
	}
	return tzName, vErr
}
