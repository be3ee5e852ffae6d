package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/therapist-scheduler/internal/application"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers, clocks, and timezone conversion.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Converter   *timezone.Converter
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Converter == nil {
		factory.Converter = timezone.NewConverter(timezone.DefaultName, nil)
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithConverter overrides the timezone converter used by the factory.
func WithConverter(converter *timezone.Converter) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Converter = converter
	}
}

// TherapistServiceDeps captures dependencies for a therapist service.
type TherapistServiceDeps struct {
	Therapists      application.TherapistStore
	DefaultTimezone string
	IDGenerator     func() string
	Now             func() time.Time
	Logger          *slog.Logger
}

// NewTherapistService builds a therapist service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewTherapistService(deps TherapistServiceDeps) *application.TherapistService {
	if deps.DefaultTimezone == "" {
		deps.DefaultTimezone = timezone.DefaultName
	}
	return application.NewTherapistService(
		deps.Therapists,
		deps.DefaultTimezone,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// MaterializerDeps captures dependencies for a materializer service.
type MaterializerDeps struct {
	Therapists  application.TherapistDirectory
	Rules       application.RuleSource
	Occurrences application.OccurrenceWriter
	IDGenerator func() string
	Now         func() time.Time
	HorizonDays int
	Logger      *slog.Logger
}

// NewMaterializerService builds a materializer using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewMaterializerService(deps MaterializerDeps) *application.MaterializerService {
	return application.NewMaterializerService(
		deps.Therapists,
		deps.Rules,
		deps.Occurrences,
		f.Converter,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.HorizonDays,
		deps.Logger,
	)
}

// CalendarServiceDeps captures the shared dependencies of the time-off and
// working-hours services.
type CalendarServiceDeps struct {
	Therapists   application.TherapistDirectory
	Rules        application.RuleStore
	Occurrences  application.OccurrenceStore
	Materializer application.Materializer
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewTimeOffService builds a time-off service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewTimeOffService(deps CalendarServiceDeps) *application.TimeOffService {
	return application.NewTimeOffService(
		deps.Therapists,
		deps.Rules,
		deps.Occurrences,
		deps.Materializer,
		f.Converter,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// NewWorkingHoursService builds a working-hours service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewWorkingHoursService(deps CalendarServiceDeps) *application.WorkingHoursService {
	return application.NewWorkingHoursService(
		deps.Therapists,
		deps.Rules,
		deps.Occurrences,
		deps.Materializer,
		f.Converter,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

// AvailabilityServiceDeps captures dependencies for an availability service.
type AvailabilityServiceDeps struct {
	Therapists   application.TherapistDirectory
	Occurrences  application.OccurrenceReader
	Appointments application.AppointmentSource
	Materializer application.Materializer
	MaxRangeDays int
	Logger       *slog.Logger
}

// NewAvailabilityService builds an availability service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewAvailabilityService(deps AvailabilityServiceDeps) *application.AvailabilityService {
	return application.NewAvailabilityService(
		deps.Therapists,
		deps.Occurrences,
		deps.Appointments,
		deps.Materializer,
		f.Converter,
		deps.MaxRangeDays,
		deps.Logger,
	)
}

// AppointmentServiceDeps captures dependencies for an appointment service.
type AppointmentServiceDeps struct {
	Therapists   application.TherapistDirectory
	Appointments application.AppointmentStore
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// NewAppointmentService builds an appointment service using the supplied
// dependencies combined with the factory defaults.
func (f *ServiceFactory) NewAppointmentService(deps AppointmentServiceDeps) *application.AppointmentService {
	return application.NewAppointmentService(
		deps.Therapists,
		deps.Appointments,
		f.Converter,
		f.idGen(deps.IDGenerator),
		f.now(deps.Now),
		deps.Logger,
	)
}

func (f *ServiceFactory) idGen(override func() string) func() string {
	if override != nil {
		return override
	}
	return f.IDGenerator.NextFunc()
}

func (f *ServiceFactory) now(override func() time.Time) func() time.Time {
	if override != nil {
		return override
	}
	return f.Clock.NowFunc()
}
