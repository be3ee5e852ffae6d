package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/therapist-scheduler/internal/application"
	"github.com/example/therapist-scheduler/internal/config"
	httptransport "github.com/example/therapist-scheduler/internal/http"
	"github.com/example/therapist-scheduler/internal/persistence/sqlite"
	"github.com/example/therapist-scheduler/internal/timezone"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close store", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           buildHandler(cfg, store, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// buildHandler wires the application services over the store and returns the
// HTTP entrypoint.
func buildHandler(cfg config.Config, store *sqlite.Store, logger *slog.Logger) http.Handler {
	idGenerator := uuid.NewString
	now := time.Now
	converter := timezone.NewConverter(cfg.DefaultTimezone, logger)

	materializer := application.NewMaterializerService(
		store.Therapists, store.Rules, store.Occurrences,
		converter, idGenerator, now, cfg.HorizonDays, logger,
	)
	therapistService := application.NewTherapistService(
		store.Therapists, cfg.DefaultTimezone, idGenerator, now, logger,
	)
	timeOffService := application.NewTimeOffService(
		store.Therapists, store.Rules, store.Occurrences, materializer,
		converter, idGenerator, now, logger,
	)
	workingHoursService := application.NewWorkingHoursService(
		store.Therapists, store.Rules, store.Occurrences, materializer,
		converter, idGenerator, now, logger,
	)
	availabilityService := application.NewAvailabilityService(
		store.Therapists, store.Occurrences, store.Appointments, materializer,
		converter, cfg.MaxRangeDays, logger,
	)
	appointmentService := application.NewAppointmentService(
		store.Therapists, store.Appointments, converter, idGenerator, now, logger,
	)

	return httptransport.NewRouter(httptransport.RouterConfig{
		Therapists:   httptransport.NewTherapistHandler(therapistService, logger),
		TimeOff:      httptransport.NewTimeOffHandler(timeOffService, converter, logger),
		WorkingHours: httptransport.NewWorkingHoursHandler(workingHoursService, converter, logger),
		Availability: httptransport.NewAvailabilityHandler(availabilityService, converter, logger),
		Appointments: httptransport.NewAppointmentHandler(appointmentService, converter, logger),
		Logger:       logger,
	})
}
