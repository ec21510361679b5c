package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/diwise/alarm-mgmt/internal/pkg/application/alarms"
	db "github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database/alarms"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/tracing"
	"github.com/diwise/alarm-mgmt/pkg/types"
)

var tracer = otel.Tracer("alarm-mgmt/api")

func RegisterHandlers(ctx context.Context, router *chi.Mux, svc alarms.AlarmService) *chi.Mux {
	log := logging.GetLoggerFromContext(ctx)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/alarms", func(r chi.Router) {
			r.Get("/", queryAlarmsHandler(log, svc))
			r.Post("/", ingestEventHandler(log, svc))
			r.Get("/{alarmID}", getAlarmHandler(log, svc))
			r.Post("/{alarmID}/status", setStatusHandler(log, svc))
		})
	})

	return router
}

func ingestEventHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "ingest-event")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		ctx, requestLogger := requestLoggerFromSpan(ctx, span, log)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		e := types.Event{}
		err = json.Unmarshal(body, &e)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to unmarshal body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		alarm, created, err := svc.Ingest(ctx, e)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to ingest event")
			w.WriteHeader(statusCodeFromError(err))
			return
		}

		writeJSON(w, requestLogger, http.StatusCreated, types.IngestResult{
			ID:      alarm.ID,
			Created: created,
			Alarm:   alarm,
		})
	}
}

func getAlarmHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-alarm")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		ctx, requestLogger := requestLoggerFromSpan(ctx, span, log)

		alarmID := chi.URLParam(r, "alarmID")
		requestLogger = requestLogger.With().Str("alarm_id", alarmID).Logger()

		alarm, err := svc.GetAlarm(ctx, alarmID)
		if err != nil {
			if errors.Is(err, alarms.ErrAlarmNotFound) {
				requestLogger.Debug().Msg("alarm not found")
			} else {
				requestLogger.Error().Err(err).Msg("unable to fetch alarm")
			}
			w.WriteHeader(statusCodeFromError(err))
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, types.AlarmResult{Alarm: alarm})
	}
}

func setStatusHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "set-alarm-status")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		ctx, requestLogger := requestLoggerFromSpan(ctx, span, log)

		alarmID := chi.URLParam(r, "alarmID")
		requestLogger = requestLogger.With().Str("alarm_id", alarmID).Logger()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		req := types.StatusRequest{}
		err = json.Unmarshal(body, &req)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to unmarshal body")
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		alarm, err := svc.SetStatus(ctx, alarmID, req.Status, req.Text)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to set status")
			w.WriteHeader(statusCodeFromError(err))
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, types.AlarmResult{Alarm: alarm})
	}
}

func queryAlarmsHandler(log zerolog.Logger, svc alarms.AlarmService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "query-alarms")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		ctx, requestLogger := requestLoggerFromSpan(ctx, span, log)

		conditions := db.ParseConditions(ctx, r.URL.Query())

		result, err := svc.Query(ctx, conditions...)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to query alarms")
			w.WriteHeader(statusCodeFromError(err))
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, result)
	}
}

func requestLoggerFromSpan(ctx context.Context, span trace.Span, log zerolog.Logger) (context.Context, zerolog.Logger) {
	requestLogger := log
	if traceID := tracing.ExtractTraceID(span); traceID != "" {
		requestLogger = log.With().Str("traceID", traceID).Logger()
	}
	return logging.NewContextWithLogger(ctx, requestLogger), requestLogger
}

func statusCodeFromError(err error) int {
	switch {
	case errors.Is(err, alarms.ErrInvalidEvent),
		errors.Is(err, alarms.ErrInvalidSeverity),
		errors.Is(err, alarms.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, alarms.ErrAlarmNotFound):
		return http.StatusNotFound
	case errors.Is(err, alarms.ErrConcurrentUpdateExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, statusCode int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("unable to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}
