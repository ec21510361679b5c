package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/diwise/alarm-mgmt/internal/pkg/application/alarms"
	"github.com/diwise/alarm-mgmt/internal/pkg/domain/severity"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database"
	db "github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database/alarms"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/router"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/tracing"
	"github.com/diwise/alarm-mgmt/internal/pkg/presentation/api"
)

const serviceName string = "alarm-mgmt"

var severitiesFile string

func main() {
	serviceVersion := buildinfo.SourceVersion()

	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion)
	logging.SetLevel(env.GetVariableOrDefault(logger, "LOG_LEVEL", "info"))
	logger.Info().Msg("starting up ...")

	flag.StringVar(&severitiesFile, "severities", env.GetVariableOrDefault(logger, "SEVERITIES_FILE", ""), "yaml file with severity levels and tiers")
	flag.Parse()

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer cleanup()

	severities, err := loadSeverities(severitiesFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load severities")
	}

	repo, err := db.NewAlarmRepository(newConnector(ctx, logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create alarm repository")
	}

	var messenger messaging.MsgContext
	if env.GetVariableOrDefault(logger, "RABBITMQ_DISABLED", "false") != "true" {
		messenger, err = messaging.Initialize(messaging.LoadConfiguration(serviceName, logger))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init messenger")
		}
		defer messenger.Close()
	}

	svc := newAlarmService(logger, repo, severities, messenger)

	if messenger != nil {
		alarms.RegisterTopicMessageHandler(messenger, svc)
	}

	r := setupRouter(ctx, svc)

	servicePort := env.GetVariableOrDefault(logger, "SERVICE_PORT", "8080")
	logger.Info().Str("port", servicePort).Msg("starting to listen for connections")

	err = http.ListenAndServe(":"+servicePort, r)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to listen for connections")
	}
}

func newConnector(ctx context.Context, logger zerolog.Logger) database.ConnectorFunc {
	cfg := database.LoadConfigFromEnv(ctx)
	if cfg.Host == "" {
		logger.Warn().Msg("no database host configured, using an in-memory database")
		return database.NewSQLiteConnector(ctx)
	}
	return database.NewPostgreSQLConnector(ctx, cfg)
}

func newAlarmService(logger zerolog.Logger, repo db.AlarmRepository, severities severity.Model, messenger messaging.MsgContext) alarms.AlarmService {
	cfg := alarms.DefaultConfig()

	attempts := env.GetVariableOrDefault(logger, "MAX_UPDATE_ATTEMPTS", strconv.Itoa(cfg.MaxAttempts))
	if n, err := strconv.Atoi(attempts); err == nil && n > 0 {
		cfg.MaxAttempts = n
	} else {
		logger.Warn().Msgf("ignoring invalid MAX_UPDATE_ATTEMPTS %q", attempts)
	}

	var publisher alarms.Publisher
	if messenger != nil {
		publisher = messenger
	}

	return alarms.New(repo, severities, publisher, cfg)
}

func loadSeverities(path string) (severity.Model, error) {
	if path == "" {
		return severity.Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open severities file: %w", err)
	}
	defer f.Close()

	cfg, err := severity.LoadConfiguration(f)
	if err != nil {
		return nil, err
	}

	return severity.New(*cfg)
}

func setupRouter(ctx context.Context, svc alarms.AlarmService) *chi.Mux {
	r := router.New(serviceName)
	return api.RegisterHandlers(ctx, r, svc)
}
