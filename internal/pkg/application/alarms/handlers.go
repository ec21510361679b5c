package alarms

import (
	"context"
	"encoding/json"

	"github.com/diwise/messaging-golang/pkg/messaging"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/tracing"
	"github.com/diwise/alarm-mgmt/pkg/types"
)

const IncomingTopic = "alarms.incoming"

var tracer = otel.Tracer("alarm-mgmt/alarms")

func RegisterTopicMessageHandler(messenger messaging.MsgContext, svc AlarmService) {
	messenger.RegisterTopicMessageHandler(IncomingTopic, NewIncomingEventHandler(svc))
}

// NewIncomingEventHandler feeds events received on the bus through the same
// pipeline as the HTTP API. Invalid messages are logged and dropped.
func NewIncomingEventHandler(svc AlarmService) messaging.TopicMessageHandler {
	return func(ctx context.Context, msg amqp.Delivery, logger zerolog.Logger) {
		var err error

		ctx, span := tracer.Start(ctx, "incoming-event")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		if traceID := tracing.ExtractTraceID(span); traceID != "" {
			logger = logger.With().Str("traceID", traceID).Logger()
		}
		ctx = logging.NewContextWithLogger(ctx, logger)

		e := types.Event{}

		err = json.Unmarshal(msg.Body, &e)
		if err != nil {
			logger.Error().Err(err).Msgf("failed to unmarshal message from %s", msg.RoutingKey)
			return
		}

		logger = logger.With().Str("resource", e.Resource).Str("event", e.Event).Logger()

		alarm, created, err := svc.Ingest(ctx, e)
		if err != nil {
			logger.Error().Err(err).Msg("could not process incoming event")
			return
		}

		logger.Debug().Str("alarm_id", alarm.ID).Bool("created", created).Msgf("%s handled", msg.RoutingKey)
	}
}
