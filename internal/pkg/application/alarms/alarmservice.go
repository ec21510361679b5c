package alarms

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/moby/locker"
	"github.com/samber/lo"

	"github.com/diwise/alarm-mgmt/internal/pkg/domain/correlation"
	"github.com/diwise/alarm-mgmt/internal/pkg/domain/severity"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	db "github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database/alarms"
	"github.com/diwise/alarm-mgmt/pkg/types"
)

var (
	ErrInvalidSeverity          = errors.New("invalid severity")
	ErrInvalidEvent             = errors.New("invalid event")
	ErrInvalidStatus            = errors.New("invalid status")
	ErrAlarmNotFound            = errors.New("alarm not found")
	ErrConcurrentUpdateExceeded = errors.New("concurrent update retries exceeded")
)

// errConflict signals a lost optimistic-concurrency race and triggers a retry.
var errConflict = errors.New("conflicting update")

type AlarmService interface {
	Ingest(ctx context.Context, e types.Event) (types.Alarm, bool, error)
	SetStatus(ctx context.Context, alarmID, status, text string) (types.Alarm, error)
	GetAlarm(ctx context.Context, alarmID string) (types.Alarm, error)
	Query(ctx context.Context, conditions ...db.ConditionFunc) (types.Collection[types.Alarm], error)
}

//go:generate moq -rm -out alarmstore_mock.go . AlarmStore

type AlarmStore interface {
	FindGroup(ctx context.Context, environment, resource, event string, correlate []string) ([]types.Alarm, error)
	Create(ctx context.Context, alarm types.Alarm) (bool, error)
	AtomicUpdate(ctx context.Context, alarmID string, expectedVersion uint64, alarm types.Alarm) (bool, error)
	GetByID(ctx context.Context, alarmID string) (types.Alarm, error)
	Query(ctx context.Context, conditions ...db.ConditionFunc) (types.Collection[types.Alarm], error)
}

type Publisher interface {
	PublishOnTopic(ctx context.Context, message messaging.TopicMessage) error
}

type Config struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		RetryDelay:  10 * time.Millisecond,
	}
}

type alarmSvc struct {
	storage    AlarmStore
	severities severity.Model
	machine    StateMachine
	publisher  Publisher
	locks      *locker.Locker
	cfg        Config
	now        func() time.Time
}

// New creates the alarm service. The publisher may be nil, in which case no
// messages are published.
func New(s AlarmStore, severities severity.Model, p Publisher, cfg Config) AlarmService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}

	return &alarmSvc{
		storage:    s,
		severities: severities,
		machine:    NewStateMachine(severities),
		publisher:  p,
		locks:      locker.New(),
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (svc *alarmSvc) Ingest(ctx context.Context, e types.Event) (types.Alarm, bool, error) {
	logger := logging.GetLoggerFromContext(ctx)

	e, err := svc.validate(e)
	if err != nil {
		return types.Alarm{}, false, err
	}

	unlock := svc.lock(e.Environment, e.Resource)
	defer unlock()

	var result types.Alarm
	var verdict correlation.Verdict

	err = svc.retry(ctx, func() error {
		candidates, err := svc.storage.FindGroup(ctx, e.Environment, e.Resource, e.Event, e.Correlate)
		if err != nil {
			return err
		}

		verdict = correlation.Resolve(e, candidates)

		next, err := svc.machine.Apply(verdict, e, svc.now())
		if err != nil {
			return err
		}

		var ok bool
		if verdict.Outcome == correlation.NewGroup {
			ok, err = svc.storage.Create(ctx, next)
		} else {
			ok, err = svc.storage.AtomicUpdate(ctx, next.ID, verdict.Existing.Version, next)
			next.Version = verdict.Existing.Version + 1
		}
		if err != nil {
			return err
		}
		if !ok {
			logger.Debug().Msgf("conflict while storing %s for %s/%s, retrying", verdict.Outcome, e.Resource, e.Event)
			return errConflict
		}

		result = next
		return nil
	})
	if err != nil {
		return types.Alarm{}, false, err
	}

	created := verdict.Outcome == correlation.NewGroup

	logger.Debug().
		Str("alarm_id", result.ID).
		Str("verdict", verdict.Outcome.String()).
		Str("status", result.Status).
		Str("trend", result.TrendIndication).
		Msgf("processed %s event for %s", result.Severity, result.Resource)

	if created {
		logger.Info().Str("alarm_id", result.ID).Msgf("new alarm %s for %s in %s", result.Event, result.Resource, result.Environment)
		svc.publish(ctx, &types.AlarmCreated{Alarm: result, Timestamp: result.LastReceiveTime})
	} else {
		svc.publish(ctx, &types.AlarmUpdated{
			Alarm:     result,
			Duplicate: verdict.Outcome == correlation.ExactDuplicate,
			Timestamp: result.LastReceiveTime,
		})
	}

	return result, created, nil
}

func (svc *alarmSvc) SetStatus(ctx context.Context, alarmID, status, text string) (types.Alarm, error) {
	logger := logging.GetLoggerFromContext(ctx)

	status = strings.ToLower(strings.TrimSpace(status))
	if !isValidStatus(status) {
		return types.Alarm{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := svc.GetAlarm(ctx, alarmID)
	if err != nil {
		return types.Alarm{}, err
	}

	unlock := svc.lock(current.Environment, current.Resource)
	defer unlock()

	var result types.Alarm
	var previous string

	err = svc.retry(ctx, func() error {
		existing, err := svc.GetAlarm(ctx, alarmID)
		if err != nil {
			return err
		}

		next, err := svc.machine.SetStatus(existing, status, text, svc.now())
		if err != nil {
			return err
		}

		ok, err := svc.storage.AtomicUpdate(ctx, alarmID, existing.Version, next)
		if err != nil {
			return err
		}
		if !ok {
			return errConflict
		}

		next.Version = existing.Version + 1
		previous = existing.Status
		result = next
		return nil
	})
	if err != nil {
		return types.Alarm{}, err
	}

	logger.Info().Str("alarm_id", alarmID).Msgf("status changed from %s to %s", previous, status)

	svc.publish(ctx, &types.AlarmStatusChanged{
		ID:        alarmID,
		Status:    status,
		Previous:  previous,
		Text:      text,
		Timestamp: svc.now(),
	})

	return result, nil
}

func (svc *alarmSvc) GetAlarm(ctx context.Context, alarmID string) (types.Alarm, error) {
	alarm, err := svc.storage.GetByID(ctx, alarmID)
	if err != nil {
		if errors.Is(err, db.ErrAlarmNotFound) {
			return types.Alarm{}, fmt.Errorf("%w: %s", ErrAlarmNotFound, alarmID)
		}
		return types.Alarm{}, err
	}

	return alarm, nil
}

func (svc *alarmSvc) Query(ctx context.Context, conditions ...db.ConditionFunc) (types.Collection[types.Alarm], error) {
	return svc.storage.Query(ctx, conditions...)
}

// retry runs operation until it succeeds, fails with anything but a
// conflict, or runs out of attempts.
func (svc *alarmSvc) retry(ctx context.Context, operation func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(svc.cfg.RetryDelay), uint64(svc.cfg.MaxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}

		err := operation()
		if err != nil && !errors.Is(err, errConflict) {
			return backoff.Permanent(err)
		}

		return err
	}, policy)

	if errors.Is(err, errConflict) {
		return ErrConcurrentUpdateExceeded
	}

	return err
}

// lock serializes transitions for one (environment, resource) within this
// process. Writers in other processes are handled by the versioned update.
func (svc *alarmSvc) lock(environment, resource string) func() {
	key := environment + "\x00" + resource
	svc.locks.Lock(key)
	return func() {
		_ = svc.locks.Unlock(key)
	}
}

func (svc *alarmSvc) publish(ctx context.Context, msg messaging.TopicMessage) {
	if svc.publisher == nil {
		return
	}

	err := svc.publisher.PublishOnTopic(ctx, msg)
	if err != nil {
		logger := logging.GetLoggerFromContext(ctx)
		logger.Error().Err(err).Msgf("failed to publish %s", msg.TopicName())
	}
}

func (svc *alarmSvc) validate(e types.Event) (types.Event, error) {
	e.Environment = strings.TrimSpace(e.Environment)
	e.Resource = strings.TrimSpace(e.Resource)
	e.Event = strings.TrimSpace(e.Event)
	e.Severity = strings.ToLower(strings.TrimSpace(e.Severity))

	required := []lo.Tuple2[string, string]{
		lo.T2("environment", e.Environment),
		lo.T2("resource", e.Resource),
		lo.T2("event", e.Event),
		lo.T2("severity", e.Severity),
	}
	missing := lo.FilterMap(required, func(t lo.Tuple2[string, string], _ int) (string, bool) {
		return t.A, t.B == ""
	})
	if len(missing) > 0 {
		return e, fmt.Errorf("%w: missing %s", ErrInvalidEvent, strings.Join(missing, ", "))
	}

	if !svc.severities.IsValid(e.Severity) {
		return e, fmt.Errorf("%w: %q", ErrInvalidSeverity, e.Severity)
	}

	for k, v := range e.Attributes {
		if !isScalar(v) {
			return e, fmt.Errorf("%w: attribute %s is not a scalar", ErrInvalidEvent, k)
		}
	}

	nonEmpty := func(s []string) []string {
		return lo.Uniq(lo.Filter(lo.Map(s, func(v string, _ int) string { return strings.TrimSpace(v) }),
			func(v string, _ int) bool { return v != "" }))
	}

	e.Correlate = nonEmpty(e.Correlate)
	e.Service = nonEmpty(e.Service)
	e.Tags = nonEmpty(e.Tags)

	return e, nil
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}
