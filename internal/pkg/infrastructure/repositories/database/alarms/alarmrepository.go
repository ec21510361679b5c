package alarms

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diwise/alarm-mgmt/internal/pkg/domain/correlation"
	. "github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/logging"
	"github.com/diwise/alarm-mgmt/pkg/types"
)

var ErrAlarmNotFound = fmt.Errorf("alarm not found")
var ErrNoID = errors.New("alarm contains no id")

// errStale aborts a transaction whose expected version or group state no
// longer holds. It never leaves the repository.
var errStale = errors.New("stale")

type AlarmRepository interface {
	FindGroup(ctx context.Context, environment, resource, event string, correlate []string) ([]types.Alarm, error)
	Create(ctx context.Context, alarm types.Alarm) (bool, error)
	AtomicUpdate(ctx context.Context, alarmID string, expectedVersion uint64, alarm types.Alarm) (bool, error)
	GetByID(ctx context.Context, alarmID string) (types.Alarm, error)
	Query(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Alarm], error)
}

type alarmRepository struct {
	db *gorm.DB
}

func NewAlarmRepository(connect ConnectorFunc) (AlarmRepository, error) {
	impl, err := connect()
	if err != nil {
		return nil, err
	}

	err = impl.AutoMigrate(&Alarm{}, &History{})
	if err != nil {
		return nil, err
	}

	return &alarmRepository{
		db: impl,
	}, nil
}

func withHistory(db *gorm.DB) *gorm.DB {
	return db.Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	})
}

// lockResource serializes group creation for (environment, resource) across
// processes until the surrounding transaction ends. SQLite already runs one
// writer at a time.
func lockResource(tx *gorm.DB, environment, resource string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?), hashtext(?))", environment, resource).Error
}

// findGroup does not load history, resolving a verdict only needs the alarm itself.
func findGroup(tx *gorm.DB, environment, resource, event string, correlate []string) ([]types.Alarm, error) {
	rows := []Alarm{}

	err := tx.
		Where(&Alarm{Environment: environment, Resource: resource}).
		Order("last_receive_time DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	candidates := lo.Map(rows, func(m Alarm, _ int) types.Alarm { return m.toType() })

	return lo.Filter(candidates, func(a types.Alarm, _ int) bool {
		return correlation.Matches(a, environment, resource, event, correlate)
	}), nil
}

// FindGroup returns every stored alarm for (environment, resource) whose event
// or correlate set overlaps with event and correlate. History is not loaded.
func (d *alarmRepository) FindGroup(ctx context.Context, environment, resource, event string, correlate []string) ([]types.Alarm, error) {
	return findGroup(d.db.WithContext(ctx), environment, resource, event, correlate)
}

// Create stores a new alarm unless a matching group was stored by someone
// else after the caller resolved. The boolean reports whether it was stored.
func (d *alarmRepository) Create(ctx context.Context, alarm types.Alarm) (bool, error) {
	if alarm.ID == "" {
		return false, ErrNoID
	}

	logger := logging.GetLoggerFromContext(ctx)

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := lockResource(tx, alarm.Environment, alarm.Resource)
		if err != nil {
			return err
		}

		existing, err := findGroup(tx, alarm.Environment, alarm.Resource, alarm.Event, alarm.Correlate)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errStale
		}

		m := toModel(alarm)
		return tx.Create(&m).Error
	})

	if errors.Is(err, errStale) {
		logger.Debug().Msgf("group for %s/%s/%s was created concurrently", alarm.Environment, alarm.Resource, alarm.Event)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// AtomicUpdate replaces the stored alarm with alarm if, and only if, its
// version still equals expectedVersion. History items in alarm that are not
// yet stored are appended in the same transaction, alarm may carry only the
// newest ones. The stored version is incremented.
func (d *alarmRepository) AtomicUpdate(ctx context.Context, alarmID string, expectedVersion uint64, alarm types.Alarm) (bool, error) {
	if alarmID == "" {
		return false, ErrNoID
	}

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := toModel(alarm)
		m.ID = alarmID
		m.Version = expectedVersion + 1

		result := tx.Model(&Alarm{}).
			Where("id = ? AND version = ?", alarmID, expectedVersion).
			Select("*").
			Omit("id", "create_time", clause.Associations).
			Updates(&m)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errStale
		}

		if len(m.History) == 0 {
			return nil
		}

		ids := lo.Map(m.History, func(h History, _ int) string { return h.ID })

		stored := []string{}
		err := tx.Model(&History{}).Where("alarm_id = ? AND id IN ?", alarmID, ids).Pluck("id", &stored).Error
		if err != nil {
			return err
		}

		appended := lo.Filter(m.History, func(h History, _ int) bool {
			return !lo.Contains(stored, h.ID)
		})
		if len(appended) > 0 {
			return tx.Create(&appended).Error
		}

		return nil
	})

	if errors.Is(err, errStale) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (d *alarmRepository) GetByID(ctx context.Context, alarmID string) (types.Alarm, error) {
	alarm := Alarm{}

	err := withHistory(d.db.WithContext(ctx)).
		Where(&Alarm{ID: alarmID}).
		First(&alarm).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Alarm{}, ErrAlarmNotFound
		}
		return types.Alarm{}, err
	}

	return alarm.toType(), nil
}

func (d *alarmRepository) Query(ctx context.Context, conditions ...ConditionFunc) (types.Collection[types.Alarm], error) {
	condition := &Condition{}
	for _, f := range conditions {
		f(condition)
	}

	var total int64
	err := condition.Apply(d.db.WithContext(ctx).Model(&Alarm{})).Count(&total).Error
	if err != nil {
		return types.Collection[types.Alarm]{}, err
	}

	rows := []Alarm{}
	err = withHistory(condition.Apply(d.db.WithContext(ctx))).
		Order("last_receive_time DESC").
		Order("id ASC").
		Offset(condition.Offset()).
		Limit(condition.Limit()).
		Find(&rows).
		Error
	if err != nil {
		return types.Collection[types.Alarm]{}, err
	}

	alarms := lo.Map(rows, func(m Alarm, _ int) types.Alarm { return m.toType() })

	return types.Collection[types.Alarm]{
		Data:       alarms,
		Count:      uint64(len(alarms)),
		Offset:     uint64(condition.Offset()),
		Limit:      uint64(condition.Limit()),
		TotalCount: uint64(total),
	}, nil
}
