package alarms

import (
	"time"

	"github.com/diwise/alarm-mgmt/pkg/types"
	"github.com/samber/lo"
)

type Alarm struct {
	ID          string   `gorm:"primaryKey"`
	Environment string   `gorm:"index:idx_alarms_group"`
	Resource    string   `gorm:"index:idx_alarms_group"`
	Event       string   `gorm:"index"`
	Correlate   []string `gorm:"serializer:json"`

	Severity         string `gorm:"index"`
	PreviousSeverity string
	Status           string `gorm:"index"`
	DuplicateCount   int
	Repeat           bool
	TrendIndication  string

	CreateTime      time.Time
	LastReceiveTime time.Time `gorm:"index"`

	Service    []string       `gorm:"serializer:json"`
	Tags       []string       `gorm:"serializer:json"`
	Attributes map[string]any `gorm:"serializer:json"`
	Text       string
	Value      string
	Origin     string
	Type       string
	RawData    string

	History []History `gorm:"foreignKey:AlarmID;constraint:OnDelete:CASCADE"`

	Version   uint64
	UpdatedAt time.Time
}

func (Alarm) TableName() string {
	return "alarms"
}

type History struct {
	Seq        uint64 `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"uniqueIndex"`
	AlarmID    string `gorm:"index"`
	Event      string
	Severity   string
	Status     string
	Value      string
	Text       string
	ChangeType string
	UpdateTime time.Time
}

func (History) TableName() string {
	return "alarm_history"
}

func toModel(a types.Alarm) Alarm {
	return Alarm{
		ID:               a.ID,
		Environment:      a.Environment,
		Resource:         a.Resource,
		Event:            a.Event,
		Correlate:        a.Correlate,
		Severity:         a.Severity,
		PreviousSeverity: a.PreviousSeverity,
		Status:           a.Status,
		DuplicateCount:   a.DuplicateCount,
		Repeat:           a.Repeat,
		TrendIndication:  a.TrendIndication,
		CreateTime:       a.CreateTime.UTC(),
		LastReceiveTime:  a.LastReceiveTime.UTC(),
		Service:          a.Service,
		Tags:             a.Tags,
		Attributes:       a.Attributes,
		Text:             a.Text,
		Value:            a.Value,
		Origin:           a.Origin,
		Type:             a.Type,
		RawData:          a.RawData,
		History: lo.Map(a.History, func(h types.HistoryItem, _ int) History {
			return toHistoryModel(a.ID, h)
		}),
		Version: a.Version,
	}
}

func toHistoryModel(alarmID string, h types.HistoryItem) History {
	return History{
		ID:         h.ID,
		AlarmID:    alarmID,
		Event:      h.Event,
		Severity:   h.Severity,
		Status:     h.Status,
		Value:      h.Value,
		Text:       h.Text,
		ChangeType: h.ChangeType,
		UpdateTime: h.UpdateTime.UTC(),
	}
}

func (m Alarm) toType() types.Alarm {
	return types.Alarm{
		ID:               m.ID,
		Environment:      m.Environment,
		Resource:         m.Resource,
		Event:            m.Event,
		Correlate:        nonNil(m.Correlate),
		Severity:         m.Severity,
		PreviousSeverity: m.PreviousSeverity,
		Status:           m.Status,
		DuplicateCount:   m.DuplicateCount,
		Repeat:           m.Repeat,
		TrendIndication:  m.TrendIndication,
		CreateTime:       m.CreateTime.UTC(),
		LastReceiveTime:  m.LastReceiveTime.UTC(),
		Service:          nonNil(m.Service),
		Tags:             nonNil(m.Tags),
		Attributes:       nonNilMap(m.Attributes),
		Text:             m.Text,
		Value:            m.Value,
		Origin:           m.Origin,
		Type:             m.Type,
		RawData:          m.RawData,
		History: lo.Map(m.History, func(h History, _ int) types.HistoryItem {
			return types.HistoryItem{
				ID:         h.ID,
				Event:      h.Event,
				Severity:   h.Severity,
				Status:     h.Status,
				Value:      h.Value,
				Text:       h.Text,
				ChangeType: h.ChangeType,
				UpdateTime: h.UpdateTime.UTC(),
			}
		}),
		Version: m.Version,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
