package alarms

import (
	"fmt"
	"time"

	"github.com/diwise/alarm-mgmt/internal/pkg/domain/correlation"
	"github.com/diwise/alarm-mgmt/internal/pkg/domain/severity"
	"github.com/diwise/alarm-mgmt/pkg/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

var statuses = []string{types.StatusOpen, types.StatusAck, types.StatusClosed, types.StatusUnknown}

// StateMachine computes the next state of an alarm. It never touches storage,
// the caller is responsible for writing the result atomically.
type StateMachine struct {
	severities severity.Model
	newID      func() string
}

func NewStateMachine(severities severity.Model) StateMachine {
	return StateMachine{
		severities: severities,
		newID:      uuid.NewString,
	}
}

// Apply dispatches on the resolver outcome.
func (sm StateMachine) Apply(v correlation.Verdict, e types.Event, now time.Time) (types.Alarm, error) {
	switch v.Outcome {
	case correlation.NewGroup:
		return sm.NewAlarm(e, now)
	case correlation.ExactDuplicate:
		return sm.Duplicate(*v.Existing, e, now)
	case correlation.CorrelatedChange:
		return sm.Change(*v.Existing, e, now)
	}

	return types.Alarm{}, fmt.Errorf("unexpected verdict %d", v.Outcome)
}

func (sm StateMachine) NewAlarm(e types.Event, now time.Time) (types.Alarm, error) {
	trend, err := sm.severities.Trend(severity.Unknown, e.Severity)
	if err != nil {
		return types.Alarm{}, err
	}

	tier, err := sm.severities.Tier(e.Severity)
	if err != nil {
		return types.Alarm{}, err
	}

	status := types.StatusOpen
	switch tier {
	case severity.TierClosed:
		status = types.StatusClosed
	case severity.TierIndeterminate:
		status = types.StatusUnknown
	}

	createTime := now
	if e.CreateTime != nil && !e.CreateTime.IsZero() {
		createTime = e.CreateTime.UTC()
	}

	a := types.Alarm{
		ID:               sm.newID(),
		Environment:      e.Environment,
		Resource:         e.Resource,
		Event:            e.Event,
		Correlate:        clone(e.Correlate),
		Severity:         e.Severity,
		PreviousSeverity: severity.Unknown,
		Status:           status,
		DuplicateCount:   0,
		Repeat:           false,
		TrendIndication:  string(trend),
		CreateTime:       createTime,
		LastReceiveTime:  now,
	}
	withPayload(&a, e)

	a.History = []types.HistoryItem{}

	return a, nil
}

// Duplicate counts a repeat of the current condition. Severity, previous
// severity and status are left as they are.
func (sm StateMachine) Duplicate(existing types.Alarm, e types.Event, now time.Time) (types.Alarm, error) {
	trend, err := sm.severities.Trend(existing.PreviousSeverity, e.Severity)
	if err != nil {
		return types.Alarm{}, err
	}

	a := cloneAlarm(existing)
	a.DuplicateCount = existing.DuplicateCount + 1
	a.Repeat = true
	a.TrendIndication = string(trend)
	a.LastReceiveTime = now
	withPayload(&a, e)

	return a, nil
}

// Change applies a severity or event name change within a correlation group.
// A closed tier severity always closes, a worsening trend always opens and
// anything else keeps the current status.
func (sm StateMachine) Change(existing types.Alarm, e types.Event, now time.Time) (types.Alarm, error) {
	trend, err := sm.severities.Trend(existing.Severity, e.Severity)
	if err != nil {
		return types.Alarm{}, err
	}

	tier, err := sm.severities.Tier(e.Severity)
	if err != nil {
		return types.Alarm{}, err
	}

	status := existing.Status
	if tier == severity.TierClosed {
		status = types.StatusClosed
	} else if trend == severity.MoreSevere {
		status = types.StatusOpen
	}

	a := cloneAlarm(existing)
	a.History = append(a.History, sm.snapshot(existing, types.ChangeTypeSeverity, existing.Text, now))

	a.DuplicateCount = 0
	a.Repeat = false
	a.PreviousSeverity = existing.Severity
	a.Severity = e.Severity
	a.Event = e.Event
	a.Correlate = union(existing.Correlate, e.Correlate)
	a.Status = status
	a.TrendIndication = string(trend)
	a.LastReceiveTime = now
	withPayload(&a, e)

	return a, nil
}

// SetStatus is the explicit operator override. It only touches status and history.
func (sm StateMachine) SetStatus(existing types.Alarm, status, text string, now time.Time) (types.Alarm, error) {
	if !isValidStatus(status) {
		return types.Alarm{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	a := cloneAlarm(existing)
	a.Status = status
	a.History = append(a.History, sm.snapshot(existing, types.ChangeTypeStatus, text, now))

	return a, nil
}

// snapshot records the state an alarm is about to leave.
func (sm StateMachine) snapshot(a types.Alarm, changeType, text string, now time.Time) types.HistoryItem {
	return types.HistoryItem{
		ID:         sm.newID(),
		Event:      a.Event,
		Severity:   a.Severity,
		Status:     a.Status,
		Value:      a.Value,
		Text:       text,
		ChangeType: changeType,
		UpdateTime: now,
	}
}

func isValidStatus(status string) bool {
	return lo.Contains(statuses, status)
}

func union(a, b []string) []string {
	return lo.Uniq(append(clone(a), b...))
}

// withPayload copies the pass-through fields, latest event wins.
func withPayload(a *types.Alarm, e types.Event) {
	a.Service = clone(e.Service)
	a.Tags = clone(e.Tags)
	a.Attributes = cloneMap(e.Attributes)
	a.Text = e.Text
	a.Value = e.Value
	a.Origin = e.Origin
	a.Type = e.Type
	a.RawData = e.RawData
}

func cloneAlarm(a types.Alarm) types.Alarm {
	c := a
	c.Correlate = clone(a.Correlate)
	c.Service = clone(a.Service)
	c.Tags = clone(a.Tags)
	c.Attributes = cloneMap(a.Attributes)
	c.History = append([]types.HistoryItem{}, a.History...)
	return c
}

func clone(s []string) []string {
	return append([]string{}, s...)
}

func cloneMap(m map[string]any) map[string]any {
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
