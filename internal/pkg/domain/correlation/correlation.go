package correlation

import (
	"sort"

	"github.com/diwise/alarm-mgmt/pkg/types"
	"github.com/samber/lo"
)

type Outcome int

const (
	NewGroup Outcome = iota
	ExactDuplicate
	CorrelatedChange
)

func (o Outcome) String() string {
	switch o {
	case ExactDuplicate:
		return "exactDuplicate"
	case CorrelatedChange:
		return "correlatedChange"
	default:
		return "newGroup"
	}
}

// Verdict is the resolver decision for one incoming event. Existing is only
// set for ExactDuplicate and CorrelatedChange.
type Verdict struct {
	Outcome  Outcome
	Existing *types.Alarm
}

// Matches reports whether alarm belongs to the correlation group described by
// environment, resource, event and the submitter's correlate set.
func Matches(alarm types.Alarm, environment, resource, event string, correlate []string) bool {
	if alarm.Environment != environment || alarm.Resource != resource {
		return false
	}

	if alarm.Event == event {
		return true
	}

	return lo.Contains(alarm.Correlate, event) || lo.Contains(correlate, alarm.Event)
}

// Resolve classifies e against the candidate records. Candidates that do not
// match are ignored. If several match, the most recently received one wins.
func Resolve(e types.Event, candidates []types.Alarm) Verdict {
	matching := lo.Filter(candidates, func(a types.Alarm, _ int) bool {
		return Matches(a, e.Environment, e.Resource, e.Event, e.Correlate)
	})

	if len(matching) == 0 {
		return Verdict{Outcome: NewGroup}
	}

	sort.SliceStable(matching, func(i, j int) bool {
		if !matching[i].LastReceiveTime.Equal(matching[j].LastReceiveTime) {
			return matching[i].LastReceiveTime.After(matching[j].LastReceiveTime)
		}
		return matching[i].ID < matching[j].ID
	})

	existing := matching[0]

	if existing.Severity == e.Severity && existing.Event == e.Event {
		return Verdict{Outcome: ExactDuplicate, Existing: &existing}
	}

	return Verdict{Outcome: CorrelatedChange, Existing: &existing}
}
