package alarms

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diwise/alarm-mgmt/internal/pkg/domain/severity"
	"github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database"
	db "github.com/diwise/alarm-mgmt/internal/pkg/infrastructure/repositories/database/alarms"
	"github.com/diwise/alarm-mgmt/pkg/types"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/matryer/is"
)

func TestSeverityLifecycle(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	a, created, err := svc.Ingest(ctx, ingestEvent("node1", "node_ok", "ok"))
	is.NoErr(err)
	is.True(created)
	is.Equal(0, a.DuplicateCount)
	is.True(!a.Repeat)
	is.Equal("unknown", a.PreviousSeverity)
	is.Equal("ok", a.Severity)
	is.Equal("closed", a.Status)
	is.Equal("noChange", a.TrendIndication)

	a, created, err = svc.Ingest(ctx, ingestEvent("node2", "node_info", "informational"))
	is.NoErr(err)
	is.True(created)
	is.Equal("unknown", a.Status)
	is.Equal("lessSevere", a.TrendIndication)
	is.Equal("unknown", a.PreviousSeverity)

	major, created, err := svc.Ingest(ctx, ingestEvent("node404", "node_marginal", "major"))
	is.NoErr(err)
	is.True(created)
	is.Equal("open", major.Status)
	is.Equal("moreSevere", major.TrendIndication)

	_, err = svc.SetStatus(ctx, major.ID, "ack", "looking into it")
	is.NoErr(err)

	a, created, err = svc.Ingest(ctx, ingestEvent("node404", "node_marginal", "major"))
	is.NoErr(err)
	is.True(!created)
	is.Equal(major.ID, a.ID)
	is.Equal(1, a.DuplicateCount)
	is.True(a.Repeat)
	is.Equal("ack", a.Status)
	is.Equal("moreSevere", a.TrendIndication)
	is.Equal("unknown", a.PreviousSeverity)

	a, _, err = svc.Ingest(ctx, ingestEvent("node404", "node_down", "critical"))
	is.NoErr(err)
	is.Equal(major.ID, a.ID)
	is.Equal(0, a.DuplicateCount)
	is.True(!a.Repeat)
	is.Equal("major", a.PreviousSeverity)
	is.Equal("critical", a.Severity)
	is.Equal("open", a.Status)
	is.Equal("moreSevere", a.TrendIndication)

	a, created, err = svc.Ingest(ctx, ingestEvent("node404", "node_down", "critical"))
	is.NoErr(err)
	is.True(!created)
	is.Equal(1, a.DuplicateCount)
	is.True(a.Repeat)
	is.Equal("major", a.PreviousSeverity)
	is.Equal("critical", a.Severity)
	is.Equal("open", a.Status)
	is.Equal("moreSevere", a.TrendIndication) // relative to previousSeverity major

	_, err = svc.SetStatus(ctx, major.ID, "ack", "")
	is.NoErr(err)

	a, _, err = svc.Ingest(ctx, ingestEvent("node404", "node_marginal", "warning"))
	is.NoErr(err)
	is.Equal("ack", a.Status)
	is.Equal("lessSevere", a.TrendIndication)
	is.Equal("critical", a.PreviousSeverity)

	a, _, err = svc.Ingest(ctx, ingestEvent("node404", "node_up", "normal"))
	is.NoErr(err)
	is.Equal("closed", a.Status)
	is.Equal("lessSevere", a.TrendIndication)

	a, created, err = svc.Ingest(ctx, ingestEvent("node404", "node_up", "normal"))
	is.NoErr(err)
	is.True(!created)
	is.Equal(1, a.DuplicateCount)
	is.True(a.Repeat)
	is.Equal("warning", a.PreviousSeverity)
	is.Equal("closed", a.Status)
	is.Equal("lessSevere", a.TrendIndication) // relative to previousSeverity warning

	a, _, err = svc.Ingest(ctx, ingestEvent("node404", "node_trace", "trace"))
	is.NoErr(err)
	is.Equal("closed", a.Status)
	is.Equal("lessSevere", a.TrendIndication)

	a, _, err = svc.Ingest(ctx, ingestEvent("node404", "node_pwned", "security"))
	is.NoErr(err)
	is.Equal("open", a.Status)
	is.Equal("moreSevere", a.TrendIndication)
	is.Equal("trace", a.PreviousSeverity)

	stored, err := svc.GetAlarm(ctx, major.ID)
	is.NoErr(err)
	is.Equal("security", stored.Severity)
	is.Equal(7, len(stored.History)) // two status changes and five severity changes
}

func TestIngestValidation(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	e := ingestEvent("node1", "node_down", "catastrophic")
	_, _, err := svc.Ingest(ctx, e)
	is.True(errors.Is(err, ErrInvalidSeverity))

	e = ingestEvent("", "node_down", "critical")
	_, _, err = svc.Ingest(ctx, e)
	is.True(errors.Is(err, ErrInvalidEvent))

	e = ingestEvent("node1", "node_down", "critical")
	e.Attributes = map[string]any{"nested": map[string]any{"a": 1}}
	_, _, err = svc.Ingest(ctx, e)
	is.True(errors.Is(err, ErrInvalidEvent))

	result, err := svc.Query(ctx)
	is.NoErr(err)
	is.Equal(uint64(0), result.TotalCount) // nothing stored for rejected events
}

func TestIngestAcceptsAllScalarAttributeKinds(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	e := ingestEvent("node1", "node_down", "critical")
	e.Attributes = map[string]any{
		"i8":     int8(1),
		"i16":    int16(2),
		"u8":     uint8(3),
		"u16":    uint16(4),
		"number": json.Number("5.5"),
		"nil":    nil,
		"bool":   true,
	}

	_, created, err := svc.Ingest(ctx, e)
	is.NoErr(err)
	is.True(created)

	e = ingestEvent("node2", "node_down", "critical")
	e.Attributes = map[string]any{"list": []int{1, 2}}
	_, _, err = svc.Ingest(ctx, e)
	is.True(errors.Is(err, ErrInvalidEvent))
}

func TestIngestNormalizesSeverity(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	a, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "  CRITICAL "))
	is.NoErr(err)
	is.Equal("critical", a.Severity)

	a, created, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "Critical"))
	is.NoErr(err)
	is.True(!created)
	is.Equal(1, a.DuplicateCount)
}

func TestSetStatusErrors(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	_, err := svc.SetStatus(ctx, "nosuchalarm", "ack", "")
	is.True(errors.Is(err, ErrAlarmNotFound))

	a, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)

	_, err = svc.SetStatus(ctx, a.ID, "shelved", "")
	is.True(errors.Is(err, ErrInvalidStatus))

	stored, err := svc.GetAlarm(ctx, a.ID)
	is.NoErr(err)
	is.Equal("open", stored.Status)
	is.Equal(0, len(stored.History))
}

func TestConcurrentIngestOfSameEventYieldsOneAlarm(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	const n = 20
	wg := sync.WaitGroup{}
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		is.NoErr(err)
	}

	result, err := svc.Query(ctx, db.WithResource("node1"))
	is.NoErr(err)
	is.Equal(uint64(1), result.TotalCount)
	is.Equal(n-1, result.Data[0].DuplicateCount)
}

func TestTwoServicesSharingAStoreCreateOneAlarm(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	repo := newRepository(t)
	first := New(repo, severity.Default(), nil, DefaultConfig())
	second := New(repo, severity.Default(), nil, DefaultConfig())

	const n = 10
	wg := sync.WaitGroup{}
	errs := make(chan error, 2*n)

	for i := 0; i < n; i++ {
		for _, svc := range []AlarmService{first, second} {
			wg.Add(1)
			go func(svc AlarmService) {
				defer wg.Done()
				_, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
				errs <- err
			}(svc)
		}
	}

	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			is.True(errors.Is(err, ErrConcurrentUpdateExceeded))
			failed++
		}
	}

	result, err := first.Query(ctx, db.WithResource("node1"))
	is.NoErr(err)
	is.Equal(uint64(1), result.TotalCount)
	is.Equal(2*n-1-failed, result.Data[0].DuplicateCount) // no lost increments
}

func TestCreateLostToAnotherWriterBecomesDuplicate(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	repo := newRepository(t)
	other := New(repo, severity.Default(), nil, DefaultConfig())

	store := &AlarmStoreMock{
		FindGroupFunc: repo.FindGroup,
		CreateFunc: func(ctx context.Context, alarm types.Alarm) (bool, error) {
			// another process stores the group between resolve and create
			_, _, err := other.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
			is.NoErr(err)
			return repo.Create(ctx, alarm)
		},
		AtomicUpdateFunc: repo.AtomicUpdate,
		GetByIDFunc:      repo.GetByID,
		QueryFunc:        repo.Query,
	}
	svc := New(store, severity.Default(), nil, DefaultConfig())

	a, created, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)
	is.True(!created)
	is.Equal(1, a.DuplicateCount)
	is.Equal(1, len(store.CreateCalls()))
	is.Equal(2, len(store.FindGroupCalls()))

	result, err := svc.Query(ctx, db.WithResource("node1"))
	is.NoErr(err)
	is.Equal(uint64(1), result.TotalCount)
}

func TestPublishesAfterSuccessfulTransitions(t *testing.T) {
	is, ctx, svc, p := testSetup(t)

	a, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)
	_, _, err = svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)
	_, err = svc.SetStatus(ctx, a.ID, "ack", "")
	is.NoErr(err)
	_, _, err = svc.Ingest(ctx, ingestEvent("node1", "node_down", "catastrophic"))
	is.True(err != nil)

	is.Equal([]string{"alarms.created", "alarms.updated", "alarms.statusChanged"}, p.get())
}

func TestPublishFailureDoesNotFailIngest(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	published := &publishedTopics{}
	messenger := newMessengerMock(published, errors.New("broker down"))
	svc := New(newRepository(t), severity.Default(), messenger, DefaultConfig())

	_, created, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)
	is.True(created)
	is.Equal(1, len(messenger.PublishOnTopicCalls()))
}

func TestRetriesOnConflict(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	store := conflictingStore(newRepository(t), 2)
	svc := New(store, severity.Default(), nil, Config{MaxAttempts: 5, RetryDelay: time.Millisecond})

	_, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)

	a, created, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)
	is.True(!created)
	is.Equal(1, a.DuplicateCount)
	is.Equal(3, len(store.AtomicUpdateCalls()))
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	store := conflictingStore(newRepository(t), 100)
	svc := New(store, severity.Default(), nil, Config{MaxAttempts: 3, RetryDelay: time.Millisecond})

	a, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)

	_, _, err = svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.True(errors.Is(err, ErrConcurrentUpdateExceeded))
	is.Equal(3, len(store.AtomicUpdateCalls()))

	stored, err := svc.GetAlarm(ctx, a.ID)
	is.NoErr(err)
	is.Equal(0, stored.DuplicateCount) // unchanged
}

func TestCancelledContextIsNotRetried(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	a, _, err := svc.Ingest(ctx, ingestEvent("node1", "node_down", "critical"))
	is.NoErr(err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, _, err = svc.Ingest(cancelled, ingestEvent("node1", "node_down", "critical"))
	is.True(errors.Is(err, context.Canceled))

	stored, err := svc.GetAlarm(ctx, a.ID)
	is.NoErr(err)
	is.Equal(0, stored.DuplicateCount)
}

// conflictingStore reports a lost version race for the first n updates.
func conflictingStore(repo db.AlarmRepository, n int) *AlarmStoreMock {
	store := &AlarmStoreMock{
		FindGroupFunc: repo.FindGroup,
		CreateFunc:    repo.Create,
		GetByIDFunc:   repo.GetByID,
		QueryFunc:     repo.Query,
	}

	attempts := 0
	store.AtomicUpdateFunc = func(ctx context.Context, alarmID string, expectedVersion uint64, alarm types.Alarm) (bool, error) {
		attempts++
		if attempts <= n {
			return false, nil
		}
		return repo.AtomicUpdate(ctx, alarmID, expectedVersion, alarm)
	}

	return store
}

type publishedTopics struct {
	mu     sync.Mutex
	topics []string
}

func (p *publishedTopics) get() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.topics...)
}

func newMessengerMock(published *publishedTopics, err error) *messaging.MsgContextMock {
	return &messaging.MsgContextMock{
		PublishOnTopicFunc: func(ctx context.Context, message messaging.TopicMessage) error {
			published.mu.Lock()
			defer published.mu.Unlock()
			published.topics = append(published.topics, message.TopicName())
			return err
		},
	}
}

func newRepository(t *testing.T) db.AlarmRepository {
	r, err := db.NewAlarmRepository(database.NewSQLiteConnector(context.Background()))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func testSetup(t *testing.T) (*is.I, context.Context, AlarmService, *publishedTopics) {
	is := is.New(t)
	ctx := context.Background()

	published := &publishedTopics{}
	svc := New(newRepository(t), severity.Default(), newMessengerMock(published, nil), DefaultConfig())

	return is, ctx, svc, published
}

func ingestEvent(resource, event, sev string) types.Event {
	return types.Event{
		Environment: "Production",
		Resource:    resource,
		Event:       event,
		Severity:    sev,
		Correlate:   []string{"node_trace", "node_down", "node_marginal", "node_up", "node_pwned"},
		Service:     []string{"Network"},
		Attributes:  map[string]any{"foo": "abc def", "bar": 1234.0},
	}
}
