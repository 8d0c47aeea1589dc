package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/multierr"

	"ride-review/internal/activity"
	"ride-review/internal/analysis"
	"ride-review/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

// fakeSource serves prebuilt activities; a nil entry fails to load
type fakeSource struct {
	mu         sync.Mutex
	refs       []Ref
	activities map[string]*activity.Activity
	loads      int
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) List(ctx context.Context, start, end time.Time) ([]Ref, error) {
	return s.refs, nil
}

func (s *fakeSource) Load(ctx context.Context, ref Ref) (*activity.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()

	a := s.activities[ref.ID]
	if a == nil {
		return nil, fmt.Errorf("%s: %w", ref.ID, activity.ErrSourceUnavailable)
	}
	return a, nil
}

func (s *fakeSource) add(id string, a *activity.Activity) {
	if s.activities == nil {
		s.activities = make(map[string]*activity.Activity)
	}
	s.refs = append(s.refs, Ref{ID: id, Name: id})
	s.activities[id] = a
}

func ride(faker *gofakeit.Faker, name string, start time.Time, n int, withPower bool) *activity.Activity {
	series := make(activity.Series, n)
	for i := range series {
		s := activity.Sample{
			Time:      start.Add(time.Duration(i) * time.Second),
			HeartRate: activity.Float(float64(faker.IntRange(110, 170))),
		}
		if withPower {
			s.Power = activity.Float(faker.Float64Range(120, 320))
		}
		series[i] = s
	}
	return &activity.Activity{
		Summary: activity.Summary{ID: name, Name: name, Sport: "cycling", StartTime: start},
		Series:  series,
	}
}

func newTestService(t *testing.T, history History, opts Options) (*ReviewService, *logtest.Hook) {
	t.Helper()
	engine, err := analysis.NewEngine(analysis.Thresholds{FTP: 250, MaxHR: 185})
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	return NewReviewService(engine, history, opts, logrus.NewEntry(logger)), hook
}

func TestRunCollectsFailures(t *testing.T) {
	faker := gofakeit.New(7)
	src := &fakeSource{}
	src.add("tuesday", ride(faker, "tuesday", monday.AddDate(0, 0, 1), 1800, true))
	src.add("broken", nil)
	src.add("hr-only", ride(faker, "hr-only", monday.AddDate(0, 0, 2), 600, false))
	src.add("saturday", ride(faker, "saturday", monday.AddDate(0, 0, 5), 3600, true))

	svc, hook := newTestService(t, nil, Options{Workers: 2, RequirePower: true, RunID: "run-1"})

	progress := make(chan Progress, 16)
	var updates []Progress
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			updates = append(updates, p)
		}
	}()

	review, err := svc.Run(context.Background(), src, monday, monday.AddDate(0, 0, 7), progress)
	<-done
	require.NoError(t, err)

	require.Len(t, review.Rides, 2)
	// listing order is kept regardless of which worker finished first
	assert.Equal(t, "tuesday", review.Rides[0].Metrics.Name)
	assert.Equal(t, "saturday", review.Rides[1].Metrics.Name)
	assert.Equal(t, 2, review.Weekly.Rides)
	assert.Equal(t, 5400.0, review.Weekly.TotalDuration)
	assert.Nil(t, review.Load)

	failures := multierr.Errors(review.Failures)
	require.Len(t, failures, 2)
	assert.True(t, errors.Is(review.Failures, activity.ErrSourceUnavailable))
	assert.True(t, errors.Is(review.Failures, activity.ErrNoUsableSamples))

	var warned []string
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = append(warned, e.Data["activity"].(string))
			assert.Equal(t, "fake", e.Data["source"])
			assert.Equal(t, "run-1", e.Data["run_id"])
		}
	}
	assert.ElementsMatch(t, []string{"broken", "hr-only"}, warned)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, Progress{Phase: "computing", Total: 4, Completed: 4, Current: last.Current}, last)
}

func TestRunKeepsPowerlessRidesWhenPowerIsOptional(t *testing.T) {
	faker := gofakeit.New(11)
	src := &fakeSource{}
	src.add("hr-only", ride(faker, "hr-only", monday, 600, false))

	svc, _ := newTestService(t, nil, Options{})
	review, err := svc.Run(context.Background(), src, monday, monday.AddDate(0, 0, 7), nil)
	require.NoError(t, err)

	require.Len(t, review.Rides, 1)
	m := review.Rides[0].Metrics
	assert.Nil(t, m.NormalizedPower)
	assert.NotNil(t, m.AvgHeartRate)

	_, err = review.Weekly.MeanIF()
	assert.ErrorIs(t, err, analysis.ErrUndefinedAggregate)
}

func TestRunEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t, nil, Options{RequirePower: true})

	t.Run("nothing listed", func(t *testing.T) {
		_, err := svc.Run(context.Background(), &fakeSource{}, monday, monday.AddDate(0, 0, 7), nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})

	t.Run("nothing survived", func(t *testing.T) {
		faker := gofakeit.New(3)
		src := &fakeSource{}
		src.add("broken", nil)
		src.add("hr-only", ride(faker, "hr-only", monday, 300, false))

		_, err := svc.Run(context.Background(), src, monday, monday.AddDate(0, 0, 7), nil)
		assert.ErrorIs(t, err, ErrEmptyBatch)
	})
}

func TestRunNonMonotonicIsPerActivity(t *testing.T) {
	faker := gofakeit.New(5)
	bad := ride(faker, "bad", monday, 10, true)
	bad.Series[5].Time = monday.Add(-time.Hour)

	src := &fakeSource{}
	src.add("bad", bad)
	src.add("good", ride(faker, "good", monday.AddDate(0, 0, 1), 60, true))

	svc, _ := newTestService(t, nil, Options{})
	review, err := svc.Run(context.Background(), src, monday, monday.AddDate(0, 0, 7), nil)
	require.NoError(t, err)
	assert.Len(t, review.Rides, 1)
	assert.ErrorIs(t, review.Failures, activity.ErrNonMonotonic)
}

func TestRunCancelled(t *testing.T) {
	faker := gofakeit.New(9)
	src := &fakeSource{}
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("ride-%d", i)
		src.add(id, ride(faker, id, monday.Add(time.Duration(i)*time.Hour), 60, true))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc, _ := newTestService(t, nil, Options{Workers: 2})
	_, err := svc.Run(ctx, src, monday, monday.AddDate(0, 0, 7), make(chan Progress))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTracksHistory(t *testing.T) {
	db, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	// an earlier week already on record
	require.NoError(t, db.SaveRides([]store.Ride{{
		ActivityID: "old", Source: "fake", StartTime: monday.AddDate(0, 0, -5), Duration: 3600, TSS: activity.Float(90),
	}}))

	faker := gofakeit.New(1)
	src := &fakeSource{}
	src.add("wednesday", ride(faker, "wednesday", monday.AddDate(0, 0, 2), 3600, true))

	svc, _ := newTestService(t, db, Options{RunID: "run-42"})
	end := monday.AddDate(0, 0, 7).Add(-time.Nanosecond)
	review, err := svc.Run(context.Background(), src, monday, end, nil)
	require.NoError(t, err)

	require.NotNil(t, review.Load)
	assert.Greater(t, review.Load.CTL, 0.0)
	assert.Equal(t, review.Load.CTL-review.Load.ATL, review.Load.TSB)

	rides, err := db.RidesBetween(monday.AddDate(0, 0, -7), end)
	require.NoError(t, err)
	require.Len(t, rides, 2)
	assert.Equal(t, "old", rides[0].ActivityID)
	assert.Equal(t, "wednesday", rides[1].ActivityID)
	require.NotNil(t, rides[1].TSS)
	assert.InDelta(t, *review.Rides[0].Metrics.TSS, *rides[1].TSS, 1e-9)

	runs, err := db.ListRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-42", runs[0].ID)
	assert.Equal(t, 1, runs[0].Rides)
	assert.Equal(t, 0, runs[0].Failures)

	doc := review.Document()
	assert.Equal(t, review.Load, doc.Load)
	assert.Len(t, doc.Rides, 1)
}

func TestActivity(t *testing.T) {
	faker := gofakeit.New(2)
	src := &fakeSource{}
	src.add("solo", ride(faker, "solo", monday, 120, true))

	svc, _ := newTestService(t, nil, Options{RequirePower: true})
	r, err := svc.Activity(context.Background(), src, src.refs[0])
	require.NoError(t, err)
	assert.Equal(t, "solo", r.Metrics.Name)
	assert.Equal(t, 120, r.Metrics.SampleCount)

	_, err = svc.Activity(context.Background(), src, Ref{ID: "missing", Name: "missing"})
	assert.ErrorIs(t, err, activity.ErrSourceUnavailable)
}
