package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"ride-review/internal/activity"
	"ride-review/internal/analysis"
	"ride-review/internal/report"
	"ride-review/internal/store"
)

// ErrEmptyBatch is returned when no activity was listed or none could be reviewed
var ErrEmptyBatch = errors.New("no activities to review")

// DefaultWorkers is the number of activities computed in parallel
const DefaultWorkers = 4

// historyDays is how far back stored rides feed the training load
const historyDays = 4 * analysis.ChronicLoadDays

// History keeps ride stress and completed runs between reviews; *store.DB implements it
type History interface {
	SaveRides(rides []store.Ride) error
	RidesBetween(start, end time.Time) ([]store.Ride, error)
	RecordRun(run *store.Run) error
}

// Options tunes a review
type Options struct {
	Workers      int
	RequirePower bool
	RunID        string // generated when empty
}

// Progress reports progress during a review
type Progress struct {
	Phase     string // "listing", "computing"
	Total     int
	Completed int
	Current   string
}

// Review is the outcome of one batch
type Review struct {
	RunID      string
	Source     string
	Start, End time.Time
	Rides      []report.Ride
	Weekly     *analysis.Weekly
	Load       *analysis.TrainingLoad // nil without history
	// Failures combines the per-activity errors, nil when every activity was reviewed
	Failures error
}

// Document returns the report document for the review
func (r *Review) Document() report.Document {
	return report.Document{
		Start:  r.Start,
		End:    r.End,
		Rides:  r.Rides,
		Weekly: r.Weekly,
		Load:   r.Load,
	}
}

// ReviewService computes metrics for batches of activities
type ReviewService struct {
	engine  *analysis.Engine
	history History
	opts    Options
	log     *logrus.Entry
}

// NewReviewService creates a review service. history may be nil.
func NewReviewService(engine *analysis.Engine, history History, opts Options, log *logrus.Entry) *ReviewService {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &ReviewService{engine: engine, history: history, opts: opts, log: log}
}

// Run reviews every activity src lists within [start, end].
// Activities that fail are logged, collected in Review.Failures and left out.
func (s *ReviewService) Run(ctx context.Context, src Source, start, end time.Time, progress chan<- Progress) (*Review, error) {
	if progress != nil {
		defer close(progress)
	}

	runID := s.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := s.log.WithFields(logrus.Fields{"run_id": runID, "source": src.Name()})

	send(ctx, progress, Progress{Phase: "listing"})
	refs, err := src.List(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing %s activities: %w", src.Name(), err)
	}
	if len(refs) == 0 {
		return nil, ErrEmptyBatch
	}
	log.WithField("activities", len(refs)).Info("Reviewing activities")

	results := make([]*report.Ride, len(refs))
	var (
		mu        sync.Mutex
		failures  error
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	send(ctx, progress, Progress{Phase: "computing", Total: len(refs)})

	for i, ref := range refs {
		g.Go(func() error {
			ride, err := s.review(gctx, src, ref)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			if err != nil {
				failures = multierr.Append(failures, fmt.Errorf("%s: %w", ref.Name, err))
				log.WithError(err).WithField("activity", ref.Name).Warn("Skipping activity")
			}
			results[i] = ride
			completed++
			// sent under the lock so updates arrive in order
			send(gctx, progress, Progress{Phase: "computing", Total: len(refs), Completed: completed, Current: ref.Name})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	review := &Review{RunID: runID, Source: src.Name(), Start: start, End: end, Failures: failures}
	var records []*analysis.Metrics
	for _, ride := range results {
		if ride != nil {
			review.Rides = append(review.Rides, *ride)
			records = append(records, ride.Metrics)
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("all %d activities failed: %w", len(refs), ErrEmptyBatch)
	}

	if review.Weekly, err = analysis.Aggregate(records); err != nil {
		return nil, err
	}

	if s.history != nil {
		review.Load = s.track(log, review, refs, results)
	}
	return review, nil
}

// Activity reviews a single activity
func (s *ReviewService) Activity(ctx context.Context, src Source, ref Ref) (*report.Ride, error) {
	return s.review(ctx, src, ref)
}

func (s *ReviewService) review(ctx context.Context, src Source, ref Ref) (*report.Ride, error) {
	a, err := src.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	if s.opts.RequirePower {
		if !a.Series.Has(activity.Power) {
			return nil, activity.ErrNoUsableSamples
		}
		a.Series = a.Series.Filter(activity.Power)
	}

	m, laps, err := s.engine.ComputeActivity(a)
	if err != nil {
		return nil, err
	}
	return &report.Ride{Metrics: m, Laps: laps}, nil
}

// track stores the reviewed rides and the run, then computes the training
// load at the end of the range. History failures only cost the load section.
func (s *ReviewService) track(log *logrus.Entry, review *Review, refs []Ref, results []*report.Ride) *analysis.TrainingLoad {
	var rides []store.Ride
	for i, ride := range results {
		if ride == nil {
			continue
		}
		m := ride.Metrics
		rides = append(rides, store.Ride{
			ActivityID:      refs[i].ID,
			Source:          review.Source,
			StartTime:       m.StartTime,
			Duration:        m.Duration,
			TSS:             m.TSS,
			IntensityFactor: m.IntensityFactor,
		})
	}

	if err := s.history.SaveRides(rides); err != nil {
		log.WithError(err).Warn("Saving ride history failed")
	}
	if err := s.history.RecordRun(&store.Run{
		ID:         review.RunID,
		Source:     review.Source,
		RangeStart: review.Start,
		RangeEnd:   review.End,
		Rides:      len(rides),
		Failures:   len(multierr.Errors(review.Failures)),
	}); err != nil {
		log.WithError(err).Warn("Recording run failed")
	}

	past, err := s.history.RidesBetween(review.End.AddDate(0, 0, -historyDays), review.End)
	if err != nil {
		log.WithError(err).Warn("Reading ride history failed")
		return nil
	}
	var loads []analysis.DailyLoad
	for _, r := range past {
		if r.TSS != nil {
			loads = append(loads, analysis.DailyLoad{Date: r.StartTime, TSS: *r.TSS})
		}
	}
	load, ok := analysis.CurrentLoad(loads, review.End)
	if !ok {
		return nil
	}
	return &load
}

func send(ctx context.Context, progress chan<- Progress, p Progress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}
