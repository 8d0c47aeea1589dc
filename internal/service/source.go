package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"ride-review/internal/activity"
	"ride-review/internal/fitfile"
	"ride-review/internal/store"
	"ride-review/internal/strava"
)

// Ref identifies one activity a source can load
type Ref struct {
	ID    string
	Name  string
	Start time.Time
}

// Source lists and loads activities
type Source interface {
	Name() string
	List(ctx context.Context, start, end time.Time) ([]Ref, error)
	Load(ctx context.Context, ref Ref) (*activity.Activity, error)
}

// FitSource reads .fit files from a folder
type FitSource struct {
	dir string
	log *logrus.Entry

	mu sync.Mutex
	// scanned holds activities decoded by List until Load hands them out
	scanned map[string]*activity.Activity
}

// NewFitSource creates a source for the .fit files in dir
func NewFitSource(dir string, log *logrus.Entry) *FitSource {
	return &FitSource{dir: dir, log: log, scanned: make(map[string]*activity.Activity)}
}

// Name returns "fit"
func (s *FitSource) Name() string { return "fit" }

// List returns the files created within [start, end]
func (s *FitSource) List(ctx context.Context, start, end time.Time) ([]Ref, error) {
	entries, err := fitfile.Scan(s.dir, start, end, s.log)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	refs := make([]Ref, len(entries))
	for i, e := range entries {
		s.scanned[e.Path] = e.Activity
		name := filepath.Base(e.Path)
		refs[i] = Ref{
			ID:    e.Path,
			Name:  strings.TrimSuffix(name, filepath.Ext(name)),
			Start: e.Created,
		}
	}
	return refs, nil
}

// Load returns the activity List decoded for ref, or decodes the file
func (s *FitSource) Load(ctx context.Context, ref Ref) (*activity.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	a, ok := s.scanned[ref.ID]
	delete(s.scanned, ref.ID)
	s.mu.Unlock()
	if ok && a != nil {
		return a, nil
	}
	return fitfile.DecodeFile(ref.ID)
}

// PayloadCache stores raw API responses; *store.DB implements it
type PayloadCache interface {
	GetPayload(id int64, kind store.PayloadKind) ([]byte, error)
	PutPayload(id int64, kind store.PayloadKind, payload []byte) error
}

// StravaFilter selects which Strava activities are reviewed
type StravaFilter struct {
	Sports []string // empty matches every sport
	// RequirePower rejects activities without a watts stream before their laps are fetched
	RequirePower bool
}

// StravaSource loads activities from the Strava API, caching responses
type StravaSource struct {
	client *strava.Client
	cache  PayloadCache
	filter StravaFilter
	log    *logrus.Entry
}

// NewStravaSource creates a Strava source. cache may be nil.
func NewStravaSource(client *strava.Client, cache PayloadCache, filter StravaFilter, log *logrus.Entry) *StravaSource {
	return &StravaSource{client: client, cache: cache, filter: filter, log: log}
}

// Name returns "strava"
func (s *StravaSource) Name() string { return "strava" }

// List returns the athlete's activities of the configured sports started within [start, end]
func (s *StravaSource) List(ctx context.Context, start, end time.Time) ([]Ref, error) {
	activities, err := s.client.GetAllActivities(ctx, start.Add(-time.Second), end.Add(time.Second))
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	var refs []Ref
	for _, a := range activities {
		if !a.IsOneOf(s.filter.Sports) {
			s.log.WithFields(logrus.Fields{"activity": a.ID, "sport": a.Sport()}).Debug("Skipping activity")
			continue
		}
		if a.StartDate.Before(start) || a.StartDate.After(end) {
			continue
		}
		refs = append(refs, Ref{ID: strconv.FormatInt(a.ID, 10), Name: a.Name, Start: a.StartDate})
	}
	return refs, nil
}

// Load fetches the detail, streams and laps of one activity.
// Missing streams or laps leave the activity without samples or laps.
// With RequirePower set, an activity without watts fails with activity.ErrNoUsableSamples.
func (s *StravaSource) Load(ctx context.Context, ref Ref) (*activity.Activity, error) {
	id, err := strconv.ParseInt(ref.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("activity id %q: %w", ref.ID, err)
	}

	detail, err := cached(ctx, s, id, store.KindDetail, s.client.GetActivity)
	if err != nil {
		return nil, fmt.Errorf("activity %d: %w: %w", id, activity.ErrSourceUnavailable, err)
	}

	streams, err := cached(ctx, s, id, store.KindStreams, s.client.GetActivityStreams)
	if err != nil && !errors.Is(err, strava.ErrNotFound) {
		return nil, fmt.Errorf("streams for %d: %w: %w", id, activity.ErrSourceUnavailable, err)
	}
	if s.filter.RequirePower && !streams.HasPower() {
		return nil, fmt.Errorf("activity %d has no power stream: %w", id, activity.ErrNoUsableSamples)
	}

	laps, err := cached(ctx, s, id, store.KindLaps, s.client.GetActivityLaps)
	if err != nil && !errors.Is(err, strava.ErrNotFound) {
		return nil, fmt.Errorf("laps for %d: %w: %w", id, activity.ErrSourceUnavailable, err)
	}

	return strava.ToActivity(detail, streams, laps), nil
}

// cached returns the cached response for (id, kind) or fetches and stores it.
// Cache failures are logged and never fail the load.
func cached[T any](ctx context.Context, s *StravaSource, id int64, kind store.PayloadKind, fetch func(context.Context, int64) (T, error)) (T, error) {
	var v T
	log := s.log.WithFields(logrus.Fields{"activity": id, "kind": kind})

	if s.cache != nil {
		payload, err := s.cache.GetPayload(id, kind)
		switch {
		case err == nil:
			if err := json.Unmarshal(payload, &v); err == nil {
				return v, nil
			}
			log.Warn("Discarding unreadable cached payload")
		case !errors.Is(err, store.ErrCacheMiss):
			log.WithError(err).Warn("Reading cache failed")
		}
	}

	v, err := fetch(ctx, id)
	if err != nil {
		return v, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(v)
		if err == nil {
			err = s.cache.PutPayload(id, kind, payload)
		}
		if err != nil {
			log.WithError(err).Warn("Caching payload failed")
		}
	}
	return v, nil
}
