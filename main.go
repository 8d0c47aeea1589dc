package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"ride-review/internal/analysis"
	"ride-review/internal/auth"
	"ride-review/internal/config"
	"ride-review/internal/export"
	"ride-review/internal/interview"
	"ride-review/internal/logging"
	"ride-review/internal/report"
	"ride-review/internal/service"
	"ride-review/internal/store"
	"ride-review/internal/strava"
	"ride-review/internal/tui"
)

const usage = `Usage:
  ride-review fit <folder> [--start YYYY-MM-DD --end YYYY-MM-DD] [options]
  ride-review strava [--start YYYY-MM-DD --end YYYY-MM-DD] [options]
  ride-review activity <strava-id> [options]
  ride-review auth [--config PATH]

Without --start/--end the last complete Monday-Sunday week is reviewed.

Options:
`

// cacheDays is how long raw Strava responses are kept
const cacheDays = 30

// errUsage marks argument errors; usage has already been printed
var errUsage = errors.New("invalid arguments")

type options struct {
	config      string
	answers     string
	noInterview bool
	out         string
	export      string
	start, end  string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch cmd := args[0]; cmd {
	case "fit", "strava", "activity":
		err = review(ctx, cmd, args[1:])
	case "auth":
		err = login(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 1
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, service.ErrEmptyBatch):
		fmt.Fprintln(os.Stderr, "No rides to review in the selected range.")
		return 0
	case errors.Is(err, errUsage):
		return 1
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
}

func newFlagSet(name string, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.config, "config", "", "config file (default ~/.ride-review/config.toml)")
	fs.StringVar(&opts.answers, "answers", "", "TOML file with interview answers")
	fs.BoolVar(&opts.noInterview, "no-interview", false, "skip the rider interview")
	fs.StringVar(&opts.out, "out", "", "write the report to this file instead of stdout")
	fs.StringVar(&opts.export, "export", "", "also write rides.parquet and laps.parquet to this directory")
	fs.StringVar(&opts.start, "start", "", "first day of the range")
	fs.StringVar(&opts.end, "end", "", "last day of the range, inclusive")
	return fs
}

// parse accepts flags before and after positional arguments
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, errUsage
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

func review(ctx context.Context, cmd string, args []string) error {
	var opts options
	fs := newFlagSet(cmd, &opts)
	positional, err := parse(fs, args)
	if err != nil {
		return err
	}
	want := 1
	if cmd == "strava" {
		want = 0
	}
	if len(positional) != want {
		fs.Usage()
		return errUsage
	}

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	flush, err := logging.Setup(logParams(cfg))
	if err != nil {
		return err
	}
	defer flush()

	runID := uuid.NewString()
	log := logrus.WithFields(logrus.Fields{"run_id": runID, "command": cmd})

	engine, err := analysis.NewEngine(analysis.Thresholds{FTP: cfg.Athlete.FTP, MaxHR: cfg.Athlete.MaxHR})
	if err != nil {
		return err
	}

	db, err := store.Open("")
	if err != nil {
		if cmd != "fit" {
			return err
		}
		log.WithError(err).Warn("Ride history unavailable, continuing without training load")
	} else {
		defer db.Close()
	}

	var history service.History
	if db != nil {
		history = db
	}
	svc := service.NewReviewService(engine, history, service.Options{
		Workers:      cfg.Review.Workers,
		RequirePower: cfg.Review.RequirePower,
		RunID:        runID,
	}, logging.WithComponent(log, "review"))

	var src service.Source
	if cmd == "fit" {
		src = service.NewFitSource(positional[0], logging.WithComponent(log, "fit"))
	} else {
		client, err := stravaClient(cfg, db, log)
		if err != nil {
			return err
		}
		src = service.NewStravaSource(client, db, service.StravaFilter{
			Sports:       cfg.Strava.Sports,
			RequirePower: cfg.Review.RequirePower,
		}, logging.WithComponent(log, "strava"))
	}

	if cmd == "activity" {
		ride, err := svc.Activity(ctx, src, service.Ref{ID: positional[0], Name: positional[0]})
		if err != nil {
			return err
		}
		if err := writeOutput(opts.out, "", func(w io.Writer) error { return report.RenderActivity(w, *ride, time.Local) }); err != nil {
			return err
		}
		return exportRides(opts.export, []report.Ride{*ride}, log)
	}

	start, end, err := service.ParseRange(opts.start, opts.end, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return errUsage
	}

	progress := make(chan service.Progress)
	go func() {
		for p := range progress {
			if p.Current != "" {
				log.WithField("activity", p.Current).Debugf("Reviewed %d/%d", p.Completed, p.Total)
			}
		}
	}()

	result, err := svc.Run(ctx, src, start, end, progress)
	if err != nil {
		return err
	}
	if n := len(multierr.Errors(result.Failures)); n > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d activities skipped, see the log for details\n", n, n+len(result.Rides))
	}

	answers, err := interviewSource(opts).Collect(interview.Questions)
	if errors.Is(err, interview.ErrAborted) {
		log.Info("Interview cancelled, report written without it")
	} else if err != nil {
		return err
	}

	doc := result.Document()
	doc.Interview = answers
	defaultName := ""
	if cfg.Review.OutputDir != "" {
		defaultName = filepath.Join(cfg.Review.OutputDir, fmt.Sprintf("review-%s.md", start.Format(time.DateOnly)))
	}
	if err := writeOutput(opts.out, defaultName, func(w io.Writer) error { return report.Render(w, doc) }); err != nil {
		return err
	}
	return exportRides(opts.export, result.Rides, log)
}

func login(ctx context.Context, args []string) error {
	var opts options
	fs := flag.NewFlagSet("auth", flag.ContinueOnError)
	fs.StringVar(&opts.config, "config", "", "config file (default ~/.ride-review/config.toml)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}
	flush, err := logging.Setup(logParams(cfg))
	if err != nil {
		return err
	}
	defer flush()
	log := logging.WithComponent(logrus.NewEntry(logrus.StandardLogger()), "auth")

	if invalid := cfg.ValidateStrava(); invalid != nil {
		path := opts.config
		if path == "" {
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}
		created, err := config.CreateExample(path)
		if err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		if created {
			fmt.Printf("Created an example config at %s\n", path)
		}
		fmt.Printf("Add your Strava API credentials to %s, from https://www.strava.com/settings/api\n", path)
		return invalid
	}

	db, err := store.Open("")
	if err != nil {
		return err
	}
	defer db.Close()

	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  auth.RedirectURL(),
	})
	result, err := auth.Authenticate(ctx, oauthCfg, os.Stdout, log)
	if err != nil {
		return fmt.Errorf("authentication: %w", err)
	}
	if err := db.SaveAuth(store.AuthFromToken(result.AthleteID, result.Token)); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	fmt.Printf("\nSuccessfully authenticated as athlete %d!\n", result.AthleteID)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logParams(cfg *config.Config) logging.Params {
	return logging.Params{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		JSON:      cfg.Logging.JSON,
		SentryDSN: cfg.Logging.SentryDSN,
	}
}

// stravaClient builds an API client from the stored tokens, persisting refreshes
func stravaClient(cfg *config.Config, db *store.DB, log *logrus.Entry) (*strava.Client, error) {
	if err := cfg.ValidateStrava(); err != nil {
		return nil, err
	}
	stored, err := db.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		return nil, fmt.Errorf("%w: run `ride-review auth` first", err)
	}
	if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	if n, err := db.PurgePayloads(time.Now().AddDate(0, 0, -cacheDays)); err != nil {
		log.WithError(err).Warn("Purging cached responses failed")
	} else if n > 0 {
		log.WithField("entries", n).Debug("Purged cached responses")
	}

	oauthCfg := auth.NewOAuthConfig(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  auth.RedirectURL(),
	})
	tokens := auth.NewTokenSource(oauthCfg, stored.Token(), db.UpdateTokens, logging.WithComponent(log, "auth"))
	return strava.NewClient(tokens), nil
}

func interviewSource(opts options) interview.Source {
	switch {
	case opts.noInterview:
		return interview.Skip()
	case opts.answers != "":
		src, err := interview.LoadFile(opts.answers)
		if err != nil {
			return interview.SourceFunc(func([]interview.Question) (interview.Answers, error) { return nil, err })
		}
		return src
	default:
		return tui.NewInterviewSource(tea.WithOutput(os.Stderr))
	}
}

// writeOutput renders to path, or fallback when path is empty, or stdout when both are
func writeOutput(path, fallback string, render func(io.Writer) error) error {
	if path == "" {
		path = fallback
	}
	if path == "" {
		return render(os.Stdout)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
	return nil
}

func exportRides(dir string, rides []report.Ride, log *logrus.Entry) error {
	if dir == "" {
		return nil
	}
	if err := export.WriteDir(dir, rides); err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	log.WithField("dir", dir).Info("Exported rides")
	return nil
}
