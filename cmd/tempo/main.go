package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/oauth2"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	"github.com/James-C137/tempo-scheduler/internal/config"
	"github.com/James-C137/tempo-scheduler/internal/gcal"
	appLog "github.com/James-C137/tempo-scheduler/internal/log"
	"github.com/James-C137/tempo-scheduler/internal/oracle"
	"github.com/James-C137/tempo-scheduler/internal/pipeline"
	"github.com/James-C137/tempo-scheduler/internal/policy"
	"github.com/James-C137/tempo-scheduler/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	once       bool
	dryRun     bool
}

func main() {
	appLog.Info("tempo starting", "version", "0.1.0-dev")

	flags := parseFlags()

	// Secrets come from the environment; .env is a development nicety.
	_ = godotenv.Load()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"policy", conf.PolicyPath,
		"run_cron", conf.RunCron,
		"lookback_days", conf.LookbackDays,
		"lookahead_days", conf.LookaheadDays,
		"ics_count", len(conf.ICS),
		"oracle_model", conf.Oracle.Model,
		"once", flags.once,
		"dry_run", flags.dryRun,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	pipe, pol, err := buildPipeline(ctx, conf, flags.dryRun)
	if err != nil {
		appLog.Error("configuration error", err)
		os.Exit(1)
	}

	if flags.once {
		report, err := pipe.Run(ctx)
		if err != nil {
			appLog.Error("run failed", err)
			os.Exit(1)
		}
		fmt.Print(report.String())
		return
	}

	runDaemon(ctx, conf, pol, pipe)

	// Give in-flight log lines a moment before exit.
	time.Sleep(100 * time.Millisecond)
	appLog.Info("tempo exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "tempo.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Run one pipeline pass, print the report, and exit")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "Log calendar mutations instead of sending them")

	flag.Parse()

	return cfg
}

// buildPipeline validates required secrets and wires the collaborators.
// All configuration errors surface here, before any external call.
func buildPipeline(ctx context.Context, conf *config.Config, dryRun bool) (*pipeline.Pipeline, *policy.Model, error) {
	pol, err := policy.Load(conf.PolicyPath)
	if err != nil {
		return nil, nil, err
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, nil, errors.New("GEMINI_API_KEY is not set")
	}
	oc, err := oracle.NewGeminiClient(ctx, apiKey, conf.Oracle.Model, conf.Oracle.Temperature, conf.Oracle.MaxOutputTokens)
	if err != nil {
		return nil, nil, err
	}

	sources := make([]calendar.Source, 0, len(conf.ICS))
	for _, ics := range conf.ICS {
		sources = append(sources, calendar.Source{ID: ics.ID, URL: ics.URL})
	}
	reader := calendar.NewReader(cacheDir(), sources)

	var writer calendar.Writer
	if dryRun {
		writer = dryRunWriter{}
	} else {
		token := os.Getenv("GOOGLE_CALENDAR_TOKEN")
		if token == "" {
			return nil, nil, errors.New("GOOGLE_CALENDAR_TOKEN is not set")
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		writer = gcal.NewClient(ctx, ts, conf.Writer.CalendarID)
	}

	return &pipeline.Pipeline{
		Policy:    pol,
		Reader:    reader,
		Oracle:    oc,
		Writer:    writer,
		Lookback:  time.Duration(conf.LookbackDays) * 24 * time.Hour,
		Lookahead: time.Duration(conf.LookaheadDays) * 24 * time.Hour,
	}, pol, nil
}

// runDaemon runs the pipeline on the configured cron schedule and
// serves the status API until the context is canceled.
func runDaemon(ctx context.Context, conf *config.Config, pol *policy.Model, pipe *pipeline.Pipeline) {
	srv := web.NewServer(conf, pol)

	c := cron.New()
	_, err := c.AddFunc(conf.RunCron, func() {
		report, runErr := pipe.Run(ctx)
		srv.SetReport(report, runErr)
		if runErr != nil {
			appLog.Error("scheduled run failed", runErr)
			return
		}
		fmt.Print(report.String())
	})
	if err != nil {
		appLog.Error("invalid cron schedule", err, "run_cron", conf.RunCron)
		return
	}
	c.Start()
	defer c.Stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		appLog.Error("status API failed", err)
	}
}

func cacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir + "/tempo/ics"
	}
	return "./var/ics-cache"
}

// dryRunWriter logs mutations instead of performing them.
type dryRunWriter struct{}

func (dryRunWriter) Create(ctx context.Context, ev calendar.NewEvent, prov calendar.Provenance) error {
	appLog.Info("dry-run create", "title", ev.Title,
		"start", ev.Start.Format(time.RFC3339), "end", ev.End.Format(time.RFC3339), "provenance", prov)
	return nil
}

func (dryRunWriter) Move(ctx context.Context, eventRef string, newStart, newEnd time.Time) error {
	return calendar.ErrNotSupported
}

func (dryRunWriter) Delete(ctx context.Context, eventRef string) error {
	return calendar.ErrNotSupported
}
