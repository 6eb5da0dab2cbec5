// Command harvester executes one quota-aware rotational harvest run: it
// selects today's categories, fetches them within the external rate and
// volume limits, and hands the categorized result to downstream consumers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/eforeli/XWebNews/engine/domain"
	"github.com/eforeli/XWebNews/engine/harvest"
	"github.com/eforeli/XWebNews/engine/quota"
	"github.com/eforeli/XWebNews/engine/rotation"
	"github.com/eforeli/XWebNews/engine/xsearch"
	"github.com/eforeli/XWebNews/pkg/config"
	"github.com/eforeli/XWebNews/pkg/fn"
	"github.com/eforeli/XWebNews/pkg/metrics"
	"github.com/eforeli/XWebNews/pkg/mid"
	"github.com/eforeli/XWebNews/pkg/natsutil"
	"github.com/eforeli/XWebNews/pkg/statestore"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file (optional)")
		dataDir    = flag.String("data", "", "state directory override")
		nowFlag    = flag.String("now", "", "simulated run date override, YYYY-MM-DD (testing)")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if cfg.BearerToken == "" {
		log.Error("TWITTER_BEARER_TOKEN is not set")
		os.Exit(1)
	}

	now := time.Now()
	if *nowFlag != "" {
		now, err = time.Parse("2006-01-02", *nowFlag)
		if err != nil {
			log.Error("bad -now value", "value", *nowFlag, "error", err)
			os.Exit(1)
		}
	}

	met := metrics.New()
	serveOps(log, met, cfg.MetricsPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	categories, keywords := cfg.CategoryList()

	cursor := rotation.New(
		statestore.New(filepath.Join(cfg.DataDir, "rotation_state.json")), categories, log)
	ledger := quota.New(
		statestore.New(filepath.Join(cfg.DataDir, "quota_usage.json")), cfg.MonthlyCeiling, log)
	snapshots := harvest.NewSnapshotStore(filepath.Join(cfg.DataDir, "runs"))

	client := xsearch.New(xsearch.Config{BearerToken: cfg.BearerToken}, log)

	var publish harvest.PublishFunc
	if cfg.NATS.URL != "" {
		nc, err := natsutil.Connect(cfg.NATS.URL, "xwebnews-harvester")
		if err != nil {
			log.Error("nats connect failed", "url", cfg.NATS.URL, "error", err)
			os.Exit(1)
		}
		defer nc.Drain()
		publish = natsPublisher(nc, cfg.NATS.Subject, log)
	}

	orch := harvest.New(harvest.Config{
		Categories:       categories,
		Keywords:         keywords,
		Mode:             harvest.Mode(cfg.Mode),
		BatchSize:        cfg.BatchSize,
		PerRequest:       cfg.PerRequest,
		PerCategoryLimit: cfg.PerCategoryLimit,
		Cooldown:         cfg.Cooldown.Std(),
		Retry: fn.RetryOpts{
			MaxAttempts: cfg.MaxAttempts,
			Schedule:    cfg.BackoffSchedule(),
		},
		DefaultCategory: domain.Category(cfg.DefaultCategory),
	}, cursor, ledger, client, snapshots, publish, met, log)

	result, err := orch.RunOnce(ctx, now)
	if err != nil {
		log.Error("harvest run failed", "error", err, "fatal_persistence", domain.IsPersistError(err))
		os.Exit(1)
	}

	printSummary(result)
}

// serveOps exposes /metrics and /healthz in the background for the duration
// of the run.
func serveOps(log *slog.Logger, met *metrics.Registry, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	h := mid.Chain(mux, mid.Recover(log), mid.Observe(log, met))
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), h); err != nil {
			log.Warn("ops listener stopped", "port", port, "error", err)
		}
	}()
}

func natsPublisher(nc *nats.Conn, subject string, log *slog.Logger) harvest.PublishFunc {
	return func(ctx context.Context, result domain.RunResult) error {
		if err := natsutil.Publish(ctx, nc, subject, result); err != nil {
			return err
		}
		log.Info("run result published", "subject", subject, "items", result.TotalItems())
		return nil
	}
}

func printSummary(result domain.RunResult) {
	fmt.Printf("harvest %s: %d items across %d categories\n",
		result.Date, result.TotalItems(), len(result.Categories))
	for _, cat := range result.Selected {
		cr := result.Categories[cat]
		fmt.Printf("  %-16s %-14s %d items\n", cat, cr.Status, len(cr.Items))
	}
}
