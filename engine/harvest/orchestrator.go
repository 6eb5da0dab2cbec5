// Package harvest composes the rotation cursor, quota ledger, backoff
// executor, and ranker into the once-per-invocation harvesting run.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/eforeli/XWebNews/engine/domain"
	"github.com/eforeli/XWebNews/engine/quota"
	"github.com/eforeli/XWebNews/engine/rank"
	"github.com/eforeli/XWebNews/engine/rotation"
	"github.com/eforeli/XWebNews/engine/xsearch"
	"github.com/eforeli/XWebNews/pkg/fn"
	"github.com/eforeli/XWebNews/pkg/metrics"
)

// Mode selects how a run spends its external calls.
type Mode string

const (
	// ModeRotate issues one call per selected category.
	ModeRotate Mode = "rotate"
	// ModeHybrid issues a single combined call for the whole batch and
	// splits the result across categories by keyword classification.
	ModeHybrid Mode = "hybrid"
)

// Fetcher is the external search channel.
type Fetcher interface {
	SearchRecent(ctx context.Context, query string, limit int) ([]domain.HarvestItem, error)
}

// PublishFunc hands a finished RunResult to the downstream collaborator.
// Publication failures are logged, never fatal.
type PublishFunc func(context.Context, domain.RunResult) error

// Config holds the run policy.
type Config struct {
	Categories       []domain.Category
	Keywords         map[domain.Category]domain.KeywordSet
	Mode             Mode
	BatchSize        int
	PerRequest       int // result cap per external call, also the affordability estimate
	PerCategoryLimit int
	Cooldown         time.Duration // spacing between external calls
	Retry            fn.RetryOpts
	DefaultCategory  domain.Category // classifier fallback in hybrid mode
}

// Orchestrator runs the harvest. The external channel is a process-wide
// exclusive resource, so a run is strictly sequential: each category is
// processed to completion, cooldown included, before the next begins.
type Orchestrator struct {
	cfg        Config
	cursor     *rotation.Cursor
	ledger     *quota.Ledger
	fetcher    Fetcher
	snapshots  *SnapshotStore
	publish    PublishFunc
	classifier *rank.Classifier
	limiter    *rate.Limiter
	met        *metrics.Registry
	log        *slog.Logger
}

// New wires an Orchestrator. publish and met may be nil.
func New(cfg Config, cursor *rotation.Cursor, ledger *quota.Ledger, fetcher Fetcher,
	snapshots *SnapshotStore, publish PublishFunc, met *metrics.Registry, log *slog.Logger) *Orchestrator {

	if cfg.Mode == "" {
		cfg.Mode = ModeRotate
	}
	if cfg.PerRequest <= 0 {
		cfg.PerRequest = 10
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Minute
	}
	if met == nil {
		met = metrics.New()
	}
	return &Orchestrator{
		cfg:        cfg,
		cursor:     cursor,
		ledger:     ledger,
		fetcher:    fetcher,
		snapshots:  snapshots,
		publish:    publish,
		classifier: rank.NewClassifier(cfg.Categories, cfg.Keywords, cfg.DefaultCategory),
		limiter:    rate.NewLimiter(rate.Every(cfg.Cooldown), 1),
		met:        met,
		log:        log,
	}
}

// RunOnce executes one harvesting invocation for the calendar day of now.
// Per-category failures never abort the run; the returned RunResult always
// carries every configured category. Only persistence failures (and caller
// cancellation) propagate as errors, alongside whatever partial result was
// already committed.
func (o *Orchestrator) RunOnce(ctx context.Context, now time.Time) (domain.RunResult, error) {
	ctx, span := otel.Tracer("engine/harvest").Start(ctx, "harvest.run")
	defer span.End()
	start := time.Now()

	selected, alreadyDone, err := o.cursor.SelectToday(now, o.cfg.BatchSize)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.RunResult{}, err
	}
	span.SetAttributes(attribute.Int("harvest.batch", len(selected)))

	result := domain.NewRunResult(domain.DateKey(now), o.cfg.Categories)
	result.Selected = selected

	if alreadyDone {
		return o.reloadToday(result)
	}

	switch o.cfg.Mode {
	case ModeHybrid:
		err = o.runHybrid(ctx, now, &result, selected)
	default:
		err = o.runRotate(ctx, now, &result, selected)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	if err := o.snapshots.Save(result); err != nil {
		err = domain.Persistf("run snapshot", err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	if o.publish != nil {
		if err := o.publish(ctx, result); err != nil {
			o.log.Warn("run result publish failed", "error", err)
		}
	}

	o.logSummary(now, result, time.Since(start))
	return result, nil
}

// reloadToday serves the idempotent same-day re-entry: no external call is
// made, the persisted snapshot (or a well-formed empty result when none
// survived) is returned as-is.
func (o *Orchestrator) reloadToday(result domain.RunResult) (domain.RunResult, error) {
	snap, ok, err := o.snapshots.Load(result.Date)
	if err != nil {
		o.log.Warn("snapshot reload failed, returning empty result", "date", result.Date, "error", err)
		return result, nil
	}
	if !ok {
		o.log.Info("today already harvested, no snapshot to reload", "date", result.Date)
		return result, nil
	}
	o.log.Info("today already harvested, returning snapshot",
		"date", result.Date, "items", snap.TotalItems())
	return snap, nil
}

func (o *Orchestrator) runRotate(ctx context.Context, now time.Time, result *domain.RunResult, selected []domain.Category) error {
	for _, cat := range selected {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-run: everything committed so far is already
			// durable, so surface the cancellation with the partial result.
			return err
		}

		affordable, err := o.ledger.CanAfford(now, o.cfg.PerRequest)
		if err != nil {
			return err
		}
		if !affordable {
			o.log.Warn("monthly quota exhausted, skipping category", "category", cat)
			o.counter("harvester_skipped_quota_total", cat).Inc()
			result.SetCategory(cat, domain.StatusSkippedQuota, nil)
			continue
		}

		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		// Charge the worst case before the call goes out: a crash mid-call
		// leaves the reservation on record rather than unbilled consumption.
		if err := o.ledger.Reserve(now, o.cfg.PerRequest); err != nil {
			return err
		}

		items, err := o.fetchCategory(ctx, cat)
		if err != nil {
			result.SetCategory(cat, domain.StatusFailed, nil)
			o.counter("harvester_fetch_failures_total", cat).Inc()
			if recErr := o.ledger.Reconcile(now, o.cfg.PerRequest, 0); recErr != nil {
				return recErr
			}
			continue
		}

		for i := range items {
			items[i].Category = cat
		}
		ranked := rank.Rank(items, o.cfg.PerCategoryLimit)

		status := domain.StatusFetched
		if len(items) == 0 {
			status = domain.StatusEmpty
		}
		result.SetCategory(cat, status, ranked[cat])

		o.counter("harvester_items_total", cat).Add(int64(len(items)))
		if err := o.ledger.Reconcile(now, o.cfg.PerRequest, len(items)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runHybrid(ctx context.Context, now time.Time, result *domain.RunResult, selected []domain.Category) error {
	affordable, err := o.ledger.CanAfford(now, o.cfg.PerRequest)
	if err != nil {
		return err
	}
	if !affordable {
		o.log.Warn("monthly quota exhausted, skipping hybrid batch")
		for _, cat := range selected {
			o.counter("harvester_skipped_quota_total", cat).Inc()
			result.SetCategory(cat, domain.StatusSkippedQuota, nil)
		}
		return nil
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := o.ledger.Reserve(now, o.cfg.PerRequest); err != nil {
		return err
	}

	keywords := make([]string, 0, len(selected))
	for _, cat := range selected {
		keywords = append(keywords, o.primaryKeyword(cat))
	}
	query := xsearch.BuildHybridQuery(keywords)

	items, err := o.fetch(ctx, "batch", query)
	if err != nil {
		for _, cat := range selected {
			result.SetCategory(cat, domain.StatusFailed, nil)
			o.counter("harvester_fetch_failures_total", cat).Inc()
		}
		return o.ledger.Reconcile(now, o.cfg.PerRequest, 0)
	}

	for i := range items {
		items[i].Category = o.classifier.Classify(items[i].Text)
	}
	ranked := rank.Rank(items, o.cfg.PerCategoryLimit)

	for _, cat := range selected {
		group := ranked[cat]
		status := domain.StatusFetched
		if len(group) == 0 {
			status = domain.StatusEmpty
		}
		result.SetCategory(cat, status, group)
		o.counter("harvester_items_total", cat).Add(int64(len(group)))
	}
	// Classification can land items in categories outside the selected
	// batch; keep them rather than discarding harvested content.
	for cat, group := range ranked {
		if cr := result.Categories[cat]; cr.Status == domain.StatusNotSelected && len(group) > 0 {
			result.SetCategory(cat, domain.StatusFetched, group)
		}
	}

	return o.ledger.Reconcile(now, o.cfg.PerRequest, len(items))
}

func (o *Orchestrator) fetchCategory(ctx context.Context, cat domain.Category) ([]domain.HarvestItem, error) {
	return o.fetch(ctx, string(cat), xsearch.BuildQuery(o.primaryKeyword(cat)))
}

// fetch runs one backoff-governed external call. Only rate-limit signals are
// retried; everything else fails the call immediately.
func (o *Orchestrator) fetch(ctx context.Context, label, query string) ([]domain.HarvestItem, error) {
	start := time.Now()
	attempts := 0

	opts := o.cfg.Retry
	opts.Transient = func(err error) bool { return errors.Is(err, domain.ErrRateLimited) }

	res := fn.Retry(ctx, opts, func(ctx context.Context) fn.Result[[]domain.HarvestItem] {
		attempts++
		return fn.FromPair(o.fetcher.SearchRecent(ctx, query, o.cfg.PerRequest))
	})
	o.histogram("harvester_fetch_duration_seconds", label).Since(start)

	items, err := res.Unwrap()
	elapsed := time.Since(start).Round(time.Millisecond)
	// The channel was consumed whether or not the call succeeded.
	o.counter("harvester_requests_total", domain.Category(label)).Inc()
	if err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			// Credentials problems hit every category; make them loud.
			o.log.Error("search authentication rejected, check bearer token",
				"category", label, "attempts", attempts, "elapsed", elapsed, "error", err)
		} else {
			o.log.Error("fetch failed",
				"category", label, "attempts", attempts, "elapsed", elapsed, "error", err)
		}
		return nil, err
	}

	o.log.Info("fetch succeeded",
		"category", label, "attempts", attempts, "elapsed", elapsed, "items", len(items))
	return items, nil
}

func (o *Orchestrator) primaryKeyword(cat domain.Category) string {
	if ks, ok := o.cfg.Keywords[cat]; ok && len(ks.Primary) > 0 {
		return ks.Primary[0]
	}
	return string(cat)
}

func (o *Orchestrator) counter(name string, cat domain.Category) *metrics.Counter {
	return o.met.Counter(metrics.WithLabels(name, "category", string(cat)), "")
}

func (o *Orchestrator) histogram(name, label string) *metrics.Histogram {
	return o.met.Histogram(metrics.WithLabels(name, "category", label), "", nil)
}

func (o *Orchestrator) logSummary(now time.Time, result domain.RunResult, elapsed time.Duration) {
	usage, err := o.ledger.Usage(now)
	if err != nil {
		o.log.Warn("usage summary unavailable", "error", err)
	}
	o.log.Info("harvest run complete",
		"date", result.Date,
		"selected", result.Selected,
		"covered", result.Covered(),
		"items", result.TotalItems(),
		"month_items", fmt.Sprintf("%d/%d", usage.ItemsRetrieved, o.ledger.Ceiling()),
		"month_requests", usage.RequestsMade,
		"elapsed", elapsed.Round(time.Millisecond))
}
