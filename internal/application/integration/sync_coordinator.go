package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/websync/internal/domain/integration"
	"github.com/erp/websync/internal/infrastructure/logger"
	"github.com/erp/websync/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Request / Outcome
// ---------------------------------------------------------------------------

// SyncRequest describes one run handed to the coordinator
type SyncRequest struct {
	RunID        string
	ResourceType integration.ResourceType
	Mode         integration.SyncMode
	// Progress is the handle returned by ProgressTracker.Begin for this run
	Progress *RunProgress
}

// Storefront report statuses
const (
	StorefrontStatusOK      = "ok"
	StorefrontStatusFailed  = "failed"
	StorefrontStatusSkipped = "skipped"
)

// StorefrontReport is the per-storefront part of a run outcome
type StorefrontReport struct {
	Name    string
	Status  string
	Fetched int
	Tally
	Error string
}

// SyncOutcome summarizes a finished run
type SyncOutcome struct {
	RunID        string
	ResourceType integration.ResourceType
	Mode         integration.SyncMode
	Step         integration.SyncStep
	StartedAt    time.Time
	Duration     time.Duration
	Fetched      int
	Tally
	Storefronts []StorefrontReport
}

// ---------------------------------------------------------------------------
// SyncCoordinator
// ---------------------------------------------------------------------------

// CoordinatorConfig holds the coordinator settings
type CoordinatorConfig struct {
	Storefronts    []integration.Storefront
	OrderBatchSize int
}

// CoordinatorOption configures a SyncCoordinator
type CoordinatorOption func(*SyncCoordinator)

// WithClock overrides the time source
func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *SyncCoordinator) {
		c.now = now
	}
}

// WithSyncMetrics records run and record metrics
func WithSyncMetrics(m *telemetry.SyncMetrics) CoordinatorOption {
	return func(c *SyncCoordinator) {
		c.metrics = m
	}
}

// SyncCoordinator runs one sync from checkpoint read to checkpoint write.
// Storefronts are fetched one at a time and order batches persisted in
// sequence; failures of one storefront, product or batch are logged to the
// run progress and do not stop the run.
type SyncCoordinator struct {
	cfg         CoordinatorConfig
	feed        integration.StorefrontFeed
	catalog     *CatalogReconciler
	orders      *OrderReconciler
	rollup      *OrderCountRollup
	products    integration.WebProductRepository
	webOrders   integration.WebOrderRepository
	checkpoints integration.CheckpointRepository
	metrics     *telemetry.SyncMetrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewSyncCoordinator creates a new SyncCoordinator
func NewSyncCoordinator(
	cfg CoordinatorConfig,
	feed integration.StorefrontFeed,
	catalog *CatalogReconciler,
	orders *OrderReconciler,
	rollup *OrderCountRollup,
	products integration.WebProductRepository,
	webOrders integration.WebOrderRepository,
	checkpoints integration.CheckpointRepository,
	logger *zap.Logger,
	opts ...CoordinatorOption,
) *SyncCoordinator {
	if cfg.OrderBatchSize <= 0 {
		cfg.OrderBatchSize = DefaultOrderBatchSize
	}
	c := &SyncCoordinator{
		cfg:         cfg,
		feed:        feed,
		catalog:     catalog,
		orders:      orders,
		rollup:      rollup,
		products:    products,
		webOrders:   webOrders,
		checkpoints: checkpoints,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Storefronts returns the configured storefronts
func (c *SyncCoordinator) Storefronts() []integration.Storefront {
	return c.cfg.Storefronts
}

// Run executes one sync run to a terminal step. The returned error is non-nil
// only when the run ended Failed: on cancellation or a defect escaping the
// per-storefront, per-record and per-batch guards.
func (c *SyncCoordinator) Run(ctx context.Context, req SyncRequest) (outcome *SyncOutcome, err error) {
	if req.Progress == nil {
		return nil, fmt.Errorf("%w: run %s has no progress handle", integration.ErrProgressNotRegistered, req.RunID)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "websync", "run")
	defer span.End()
	telemetry.SetAttributes(span,
		"run_id", req.RunID,
		"resource_type", req.ResourceType.String(),
		"mode", string(req.Mode),
	)

	ctx, runLogger := logger.WithRunID(ctx, c.logger, req.RunID, req.ResourceType.String())
	run := &syncRun{
		c:        c,
		req:      req,
		progress: req.Progress,
		logger:   logger.WithTraceContext(ctx, runLogger),
		start:    c.now(),
	}
	run.outcome = &SyncOutcome{
		RunID:        req.RunID,
		ResourceType: req.ResourceType,
		Mode:         req.Mode,
		StartedAt:    run.start,
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync run panicked: %v", r)
			run.logger.Error("Sync run panicked", zap.Any("panic", r), zap.Stack("stacktrace"))
			run.fail(err)
			outcome = run.outcome
		}
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		c.metrics.RecordRun(ctx, req.ResourceType.String(), outcome.Step.String(), outcome.Duration)
	}()

	if err := run.execute(ctx); err != nil {
		run.fail(err)
		return run.outcome, err
	}
	return run.outcome, nil
}

// ---------------------------------------------------------------------------
// syncRun
// ---------------------------------------------------------------------------

type storefrontRun struct {
	sf         integration.Storefront
	checkpoint *integration.SyncCheckpoint
	products   []integration.RemoteProduct
	orders     []integration.RemoteOrder
	report     *StorefrontReport
}

func (s *storefrontRun) fetched() int {
	return len(s.products) + len(s.orders)
}

// syncRun is the state of one in-flight run; it is owned by a single goroutine
type syncRun struct {
	c        *SyncCoordinator
	req      SyncRequest
	progress *RunProgress
	logger   *zap.Logger
	start    time.Time
	outcome  *SyncOutcome
	reports  []*StorefrontReport
	active   []*storefrontRun
}

func (r *syncRun) execute(ctx context.Context) error {
	rt := r.req.ResourceType
	if !rt.IsValid() {
		return fmt.Errorf("%w: %q", integration.ErrInvalidResourceType, rt)
	}
	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	p := r.progress
	p.Step(integration.StepConnecting)
	p.Log(integration.LogInfo, "", "Starting %s %s sync across %d storefront(s)",
		r.req.Mode, rt, len(r.c.cfg.Storefronts))
	r.logger.Info("Sync run started",
		zap.String("mode", string(r.req.Mode)),
		zap.Int("storefronts", len(r.c.cfg.Storefronts)),
	)

	total, err := r.fetchAll(ctx)
	if err != nil {
		return err
	}
	r.outcome.Fetched = total

	if total == 0 {
		p.Log(integration.LogInfo, "", "No changes since last sync")
		p.Step(integration.StepFinalizing)
		r.complete()
		return nil
	}

	p.Step(integration.StepProcessing)
	p.SetTotal(total)

	switch rt {
	case integration.ResourceTypeProducts:
		err = r.processProducts(ctx)
	case integration.ResourceTypeOrders:
		err = r.processOrders(ctx)
	}
	if err != nil {
		return err
	}

	p.Step(integration.StepFinalizing)
	p.Processing(total, "", "Refreshing order counts")
	if n, err := r.c.rollup.Recompute(ctx); err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		p.Log(integration.LogWarn, "", "Order count refresh failed: %v", err)
		r.logger.Warn("Order count refresh failed", zap.Error(err))
	} else {
		p.Log(integration.LogInfo, "", "Order counts refreshed for %d product(s)", n)
	}

	if err := r.writeCheckpoints(ctx); err != nil {
		return err
	}
	r.complete()
	return nil
}

// fetchAll visits every configured storefront in order and returns the number
// of records fetched. A storefront that fails is logged and left out.
func (r *syncRun) fetchAll(ctx context.Context) (int, error) {
	p := r.progress
	rt := r.req.ResourceType
	total := 0

	for _, sf := range r.c.cfg.Storefronts {
		if ctx.Err() != nil {
			return 0, cancelled(ctx)
		}

		if !sf.IsComplete() {
			name := sf.Name
			if strings.TrimSpace(name) == "" {
				name = "(unnamed)"
			}
			p.Log(integration.LogWarn, name, "Skipping storefront %s: missing %s",
				name, strings.Join(sf.MissingFields(), ", "))
			r.reports = append(r.reports, &StorefrontReport{
				Name:   name,
				Status: StorefrontStatusSkipped,
			})
			continue
		}

		sr := &storefrontRun{sf: sf, report: &StorefrontReport{Name: sf.Name, Status: StorefrontStatusOK}}
		r.reports = append(r.reports, sr.report)

		cp, err := r.c.checkpoints.FindByID(ctx, integration.CheckpointID(rt, sf.Name))
		switch {
		case err == nil:
			sr.checkpoint = cp
		case errors.Is(err, integration.ErrCheckpointNotFound):
		default:
			if ctx.Err() != nil {
				return 0, cancelled(ctx)
			}
			r.storefrontFailed(sr, fmt.Errorf("failed to read checkpoint: %w", err))
			continue
		}

		cursor := integration.Cursor(sr.checkpoint, r.req.Mode)
		p.StartFetching(sf.Name)
		if cursor != nil {
			p.Log(integration.LogInfo, sf.Name, "Fetching %s from %s modified after %s",
				rt, sf.Name, cursor.UTC().Format(time.RFC3339))
		} else {
			p.Log(integration.LogInfo, sf.Name, "Fetching all %s from %s", rt, sf.Name)
		}

		if err := r.fetchStorefront(ctx, sr, cursor); err != nil {
			if ctx.Err() != nil {
				return 0, cancelled(ctx)
			}
			r.storefrontFailed(sr, err)
			continue
		}

		n := sr.fetched()
		sr.report.Fetched = n
		total += n
		r.active = append(r.active, sr)
		r.c.metrics.RecordRecords(ctx, rt.String(), sf.Name, telemetry.OutcomeFetched, n)
		p.Log(integration.LogInfo, sf.Name, "Found %d %s on %s", n, rt, sf.Name)
	}

	return total, nil
}

func (r *syncRun) fetchStorefront(ctx context.Context, sr *storefrontRun, cursor *time.Time) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "websync", "fetch")
	defer span.End()
	telemetry.SetAttributes(span, "storefront", sr.sf.Name, "resource_type", r.req.ResourceType.String())
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	switch r.req.ResourceType {
	case integration.ResourceTypeProducts:
		sr.products, err = r.c.feed.FetchProducts(ctx, sr.sf, cursor, r.progress)
	case integration.ResourceTypeOrders:
		sr.orders, err = r.c.feed.FetchOrders(ctx, sr.sf, cursor, r.progress)
	}
	return err
}

func (r *syncRun) storefrontFailed(sr *storefrontRun, err error) {
	sr.report.Status = StorefrontStatusFailed
	sr.report.Error = err.Error()
	r.progress.Log(integration.LogError, sr.sf.Name, "Storefront %s failed: %v", sr.sf.Name, err)
	r.logger.Warn("Storefront fetch failed",
		zap.String("storefront", sr.sf.Name),
		zap.Error(err),
	)
}

func (r *syncRun) processProducts(ctx context.Context) error {
	p := r.progress
	done := 0
	for _, sr := range r.active {
		for _, rp := range sr.products {
			if ctx.Err() != nil {
				return cancelled(ctx)
			}
			p.Processing(done, sr.sf.Name, fmt.Sprintf("Processing %s (%s)", productLabel(rp), sr.sf.Name))

			outcome, err := r.c.catalog.Reconcile(ctx, sr.sf.Name, rp)
			if err != nil {
				if ctx.Err() != nil {
					return cancelled(ctx)
				}
				p.Log(integration.LogError, sr.sf.Name, "Product %s on %s skipped: %v", productLabel(rp), sr.sf.Name, err)
				r.logger.Warn("Product skipped",
					zap.String("storefront", sr.sf.Name),
					zap.Int64("remote_id", rp.ID),
					zap.Error(err),
				)
				outcome = OutcomeSkipped
			}
			r.tally(sr, outcome, 1)
			done++
		}
	}
	p.Processing(done, "", "")
	return nil
}

func (r *syncRun) processOrders(ctx context.Context) error {
	p := r.progress

	pairs := make([]integration.StorefrontOrder, 0, r.outcome.Fetched)
	byName := make(map[string]*storefrontRun, len(r.active))
	for _, sr := range r.active {
		byName[sr.sf.Name] = sr
		for _, o := range sr.orders {
			pairs = append(pairs, integration.StorefrontOrder{Storefront: sr.sf.Name, Order: o})
		}
	}

	size := r.c.cfg.OrderBatchSize
	batches := (len(pairs) + size - 1) / size
	done := 0
	for i := 0; i < batches; i++ {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		end := min((i+1)*size, len(pairs))
		batch := pairs[i*size : end]

		p.Step(integration.StepProcessing)
		p.Processing(done, "", fmt.Sprintf("Processing batch %d/%d (%d orders)", i+1, batches, len(batch)))

		res, err := r.persistOrderBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(ctx)
			}
			p.Log(integration.LogError, "", "Order batch %d/%d failed, %d order(s) skipped: %v", i+1, batches, len(batch), err)
			r.logger.Warn("Order batch failed",
				zap.Int("batch", i+1),
				zap.Int("orders", len(batch)),
				zap.Error(err),
			)
		}
		for name, t := range res.ByStorefront {
			sr := byName[name]
			if sr == nil {
				continue
			}
			r.tally(sr, OutcomeAdded, t.Added)
			r.tally(sr, OutcomeUpdated, t.Updated)
			r.tally(sr, OutcomeSkipped, t.Skipped)
		}
		done += len(batch)
	}
	p.Processing(done, "", "")
	return nil
}

func (r *syncRun) persistOrderBatch(ctx context.Context, batch []integration.StorefrontOrder) (res BatchResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "websync", "order_batch")
	defer span.End()
	telemetry.SetAttributes(span, "orders", len(batch))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
	}()

	lookup, err := r.c.products.FindByLookupKeys(ctx, LookupKeys(batch))
	if err != nil {
		return skippedBatch(batch), fmt.Errorf("failed to load web products: %w", err)
	}
	return r.c.orders.ReconcileBatch(ctx, batch, lookup)
}

func (r *syncRun) tally(sr *storefrontRun, o Outcome, n int) {
	if n <= 0 {
		return
	}
	sr.report.Tally.Add(o, n)
	r.outcome.Tally.Add(o, n)
	switch o {
	case OutcomeAdded:
		r.progress.Tally(n, 0, 0)
	case OutcomeUpdated:
		r.progress.Tally(0, n, 0)
	default:
		r.progress.Tally(0, 0, n)
	}
	r.c.metrics.RecordRecords(context.Background(), r.req.ResourceType.String(), sr.sf.Name, string(o), n)
}

// writeCheckpoints advances the checkpoint of every storefront fetched in this
// run, including those that returned nothing, so the next cursor moves forward.
// A storefront whose fetch failed keeps its previous checkpoint.
func (r *syncRun) writeCheckpoints(ctx context.Context) error {
	rt := r.req.ResourceType
	for _, sr := range r.active {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}

		count, err := r.storedCount(ctx, sr.sf.Name)
		if err != nil {
			r.logger.Warn("Record count failed, using fetched count",
				zap.String("storefront", sr.sf.Name),
				zap.Error(err),
			)
			count = int64(sr.fetched())
		}

		cp := sr.checkpoint
		if cp == nil {
			cp = integration.NewSyncCheckpoint(rt, sr.sf.Name)
		}
		cp.Advance(r.start, r.req.Mode, count, integration.SyncStats{
			Added:    sr.report.Added,
			Updated:  sr.report.Updated,
			Duration: r.c.now().Sub(r.start),
		})

		if err := r.c.checkpoints.Upsert(ctx, cp); err != nil {
			if ctx.Err() != nil {
				return cancelled(ctx)
			}
			r.progress.Log(integration.LogError, sr.sf.Name, "Checkpoint for %s not saved: %v", sr.sf.Name, err)
			r.logger.Error("Checkpoint upsert failed",
				zap.String("checkpoint_id", cp.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (r *syncRun) storedCount(ctx context.Context, storefront string) (int64, error) {
	if r.req.ResourceType == integration.ResourceTypeOrders {
		return r.c.webOrders.CountByStorefront(ctx, storefront)
	}
	return r.c.products.CountByStorefront(ctx, storefront)
}

func (r *syncRun) collectReports() {
	r.outcome.Storefronts = make([]StorefrontReport, 0, len(r.reports))
	for _, rep := range r.reports {
		r.outcome.Storefronts = append(r.outcome.Storefronts, *rep)
	}
}

func (r *syncRun) complete() {
	elapsed := r.c.now().Sub(r.start)
	r.outcome.Step = integration.StepComplete
	r.outcome.Duration = elapsed
	r.collectReports()

	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(r.outcome.Fetched) / secs
	}
	r.progress.Finish(integration.StepComplete,
		"Sync complete: %d fetched, %d added, %d updated, %d skipped in %s (%.1f records/s)",
		r.outcome.Fetched, r.outcome.Added, r.outcome.Updated, r.outcome.Skipped,
		elapsed.Round(time.Millisecond), rate,
	)
	r.logger.Info("Sync run complete",
		zap.Int("fetched", r.outcome.Fetched),
		zap.Int("added", r.outcome.Added),
		zap.Int("updated", r.outcome.Updated),
		zap.Int("skipped", r.outcome.Skipped),
		zap.Duration("duration", elapsed),
	)
}

func (r *syncRun) fail(err error) {
	r.outcome.Step = integration.StepFailed
	r.outcome.Duration = r.c.now().Sub(r.start)
	r.collectReports()

	if errors.Is(err, integration.ErrSyncCancelled) {
		r.progress.Finish(integration.StepFailed, "Sync cancelled: %v", err)
		r.logger.Warn("Sync run cancelled", zap.Error(err))
		return
	}
	r.progress.Finish(integration.StepFailed, "Sync failed: %v", err)
	r.logger.Error("Sync run failed", zap.Error(err))
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %v", integration.ErrSyncCancelled, context.Cause(ctx))
}

func productLabel(rp integration.RemoteProduct) string {
	if rp.Name != "" {
		return fmt.Sprintf("%q (#%d)", rp.Name, rp.ID)
	}
	return fmt.Sprintf("#%d", rp.ID)
}
