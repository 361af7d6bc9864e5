// Package orchestrator drives one synchronization run through its states,
// with whole-run retry on failure.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samply/directory-sync-service-sub000/internal/aggregate"
	"github.com/samply/directory-sync-service-sub000/internal/correction"
	"github.com/samply/directory-sync-service-sub000/internal/directory"
	"github.com/samply/directory-sync-service-sub000/internal/dirmerge"
	"github.com/samply/directory-sync-service-sub000/internal/domain"
	"github.com/samply/directory-sync-service-sub000/internal/fhirstore"
	"github.com/samply/directory-sync-service-sub000/internal/platform/metrics"
	"github.com/samply/directory-sync-service-sub000/internal/starmodel"
	"github.com/samply/directory-sync-service-sub000/pkg/platform/retry"
	"github.com/samply/directory-sync-service-sub000/pkg/platform/sentinel"
)

// State names the phases of a synchronization run.
type State string

const (
	StateInit                State = "INIT"
	StateLogin               State = "LOGIN"
	StateDiagnosisCorrection State = "DIAGNOSIS_CORRECTION"
	StateStarModelUpdate     State = "STAR_MODEL_UPDATE"
	StateCollectionUpdate    State = "COLLECTION_UPDATE"
	StateBiobankUpdate       State = "BIOBANK_UPDATE"
	StateDone                State = "DONE"
	StateFailed              State = "FAILED"
)

// RowSource is the clinical-store surface a run needs.
type RowSource interface {
	FetchRows(ctx context.Context, defaultCollectionID string) (*fhirstore.Extraction, error)
	Biobanks(ctx context.Context) ([]fhirstore.Organization, error)
	UpdateEntity(ctx context.Context, org *fhirstore.Organization) error
}

// FactSink receives a copy of every published fact block. Optional.
type FactSink interface {
	ReplaceFacts(ctx context.Context, collectionID string, facts []domain.Fact) error
}

// Config holds the per-deployment knobs of a run.
type Config struct {
	CountryCode         string
	DefaultCollectionID string
	MinDonors           int
	MaxFacts            int
	UpdateStarModel     bool
	Attempts            int
	RetryInterval       time.Duration
}

// Result summarizes a finished run.
type Result struct {
	State              State
	Attempts           int
	Collections        int
	FactsPublished     int
	FactsSuppressed    int
	RowsSkipped        int
	DiagnosesCorrected int
	DiagnosesDiscarded int
	BiobanksUpdated    int
}

// Orchestrator owns the collaborators of a run. At most one run is active at
// a time; Run returns sentinel.ErrInvalidState while another is in flight.
type Orchestrator struct {
	cfg       Config
	registry  directory.Client
	store     RowSource
	corrector *correction.Corrector
	sink      FactSink
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     func() time.Time

	running sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger; each run derives a child with its run ID.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithFactSink mirrors published facts into a local sink.
func WithFactSink(sink FactSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithMetrics reports run outcomes to the given counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithTracer overrides the tracer used for per-state spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = tracer }
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = now }
}

// New wires an Orchestrator.
func New(cfg Config, registry directory.Client, store RowSource, corrector *correction.Corrector, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		store:     store,
		corrector: corrector,
		logger:    slog.Default(),
		tracer:    otel.Tracer("directory-sync"),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one synchronization. Any state failure restarts the whole run
// from LOGIN, up to the configured attempt count. The returned Result is
// valid even on error.
func (o *Orchestrator) Run(ctx context.Context) (Result, error) {
	if !o.running.TryLock() {
		return Result{State: StateFailed}, fmt.Errorf("sync already in progress: %w", sentinel.ErrInvalidState)
	}
	defer o.running.Unlock()

	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)
	if o.metrics != nil {
		o.metrics.SyncRuns.Inc()
	}

	var result Result
	result.State = StateInit

	policy := retry.New(
		retry.WithMaxAttempts(o.cfg.Attempts),
		retry.WithInterval(o.cfg.RetryInterval),
	)
	// Each attempt starts from a clean Result; only the attempt count
	// survives the reset.
	attempts := 0
	err := policy.Do(ctx, logger, "sync", func(ctx context.Context) error {
		attempts++
		result = Result{State: StateInit, Attempts: attempts}
		return o.attempt(ctx, logger, &result)
	})
	if err != nil {
		result.State = StateFailed
		if o.metrics != nil {
			o.metrics.SyncFailures.Inc()
		}
		logger.Error("sync failed", "error", err)
		return result, err
	}
	result.State = StateDone
	logger.Info("sync finished",
		"collections", result.Collections,
		"facts_published", result.FactsPublished,
		"biobanks_updated", result.BiobanksUpdated)
	return result, nil
}

// attempt runs the state sequence once. Nothing carries over between
// attempts; every attempt re-reads the store and the registry.
func (o *Orchestrator) attempt(ctx context.Context, logger *slog.Logger, result *Result) error {
	result.State = StateLogin
	if err := o.login(ctx); err != nil {
		return err
	}

	result.State = StateDiagnosisCorrection
	extraction, corrections, err := o.correctDiagnoses(ctx, logger, result)
	if err != nil {
		return err
	}

	if o.cfg.UpdateStarModel {
		result.State = StateStarModelUpdate
		if err := o.updateStarModel(ctx, logger, extraction, corrections, result); err != nil {
			return err
		}
	}

	result.State = StateCollectionUpdate
	if err := o.updateCollections(ctx, logger, extraction, corrections, result); err != nil {
		return err
	}

	result.State = StateBiobankUpdate
	if err := o.updateBiobanks(ctx, logger, result); err != nil {
		return err
	}
	return nil
}

func (o *Orchestrator) login(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "login")
	defer span.End()

	if err := o.registry.Login(ctx); err != nil {
		return fmt.Errorf("registry login: %w", err)
	}
	return nil
}

func (o *Orchestrator) correctDiagnoses(ctx context.Context, logger *slog.Logger, result *Result) (*fhirstore.Extraction, correction.Map, error) {
	ctx, span := o.tracer.Start(ctx, "diagnosis_correction")
	defer span.End()

	extraction, err := o.store.FetchRows(ctx, o.cfg.DefaultCollectionID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch rows: %w", err)
	}
	result.Collections = len(extraction.Rows)
	result.RowsSkipped += extraction.SkippedRows
	if o.metrics != nil {
		o.metrics.RowsSkipped.Add(float64(extraction.SkippedRows))
	}

	corrections, stats := o.corrector.BuildMap(ctx, distinctDiagnoses(extraction))
	result.DiagnosesCorrected = stats.Corrected
	result.DiagnosesDiscarded = stats.Discarded
	if o.metrics != nil {
		o.metrics.DiagnosesCorrected.Add(float64(stats.Corrected))
		o.metrics.DiagnosesDiscarded.Add(float64(stats.Discarded))
	}
	logger.Info("diagnosis correction done",
		"total", stats.Total,
		"corrected", stats.Corrected,
		"discarded", stats.Discarded,
		"validator_calls", stats.ValidatorCalls)
	return extraction, corrections, nil
}

// updateStarModel replaces each collection's facts in the registry. Existing
// facts are drained and deleted first so suppressed or vanished groups do not
// linger. Collections are processed concurrently; one failure fails the state.
func (o *Orchestrator) updateStarModel(ctx context.Context, logger *slog.Logger, extraction *fhirstore.Extraction, corrections correction.Map, result *Result) error {
	ctx, span := o.tracer.Start(ctx, "star_model_update")
	defer span.End()

	builder := starmodel.NewBuilder(corrections,
		starmodel.WithLogger(logger),
		starmodel.WithClock(o.clock),
	)

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	for collectionID, rows := range extraction.Rows {
		collectionID, rows := collectionID, rows
		group.Go(func() error {
			countryCode := o.countryCodeFor(collectionID)

			staleIDs, err := directory.AllFactIDs(ctx, o.registry, collectionID)
			if err != nil {
				return fmt.Errorf("collection %s: %w", collectionID, err)
			}
			if len(staleIDs) > 0 {
				if err := o.registry.DeleteFacts(ctx, countryCode, staleIDs); err != nil {
					return fmt.Errorf("collection %s: delete stale facts: %w", collectionID, err)
				}
			}

			facts, stats := builder.Build(collectionID, o.cfg.MinDonors, o.cfg.MaxFacts, rows)
			if err := directory.PushFacts(ctx, o.registry, countryCode, facts); err != nil {
				return fmt.Errorf("collection %s: %w", collectionID, err)
			}
			if o.sink != nil {
				if err := o.sink.ReplaceFacts(ctx, collectionID, facts); err != nil {
					return fmt.Errorf("collection %s: mirror facts: %w", collectionID, err)
				}
			}

			mu.Lock()
			result.FactsPublished += len(facts)
			result.FactsSuppressed += stats.SuppressedGroups
			result.RowsSkipped += stats.SkippedRows
			mu.Unlock()
			if o.metrics != nil {
				o.metrics.FactsPublished.Add(float64(len(facts)))
				o.metrics.FactsSuppressed.Add(float64(stats.SuppressedGroups))
				o.metrics.RowsSkipped.Add(float64(stats.SkippedRows))
			}
			logger.Info("star model updated",
				"collection", collectionID,
				"facts", len(facts),
				"suppressed", stats.SuppressedGroups,
				"stale_deleted", len(staleIDs))
			return nil
		})
	}
	return group.Wait()
}

func (o *Orchestrator) updateCollections(ctx context.Context, logger *slog.Logger, extraction *fhirstore.Extraction, corrections correction.Map, result *Result) error {
	ctx, span := o.tracer.Start(ctx, "collection_update")
	defer span.End()

	ids := extraction.CollectionIDs()
	if len(ids) == 0 {
		logger.Warn("no collections extracted, skipping collection update")
		return nil
	}

	puts := make([]directory.CollectionPut, 0, len(ids))
	for _, id := range ids {
		summary := aggregate.Summarize(id, extraction.Rows[id], extraction.Stats[id], corrections)
		puts = append(puts, directory.PutFromSummary(summary))
	}

	countryCode := o.countryCodeFor(ids[0])
	gets, err := o.registry.GetCollections(ctx, countryCode, ids)
	if err != nil {
		return fmt.Errorf("get collections: %w", err)
	}

	merge := dirmerge.Merge(gets, puts, logger)
	if !merge.Success() {
		return fmt.Errorf("no collection could be merged with registry data: %w", sentinel.ErrInvalidState)
	}

	// Collections the registry does not know were skipped by the merge and
	// carry blank registry-owned fields; they must not reach the PUT.
	known := make(map[string]struct{}, len(gets))
	for _, get := range gets {
		known[get.ID] = struct{}{}
	}
	merged := make([]directory.CollectionPut, 0, len(puts))
	for _, put := range puts {
		if _, ok := known[put.ID]; ok {
			merged = append(merged, put)
		}
	}

	if err := o.registry.PutCollections(ctx, countryCode, merged); err != nil {
		return fmt.Errorf("put collections: %w", err)
	}
	logger.Info("collections updated", "merged", merge.Merged, "skipped", merge.Skipped)
	return nil
}

// updateBiobanks copies registry-owned biobank metadata into the clinical
// store. A biobank missing on either side is skipped, not an error.
func (o *Orchestrator) updateBiobanks(ctx context.Context, logger *slog.Logger, result *Result) error {
	ctx, span := o.tracer.Start(ctx, "biobank_update")
	defer span.End()

	biobanks, err := o.store.Biobanks(ctx)
	if err != nil {
		return fmt.Errorf("fetch local biobanks: %w", err)
	}
	updater := fhirstore.NewBiobankUpdater()

	for i := range biobanks {
		org := &biobanks[i]
		record, err := o.registry.GetBiobank(ctx, org.BbmriEricID())
		if errors.Is(err, sentinel.ErrNotFound) {
			logger.Warn("biobank not in registry, skipped", "biobank", org.BbmriEricID())
			continue
		}
		if err != nil {
			return fmt.Errorf("get biobank %s: %w", org.BbmriEricID(), err)
		}

		changed, err := updater.Apply(org, *record)
		if err != nil {
			return fmt.Errorf("apply biobank %s: %w", org.BbmriEricID(), err)
		}
		if !changed {
			continue
		}
		if err := o.store.UpdateEntity(ctx, org); err != nil {
			return fmt.Errorf("update biobank %s: %w", org.BbmriEricID(), err)
		}
		result.BiobanksUpdated++
		logger.Info("biobank updated from registry", "biobank", org.BbmriEricID())
	}
	return nil
}

func (o *Orchestrator) countryCodeFor(collectionID string) string {
	if o.cfg.CountryCode != "" {
		return o.cfg.CountryCode
	}
	return directory.CountryCode(collectionID)
}

func distinctDiagnoses(extraction *fhirstore.Extraction) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, rows := range extraction.Rows {
		for _, row := range rows {
			if row.Diagnosis == "" {
				continue
			}
			if _, ok := seen[row.Diagnosis]; ok {
				continue
			}
			seen[row.Diagnosis] = struct{}{}
			codes = append(codes, row.Diagnosis)
		}
	}
	return codes
}
