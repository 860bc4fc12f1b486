// Package worker implements the check pipeline execution loop.
package worker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sitewatch/internal/analyzer"
	"sitewatch/internal/detect"
	"sitewatch/internal/metrics"
	"sitewatch/internal/monitor"
	"sitewatch/internal/notify"
)

// Config controls Worker behavior.
type Config struct {
	ArchiveContentType string
	ArchivePrefix      string
	Topic              string
}

// Worker consumes queue items and executes the check pipeline: fetch →
// classify → analyze → decide/notify → persist.
type Worker struct {
	queue     monitor.Queue
	targets   monitor.TargetStore
	snapshots monitor.SnapshotStore
	changes   monitor.ChangeStore
	fetcher   monitor.Fetcher
	analysis  monitor.Analyzer
	engine    *notify.Engine
	publisher monitor.Publisher
	archive   monitor.Archive
	locks     monitor.TargetLocker
	clock     monitor.Clock
	ids       monitor.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	queue monitor.Queue,
	targets monitor.TargetStore,
	snapshots monitor.SnapshotStore,
	changes monitor.ChangeStore,
	fetcher monitor.Fetcher,
	analysis monitor.Analyzer,
	engine *notify.Engine,
	publisher monitor.Publisher,
	archive monitor.Archive,
	locks monitor.TargetLocker,
	clock monitor.Clock,
	ids monitor.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ArchiveContentType == "" {
		cfg.ArchiveContentType = "text/html; charset=utf-8"
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "raw"
	}
	return &Worker{
		queue:     queue,
		targets:   targets,
		snapshots: snapshots,
		changes:   changes,
		fetcher:   fetcher,
		analysis:  analysis,
		engine:    engine,
		publisher: publisher,
		archive:   archive,
		locks:     locks,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// checkState is the single record threaded through the pipeline stages. Each
// stage fills in its fields; nothing is passed as loose values.
type checkState struct {
	target         monitor.Target
	fetched        monitor.FetchResult
	classification monitor.Classification
	analysis       monitor.Analysis
	snapshotID     *string
	notified       bool
	outcome        string
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.processCheck(ctx, item)
	}
}

func (w *Worker) processCheck(ctx context.Context, item monitor.CheckItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()
	// The scheduler took the lock at submission; the cycle ends here either
	// way, so release regardless of outcome.
	defer w.locks.Release(item.TargetID)

	target, err := w.targets.Get(ctx, item.TargetID)
	if err != nil {
		w.logger.Error("load target failed",
			zap.String("target_id", item.TargetID),
			zap.Error(err),
		)
		return
	}

	state := &checkState{target: target, outcome: "error"}
	defer func() {
		metrics.ObserveCheck(string(target.Type), state.outcome)
	}()

	if err := w.stageFetch(ctx, state); err != nil {
		// A failed fetch still advances last_checked so a permanently broken
		// target cannot hot-loop; hash and snapshot state stay put.
		state.outcome = "fetch_failed"
		w.logger.Warn("fetch failed",
			zap.String("target_id", target.ID),
			zap.String("url", target.URL),
			zap.Error(err),
		)
		if err := w.targets.TouchLastChecked(ctx, target.ID, w.clock.Now()); err != nil {
			w.logger.Error("touch last_checked failed", zap.String("target_id", target.ID), zap.Error(err))
		}
		return
	}

	w.stageClassify(state)

	if state.classification == monitor.ClassUnchanged {
		state.outcome = "unchanged"
		if err := w.persistCheckState(ctx, state); err != nil {
			w.logger.Error("persist check state failed", zap.String("target_id", target.ID), zap.Error(err))
		}
		return
	}

	w.stageAnalyze(ctx, state)
	w.stageArchive(ctx, state)

	if err := w.stagePersist(ctx, state); err != nil {
		w.logger.Error("persist failed",
			zap.String("target_id", target.ID),
			zap.Error(err),
		)
		return
	}

	w.stageDecide(ctx, state)
	w.stagePublish(ctx, state)

	state.outcome = string(state.classification)
	w.logger.Info("check complete",
		zap.String("target_id", target.ID),
		zap.String("classification", string(state.classification)),
		zap.Bool("notified", state.notified),
	)
}

func (w *Worker) stageFetch(ctx context.Context, state *checkState) error {
	result, err := w.fetcher.Fetch(ctx, state.target)
	if err != nil {
		return err
	}
	state.fetched = result
	metrics.ObserveFetch(string(state.target.Type), result.Duration)
	return nil
}

func (w *Worker) stageClassify(state *checkState) {
	state.classification = detect.Classify(state.target, state.fetched.ContentHash)
	if state.classification == monitor.ClassChanged {
		metrics.ObserveChange(string(state.target.Type))
	}
}

// stageAnalyze escalates FIRST_SEEN and CHANGED to the semantic analyzer.
// Analyzer failures degrade to a zero-signal result and never abort the
// pipeline.
func (w *Worker) stageAnalyze(ctx context.Context, state *checkState) {
	var (
		result monitor.Analysis
		err    error
	)
	switch state.classification {
	case monitor.ClassFirstSeen:
		result, err = w.analysis.ExtractInsights(ctx, state.fetched.Content, state.target.Type)
	case monitor.ClassChanged:
		oldContent := w.previousContent(ctx, state.target)
		result, err = w.analysis.AnalyzeChanges(ctx, oldContent, state.fetched.Content, state.target.Type)
	default:
		return
	}
	if err != nil {
		metrics.ObserveAnalyzerFailure()
		w.logger.Warn("analyzer degraded",
			zap.String("target_id", state.target.ID),
			zap.Error(err),
		)
		state.analysis = analyzer.Degraded()
		return
	}
	state.analysis = result
}

// previousContent loads the latest snapshot's content for the analyzer's
// old-content side. Targets without snapshots compare against empty content.
func (w *Worker) previousContent(ctx context.Context, target monitor.Target) string {
	if target.LatestSnapshotID == nil {
		return ""
	}
	snap, err := w.snapshots.Get(ctx, *target.LatestSnapshotID)
	if err != nil {
		w.logger.Warn("load previous snapshot failed",
			zap.String("target_id", target.ID),
			zap.String("snapshot_id", *target.LatestSnapshotID),
			zap.Error(err),
		)
		return ""
	}
	return snap.Content
}

// stageArchive stores the raw payload, best effort.
func (w *Worker) stageArchive(ctx context.Context, state *checkState) {
	if w.archive == nil || len(state.fetched.RawBody) == 0 {
		return
	}
	path := fmt.Sprintf("%s/%s/%s.html", w.cfg.ArchivePrefix, state.target.ID, state.fetched.ContentHash)
	if _, err := w.archive.PutObject(ctx, path, w.cfg.ArchiveContentType, state.fetched.RawBody); err != nil {
		w.logger.Warn("archive write failed",
			zap.String("target_id", state.target.ID),
			zap.Error(err),
		)
	}
}

// stagePersist writes the snapshot (session-backed types only) and the
// target's check state. The Change record is written later so it can carry
// the real notified flag.
func (w *Worker) stagePersist(ctx context.Context, state *checkState) error {
	if state.target.Type.SessionBacked() {
		id, err := w.ids.NewID()
		if err != nil {
			return fmt.Errorf("snapshot id: %w", err)
		}
		snap := monitor.Snapshot{
			ID:                 id,
			TargetID:           state.target.ID,
			Title:              state.fetched.Title,
			Content:            state.fetched.Content,
			ContentHash:        state.fetched.ContentHash,
			PreviousSnapshotID: state.target.LatestSnapshotID,
			CapturedAt:         w.clock.Now(),
		}
		if err := w.snapshots.Insert(ctx, snap); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		state.snapshotID = &id
	}
	return w.persistCheckState(ctx, state)
}

func (w *Worker) persistCheckState(ctx context.Context, state *checkState) error {
	hash := state.fetched.ContentHash
	return w.targets.UpdateCheckState(ctx, state.target.ID, w.clock.Now(), &hash, state.snapshotID)
}

// stageDecide runs the notification decision table and, on CHANGED, writes
// the Change record carrying the actual decision outcome.
func (w *Worker) stageDecide(ctx context.Context, state *checkState) {
	prefs, err := w.targets.Preferences(ctx, state.target.OwnerID)
	if err != nil {
		w.logger.Warn("load preferences failed, using defaults",
			zap.String("owner_id", state.target.OwnerID),
			zap.Error(err),
		)
		prefs = monitor.DefaultPreferences()
	}

	outcome := w.engine.Decide(ctx, state.target, state.classification, state.analysis, prefs, state.target.OwnerID)
	state.notified = notify.Notified(outcome)

	if state.classification != monitor.ClassChanged || !state.analysis.HasChanges {
		return
	}

	id, err := w.ids.NewID()
	if err != nil {
		w.logger.Error("change id generation failed", zap.Error(err))
		return
	}
	change := monitor.Change{
		ID:               id,
		TargetID:         state.target.ID,
		Summary:          state.analysis.ChangeSummary,
		BeforeSnapshotID: state.target.LatestSnapshotID,
		AfterSnapshotID:  state.snapshotID,
		ImportanceScore:  state.analysis.ImportanceScore,
		Notified:         state.notified,
		DetectedAt:       w.clock.Now(),
	}
	if err := w.changes.Insert(ctx, change); err != nil {
		w.logger.Error("insert change failed",
			zap.String("target_id", state.target.ID),
			zap.Error(err),
		)
	}
}

// stagePublish emits a change event, best effort.
func (w *Worker) stagePublish(ctx context.Context, state *checkState) {
	if w.publisher == nil || state.classification != monitor.ClassChanged || !state.analysis.HasChanges {
		return
	}
	event := map[string]any{
		"target_id":        state.target.ID,
		"target_url":       state.target.URL,
		"target_type":      string(state.target.Type),
		"summary":          state.analysis.ChangeSummary,
		"importance_score": state.analysis.ImportanceScore,
		"alert_priority":   string(state.analysis.AlertPriority),
		"detected_at":      w.clock.Now(),
	}
	if _, err := w.publisher.Publish(ctx, w.cfg.Topic, event); err != nil {
		w.logger.Warn("change event publish failed",
			zap.String("target_id", state.target.ID),
			zap.Error(err),
		)
	}
}
