// Package notify decides whether an analysis result becomes a notification
// and delivers it.
package notify

import (
	"context"

	"go.uber.org/zap"

	"sitewatch/internal/metrics"
	"sitewatch/internal/monitor"
)

// Engine applies recipient preferences to an analysis verdict, dispatches the
// notification when warranted, and records every decision for audit.
type Engine struct {
	notifier  monitor.Notifier
	decisions monitor.DecisionStore
	ids       monitor.IDGenerator
	clock     monitor.Clock
	logger    *zap.Logger
}

// NewEngine builds an Engine.
func NewEngine(notifier monitor.Notifier, decisions monitor.DecisionStore, ids monitor.IDGenerator, clock monitor.Clock, logger *zap.Logger) *Engine {
	return &Engine{
		notifier:  notifier,
		decisions: decisions,
		ids:       ids,
		clock:     clock,
		logger:    logger,
	}
}

// Decide runs the decision table for one completed analysis and returns the
// audited outcome. Notification delivery is best effort: a send failure is
// audited and logged but never propagated.
func (e *Engine) Decide(ctx context.Context, target monitor.Target, class monitor.Classification, analysis monitor.Analysis, prefs monitor.Preferences, recipient string) monitor.DecisionOutcome {
	kind, outcome := evaluate(class, analysis, prefs)

	if outcome == monitor.OutcomeSent {
		notification := buildNotification(kind, target, analysis, recipient)
		if err := e.notifier.Send(ctx, notification); err != nil {
			e.logger.Warn("notification send failed",
				zap.String("target_id", target.ID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			outcome = monitor.OutcomeSendFailed
		}
	}

	e.record(ctx, target, kind, outcome, analysis.ImportanceScore)
	metrics.ObserveNotification(string(kind), string(outcome))
	return outcome
}

// evaluate is the pure decision table.
func evaluate(class monitor.Classification, analysis monitor.Analysis, prefs monitor.Preferences) (monitor.NotificationKind, monitor.DecisionOutcome) {
	switch {
	case class == monitor.ClassChanged && analysis.HasChanges:
		if !prefs.NotificationsEnabled || !prefs.EmailOnChanges {
			return monitor.KindChange, monitor.OutcomeSkippedDisabled
		}
		if analysis.ImportanceScore < prefs.MinImportanceScore {
			return monitor.KindChange, monitor.OutcomeSuppressedThreshold
		}
		return monitor.KindChange, monitor.OutcomeSent

	case class == monitor.ClassFirstSeen && !analysis.HasChanges && len(analysis.Insights) > 0:
		if !prefs.NotificationsEnabled || !prefs.EmailOnInsights {
			return monitor.KindInsights, monitor.OutcomeSkippedDisabled
		}
		return monitor.KindInsights, monitor.OutcomeSent

	case class == monitor.ClassFirstSeen && analysis.HasChanges:
		// The analyzer may flag a change on a first capture; treat it as a
		// change alert subject to the same preference gates.
		if !prefs.NotificationsEnabled || !prefs.EmailOnChanges {
			return monitor.KindChange, monitor.OutcomeSkippedDisabled
		}
		if analysis.ImportanceScore < prefs.MinImportanceScore {
			return monitor.KindChange, monitor.OutcomeSuppressedThreshold
		}
		return monitor.KindChange, monitor.OutcomeSent

	default:
		return monitor.KindChange, monitor.OutcomeSkippedNoSignal
	}
}

func buildNotification(kind monitor.NotificationKind, target monitor.Target, analysis monitor.Analysis, recipient string) monitor.Notification {
	return monitor.Notification{
		Kind:            kind,
		TargetID:        target.ID,
		TargetURL:       target.URL,
		TargetType:      target.Type,
		Summary:         analysis.ChangeSummary,
		ImportanceScore: analysis.ImportanceScore,
		Priority:        analysis.AlertPriority,
		KeyChanges:      analysis.KeyChanges,
		SuggestedAction: analysis.SuggestedAction,
		Insights:        analysis.Insights,
		Recipient:       recipient,
	}
}

// record writes the audit row. Audit failures are logged, never fatal.
func (e *Engine) record(ctx context.Context, target monitor.Target, kind monitor.NotificationKind, outcome monitor.DecisionOutcome, score int) {
	id, err := e.ids.NewID()
	if err != nil {
		e.logger.Error("decision id generation failed", zap.Error(err))
		return
	}
	decision := monitor.Decision{
		ID:              id,
		TargetID:        target.ID,
		Kind:            kind,
		Outcome:         outcome,
		ImportanceScore: score,
		DecidedAt:       e.clock.Now(),
	}
	if err := e.decisions.Insert(ctx, decision); err != nil {
		e.logger.Error("decision audit write failed",
			zap.String("target_id", target.ID),
			zap.Error(err),
		)
	}
}

// Notified reports whether the outcome means an alert actually went out.
func Notified(outcome monitor.DecisionOutcome) bool {
	return outcome == monitor.OutcomeSent
}
