package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sitewatch/internal/metrics"
	"sitewatch/internal/monitor"
	storememory "sitewatch/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func TestEvaluate_DecisionTable(t *testing.T) {
	t.Parallel()

	enabled := monitor.DefaultPreferences()
	noChanges := enabled
	noChanges.EmailOnChanges = false
	noInsights := enabled
	noInsights.EmailOnInsights = false
	disabled := enabled
	disabled.NotificationsEnabled = false

	tests := []struct {
		name        string
		class       monitor.Classification
		analysis    monitor.Analysis
		prefs       monitor.Preferences
		wantKind    monitor.NotificationKind
		wantOutcome monitor.DecisionOutcome
	}{
		{
			name:        "changed above threshold sends",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: true, ImportanceScore: 7},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSent,
		},
		{
			name:        "changed below threshold suppressed",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: true, ImportanceScore: 4},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSuppressedThreshold,
		},
		{
			name:        "changed at threshold sends",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: true, ImportanceScore: 5},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSent,
		},
		{
			name:        "changed but change emails off",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: true, ImportanceScore: 9},
			prefs:       noChanges,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSkippedDisabled,
		},
		{
			name:        "changed but notifications disabled",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: true, ImportanceScore: 9},
			prefs:       disabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSkippedDisabled,
		},
		{
			name:        "changed without analyzer confirmation",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: false, ImportanceScore: 1},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSkippedNoSignal,
		},
		{
			name:        "first seen with insights sends",
			class:       monitor.ClassFirstSeen,
			analysis:    monitor.Analysis{Insights: map[string]string{"role": "cto"}},
			prefs:       enabled,
			wantKind:    monitor.KindInsights,
			wantOutcome: monitor.OutcomeSent,
		},
		{
			name:        "first seen with insights but insight emails off",
			class:       monitor.ClassFirstSeen,
			analysis:    monitor.Analysis{Insights: map[string]string{"role": "cto"}},
			prefs:       noInsights,
			wantKind:    monitor.KindInsights,
			wantOutcome: monitor.OutcomeSkippedDisabled,
		},
		{
			name:        "first seen without insights skipped",
			class:       monitor.ClassFirstSeen,
			analysis:    monitor.Analysis{},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSkippedNoSignal,
		},
		{
			name:        "first seen flagged as change sends",
			class:       monitor.ClassFirstSeen,
			analysis:    monitor.Analysis{HasChanges: true, ImportanceScore: 8},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSent,
		},
		{
			name:        "degraded analysis never notifies",
			class:       monitor.ClassChanged,
			analysis:    monitor.Analysis{HasChanges: false, ImportanceScore: 1, Degraded: true},
			prefs:       enabled,
			wantKind:    monitor.KindChange,
			wantOutcome: monitor.OutcomeSkippedNoSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, outcome := evaluate(tt.class, tt.analysis, tt.prefs)
			require.Equal(t, tt.wantKind, kind)
			require.Equal(t, tt.wantOutcome, outcome)
		})
	}
}

type seqIDs struct{ n int }

func (g *seqIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("d-%d", g.n), nil
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingNotifier struct{}

func (failingNotifier) Send(context.Context, monitor.Notification) error {
	return errors.New("mailer unreachable")
}

func TestEngine_SendFailureIsAuditedNotFatal(t *testing.T) {
	t.Parallel()

	decisions := storememory.NewDecisionStore()
	engine := NewEngine(failingNotifier{}, decisions, &seqIDs{}, fixedClock{now: time.Unix(100, 0)}, zap.NewNop())

	target := monitor.Target{ID: "t1", OwnerID: "o1", URL: "https://example.com", Type: monitor.TypeGenericWeb}
	analysis := monitor.Analysis{HasChanges: true, ImportanceScore: 9, AlertPriority: monitor.PriorityHigh}

	outcome := engine.Decide(context.Background(), target, monitor.ClassChanged, analysis, monitor.DefaultPreferences(), "o1")
	require.Equal(t, monitor.OutcomeSendFailed, outcome)
	require.False(t, Notified(outcome))

	rows := decisions.Decisions()
	require.Len(t, rows, 1)
	require.Equal(t, monitor.OutcomeSendFailed, rows[0].Outcome)
	require.Equal(t, 9, rows[0].ImportanceScore)
}

func TestEngine_SentOutcomeBuildsFullPayload(t *testing.T) {
	t.Parallel()

	notifier := NewMemoryNotifier()
	decisions := storememory.NewDecisionStore()
	engine := NewEngine(notifier, decisions, &seqIDs{}, fixedClock{now: time.Unix(100, 0)}, zap.NewNop())

	target := monitor.Target{ID: "t1", OwnerID: "o1", URL: "https://example.com/in/jane", Type: monitor.TypeSocialProfile}
	analysis := monitor.Analysis{
		HasChanges:      true,
		ChangeSummary:   "changed roles",
		ImportanceScore: 8,
		AlertPriority:   monitor.PriorityHigh,
		KeyChanges:      []string{"new title"},
		SuggestedAction: "reach out",
	}

	outcome := engine.Decide(context.Background(), target, monitor.ClassChanged, analysis, monitor.DefaultPreferences(), "jane@example.com")
	require.Equal(t, monitor.OutcomeSent, outcome)

	sent := notifier.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, monitor.KindChange, sent[0].Kind)
	require.Equal(t, "t1", sent[0].TargetID)
	require.Equal(t, "changed roles", sent[0].Summary)
	require.Equal(t, "jane@example.com", sent[0].Recipient)
	require.Equal(t, []string{"new title"}, sent[0].KeyChanges)
}
