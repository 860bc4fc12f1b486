// Package monitor defines core types shared across subsystems.
package monitor

import "time"

// TargetType discriminates how a target's content is fetched.
type TargetType string

// Target type values persisted in the target store.
const (
	TypeGenericWeb    TargetType = "generic_web"
	TypeSocialProfile TargetType = "social_profile"
	TypeSocialOrg     TargetType = "social_org"
)

// SessionBacked reports whether the type requires the shared browser session.
func (t TargetType) SessionBacked() bool {
	return t == TypeSocialProfile || t == TypeSocialOrg
}

// Valid reports whether the type is one of the known values.
func (t TargetType) Valid() bool {
	switch t {
	case TypeGenericWeb, TypeSocialProfile, TypeSocialOrg:
		return true
	default:
		return false
	}
}

// Target is a monitored URL plus its schedule and last known state.
type Target struct {
	ID               string        `json:"id"`
	OwnerID          string        `json:"owner_id"`
	URL              string        `json:"url"`
	Type             TargetType    `json:"type"`
	CheckInterval    time.Duration `json:"check_interval"`
	Active           bool          `json:"is_active"`
	LastChecked      *time.Time    `json:"last_checked,omitempty"`
	LastContentHash  *string       `json:"last_content_hash,omitempty"`
	LatestSnapshotID *string       `json:"latest_snapshot_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Due reports whether the target should be checked at the given instant.
func (t Target) Due(now time.Time) bool {
	if !t.Active {
		return false
	}
	if t.LastChecked == nil {
		return true
	}
	return now.Sub(*t.LastChecked) >= t.CheckInterval
}

// Snapshot is one captured, hashed version of a target's content. Snapshots
// form a singly-linked chain through PreviousSnapshotID, terminating at nil.
type Snapshot struct {
	ID                 string    `json:"id"`
	TargetID           string    `json:"target_id"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	ContentHash        string    `json:"content_hash"`
	PreviousSnapshotID *string   `json:"previous_snapshot_id,omitempty"`
	CapturedAt         time.Time `json:"captured_at"`
}

// Change records that two consecutive snapshots differ meaningfully.
type Change struct {
	ID               string    `json:"id"`
	TargetID         string    `json:"target_id"`
	Summary          string    `json:"summary"`
	BeforeSnapshotID *string   `json:"before_snapshot_id,omitempty"`
	AfterSnapshotID  *string   `json:"after_snapshot_id,omitempty"`
	ImportanceScore  int       `json:"importance_score"`
	Notified         bool      `json:"notified"`
	DetectedAt       time.Time `json:"detected_at"`
}

// FetchResult is the normalized output of any fetch path.
type FetchResult struct {
	Title       string
	Content     string
	ContentHash string
	RawBody     []byte
	Duration    time.Duration
}

// Classification is the hash-based verdict for one check cycle.
type Classification string

// Classification values.
const (
	ClassFirstSeen Classification = "first_seen"
	ClassUnchanged Classification = "unchanged"
	ClassChanged   Classification = "changed"
)

// Priority is the analyzer-assigned alert priority.
type Priority string

// Priority values returned by the analyzer.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Analysis is the normalized semantic analyzer verdict. Degraded is set when
// the analyzer call failed and the zero-signal fallback was substituted.
type Analysis struct {
	HasChanges      bool              `json:"has_changes"`
	ChangeSummary   string            `json:"change_summary"`
	ImportanceScore int               `json:"importance_score"`
	AlertPriority   Priority          `json:"alert_priority"`
	KeyChanges      []string          `json:"key_changes"`
	SuggestedAction string            `json:"suggested_action"`
	Insights        map[string]string `json:"insights,omitempty"`
	Degraded        bool              `json:"-"`
}

// Preferences are the target owner's notification thresholds.
type Preferences struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	EmailOnChanges       bool `json:"email_on_changes"`
	EmailOnInsights      bool `json:"email_on_insights"`
	MinImportanceScore   int  `json:"min_importance_score"`
}

// DefaultPreferences mirror the defaults applied to new owner accounts.
func DefaultPreferences() Preferences {
	return Preferences{
		NotificationsEnabled: true,
		EmailOnChanges:       true,
		EmailOnInsights:      true,
		MinImportanceScore:   5,
	}
}

// NotificationKind distinguishes change alerts from first-seen insights.
type NotificationKind string

// Notification kinds.
const (
	KindChange   NotificationKind = "change"
	KindInsights NotificationKind = "insights"
)

// DecisionOutcome is the audited result of one notification decision.
type DecisionOutcome string

// Decision outcomes persisted for audit.
const (
	OutcomeSent                DecisionOutcome = "sent"
	OutcomeSuppressedThreshold DecisionOutcome = "suppressed_threshold"
	OutcomeSkippedDisabled     DecisionOutcome = "skipped_disabled"
	OutcomeSkippedNoSignal     DecisionOutcome = "skipped_no_signal"
	OutcomeSendFailed          DecisionOutcome = "send_failed"
)

// Decision is the audit record written for every notification decision,
// independent of whether the email actually went out.
type Decision struct {
	ID              string           `json:"id"`
	TargetID        string           `json:"target_id"`
	Kind            NotificationKind `json:"kind"`
	Outcome         DecisionOutcome  `json:"outcome"`
	ImportanceScore int              `json:"importance_score"`
	DecidedAt       time.Time        `json:"decided_at"`
}

// Notification is the fully-formed payload handed to the external notifier.
type Notification struct {
	Kind            NotificationKind  `json:"kind"`
	TargetID        string            `json:"target_id"`
	TargetURL       string            `json:"target_url"`
	TargetType      TargetType        `json:"target_type"`
	Summary         string            `json:"summary"`
	ImportanceScore int               `json:"importance_score"`
	Priority        Priority          `json:"priority"`
	KeyChanges      []string          `json:"key_changes,omitempty"`
	SuggestedAction string            `json:"suggested_action,omitempty"`
	Insights        map[string]string `json:"insights,omitempty"`
	Recipient       string            `json:"recipient"`
}

// CheckItem is one scheduled or on-demand check waiting in the queue. It is
// the job handle returned by submission.
type CheckItem struct {
	TargetID  string
	Forced    bool
	Submitted time.Time
}
