// Package analyzer calls the external semantic analysis service and
// normalizes its verdicts.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"sitewatch/internal/fetch/extract"
	"sitewatch/internal/monitor"
)

// promptContentCap bounds how much content each prompt carries. Content is
// already capped at fetch time; this is the tighter per-prompt bound.
const promptContentCap = 4000

// Config controls the HTTP client.
type Config struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// Client implements monitor.Analyzer against an OpenAI-compatible
// chat-completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

var _ monitor.Analyzer = (*Client)(nil)

// New builds a Client from configuration.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// verdict is the JSON contract the analyzer must answer with.
type verdict struct {
	HasChanges      bool              `json:"has_changes"`
	ChangeSummary   string            `json:"change_summary"`
	ImportanceScore int               `json:"importance_score"`
	AlertPriority   string            `json:"alert_priority"`
	KeyChanges      []string          `json:"key_changes"`
	SuggestedAction string            `json:"suggested_action"`
	Insights        map[string]string `json:"insights"`
}

// AnalyzeChanges asks the analyzer to compare two content versions and judge
// significance.
func (c *Client) AnalyzeChanges(ctx context.Context, oldContent, newContent string, targetType monitor.TargetType) (monitor.Analysis, error) {
	prompt := buildChangePrompt(oldContent, newContent, targetType)
	return c.complete(ctx, prompt)
}

// ExtractInsights asks the analyzer to summarize a first-seen capture.
func (c *Client) ExtractInsights(ctx context.Context, content string, targetType monitor.TargetType) (monitor.Analysis, error) {
	prompt := buildInsightsPrompt(content, targetType)
	analysis, err := c.complete(ctx, prompt)
	if err != nil {
		return monitor.Analysis{}, err
	}
	// Insights runs carry no change signal by definition.
	analysis.HasChanges = false
	return analysis, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (monitor.Analysis, error) {
	if c.cfg.Endpoint == "" || c.cfg.Model == "" {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("analyzer misconfigured")}
	}

	body, err := json.Marshal(map[string]any{
		"model": c.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
	})
	if err != nil {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("call analyzer: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return monitor.Analysis{}, &monitor.AnalyzerError{
			Err: fmt.Errorf("analyzer status %s: %s", resp.Status, strings.TrimSpace(string(msg))),
		}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("decode completion: %w", err)}
	}
	if len(completion.Choices) == 0 {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("empty completion")}
	}

	return parseVerdict(completion.Choices[0].Message.Content)
}

// parseVerdict unmarshals the model's JSON answer, tolerating markdown code
// fences, and clamps fields into their valid ranges.
func parseVerdict(raw string) (monitor.Analysis, error) {
	raw = stripCodeFence(raw)

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return monitor.Analysis{}, &monitor.AnalyzerError{Err: fmt.Errorf("parse verdict: %w", err)}
	}

	return monitor.Analysis{
		HasChanges:      v.HasChanges,
		ChangeSummary:   v.ChangeSummary,
		ImportanceScore: clampScore(v.ImportanceScore),
		AlertPriority:   normalizePriority(v.AlertPriority),
		KeyChanges:      v.KeyChanges,
		SuggestedAction: v.SuggestedAction,
		Insights:        v.Insights,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func normalizePriority(p string) monitor.Priority {
	switch monitor.Priority(strings.ToLower(strings.TrimSpace(p))) {
	case monitor.PriorityHigh:
		return monitor.PriorityHigh
	case monitor.PriorityMedium:
		return monitor.PriorityMedium
	default:
		return monitor.PriorityLow
	}
}

// Degraded is the zero-signal fallback substituted when the analyzer call
// fails. It never produces a notifiable change.
func Degraded() monitor.Analysis {
	return monitor.Analysis{
		HasChanges:      false,
		ChangeSummary:   "analysis unavailable",
		ImportanceScore: 1,
		AlertPriority:   monitor.PriorityLow,
		Degraded:        true,
	}
}

const systemPrompt = `You are a content monitoring analyst. You compare versions of web page content and judge whether they changed in ways the page owner's watcher should care about. Always answer with a single JSON object matching this shape exactly:
{"has_changes": bool, "change_summary": string, "importance_score": int (1-10), "key_changes": [string], "alert_priority": "low"|"medium"|"high", "suggested_action": string, "insights": {string: string}}`

func buildChangePrompt(oldContent, newContent string, targetType monitor.TargetType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target type: %s\n\n", targetType)
	b.WriteString("PREVIOUS CONTENT:\n")
	b.WriteString(extract.Truncate(oldContent, promptContentCap))
	b.WriteString("\n\nCURRENT CONTENT:\n")
	b.WriteString(extract.Truncate(newContent, promptContentCap))
	b.WriteString("\n\nCompare the two versions and respond with the JSON verdict.")
	return b.String()
}

func buildInsightsPrompt(content string, targetType monitor.TargetType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target type: %s\n\n", targetType)
	b.WriteString("CONTENT:\n")
	b.WriteString(extract.Truncate(content, promptContentCap))
	b.WriteString("\n\nThis is the first captured version. Summarize the notable facts as insights and respond with the JSON verdict (has_changes must be false).")
	return b.String()
}
