package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/models"
)

// deadlineLayout is the only accepted format for suggested deadlines.
// Anything the provider returns that does not parse with it triggers the
// heuristic fallback.
const deadlineLayout = "2006-01-02 15:04"

// maxFallbackDeadlineDays caps how far out the heuristic deadline can land
const maxFallbackDeadlineDays = 7

// urgencyWords is the shared urgency lexicon used by both the suggestion
// heuristics and the context analyzer fallback.
var urgencyWords = []string{
	"urgent", "asap", "immediately", "deadline",
	"due", "important", "critical", "emergency",
}

// SuggestionEngine produces priority scores, deadlines, categorization, and
// enhanced descriptions for tasks. Each operation asks the completion
// provider first and silently falls back to a deterministic heuristic when
// the provider is unavailable or returns an unparseable reply. A nil
// provider means heuristics only.
type SuggestionEngine struct {
	provider CompletionProvider
	logger   *zap.Logger
	now      func() time.Time
}

// NewSuggestionEngine creates a suggestion engine. provider may be nil.
func NewSuggestionEngine(provider CompletionProvider, logger *zap.Logger) *SuggestionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionEngine{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// ScorePriority returns a priority score in [0,1] for the task described by
// title and description, optionally informed by recent context entries.
func (e *SuggestionEngine) ScorePriority(ctx context.Context, title, description string, recent []models.ContextEntry) float64 {
	if e.provider == nil {
		return fallbackPriorityScore(title, description)
	}

	prompt := buildPriorityPrompt(title, description, recent)
	reply, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.logFallback("score_priority", err)
		return fallbackPriorityScore(title, description)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		e.logFallback("score_priority", fmt.Errorf("parse score: %w", err))
		return fallbackPriorityScore(title, description)
	}

	return clampScore(score)
}

// SuggestDeadline returns a suggested deadline for the task, or nil when no
// deadline is warranted. openCount is the caller's current number of open
// tasks and drives the heuristic when the provider cannot answer.
func (e *SuggestionEngine) SuggestDeadline(ctx context.Context, title, description string, openCount int) *time.Time {
	if e.provider == nil {
		return fallbackDeadline(openCount, e.now())
	}

	prompt := buildDeadlinePrompt(title, description, openCount)
	reply, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.logFallback("suggest_deadline", err)
		return fallbackDeadline(openCount, e.now())
	}

	trimmed := strings.TrimSpace(reply)
	if strings.EqualFold(trimmed, "none") {
		return nil
	}

	deadline, err := time.Parse(deadlineLayout, trimmed)
	if err != nil {
		e.logFallback("suggest_deadline", fmt.Errorf("parse deadline: %w", err))
		return fallbackDeadline(openCount, e.now())
	}

	return &deadline
}

// SuggestCategoryAndTags returns a category name and tag list for the task
func (e *SuggestionEngine) SuggestCategoryAndTags(ctx context.Context, title, description string) (string, []string) {
	if e.provider == nil {
		return fallbackCategoryAndTags(title)
	}

	prompt := buildCategoryPrompt(title, description)
	reply, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.logFallback("suggest_category", err)
		return fallbackCategoryAndTags(title)
	}

	var suggestion struct {
		Category string   `json:"category"`
		Tags     []string `json:"tags"`
	}
	if err := unmarshalLooseJSON(reply, &suggestion); err != nil {
		e.logFallback("suggest_category", fmt.Errorf("parse categorization: %w", err))
		return fallbackCategoryAndTags(title)
	}

	if suggestion.Category == "" {
		suggestion.Category = "General"
	}
	if suggestion.Tags == nil {
		suggestion.Tags = []string{}
	}
	return suggestion.Category, suggestion.Tags
}

// EnhanceDescription returns a context-aware enhanced description for the
// task. The reply is used verbatim (trimmed); on unavailability the original
// description is kept, or a stub is generated when it is empty.
func (e *SuggestionEngine) EnhanceDescription(ctx context.Context, title, description string, recent []models.ContextEntry) string {
	if e.provider == nil {
		return fallbackDescription(title, description)
	}

	prompt := buildEnhancePrompt(title, description, recent)
	reply, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		e.logFallback("enhance_description", err)
		return fallbackDescription(title, description)
	}

	enhanced := strings.TrimSpace(reply)
	if enhanced == "" {
		return fallbackDescription(title, description)
	}
	return enhanced
}

func (e *SuggestionEngine) logFallback(operation string, err error) {
	e.logger.Warn("suggestion_fallback",
		zap.String("operation", operation),
		zap.Error(err),
	)
}

// --- prompt builders ---

func buildPriorityPrompt(title, description string, recent []models.ContextEntry) string {
	var b strings.Builder
	b.WriteString("Calculate a priority score (0.0 to 1.0) for this task based on:\n")
	fmt.Fprintf(&b, "- Task title: %s\n", title)
	fmt.Fprintf(&b, "- Task description: %s\n", description)
	fmt.Fprintf(&b, "- Recent context: %s\n\n", summarizeContext(recent))
	b.WriteString("Consider factors like:\n")
	b.WriteString("- Urgency indicators (deadline, urgent, ASAP, etc.)\n")
	b.WriteString("- Importance keywords (critical, important, must, etc.)\n")
	b.WriteString("- Context relevance\n")
	b.WriteString("- Time sensitivity\n\n")
	b.WriteString("Return only the numeric score (0.0 to 1.0).")
	return b.String()
}

func buildDeadlinePrompt(title, description string, openCount int) string {
	var b strings.Builder
	b.WriteString("Suggest a realistic deadline for this task:\n")
	fmt.Fprintf(&b, "- Task: %s\n", title)
	fmt.Fprintf(&b, "- Description: %s\n", description)
	fmt.Fprintf(&b, "- Current workload: %d tasks\n\n", openCount)
	b.WriteString("Consider:\n")
	b.WriteString("- Task complexity and scope\n")
	b.WriteString("- Current workload\n")
	b.WriteString("- Typical completion times for similar tasks\n")
	b.WriteString("- Buffer time for unexpected issues\n\n")
	b.WriteString("Return the suggested deadline in format: YYYY-MM-DD HH:MM\n")
	b.WriteString("If no specific deadline needed, return \"None\"")
	return b.String()
}

func buildCategoryPrompt(title, description string) string {
	var b strings.Builder
	b.WriteString("Suggest a category and tags for this task:\n")
	fmt.Fprintf(&b, "- Task: %s\n", title)
	fmt.Fprintf(&b, "- Description: %s\n\n", description)
	b.WriteString(`Return as JSON: {"category": "category_name", "tags": ["tag1", "tag2", "tag3"]}`)
	b.WriteString("\n\nCommon categories: Work, Personal, Health, Finance, Learning, Home, Social")
	return b.String()
}

func buildEnhancePrompt(title, description string, recent []models.ContextEntry) string {
	var b strings.Builder
	b.WriteString("Enhance this task description with relevant context and details:\n")
	fmt.Fprintf(&b, "- Original title: %s\n", title)
	fmt.Fprintf(&b, "- Original description: %s\n", description)
	fmt.Fprintf(&b, "- Context: %s\n\n", summarizeContext(recent))
	b.WriteString("Provide an enhanced description that:\n")
	b.WriteString("- Includes relevant context\n")
	b.WriteString("- Adds specific details and requirements\n")
	b.WriteString("- Mentions related deadlines or dependencies\n")
	b.WriteString("- Suggests approach or steps\n\n")
	b.WriteString("Return only the enhanced description.")
	return b.String()
}

func summarizeContext(entries []models.ContextEntry) string {
	if len(entries) == 0 {
		return ""
	}
	contents := make([]string, 0, len(entries))
	for _, entry := range entries {
		contents = append(contents, entry.Content)
	}
	return strings.Join(contents, " ")
}

// --- deterministic fallbacks ---

func fallbackPriorityScore(title, description string) float64 {
	text := strings.ToLower(title + " " + description)

	count := 0
	for _, word := range urgencyWords {
		if strings.Contains(text, word) {
			count++
		}
	}

	switch {
	case count >= 2:
		return 0.9
	case count == 1:
		return 0.7
	default:
		return 0.5
	}
}

func fallbackDeadline(openCount int, now time.Time) *time.Time {
	days := openCount + 1
	if days > maxFallbackDeadlineDays {
		days = maxFallbackDeadlineDays
	}
	deadline := now.AddDate(0, 0, days)
	return &deadline
}

// categoryBucket pairs a category with its trigger words and canonical tags
type categoryBucket struct {
	name     string
	triggers []string
	tags     []string
}

// categoryBuckets is evaluated in order; first match wins
var categoryBuckets = []categoryBucket{
	{name: "Work", triggers: []string{"work", "job", "office", "meeting", "project"}, tags: []string{"work", "professional"}},
	{name: "Home", triggers: []string{"home", "house", "clean", "cook", "garden"}, tags: []string{"home", "household"}},
	{name: "Health", triggers: []string{"health", "exercise", "gym", "doctor", "medical"}, tags: []string{"health", "wellness"}},
	{name: "Learning", triggers: []string{"learn", "study", "course", "book", "read"}, tags: []string{"learning", "education"}},
}

func fallbackCategoryAndTags(title string) (string, []string) {
	titleLower := strings.ToLower(title)

	for _, bucket := range categoryBuckets {
		for _, trigger := range bucket.triggers {
			if strings.Contains(titleLower, trigger) {
				return bucket.name, append([]string(nil), bucket.tags...)
			}
		}
	}

	return "Personal", []string{"personal", "general"}
}

func fallbackDescription(title, description string) string {
	if description != "" {
		return description
	}
	return fmt.Sprintf("Task: %s. Please add more details as needed.", title)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// unmarshalLooseJSON unmarshals a provider reply that may wrap its JSON
// object in prose or code fences. It retries on the outermost {...} slice
// before giving up.
func unmarshalLooseJSON(content string, v any) error {
	raw := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start != -1 && end > start {
			raw = raw[start : end+1]
		}
		if err := json.Unmarshal([]byte(raw), v); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
