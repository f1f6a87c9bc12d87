package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/models"
)

const (
	maxFallbackTopics   = 5
	maxFallbackKeywords = 10
)

// wordPattern matches candidate keywords in lowercased text
var wordPattern = regexp.MustCompile(`\b\w{4,}\b`)

// stopWords are filler words excluded from fallback keyword extraction
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {},
	"they": {}, "have": {}, "will": {}, "been": {}, "were": {},
}

// ContextAnalyzer mines free-text context entries for structured insights.
// Like the suggestion engine it asks the completion provider first and falls
// back to keyword heuristics when the provider is unavailable or replies
// with something unparseable.
type ContextAnalyzer struct {
	provider CompletionProvider
	logger   *zap.Logger
}

// NewContextAnalyzer creates a context analyzer. provider may be nil.
func NewContextAnalyzer(provider CompletionProvider, logger *zap.Logger) *ContextAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextAnalyzer{
		provider: provider,
		logger:   logger,
	}
}

// Analyze extracts insights from content. The second return value reports
// whether the provider produced the insights; false means the keyword
// fallback ran and the entry is a candidate for re-analysis.
func (a *ContextAnalyzer) Analyze(ctx context.Context, content string, sourceType models.SourceType) (models.Insights, bool) {
	if a.provider == nil {
		return fallbackInsights(content), false
	}

	prompt := buildAnalysisPrompt(content, sourceType)
	reply, err := a.provider.Complete(ctx, prompt)
	if err != nil {
		a.logger.Warn("context_analysis_fallback",
			zap.String("source_type", string(sourceType)),
			zap.Error(err),
		)
		return fallbackInsights(content), false
	}

	var insights models.Insights
	if err := unmarshalLooseJSON(reply, &insights); err != nil {
		a.logger.Warn("context_analysis_fallback",
			zap.String("source_type", string(sourceType)),
			zap.Error(fmt.Errorf("parse insights: %w", err)),
		)
		return fallbackInsights(content), false
	}

	normalizeInsights(&insights)
	return insights, true
}

func buildAnalysisPrompt(content string, sourceType models.SourceType) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %s content and extract:\n", sourceType)
	b.WriteString("1. Key topics and themes\n")
	b.WriteString("2. Important deadlines or time-sensitive information\n")
	b.WriteString("3. Priority indicators (urgent, important, etc.)\n")
	b.WriteString("4. Sentiment (positive, negative, neutral)\n")
	b.WriteString("5. Action items or tasks mentioned\n")
	b.WriteString("6. Relevant keywords\n\n")
	fmt.Fprintf(&b, "Content: %s\n\n", content)
	b.WriteString("Return as JSON with keys: topics, deadlines, priorities, sentiment, action_items, keywords")
	return b.String()
}

// normalizeInsights replaces nil slices so insights marshal as [] not null
func normalizeInsights(insights *models.Insights) {
	if insights.Topics == nil {
		insights.Topics = []string{}
	}
	if insights.Deadlines == nil {
		insights.Deadlines = []string{}
	}
	if insights.Priorities == nil {
		insights.Priorities = []string{}
	}
	if insights.ActionItems == nil {
		insights.ActionItems = []string{}
	}
	if insights.Keywords == nil {
		insights.Keywords = []string{}
	}
	if insights.Sentiment == "" {
		insights.Sentiment = "neutral"
	}
}

// fallbackInsights extracts keywords mechanically: words of four or more
// characters minus stop words, the first few doubling as topics. Priority is
// high when any urgency word appears, normal otherwise.
func fallbackInsights(content string) models.Insights {
	lowered := strings.ToLower(content)

	words := wordPattern.FindAllString(lowered, -1)
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if _, skip := stopWords[word]; skip {
			continue
		}
		keywords = append(keywords, word)
	}

	priority := "normal"
	for _, word := range urgencyWords {
		if strings.Contains(lowered, word) {
			priority = "high"
			break
		}
	}

	return models.Insights{
		Topics:      firstN(keywords, maxFallbackTopics),
		Deadlines:   []string{},
		Priorities:  []string{priority},
		Sentiment:   "neutral",
		ActionItems: []string{},
		Keywords:    firstN(keywords, maxFallbackKeywords),
	}
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		items = items[:n]
	}
	return append([]string{}, items...)
}
