package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies where a context entry was ingested from
type SourceType string

const (
	SourceTypeWhatsApp SourceType = "whatsapp"
	SourceTypeEmail    SourceType = "email"
	SourceTypeNotes    SourceType = "notes"
	SourceTypeCalendar SourceType = "calendar"
	SourceTypeOther    SourceType = "other"
)

// Insights is the structured output of context analysis
type Insights struct {
	Topics      []string `json:"topics"`
	Deadlines   []string `json:"deadlines"`
	Priorities  []string `json:"priorities"`
	Sentiment   string   `json:"sentiment"`
	ActionItems []string `json:"action_items"`
	Keywords    []string `json:"keywords"`
}

// DerivedSentimentScore maps the sentiment label to a numeric score.
// Unknown labels land on the neutral midpoint.
func (i Insights) DerivedSentimentScore() float64 {
	switch strings.ToLower(i.Sentiment) {
	case "positive":
		return 0.8
	case "negative":
		return 0.2
	case "neutral":
		return 0.5
	default:
		return 0.5
	}
}

// DerivedPriorityScore maps the priority labels to a numeric score. The
// strongest label wins: high/urgent over important over everything else.
func (i Insights) DerivedPriorityScore() float64 {
	score := 0.4
	for _, label := range i.Priorities {
		switch label {
		case "high", "urgent":
			if score < 0.8 {
				score = 0.8
			}
		case "important":
			if score < 0.6 {
				score = 0.6
			}
		}
	}
	return score
}

// ContextEntry represents a piece of ingested free text (note, message,
// email) that is mined for insights after creation
type ContextEntry struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Content        string     `json:"content"`
	SourceType     SourceType `json:"source_type"`
	SourceTitle    string     `json:"source_title,omitempty"`
	Insights       Insights   `json:"insights"`
	PriorityScore  float64    `json:"priority_score"`
	SentimentScore float64    `json:"sentiment_score"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
