package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dkrasner/taskmind/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("source_type", validateSourceType); err != nil {
		panic(fmt.Sprintf("failed to register source_type validator: %v", err))
	}
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	return ValidateTaskStatus(fl.Field().String()) == nil
}

func validateTaskPriority(fl validator.FieldLevel) bool {
	return ValidateTaskPriority(fl.Field().String()) == nil
}

func validateSourceType(fl validator.FieldLevel) bool {
	return ValidateSourceType(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusPending, models.TaskStatusInProgress, models.TaskStatusCompleted, models.TaskStatusCancelled:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'pending', 'in_progress', 'completed', or 'cancelled')", value)
	}
}

// ValidateTaskPriority validates a TaskPriority string value
func ValidateTaskPriority(value string) error {
	switch models.TaskPriority(value) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', 'high', or 'urgent')", value)
	}
}

// ValidateSourceType validates a context entry SourceType string value
func ValidateSourceType(value string) error {
	switch models.SourceType(value) {
	case models.SourceTypeWhatsApp, models.SourceTypeEmail, models.SourceTypeNotes, models.SourceTypeCalendar, models.SourceTypeOther:
		return nil
	default:
		return fmt.Errorf("invalid source_type: %s (must be 'whatsapp', 'email', 'notes', 'calendar', or 'other')", value)
	}
}
