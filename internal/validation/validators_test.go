package validation

import "testing"

func TestValidateTaskStatus(t *testing.T) {
	t.Parallel()

	valid := []string{"pending", "in_progress", "completed", "cancelled"}
	for _, v := range valid {
		if err := ValidateTaskStatus(v); err != nil {
			t.Errorf("ValidateTaskStatus(%q) = %v, want nil", v, err)
		}
	}

	invalid := []string{"", "done", "Pending", "in-progress", "archived"}
	for _, v := range invalid {
		if err := ValidateTaskStatus(v); err == nil {
			t.Errorf("ValidateTaskStatus(%q) = nil, want error", v)
		}
	}
}

func TestValidateTaskPriority(t *testing.T) {
	t.Parallel()

	valid := []string{"low", "medium", "high", "urgent"}
	for _, v := range valid {
		if err := ValidateTaskPriority(v); err != nil {
			t.Errorf("ValidateTaskPriority(%q) = %v, want nil", v, err)
		}
	}

	invalid := []string{"", "critical", "HIGH", "normal"}
	for _, v := range invalid {
		if err := ValidateTaskPriority(v); err == nil {
			t.Errorf("ValidateTaskPriority(%q) = nil, want error", v)
		}
	}
}

func TestValidateSourceType(t *testing.T) {
	t.Parallel()

	valid := []string{"whatsapp", "email", "notes", "calendar", "other"}
	for _, v := range valid {
		if err := ValidateSourceType(v); err != nil {
			t.Errorf("ValidateSourceType(%q) = %v, want nil", v, err)
		}
	}

	invalid := []string{"", "sms", "Email", "slack"}
	for _, v := range invalid {
		if err := ValidateSourceType(v); err == nil {
			t.Errorf("ValidateSourceType(%q) = nil, want error", v)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  hello  ", want: "hello"},
		{name: "keeps newlines and tabs", input: "line1\n\tline2", want: "line1\n\tline2"},
		{name: "strips control characters", input: "he\x00llo\x07", want: "hello"},
		{name: "empty after trim", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
