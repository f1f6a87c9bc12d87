package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/config"
	"github.com/dkrasner/taskmind/internal/services/ai"
)

// NewAITestCmd creates the ai-test command
func NewAITestCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "ai-test",
		Short: "Test completion provider connectivity",
		Long:  "Send a test prompt to the configured completion provider and print the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cfg.OpenAIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is not configured")
			}

			provider := ai.NewOpenAIProviderWithLogger(
				cfg.OpenAIKey,
				cfg.AIBaseURL,
				cfg.AIModel,
				zap.NewNop(),
				false,
			)

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			fmt.Printf("Testing completion provider (model: %s)\n", cfg.AIModel)

			start := time.Now()
			reply, err := provider.Complete(ctx, prompt)
			if err != nil {
				return fmt.Errorf("completion request failed: %w", err)
			}

			fmt.Printf("✓ Provider responded in %v\n", time.Since(start).Round(time.Millisecond))
			fmt.Printf("Reply: %s\n", reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "Reply with the single word: pong", "Prompt to send")

	return cmd
}
