package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkrasner/taskmind/internal/config"
)

// NewOIDCTestCmd creates the oidc-test command
func NewOIDCTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oidc-test",
		Short: "Test OIDC configuration",
		Long:  "Test the configured OIDC provider by validating its endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if cfg.OIDCIssuer == "" {
				return fmt.Errorf("OIDC_ISSUER is not configured")
			}

			fmt.Printf("Testing OIDC configuration\n")
			fmt.Printf("Issuer: %s\n", cfg.OIDCIssuer)

			client := &http.Client{Timeout: 10 * time.Second}

			discoveryURL := cfg.OIDCIssuer + "/.well-known/openid-configuration"
			fmt.Printf("\nTesting discovery endpoint: %s\n", discoveryURL)
			resp, err := client.Get(discoveryURL)
			if err != nil {
				return fmt.Errorf("failed to reach discovery endpoint: %w", err)
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("discovery endpoint returned status: %d", resp.StatusCode)
			}
			fmt.Println("✓ Discovery endpoint is accessible")

			if cfg.OIDCJWKSURL != "" {
				fmt.Printf("\nTesting JWKS endpoint: %s\n", cfg.OIDCJWKSURL)
				jwksResp, err := client.Get(cfg.OIDCJWKSURL)
				if err != nil {
					return fmt.Errorf("failed to reach JWKS endpoint: %w", err)
				}
				defer func() {
					if err := jwksResp.Body.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close response body: %v\n", err)
					}
				}()

				if jwksResp.StatusCode != http.StatusOK {
					return fmt.Errorf("JWKS endpoint returned status: %d", jwksResp.StatusCode)
				}
				fmt.Println("✓ JWKS endpoint is accessible")
			}

			fmt.Println("\n✓ OIDC configuration test passed")
			return nil
		},
	}

	return cmd
}
