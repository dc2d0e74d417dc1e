// Package main implements the linkrev CLI for interactive record-linkage review.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of a running linkrevd server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linkrev",
	Short: "Manual review of record-linkage candidate pairs",
	Long: `linkrev walks a reviewer through candidate record pairs from a
probabilistic linkage run, side by side, and records the match decision
for each pair back into the comparison file.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8389", "linkrevd server URL")
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(packetCmd)
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks linkrevd server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check linkrevd server health",
	Long: `Check the health status of a running linkrevd server.

Examples:
  # Check health
  linkrev health

  # Check health on a different server
  linkrev health --server http://localhost:9000`,
	RunE: runHealth,
}

// HealthResponse matches internal/httpapi HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Session:       %s\n", healthResp.Session)
	fmt.Printf("Server URL:    %s\n", serverURL)

	return nil
}
