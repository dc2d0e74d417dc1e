package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/logging"
	"github.com/linkrev/linkrev/internal/packet"
	"github.com/linkrev/linkrev/internal/review"
	"github.com/linkrev/linkrev/internal/tui"
)

var (
	packetPath     string
	autosaveFlag   bool
	existThreshold float64
)

// reviewCmd opens the interactive pair-by-pair review
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review candidate pairs interactively",
	Long: `Load a review packet and walk its candidate pairs in the terminal.

Labels and notes are written into the comparison file when you save
(or on every write with --autosave).

Examples:
  # Review a session
  linkrev review --packet session.yaml

  # Persist every label immediately
  linkrev review --packet session.yaml --autosave`,
	RunE: runReview,
}

// summaryCmd prints the label tally without opening the interface
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print label counts for a review packet",
	Long: `Load a review packet and print how many pairs carry each label.

Examples:
  linkrev summary --packet session.yaml`,
	RunE: runSummary,
}

func init() {
	reviewCmd.Flags().StringVar(&packetPath, "packet", "", "review packet YAML file (required)")
	reviewCmd.Flags().BoolVar(&autosaveFlag, "autosave", false, "persist every label and note immediately")
	reviewCmd.Flags().Float64Var(&existThreshold, "exist-threshold", 0.8, "minimum id match rate before loads warn (0 disables)")
	_ = reviewCmd.MarkFlagRequired("packet")

	summaryCmd.Flags().StringVar(&packetPath, "packet", "", "review packet YAML file (required)")
	_ = summaryCmd.MarkFlagRequired("packet")
}

// loadSession builds a session from the packet flag.
func loadSession(logger *zap.Logger) (*review.Session, error) {
	session := review.NewSession(logger, &review.Options{
		ExistThreshold: existThreshold,
	})
	warnings, err := packet.ImportFile(packetPath, session)
	if err != nil {
		return nil, fmt.Errorf("failed to load packet %s: %w", packetPath, err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}
	return session, nil
}

func runReview(cmd *cobra.Command, args []string) error {
	// Log to stderr only at warn and above; the TUI owns the terminal.
	logger, err := logging.New(&logging.Config{Level: "warn", Format: "console"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	session, err := loadSession(logger)
	if err != nil {
		return err
	}
	if autosaveFlag && !session.SetAutosave(true) {
		fmt.Fprintln(os.Stderr, "Warning: autosave unavailable, comparison set has no backing file")
	}

	if err := tui.Run(session); err != nil {
		return fmt.Errorf("review interface failed: %w", err)
	}

	if !session.Autosave() {
		if err := session.Comparisons().Save(""); err != nil {
			return fmt.Errorf("failed to save labels: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved labels to %s\n", session.Comparisons().SourcePath())
	}
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	session, err := loadSession(zap.NewNop())
	if err != nil {
		return err
	}

	counts := session.LabelSummary()
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	total := 0
	for _, label := range labels {
		total += counts[label]
	}
	fmt.Printf("%d pairs in %s\n", total, packetPath)
	for _, label := range labels {
		fmt.Printf("  %-20s %d\n", label, counts[label])
	}
	return nil
}
