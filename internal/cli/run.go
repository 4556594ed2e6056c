package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tenscan/internal/model"
)

var (
	runParser      string
	runConcurrency int
	runTimeout     time.Duration
	runJSON        bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the configured parsers once and print the report",
	Long: `Run discovers articles on every enabled source (or one with --parser),
passes each article through validation, classification, duplicate
detection and scoring, and stores the accepted ones.

Parsers run concurrently on a bounded pool. A parser that fails or panics
is reported as an error without affecting the others.

Example:
  tenscan run
  tenscan run --parser ria --json
  tenscan run --concurrency 8 --timeout 30m`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runParser, "parser", "", "run only the named parser")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "number of parsers run at once (default: concurrency.workers)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", time.Hour, "overall run timeout")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the report as JSON")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{
		sources:     true,
		concurrency: runConcurrency,
		onComplete: func(r model.ParserRunResult) {
			if verbose {
				fmt.Fprintf(os.Stderr, "  %s %-20s saved %d in %v\n", statusMark(r.Status), r.Parser, r.Stats.SuccessfullySaved, r.Duration.Round(time.Millisecond))
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	if a.registry.Len() == 0 {
		return fmt.Errorf("no enabled sources configured (see 'tenscan config init')")
	}

	var report model.RunReport
	if runParser != "" {
		report, err = a.manager.RunOne(ctx, runParser)
		if err != nil {
			return err
		}
	} else {
		report = a.manager.RunAll(ctx)
	}

	if runJSON {
		if err := writeJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printReport(os.Stdout, report)
	}

	if len(report.Results) > 0 && len(report.Failed()) == len(report.Results) {
		return fmt.Errorf("all %d parsers failed", len(report.Results))
	}
	return nil
}

func statusMark(s model.RunStatus) string {
	if s == model.StatusSuccess {
		return "✓"
	}
	return "✗"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// printReport renders a run report for the terminal
func printReport(w io.Writer, report model.RunReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Run %s\n", report.RunID)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	for _, r := range report.Results {
		fmt.Fprintf(w, "  %s %-20s found %-4d saved %-4d dup %-4d rejected %-4d errors %-4d %v\n",
			statusMark(r.Status), r.Parser,
			r.Stats.TotalFound, r.Stats.SuccessfullySaved, r.Stats.DuplicatesSkipped,
			r.Stats.ValidationRejected, r.Stats.Errors, r.Duration.Round(time.Millisecond))
		if r.Error != "" {
			fmt.Fprintf(w, "      error: %s\n", r.Error)
		}
	}

	s := report.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Found:           %d\n", s.TotalFound)
	fmt.Fprintf(w, "  Saved:           %d\n", s.SuccessfullySaved)
	fmt.Fprintf(w, "  Duplicates:      %d\n", s.DuplicatesSkipped)
	fmt.Fprintf(w, "  Rejected:        %d\n", s.ValidationRejected)
	fmt.Fprintf(w, "  Low confidence:  %d\n", s.LowConfidenceSkipped)
	fmt.Fprintf(w, "  Category skip:   %d\n", s.CategorySkipped)
	fmt.Fprintf(w, "  Errors:          %d\n", s.Errors)

	if len(s.ByCategory) > 0 {
		fmt.Fprintln(w)
		for _, c := range model.Categories {
			if n := s.ByCategory[c]; n > 0 {
				fmt.Fprintf(w, "  %-24s %d\n", c, n)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Parsers: %d ok, %d failed in %v\n",
		len(report.Results)-len(report.Failed()), len(report.Failed()),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(w)
}
