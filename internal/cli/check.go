package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/score"
	"github.com/ppiankov/tenscan/internal/validate"
)

var (
	checkTitle string
	checkJSON  bool
)

// checkResult is what check prints in JSON mode
type checkResult struct {
	Accepted       bool                  `json:"accepted"`
	Rejection      string                `json:"rejection,omitempty"`
	Title          string                `json:"title,omitempty"`
	Classification *model.Classification `json:"classification,omitempty"`
	Score          *score.Result         `json:"score,omitempty"`
}

// checkCmd runs one text through the pipeline without storing it
var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate, classify and score one article without storing it",
	Long: `Check reads article content from a file (or stdin when no file or "-"
is given), then validates, classifies and scores it with the same
components the run command uses. Nothing is persisted.

Example:
  tenscan check --title "Ракетный удар по Харькову" article.txt
  curl -s https://example.org/a.txt | tenscan check --title "..." --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkTitle, "title", "", "article title (required)")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	_ = checkCmd.MarkFlagRequired("title")
}

func runCheck(cmd *cobra.Command, args []string) error {
	content, err := readContent(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	res := evaluate(ctx, a, checkTitle, content)
	if checkJSON {
		return writeJSON(os.Stdout, res)
	}
	printCheck(os.Stdout, res)
	return nil
}

func readContent(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(b), nil
}

// evaluate mirrors the pipeline stages up to scoring
func evaluate(ctx context.Context, a *app, title, content string) checkResult {
	switch v := a.validator.Validate(title, content).(type) {
	case validate.Rejected:
		return checkResult{Rejection: v.Reason()}
	case validate.Accepted:
		c := a.classifier.Classify(ctx, v.Title, v.Content)
		r := a.scorer.Analyze(c.Category, v.Title, v.Content, score.HintFrom(c))
		return checkResult{Accepted: true, Title: v.Title, Classification: &c, Score: &r}
	}
	return checkResult{Rejection: "unknown validation result"}
}

func printCheck(w io.Writer, res checkResult) {
	if !res.Accepted {
		fmt.Fprintf(w, "✗ Rejected: %s\n", res.Rejection)
		return
	}

	c := res.Classification
	fmt.Fprintf(w, "✓ Accepted: %s\n\n", res.Title)
	fmt.Fprintf(w, "  Category:    %s (confidence %.2f, %s)\n", c.Category, c.Confidence, c.Provenance)
	if c.Reasoning != "" {
		fmt.Fprintf(w, "  Reasoning:   %s\n", c.Reasoning)
	}
	fmt.Fprintf(w, "  Tension:     %.1f\n", res.Score.Scores.Tension)
	fmt.Fprintf(w, "  Spike:       %.1f\n", res.Score.Scores.Spike)
	if res.Score.Blended {
		fmt.Fprintf(w, "  Local:       tension %.1f, spike %.1f (blended with AI hint)\n", res.Score.Local.Tension, res.Score.Local.Spike)
	}

	printSignals(w, "Tension signals", res.Score.Tension)
	printSignals(w, "Spike signals", res.Score.Spike)
}

func printSignals(w io.Writer, heading string, signals []score.Signal) {
	fmt.Fprintf(w, "\n  %s:\n", heading)
	for _, s := range signals {
		bar := strings.Repeat("█", int(s.Value*10+0.5))
		fmt.Fprintf(w, "    %-18s %-10s %.2f x %.2f  %s\n", s.Name, bar, s.Value, s.Weight, s.Description)
	}
}
