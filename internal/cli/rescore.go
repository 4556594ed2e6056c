package cli

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/score"
	"github.com/ppiankov/tenscan/internal/store"
)

var (
	rescoreSource   string
	rescoreCategory string
	rescoreSince    time.Duration
	rescoreLimit    int
	rescoreDryRun   bool
)

// rescoreCmd recomputes scores of stored records
var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute tension and spike scores of recent records",
	Long: `Rescore applies the current scorer to records stored in one table
and updates their tension and spike scores in both the category table and
the source rollup. Scores are the only fields that may change after a
record is stored. AI hints stored with a record are blended in again.

Example:
  tenscan rescore --source ria --category military_operations --since 72h
  tenscan rescore --source ria --category all --dry-run`,
	Args: cobra.NoArgs,
	RunE: runRescore,
}

func init() {
	rootCmd.AddCommand(rescoreCmd)

	rescoreCmd.Flags().StringVar(&rescoreSource, "source", "", "source name (required)")
	rescoreCmd.Flags().StringVar(&rescoreCategory, "category", store.RollupCategory, "category table, or all for the rollup table")
	rescoreCmd.Flags().DurationVar(&rescoreSince, "since", 7*24*time.Hour, "only records created within this duration")
	rescoreCmd.Flags().IntVar(&rescoreLimit, "limit", 500, "maximum records to rescore")
	rescoreCmd.Flags().BoolVar(&rescoreDryRun, "dry-run", false, "print changes without writing them")
	_ = rescoreCmd.MarkFlagRequired("source")
}

// rescoreTable parses the --source and --category flags into a table
func rescoreTable(source, category string) (store.Table, error) {
	src := store.SourceName(source)
	if category == store.RollupCategory {
		return store.RollupTable(src), nil
	}
	c, ok := model.ParseCategory(category)
	if !ok {
		return store.Table{}, fmt.Errorf("unknown category: %s", category)
	}
	return store.CategoryTable(src, c), nil
}

func runRescore(cmd *cobra.Command, args []string) error {
	table, err := rescoreTable(rescoreSource, rescoreCategory)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	records, err := s.Recent(ctx, table, time.Now().Add(-rescoreSince), rescoreLimit)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	changed, err := rescore(ctx, s, table, records, score.NewScorer(cfg.Pipeline.BlendMinConfidence), rescoreDryRun)
	fmt.Printf("Rescored %d of %d records in %s", changed, len(records), table)
	if rescoreDryRun {
		fmt.Print(" (dry run)")
	}
	fmt.Println()
	return err
}

// rescore updates records whose scores moved by at least 0.1
func rescore(ctx context.Context, s store.Store, table store.Table, records []model.Record, scorer *score.Scorer, dryRun bool) (int, error) {
	changed := 0
	for _, rec := range records {
		next := scorer.Score(rec.Category, rec.Title, rec.Content, score.HintFrom(rec.Classification()))
		if math.Abs(next.Tension-rec.Tension) < 0.1 && math.Abs(next.Spike-rec.Spike) < 0.1 {
			continue
		}
		if verbose || dryRun {
			fmt.Printf("  %s tension %.1f -> %.1f, spike %.1f -> %.1f\n", rec.Link, rec.Tension, next.Tension, rec.Spike, next.Spike)
		}
		if !dryRun {
			if err := updateCopies(ctx, s, table, rec, next); err != nil {
				return changed, err
			}
		}
		changed++
	}
	return changed, nil
}

// updateCopies writes scores to the category row and the rollup row of rec
func updateCopies(ctx context.Context, s store.Store, table store.Table, rec model.Record, scores model.Scores) error {
	src := rec.Source
	if src == "" {
		src = table.Source
	}
	for _, t := range []store.Table{store.CategoryTable(src, rec.Category), store.RollupTable(src)} {
		err := s.UpdateScores(ctx, t, rec.ID, scores)
		if err == nil {
			continue
		}
		// rows stored before both copies were written together
		if errors.Is(err, store.ErrNotFound) && t != table {
			continue
		}
		return fmt.Errorf("update %s: %w", rec.ID, err)
	}
	return nil
}
