package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tenscan/internal/model"
	"github.com/ppiankov/tenscan/internal/store"
)

var (
	statsSource string
	statsSince  time.Duration
)

// statsCmd prints record counts per table
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored article counts per source and category",
	Long: `Stats counts the stored records of each enabled source (or one with
--source) per category, plus the source's rollup table. With the memory
store the counts only cover the current process, so this is mostly
useful with store.driver postgres.

Example:
  tenscan stats
  tenscan stats --source ria --since 24h`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsSource, "source", "", "only this source")
	statsCmd.Flags().DurationVar(&statsSince, "since", 0, "only records created within this duration")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sources := []string{statsSource}
	if statsSource == "" {
		sources = sources[:0]
		for _, sc := range cfg.EnabledSources() {
			sources = append(sources, sc.Name)
		}
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "No enabled sources configured")
		return nil
	}

	var since time.Time
	if statsSince > 0 {
		since = time.Now().Add(-statsSince)
	}

	for _, name := range sources {
		src := store.SourceName(name)
		fmt.Printf("%s (%s)\n", name, src)

		tables := make([]store.Table, 0, len(model.Categories)+1)
		for _, c := range model.Categories {
			tables = append(tables, store.CategoryTable(src, c))
		}
		tables = append(tables, store.RollupTable(src))

		for _, t := range tables {
			n, err := s.Count(ctx, store.Filter{Table: t, Since: since})
			if err != nil {
				return fmt.Errorf("count %s: %w", t, err)
			}
			fmt.Printf("  %-24s %d\n", t.Category, n)
		}
		fmt.Println()
	}
	return nil
}
