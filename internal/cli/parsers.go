package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/tenscan/internal/source"
	"github.com/ppiankov/tenscan/internal/store"
)

// parsersCmd lists the configured sources
var parsersCmd = &cobra.Command{
	Use:   "parsers",
	Short: "List the enabled parsers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		// Parsers only need a fetcher to run, not to be listed
		registry, err := source.FromConfig(cfg, nil)
		if err != nil {
			return err
		}
		if registry.Len() == 0 {
			fmt.Fprintln(os.Stderr, "No enabled sources configured")
			return nil
		}

		for _, p := range registry.All() {
			sc := p.Source()
			fmt.Printf("%-20s %-5s %-20s %s\n", p.Name(), sc.Type, store.SourceName(p.Name()), sc.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parsersCmd)
}
