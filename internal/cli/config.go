package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/tenscan/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tenscan configuration",
	Long: `Manage tenscan configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (TENSCAN_*, also read from ./.env)
3. Config file (~/.tenscan/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, config file, env vars and flags.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))

		if cfg.LLM.Provider != "" {
			state := "not set"
			if cfg.LLM.APIKey != "" {
				state = "set"
			}
			fmt.Fprintf(os.Stderr, "LLM API key: %s\n", state)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.tenscan/config.yaml (or --config) with example sources.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("error finding home directory: %w", err)
			}
			configPath = filepath.Join(home, ".tenscan", "config.yaml")
		}

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'tenscan config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		if err := writeDefaultConfig(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close config file: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nEnable the sources you want, then run:\n")
		fmt.Printf("  tenscan parsers\n")
		fmt.Printf("  tenscan run\n")
		fmt.Printf("\n")
		return nil
	},
}

// exampleSources seed a new config file; all disabled until reviewed
func exampleSources() []model.SourceConfig {
	return []model.SourceConfig{
		{Name: "ria", Type: model.SourceRSS, URL: "https://ria.ru/export/rss2/archive/index.xml", MaxArticles: 30, FullText: true, ContentSelector: "div.article__body"},
		{Name: "tass", Type: model.SourceRSS, URL: "https://tass.ru/rss/v2.xml", MaxArticles: 30, FullText: true},
		{Name: "interfax", Type: model.SourceHTML, URL: "https://www.interfax.ru/news/", MaxArticles: 20, LinkPattern: `/(russia|world|business)/\d+`},
	}
}

// writeDefaultConfig writes the commented default configuration
func writeDefaultConfig(w io.Writer) (err error) {
	printf := func(format string, a ...interface{}) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, a...)
	}

	cfg := model.DefaultConfig()
	cfg.Sources = exampleSources()

	yamlData, mErr := yaml.Marshal(cfg)
	if mErr != nil {
		return fmt.Errorf("error marshaling config: %w", mErr)
	}

	printf("# tenscan configuration file\n")
	printf("#\n")
	printf("# Configuration hierarchy (highest to lowest priority):\n")
	printf("#   1. CLI flags\n")
	printf("#   2. Environment variables (TENSCAN_*)\n")
	printf("#   3. This config file\n")
	printf("#   4. Built-in defaults\n\n")
	printf("%s", yamlData)
	printf("\n# API keys are read from the environment:\n")
	printf("#   export TENSCAN_LLM_API_KEY=...  (or OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY)\n")
	printf("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	printf("#\n")
	printf("# Postgres store:\n")
	printf("#   export TENSCAN_STORE_DRIVER=postgres\n")
	printf("#   export TENSCAN_STORE_DSN=postgres://tenscan@localhost/tenscan?sslmode=disable\n")

	if err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
