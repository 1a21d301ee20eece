package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nurpath/nurpath/internal/model"
)

// version is set at build time with -ldflags "-X github.com/nurpath/nurpath/internal/cli.version=..."
var version = "v0.1.0"

var (
	cfgFile     string
	verbose     bool
	catalogPath string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "nurpath",
	Short: "NurPath - evidence retrieval and answer validation for Islamic studies",
	Long: `NurPath answers study questions from a curated catalog of Qur'an, hadith
and fiqh passages.

Every answer cites passage-level deep links. Answers whose citations,
grounding or faithfulness fall below the configured thresholds are
replaced by an abstention that still shows the evidence. Requests for a
personal binding ruling are always referred to a qualified scholar.

NurPath is a study aid, not a mufti.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of NurPath.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nurpath %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.nurpath/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "catalog file (overrides catalog.path)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.nurpath")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Every key needs a default so NURPATH_SECTION_KEY variables are seen
	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	// Read in environment variables that match NURPATH_*
	viper.SetEnvPrefix("NURPATH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every leaf of cfg as a viper default
func setDefaults(cfg model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	var walk func(prefix string, node map[string]any)
	walk = func(prefix string, node map[string]any) {
		for k, v := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok {
				walk(key, child)
				continue
			}
			viper.SetDefault(key, v)
		}
	}
	walk("", tree)
	// Keys omitted from the YAML defaults still need to be known to viper
	for _, key := range []string{
		"embedding.base_url", "embedding.api_key",
		"index.url",
		"llm.model", "llm.base_url", "llm.api_key",
		"cache.dir",
		"http.http_proxy", "http.https_proxy", "http.no_proxy",
	} {
		if !viper.IsSet(key) {
			viper.SetDefault(key, "")
		}
	}
	return nil
}

// loadConfig decodes the effective configuration and validates it
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger and installs it as the default.
// --verbose forces debug; json selects the JSON handler.
func newLogger(cfg model.LogConfig, json bool) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose || viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if json || cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
