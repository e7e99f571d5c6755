package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/config"
	"github.com/heemayl/hatd/pkg/hat/hatlog"
	"github.com/heemayl/hatd/pkg/hat/paths"
)

// resolveConfig loads hatd's configuration by layering defaults, an
// optional --config YAML file, and HATD_*-prefixed environment variables,
// following cmd/copilot/commands/serve.go's resolveConfig pattern.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	yamlPath, _ := cmd.Root().PersistentFlags().GetString("config")
	envFile, _ := cmd.Root().PersistentFlags().GetString("env-file")

	cfg, err := config.Load(yamlPath, envFile)
	if err != nil {
		return config.Config{}, err
	}

	if baseDir, _ := cmd.Root().PersistentFlags().GetString("base-dir"); baseDir != "" {
		cfg.BaseDir = baseDir
	}
	return cfg, nil
}

func resolveLayout(cfg config.Config) paths.Layout {
	return paths.Layout{BaseDir: cfg.BaseDir}
}

func resolveLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	if cfg.LogLevel == "debug" {
		verbose = true
	}
	return hatlog.New(hatlog.Options{Format: cfg.LogFormat, Verbose: verbose})
}

func resolveHatdBin() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}
	return "hatd"
}
