package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/config"
	"github.com/heemayl/hatd/pkg/hat/paths"
	"github.com/heemayl/hatd/pkg/hat/supervisor"
)

// resolveConfig mirrors cmd/hatd/commands/common.go's layering: defaults,
// an optional --config YAML file, then HATD_*-prefixed environment
// overrides. hatc needs only enough config to find the daemon's layout.
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

// requireDaemonRunning exits 127 per spec.md §4.6/client.py's
// check_daemon_process, printing the same message the original client did.
func requireDaemonRunning(layout paths.Layout) {
	running, _ := supervisor.New(layout, "hatd").Status()
	if !running {
		println("Daemon (hatd) is not running")
		os.Exit(127)
	}
}

// ambiguousInput exits 126, matching client.py's "Ambiguous input" path
// for argument combinations the original couldn't make sense of.
func ambiguousInput() {
	println("Ambiguous input")
	os.Exit(126)
}
