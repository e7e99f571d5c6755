package commands

import (
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/heemayl/hatd/pkg/hat/daemonfront"
	"github.com/heemayl/hatd/pkg/hat/hatlog"
	"github.com/heemayl/hatd/pkg/hat/ipc"
	"github.com/heemayl/hatd/pkg/hat/protocol"
	"github.com/heemayl/hatd/pkg/hat/runner"
	"github.com/heemayl/hatd/pkg/hat/store"
)

// newRunCmd runs hatd in the foreground: this is what `hatd start` execs
// as a detached child, and it is also usable directly under a process
// supervisor that wants to own the process itself.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "run",
		Short:  "Run hatd in the foreground (used internally by start)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			layout := resolveLayout(cfg)

			if err := layout.EnsureDaemonDirs(); err != nil {
				return fmt.Errorf("run: %w", err)
			}

			logOpts := hatlog.Options{Format: cfg.LogFormat, Verbose: cfg.LogLevel == "debug"}
			verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
			if verbose {
				logOpts.Verbose = true
			}

			logger := hatlog.New(logOpts)
			if logFile, ferr := hatlog.OpenDaemonLog(layout.DaemonLogFile()); ferr == nil {
				defer logFile.Close()
				logger = hatlog.NewWithFile(logFile, logOpts)
			} else {
				logger.Warn("could not open daemon log file, logging to stdout only", "error", ferr)
			}

			st := store.New()

			mailbox := make(chan runner.Request, 32)
			rnr := runner.New(st, layout, logger, mailbox)
			rnr.SetTickInterval(cfg.TickInterval)
			if err := rnr.LoadSnapshot(); err != nil {
				logger.Warn("could not load snapshot, starting with an empty store", "error", err)
			}

			in := ipc.NewEndpoint(layout.DaemonIn(), layout.LocksDir())
			out := ipc.NewEndpoint(layout.DaemonOut(), layout.LocksDir())
			if err := in.Ensure(); err != nil {
				return fmt.Errorf("run: daemon_in: %w", err)
			}
			if err := out.Ensure(); err != nil {
				return fmt.Errorf("run: daemon_out: %w", err)
			}

			front := daemonfront.New(in, out, mailbox, logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer cancel()

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				rnr.Run(ctx)
			}()
			go func() {
				defer wg.Done()
				front.Run(ctx)
			}()

			// Send one noop, as the original daemon did at startup; the
			// runner drains and ignores it. Already-due jobs from a
			// restored snapshot fire on the runner's first tick, which
			// scans the store without waiting on the mailbox.
			mailbox <- runner.Request{Envelope: protocol.Envelope{Noop: true}}

			logger.Info("hatd running", "base_dir", layout.BaseDir)
			wg.Wait()
			return nil
		},
	}
}
