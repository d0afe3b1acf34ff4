package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ipmitree/internal/config"
	"ipmitree/internal/debug"
	"ipmitree/internal/engine"
	"ipmitree/internal/shutdown"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine headless until interrupted",
		Long: `Runs the engine without a terminal UI. SIGINT or SIGTERM starts a graceful
shutdown that waits for every domain to report closed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			exitAfter, _ := cmd.Flags().GetDuration("exit-after")
			res, err := runHeadless(cmd.Context(), settings, runOptions{
				exitAfter:       exitAfter,
				keepVisibleOnly: cmd.Flags().Changed("visible-only"),
				reports:         cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			printShutdownSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().Duration("exit-after", 0, "Request shutdown after this long (0 runs until a signal)")
	return cmd
}

type runOptions struct {
	exitAfter time.Duration
	// keepVisibleOnly honours refresh.visible-only. Without a display
	// nothing expands nodes, so by default every node is refreshed.
	keepVisibleOnly bool
	// reports receives invariant violation reports.
	reports io.Writer
	// ready receives the metrics listener address once it is bound.
	ready func(addr string)
	// finished is called with the engine after the loop has returned.
	finished func(*engine.Engine)
}

// runHeadless drives the engine loop next to the scenario, the metrics
// endpoint and the signal watcher. It returns once the shutdown barrier
// completes.
func runHeadless(ctx context.Context, settings config.Settings, opts runOptions) (shutdown.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !opts.keepVisibleOnly {
		settings.Refresh.VisibleOnly = false
	}
	if opts.reports != nil {
		debug.SetReportSink(opts.reports)
		defer debug.SetReportSink(nil)
	}
	s, err := newSession(ctx, settings)
	if err != nil {
		return shutdown.Result{}, err
	}
	defer s.close()
	if err := s.seed(); err != nil {
		debug.Logf("run: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var result shutdown.Result
	g.Go(func() error {
		defer cancel()
		res, err := s.engine.Loop(gctx, s.events())
		if err != nil {
			return fmt.Errorf("engine loop: %w", err)
		}
		result = res
		return nil
	})

	if s.sim != nil {
		g.Go(func() error {
			if err := s.sim.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("scenario: %w", err)
			}
			return nil
		})
	}

	if settings.Metrics != "" {
		ln, err := net.Listen("tcp", settings.Metrics)
		if err != nil {
			cancel()
			_ = g.Wait()
			return shutdown.Result{}, fmt.Errorf("listen %s: %w", settings.Metrics, err)
		}
		if opts.ready != nil {
			opts.ready(ln.Addr().String())
		}
		g.Go(func() error {
			return serveMetrics(gctx, ln, s.metrics.Handler())
		})
	}

	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		var deadline <-chan time.Time
		if opts.exitAfter > 0 {
			timer := time.NewTimer(opts.exitAfter)
			defer timer.Stop()
			deadline = timer.C
		}
		select {
		case <-gctx.Done():
		case sig := <-sigs:
			debug.Logf("run: received %v, shutting down", sig)
			s.engine.RequestShutdown()
		case <-deadline:
			debug.Logf("run: exit-after elapsed, shutting down")
			s.engine.RequestShutdown()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return shutdown.Result{}, err
	}
	if opts.finished != nil {
		opts.finished(s.engine)
	}
	return result, nil
}

func serveMetrics(ctx context.Context, ln net.Listener, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Serve(ln)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
		return nil
	}
}
