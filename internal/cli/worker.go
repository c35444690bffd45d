package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sky93/queuectl/internal/api"
)

const shutdownTimeout = 5 * time.Second

func workerCmd(o *rootOptions) *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run workers",
	}

	var (
		count    int
		httpAddr string
	)
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start workers in the foreground until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd, func(s *Session, p printer) error {
				n := count
				if !cmd.Flags().Changed("count") {
					set, err := s.Queue.Settings(cmd.Context())
					if err != nil {
						return err
					}
					n = set.WorkerCount
				}
				addr := httpAddr
				if !cmd.Flags().Changed("http") {
					addr = s.Config.HTTPAddr
				}
				return runWorkers(cmd.Context(), s, p, n, addr)
			})
		},
	}
	startCmd.Flags().IntVarP(&count, "count", "c", 1, "number of workers (default: config worker_count)")
	startCmd.Flags().StringVar(&httpAddr, "http", "", "serve the HTTP API on this address, e.g. :8080")

	workerCmd.AddCommand(startCmd)
	return workerCmd
}

// runWorkers blocks until SIGINT/SIGTERM or ctx is done, then stops the
// workers and waits for running jobs to finish.
func runWorkers(ctx context.Context, s *Session, p printer, n int, addr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Queue.StartWorkers(ctx, n); err != nil {
		return err
	}
	if err := p.Line("Started %d worker(s). Press Ctrl+C to stop.", n); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if addr != "" {
		srv := api.NewServer(addr, s.Queue, s.Logger)
		g.Go(func() error {
			s.Logger.Info("http api starting", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.Logger.Info("shutting down, waiting for running jobs...")
		s.Queue.StopWorkers()
		return s.Queue.Wait(context.Background())
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return p.Line("All workers stopped.")
}
