package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dan9191/loan-tracker/internal/handler"
	"github.com/Dan9191/loan-tracker/internal/integrations/cbr"
	"github.com/Dan9191/loan-tracker/internal/upload"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE:  runServe,
}

// shutdownTimeout bounds both the HTTP drain and waiting for running jobs.
const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler, err := a.newJobs().Start(a.cfg.Jobs)
	if err != nil {
		return err
	}
	// Runs before a.Close so a job in flight never sees a closed database.
	defer stopScheduler(scheduler, shutdownTimeout)

	h := handler.NewHandler(a.svc, upload.NewStore(a.cfg.Upload), cbr.NewCBRClient(a.cfg.CBRURL, a.log), a.log)

	addr := fmt.Sprintf(":%s", a.cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Router(a.tokens),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	a.log.Infof("Starting server on %s", addr)
	return serveUntilDone(ctx, server, a.log, shutdownTimeout)
}

// serveUntilDone runs server until ctx is cancelled, then drains it. A server
// closed from elsewhere is a clean exit.
func serveUntilDone(ctx context.Context, server *http.Server, log *logrus.Logger, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// stopScheduler stops the cron runner and waits up to timeout for running
// jobs to return.
func stopScheduler(c *cron.Cron, timeout time.Duration) bool {
	select {
	case <-c.Stop().Done():
		return true
	case <-time.After(timeout):
		return false
	}
}
