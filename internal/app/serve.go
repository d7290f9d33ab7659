package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/practice"
	"github.com/blackwell-systems/smilecoach/internal/server"
)

var (
	serveFlagAddr     string
	serveFlagDetector bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	Long: `Serve the REST API and the practice WebSocket for browser and mobile
clients. In the background the server retries uploads of sessions that
failed to save and prunes guest sessions past the retention period.

Examples:
  smilecoach serve                       # listen on server.listen_addr
  smilecoach serve --addr :9090
  smilecoach serve --detector            # score raw frames with the gRPC model`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlagAddr, "addr", "", "Listen address (default: server.listen_addr)")
	serveCmd.Flags().BoolVar(&serveFlagDetector, "detector", false, "Connect to the gRPC expression model for frame scoring")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.auth == nil {
		log.Printf("server: no JWT secret configured, accounts are disabled")
	}

	deps := server.Deps{
		Auth:      rt.auth,
		History:   rt.history,
		Local:     rt.local,
		Evaluator: rt.evaluator,
		Coach:     rt.coach,
		Practice: practice.Config{
			NaturalnessGate: rt.cfg.Policy.NaturalnessGate,
			CaptureMinScore: rt.cfg.Policy.CaptureMinScore,
			TickInterval:    rt.cfg.Policy.TickInterval,
		},
		GuestLimit:     rt.cfg.Guest.SessionLimit,
		AllowedOrigins: rt.cfg.Server.AllowedOrigins,
	}
	if serveFlagDetector {
		det, err := inference.Dial(rt.cfg.Inference.Address, inference.Options{
			Timeout:   rt.cfg.Inference.Timeout,
			Landmarks: rt.cfg.Inference.Landmarks,
		})
		if err != nil {
			return err
		}
		defer det.Close()
		if err := det.Ready(ctx); err != nil {
			log.Printf("server: expression model not ready yet: %v", err)
		}
		deps.Detector = det
	}

	addr := serveFlagAddr
	if addr == "" {
		addr = rt.cfg.Server.ListenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("server: listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		log.Printf("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweep(gctx, rt, rt.cfg.Server.SyncInterval, rt.cfg.Server.PruneInterval)
		return nil
	})
	return g.Wait()
}

// sweep retries pending uploads and prunes expired guest sessions until ctx
// is cancelled. A non-positive interval disables that job.
func sweep(ctx context.Context, rt *runtime, syncEvery, pruneEvery time.Duration) {
	var syncC, pruneC <-chan time.Time
	if syncEvery > 0 {
		t := time.NewTicker(syncEvery)
		defer t.Stop()
		syncC = t.C
	}
	if pruneEvery > 0 {
		t := time.NewTicker(pruneEvery)
		defer t.Stop()
		pruneC = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-syncC:
			n, err := rt.history.SyncAll(ctx)
			if err != nil {
				log.Printf("server: syncing pending sessions: %v", err)
			}
			if n > 0 {
				log.Printf("server: synced %d pending sessions", n)
			}
		case <-pruneC:
			n, err := rt.local.Prune(ctx, rt.cfg.LocalStore.Retention(), now())
			if err != nil {
				log.Printf("server: pruning guest sessions: %v", err)
			}
			if n > 0 {
				log.Printf("server: pruned %d expired guest sessions", n)
			}
		}
	}
}
