package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/firmable/unify/internal/api"
	"github.com/firmable/unify/internal/pipeline"
	"github.com/firmable/unify/internal/store"
)

var (
	servePort    int
	serveWithRun bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only unified-data API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		apiSrv := api.NewServer(st)

		if serveWithRun {
			p := pipeline.New(st, initReviewer(cfg), pipeline.Options{
				Registry: store.RegistryFilter{
					ActiveOnly:    cfg.Registry.ActiveOnly,
					SampleModulus: cfg.Registry.SampleModulus,
				},
				Mentions:   store.MentionFilter{SampleModulus: cfg.Crawl.SampleModulus},
				Match:      cfg.Match,
				MaxReviews: cfg.Review.MaxReviews,
			})
			go func() {
				summary, err := p.Run(ctx)
				if err != nil {
					zap.L().Error("startup matching run failed", zap.Error(err))
					return
				}
				apiSrv.SetSummary(summary)
			}()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: apiSrv.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveWithRun, "with-run", false, "run one matching pass on startup and expose its summary")
	rootCmd.AddCommand(serveCmd)
}
