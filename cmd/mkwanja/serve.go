package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mkwanja/internal/cli"
	apphttp "mkwanja/internal/http"
	"mkwanja/internal/lock"
	"mkwanja/internal/log"
	"mkwanja/internal/services"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port      string
		rateLimit int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Port
			}
			svc, err := a.ledger(cmd.Context(), true,
				services.WithDashboardCache(a.cfg.CacheTTL))
			if err != nil {
				return err
			}

			if j := svc.Janitor(); j != nil {
				j.Start(time.Minute)
				defer j.Stop()
			}

			// With a PIN configured the API starts locked.
			gate := lock.NewGate(lock.NewPINAuthenticator(a.cfg.LockPINHash), a.cfg.LockPINHash != "")

			srv := apphttp.NewServer(":"+port, svc, gate,
				apphttp.WithCurrency(a.cfg.Currency),
				apphttp.WithRateLimit(rateLimit),
				apphttp.WithLogger(a.logger.WithComponent(log.ComponentHTTP)))

			_, done := cli.GracefulShutdown(a.logger, 30*time.Second, func(ctx context.Context) {
				if err := srv.Shutdown(ctx); err != nil {
					a.logger.Error("Server shutdown error", "error", err)
				}
			})

			a.logger.Info("Starting mkwanja server",
				"port", port,
				"backend", a.cfg.DataBackend,
				"locked", gate.Locked(),
				log.FieldOperation, log.OpStartup)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			<-done
			a.logger.Info("Server stopped gracefully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port, overrides PORT")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "mutating requests allowed per client IP per minute")
	return cmd
}
