// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Atelier Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atelier-dev/atelier/internal/server"
	aterr "github.com/atelier-dev/atelier/pkg/errors"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the context store over HTTP",
		Long: "Serve the context store and its analysis engines as a JSON API. The OpenAPI\n" +
			"document is available at /openapi.json. Snapshots are written in the\n" +
			"background and flushed on shutdown.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := v.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen")); err != nil {
				return aterr.Errorf(aterr.CodeCLISetupFailure, "binding listen flag: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, v, func(ctx context.Context, app *App) error {
				srv, err := newServer(app)
				if err != nil {
					return err
				}
				ln, err := net.Listen("tcp", app.Config.Server.ListenAddr)
				if err != nil {
					_ = srv.Close()
					return aterr.Errorf(aterr.CodeServerListenFailure,
						"listening on %s: %w", app.Config.Server.ListenAddr, err)
				}

				slog.Info("serving context store",
					"addr", ln.Addr().String(),
					"restored", app.Restored,
					"dimension", app.Config.Store.Dimension)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", ln.Addr())
				return srv.Serve(ctx, ln)
			})
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:8420", "listen address")
	return cmd
}

// newServer exposes app's store and engines through the HTTP API.
func newServer(app *App) (*server.Server, error) {
	svc, err := server.NewServices(app.Store, app.Alignment, app.Coherence, app.TextEmbedder)
	if err != nil {
		return nil, err
	}
	sc := app.Config.Server
	return server.New(server.Config{
		ListenAddr:   sc.ListenAddr,
		CORSOrigins:  sc.CORSOrigins,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: sc.RateLimit.RequestsPerSecond,
			Burst:             sc.RateLimit.Burst,
			MaxVisitors:       sc.RateLimit.MaxVisitors,
		},
	}, svc)
}
