package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/richview/internal/app"
	"github.com/dshills/richview/internal/surface/html"
)

func newPreviewCmd(env *cmdEnv) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "preview file",
		Short: "Serve a live rendered view of a file over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var surf *html.Surface
			a, err := env.newApp(ctx, html.NewFactory(func(s *html.Surface) { surf = s }), app.WithWatching(true))
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.Logger()

			b, err := a.Open(ctx, args[0], nil)
			if err != nil {
				return err
			}
			if surf == nil {
				return errors.New("html surface was not created")
			}

			if addr == "" {
				addr = env.cfg().Preview.Addr
			}
			httpServer := &http.Server{
				Addr:         addr,
				Handler:      html.Handler(surf, log),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  120 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Str("uri", b.URI().String()).Msg("starting preview server")
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
			case err := <-serveErr:
				if err != nil {
					return err
				}
			}

			log.Info().Msg("shutting down preview server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("preview server shutdown error")
			}
			return flush(b)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from preview.addr)")
	return cmd
}
