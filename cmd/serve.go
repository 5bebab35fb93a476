package cmd

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/phuslu/log"

	c "ndx.service/core"
)

type serveCmd struct {
	addr      string
	noRefresh bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API" }
func (*serveCmd) Usage() string {
	return `ndx serve [-addr <host:port>] [-no-refresh]

  Serves the returns API until SIGINT or SIGTERM, then shuts down gracefully.
`
}

func (cmd *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.addr, "addr", "", "Listen address, overrides the configured host and port")
	f.BoolVar(&cmd.noRefresh, "no-refresh", false, "Do not schedule reference data refreshes")
}

func (cmd *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, true)
	if err != nil {
		log.Error().Err(err).Msg("failed to start")
		return subcommands.ExitFailure
	}
	defer a.Close()

	if !cmd.noRefresh {
		scheduler, err := c.StartReferenceRefresh(ctx, a.sc.Reference, a.cfg.Reference.RefreshSchedule)
		if err != nil {
			log.Error().Err(err).Msg("failed to start reference refresh")
			return subcommands.ExitFailure
		}
		defer scheduler.Stop()
	}

	addr := cmd.addr
	if addr == "" {
		addr = a.cfg.Server.Addr()
	}
	s := c.GetHttpServer(a.sc, c.ServerOptions{
		Addr:           addr,
		ReadTimeout:    a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout:   a.cfg.Server.WriteTimeout.Duration,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("starting ndx server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("server error")
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout.Duration)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
		return subcommands.ExitFailure
	}

	log.Info().Msg("server stopped successfully")
	return subcommands.ExitSuccess
}
