// Command treasury-dashboard watches the UK and US treasury agents and shows
// their reconciled event feeds side by side, either as an HTML page with
// trigger scenarios or, with --terminal, as periodically printed text.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentfeed/config"
	"github.com/hupe1980/agentfeed/dashboard"
	"github.com/hupe1980/agentfeed/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "treasury-dashboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.ParseDashboard(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		Component: "dashboard",
	})

	board := dashboard.NewBoard([]dashboard.Source{
		{Agent: config.EntityUK, BaseURL: cfg.UKURL},
		{Agent: config.EntityUS, BaseURL: cfg.USURL},
	}, func(o *dashboard.Options) {
		o.PollInterval = cfg.PollInterval
		o.SnapshotLimit = cfg.SnapshotLimit
		o.ViewLimit = cfg.ViewLimit
		o.Logger = logger
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return board.Run(gctx) })

	if cfg.Terminal {
		g.Go(func() error { return printLoop(gctx, board, cfg.PollInterval) })
	} else {
		serve(gctx, g, board, cfg.Addr, logger)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func serve(ctx context.Context, g *errgroup.Group, board *dashboard.Board, addr string, logger *logging.FeedLogger) {
	ds := dashboard.NewServer(board, func(o *dashboard.ServerOptions) {
		o.Logger = logger.WithComponent("dashboard-http")
	})

	mux := http.NewServeMux()
	ds.Register(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logger.Info("listening", "addr", addr)

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		ds.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})
}

func printLoop(ctx context.Context, board *dashboard.Board, every time.Duration) error {
	printer := dashboard.NewPrinter(dashboard.DefaultTheme, 100)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fmt.Fprint(os.Stdout, "\033[H\033[2J")

			if err := printer.Print(os.Stdout, board.Snapshot()); err != nil {
				return err
			}
		}
	}
}
