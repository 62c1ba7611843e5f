package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MyTurnyet/switch-this-sub002/internal/api"
	"github.com/MyTurnyet/switch-this-sub002/internal/metrics"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
	"github.com/MyTurnyet/switch-this-sub002/internal/webhooks"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	st, err := api.OpenStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	broker := api.OpenBroker(ctx, cfg.Redis, log)
	defer broker.Close()

	notifier := webhooks.NewNotifier(cfg.Webhooks, log.Named("webhooks"))
	if notifier.Enabled() {
		wctx, stopWorkers := context.WithCancel(ctx)
		notifier.Start(wctx)
		defer func() {
			stopWorkers()
			notifier.Wait()
		}()
	}

	m := metrics.New()
	svc := switchlist.NewService(switchlist.Deps{
		Store:     st,
		Stats:     planner.NewStatsStore(),
		Publisher: switchlist.Publishers{broker, notifier},
		Metrics:   m,
		Log:       log.Named("switchlist"),
	})
	srv := api.NewServer(api.Deps{
		Store:   st,
		Service: svc,
		Broker:  broker,
		Metrics: m,
		Log:     log.Named("http"),
		Config:  cfg,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infow("API listening", "addr", httpSrv.Addr, "database", cfg.Database.Type)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	log.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
