package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leroylim/it-guru-assistant-chatbot/internal/prompts"
	"github.com/leroylim/it-guru-assistant-chatbot/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	var host string
	var port int
	var metricsPort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initialize(); err != nil {
				return err
			}
			return a.runServe(host, port, metricsPort)
		},
	}
	cmd.Flags().StringVar(&host, "host", "localhost", "Bind address")
	cmd.Flags().IntVar(&port, "port", 8080, "API port")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Prometheus scrape port (0 disables)")
	return cmd
}

func (a *app) runServe(host string, port, metricsPort int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverConfig := server.DefaultConfig()
	serverConfig.Host = host
	serverConfig.Port = port
	serverConfig.Debug = a.debug
	serverConfig.DefaultModel = a.cfg.DefaultModel
	serverConfig.WelcomeText = prompts.WelcomeText
	serverConfig.HideSources = a.cfg.HideSources
	serverConfig.HideIntent = a.cfg.HideIntent

	api := server.New(a.orchestrator, a.catalog, serverConfig, a.logger, a.metrics)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		fmt.Println(styleStatus(fmt.Sprintf("API listening on http://%s:%d", host, port)))
		return api.Start()
	})

	if metricsPort > 0 && a.metrics != nil {
		if err := a.metrics.StartPrometheusServer(metricsPort); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		fmt.Println(styleStatus(fmt.Sprintf("metrics on http://localhost:%d/metrics", metricsPort)))
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if a.metrics != nil {
			_ = a.metrics.Shutdown(shutdownCtx)
		}
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("tracer shutdown: %v", err)
		}
		return api.Stop(shutdownCtx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Println(styleSuccess("server stopped"))
	return nil
}
