// Command vizstreamd runs the visualization-extraction relay: agent
// transports push streamed text in over WebSocket, rendering clients
// receive cleaned transcript deltas and typed visualization records
// over SSE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vantagics/vizstream/internal/config"
	"github.com/vantagics/vizstream/internal/gateway"
	"github.com/vantagics/vizstream/internal/logging"
)

func main() {
	configPath := flag.String("config", "vizstream.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	logging.Setup(cfg.Logging)

	gw := gateway.New(cfg.Engine)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return config.Watch(*configPath, ctx.Done(), func(next *config.Config) {
			logging.Setup(next.Logging)
			gw.ApplyConfig(next.Engine)
		})
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("gateway terminated")
	}
	log.Info("gateway stopped")
}
