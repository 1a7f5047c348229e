package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/eavesdrop"
	"github.com/dshills/eavesdrop/fsbridge"
	"github.com/dshills/eavesdrop/metrics"
)

func watchCmd(cfgPath *string) *cobra.Command {
	var recursive bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch [path ...]",
		Short: "Publish filesystem notifications as events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			log, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			paths := args
			if len(paths) == 0 {
				paths = cfg.Watch.Paths
			}
			if !cmd.Flags().Changed("recursive") {
				recursive = cfg.Watch.Recursive
			}
			if !cmd.Flags().Changed("metrics-addr") {
				metricsAddr = cfg.Watch.MetricsAddr
			}
			return runWatch(cmd.Context(), log, paths, recursive, metricsAddr)
		},
	}
	cmd.Flags().BoolVar(&recursive, "recursive", false, "watch directories recursively")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runWatch(ctx context.Context, log *zap.Logger, paths []string, recursive bool, metricsAddr string) error {
	reg := eavesdrop.NewRegistry(eavesdrop.WithLogger(log))
	pub := reg.NewPublisher("fswatch")

	fsEvents := []string{
		fsbridge.EventCreate,
		fsbridge.EventWrite,
		fsbridge.EventRemove,
		fsbridge.EventRename,
		fsbridge.EventChmod,
	}
	for _, name := range fsEvents {
		if _, err := pub.Listen(name, printNotification); err != nil {
			return err
		}
	}
	// Writes are also observed process-wide, with their origin.
	_, err := reg.Eavesdrop(fsbridge.EventWrite, func(ctx context.Context, evt eavesdrop.Event, origin *eavesdrop.Publisher) error {
		path, _ := evt.Field("path")
		fmt.Printf("eavesdrop: %v written (via %v)\n", path, origin)
		return nil
	})
	if err != nil {
		return err
	}

	bridge, err := fsbridge.New(pub, fsbridge.WithLogger(log))
	if err != nil {
		return err
	}
	defer bridge.Close()

	for _, p := range paths {
		if recursive {
			err = bridge.AddRecursive(p)
		} else {
			err = bridge.Add(p)
		}
		if err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		log.Info("watching", zap.String("path", p), zap.Bool("recursive", recursive))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bridge.Run(ctx) })

	if metricsAddr != "" {
		promReg := prometheus.NewRegistry()
		if err := metrics.Register(promReg, reg); err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux}

		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	s := reg.Stats()
	fmt.Printf("published=%d delivered=%d\n", s.Published, s.Delivered)
	return err
}

func printNotification(ctx context.Context, evt eavesdrop.Event) error {
	path, _ := evt.Field("path")
	op, _ := evt.Field("op")
	fmt.Printf("%-10s %-8v %v\n", evt.Name(), op, path)
	return nil
}
