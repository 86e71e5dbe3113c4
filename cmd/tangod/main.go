// Command tangod runs a tango RPC server.
//
// Configuration comes from TANGO_* environment variables, overridable by
// flags. The daemon exposes a builtin "system" namespace (ping, echo, time,
// uptime, methods) next to whatever the deployment mounts, and optionally
// registers its namespaces in etcd and serves prometheus metrics.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tango/middleware"
	"tango/registry"
	"tango/server"
)

type config struct {
	Listen        string   `env:"TANGO_LISTEN" envDefault:":7625"`
	Advertise     string   `env:"TANGO_ADVERTISE"`
	EtcdEndpoints []string `env:"TANGO_ETCD_ENDPOINTS" envSeparator:","`
	MetricsListen string   `env:"TANGO_METRICS_LISTEN"`
	RateLimit     float64  `env:"TANGO_RATE_LIMIT"`
	RateBurst     int      `env:"TANGO_RATE_BURST" envDefault:"64"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "tangod: bad environment:", err)
		os.Exit(1)
	}
	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "tangod",
		Short:        "tango RPC server daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Listen, "listen", cfg.Listen, "listen address")
	cmd.Flags().StringVar(&cfg.Advertise, "advertise", cfg.Advertise, "address to register in etcd (defaults to the listen address)")
	cmd.Flags().StringSliceVar(&cfg.EtcdEndpoints, "etcd", cfg.EtcdEndpoints, "etcd endpoints for service registration")
	cmd.Flags().StringVar(&cfg.MetricsListen, "metrics-listen", cfg.MetricsListen, "prometheus metrics address (empty disables)")
	cmd.Flags().Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "requests per second (0 disables)")
	cmd.Flags().IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "rate limiter burst size")
	return cmd
}

func run(ctx context.Context, cfg *config) error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	svr := server.NewServer()
	svr.SetLogger(log)
	svr.Use(middleware.Metrics(prometheus.DefaultRegisterer))
	svr.Use(middleware.Logging(log))
	if cfg.RateLimit > 0 {
		svr.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}

	if err := svr.Expose("system", systemNamespace(svr)); err != nil {
		return err
	}

	var reg registry.Registry
	if len(cfg.EtcdEndpoints) > 0 {
		etcdReg, err := registry.NewEtcdRegistry(cfg.EtcdEndpoints)
		if err != nil {
			return fmt.Errorf("connect etcd: %w", err)
		}
		reg = etcdReg
	}

	if cfg.MetricsListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Info("metrics listening", zap.String("addr", cfg.MetricsListen))
			if err := http.ListenAndServe(cfg.MetricsListen, mux); err != nil {
				log.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	advertise := cfg.Advertise
	if advertise == "" {
		advertise = cfg.Listen
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("tangod listening", zap.String("addr", cfg.Listen))
		errCh <- svr.Serve("tcp", cfg.Listen, advertise, reg)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return svr.Shutdown(5 * time.Second)
	}
}

// systemNamespace exposes daemon introspection builtins.
func systemNamespace(svr *server.Server) server.Namespace {
	start := time.Now()
	return server.Namespace{
		"ping": server.Func(func(args []any) ([]any, error) {
			return []any{"pong"}, nil
		}),
		"echo": server.Func(func(args []any) ([]any, error) {
			return args, nil
		}),
		"time": server.Func(func(args []any) ([]any, error) {
			return []any{time.Now().UTC().Format(time.RFC3339)}, nil
		}),
		"uptime": server.Func(func(args []any) ([]any, error) {
			return []any{time.Since(start).Seconds()}, nil
		}),
		"methods": server.Func(func(args []any) ([]any, error) {
			paths := svr.Root().Paths()
			out := make([]any, len(paths))
			for i, p := range paths {
				out[i] = p
			}
			return out, nil
		}),
	}
}
