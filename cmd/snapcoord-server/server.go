package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/snapcoord/internal/core/domain"
	"github.com/yndnr/snapcoord/internal/core/service"
	"github.com/yndnr/snapcoord/internal/infra/buildinfo"
	"github.com/yndnr/snapcoord/internal/infra/confloader"
	"github.com/yndnr/snapcoord/internal/infra/shutdown"
	"github.com/yndnr/snapcoord/internal/server/agentbridge"
	"github.com/yndnr/snapcoord/internal/server/config"
	"github.com/yndnr/snapcoord/internal/server/hostchannel"
	"github.com/yndnr/snapcoord/internal/server/httpserver"
	"github.com/yndnr/snapcoord/internal/server/localserver"
	"github.com/yndnr/snapcoord/internal/storage/memory"
	"github.com/yndnr/snapcoord/internal/telemetry/metric"
)

const shutdownTimeout = 30 * time.Second

// components holds everything run() wires together.
type components struct {
	units      *service.UnitSet
	coord      *service.Coordinator
	dispatcher *hostchannel.Dispatcher
	bridge     *agentbridge.Bridge
	agent      *localserver.Server
	events     *localserver.Server
	http       *httpserver.Server
	httpLn     net.Listener
}

func timeouts(cfg *config.ServerConfig) service.Timeouts {
	return service.Timeouts{
		Pickup:   cfg.Snapshot.PickupTimeout,
		Vote:     cfg.Snapshot.VoteTimeout,
		Complete: cfg.Snapshot.CompleteTimeout,
	}
}

// build creates the coordinator and its surfaces. Sockets are bound here so
// that a bad path fails start-up instead of a background goroutine.
func build(cfg *config.ServerConfig, reg *metric.Registry, log *slog.Logger) (*components, error) {
	features, err := cfg.Device.FeatureBits()
	if err != nil {
		return nil, err
	}
	units, err := cfg.Device.LogicalUnits()
	if err != nil {
		return nil, err
	}

	c := &components{units: service.NewUnitSet(units...)}

	c.dispatcher = hostchannel.NewDispatcher(hostchannel.Config{
		Features:            features,
		DriverVersion:       driverVersion(cfg),
		ReportDriverVersion: cfg.Device.ReportDriverVersion,
		ReportTimeout:       cfg.Server.Host.ReportTimeout,
		QueueSize:           cfg.Server.Host.ReportQueue,
	}, hostchannel.NewSocketSender(cfg.Server.Host.ReportSocket),
		hostchannel.WithMetrics(reg),
		hostchannel.WithLogger(log.With("component", "hostchannel")))
	if err := reg.Register(metric.NewQueueCollector("host_reports", c.dispatcher)); err != nil {
		return nil, fmt.Errorf("register queue collector: %w", err)
	}

	c.coord = service.NewCoordinator(memory.NewTable(), c.dispatcher,
		service.WithUnits(c.units),
		service.WithMetrics(reg),
		service.WithTimeouts(timeouts(cfg)),
		service.WithLogger(log.With("component", "coordinator")))

	c.bridge = agentbridge.New(c.coord, agentbridge.Config{
		RateLimit: cfg.Server.Agent.RateLimit,
		Burst:     cfg.Server.Agent.Burst,
		MaxWait:   cfg.Snapshot.MaxAgentWait,
	}, agentbridge.WithMetrics(reg), agentbridge.WithLogger(log.With("component", "agentbridge")))

	c.agent = localserver.New(localserver.Config{
		Name: "agent",
		Path: cfg.Server.Agent.Socket,
	}, c.bridge, log)
	if err := c.agent.Listen(); err != nil {
		return nil, err
	}

	eventHandler := hostchannel.NewEventHandler(c.coord, features, reg, log.With("component", "hostchannel"))
	c.events = localserver.New(localserver.Config{
		Name: "host-event",
		Path: cfg.Server.Host.EventSocket,
	}, eventHandler, log)
	if err := c.events.Listen(); err != nil {
		_ = c.agent.Shutdown(context.Background())
		return nil, err
	}

	if cfg.Server.HTTP.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Server.HTTP.Addr)
		if err != nil {
			_ = c.agent.Shutdown(context.Background())
			_ = c.events.Shutdown(context.Background())
			return nil, fmt.Errorf("listen http: %w", err)
		}
		c.httpLn = ln
		c.http = httpserver.New(cfg.Server.HTTP.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
			Sessions: c.coord,
			Ready: func() error {
				if c.coord.Closed() {
					return domain.ErrShuttingDown
				}
				return nil
			},
			Metrics:     reg.Handler(),
			Logger:      log.With("component", "http"),
			RateLimit:   httpserver.DefaultRouterConfig().RateLimit,
			EnableAudit: true,
		}))
	}
	return c, nil
}

// run serves until SIGINT/SIGTERM or until a listener fails, then drains.
//
// Shutdown order: stop the watcher, stop accepting agent and host traffic,
// tear down the coordinator (which queues a cancellation report for every
// live session) and finally drain the report queue.
func run(cfg *config.ServerConfig, configPath string, overrides map[string]any) error {
	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	slogger := log.Slog()
	info := buildinfo.Get()
	log.Info("starting snapcoord-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configPath)

	reg := metric.NewRegistry()
	c, err := build(cfg, reg, slogger)
	if err != nil {
		return err
	}

	sh := shutdown.NewHandler(shutdownTimeout, slogger)
	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	var g errgroup.Group
	serve := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				log.Error("listener failed", "listener", name, "error", err)
				sh.Trigger()
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	dispatched := make(chan struct{})
	g.Go(func() error {
		defer close(dispatched)
		return c.dispatcher.Run(runCtx)
	})
	sh.OnShutdown("report-dispatcher", func(ctx context.Context) error {
		c.dispatcher.Close()
		select {
		case <-dispatched:
			return nil
		case <-ctx.Done():
			cancelRun()
			return fmt.Errorf("%d reports undelivered: %w", c.dispatcher.Pending(), ctx.Err())
		}
	})
	sh.OnShutdown("coordinator", func(context.Context) error {
		c.coord.Teardown()
		return nil
	})

	if c.http != nil {
		serve("http", func() error { return c.http.Serve(c.httpLn) })
		sh.OnShutdown("http-server", c.http.Shutdown)
		log.Info("HTTP server listening", "addr", cfg.Server.HTTP.Addr)
	}
	serve("host-event", c.events.Serve)
	sh.OnShutdown("host-event-server", c.events.Shutdown)
	serve("agent", c.agent.Serve)
	sh.OnShutdown("agent-server", c.agent.Shutdown)

	if configPath != "" {
		r := &reloader{path: configPath, overrides: overrides, current: cfg, c: c, log: slogger}
		w, err := confloader.NewWatcher(confloader.WithWatcherLogger(slogger))
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else if err := w.Watch(configPath); err != nil {
			log.Warn("config watcher unavailable", "error", err)
			_ = w.Stop()
		} else {
			w.OnChange(func(string) { r.reload() })
			w.StartAsync()
			sh.OnShutdown("config-watcher", func(context.Context) error { return w.Stop() })
		}
	}

	log.Info("server started")
	shutdownErr := sh.Wait()
	cancelRun()
	if err := errors.Join(shutdownErr, g.Wait()); err != nil {
		log.Error("server stopped with errors", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}
