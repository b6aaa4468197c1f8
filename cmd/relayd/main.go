package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signalsfoundry/platform-relay/gateway"
	"github.com/signalsfoundry/platform-relay/internal/logging"
	"github.com/signalsfoundry/platform-relay/internal/observability"
	"github.com/signalsfoundry/platform-relay/mobility"
	"github.com/signalsfoundry/platform-relay/registry"
	"github.com/signalsfoundry/platform-relay/relay"
	"github.com/signalsfoundry/platform-relay/scenario"
	"github.com/signalsfoundry/platform-relay/signalbus"
	"github.com/signalsfoundry/platform-relay/timectrl"
)

func main() {
	scenarioPath := flag.String("scenario", "configs/relay_scenario.json", "path to a JSON or YAML scenario file")
	tick := flag.Duration("tick", time.Second, "relay update interval")
	maxTicks := flag.Uint64("max-ticks", 0, "stop after this many ticks (0 = run until interrupted)")
	httpAddr := flag.String("http-addr", ":8080", "HTTP address for the gateway (/links, /snapshot, /ws)")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewRelayCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	reg := registry.NewRegistry()
	engine := signalbus.NewEngine(
		signalbus.WithLogger(log.With(logging.String("component", "signalbus"))),
		signalbus.WithRecorder(collector),
	)
	eval := mobility.NewEvaluator(reg,
		mobility.WithLogger(log.With(logging.String("component", "mobility"))),
	)
	controller := relay.NewController(eval, engine, reg,
		relay.WithLogger(log.With(logging.String("component", "relay"))),
		relay.WithRecorder(collector),
	)

	summary, err := scenario.LoadFile(reg, controller, *scenarioPath)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "scenario loaded",
		logging.String("name", summary.Name),
		logging.Int("platforms", len(summary.PlatformIDs)),
		logging.Int("surfaces", len(summary.SurfaceIDs)),
		logging.Int("nodes", len(summary.NodeIDs)),
		logging.Int("links", len(summary.LinkIDs)),
	)

	clock := timectrl.NewController(*tick)
	clock.AddListener(func(ctx context.Context, tickNo uint64) {
		controller.UpdateLinks(ctx)
		platforms, surfaces, nodes := reg.Stats()
		collector.SetRegistryCounts(platforms, surfaces, nodes)
	})

	metricsSrv := serveHTTP(*metricsAddr, metricsMux(collector), log, "metrics")
	gatewaySrv := serveHTTP(*httpAddr, gateway.NewServer(controller, reg, clock,
		gateway.WithLogger(log.With(logging.String("component", "gateway"))),
	).Handler(), log, "gateway")

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting relay daemon",
		logging.String("tick", tick.String()),
		logging.Uint64("max_ticks", *maxTicks),
	)
	done := clock.Start(runCtx, *maxTicks)

	select {
	case <-runCtx.Done():
		log.Info(ctx, "shutdown signal received")
	case <-done:
		log.Info(ctx, "tick budget exhausted")
	}
	stop()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if gatewaySrv != nil {
		_ = gatewaySrv.Shutdown(shutdownCtx)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

func metricsMux(collector *observability.RelayCollector) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	return mux
}

func serveHTTP(addr string, handler http.Handler, log logging.Logger, name string) *http.Server {
	if addr == "" || handler == nil {
		return nil
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), name+" server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving "+name, logging.String("addr", addr))
	return srv
}
