package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/fleetops/api"
	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/core/alerting"
	"github.com/kilianp07/fleetops/core/allocation"
	"github.com/kilianp07/fleetops/core/events"
	"github.com/kilianp07/fleetops/core/fleet"
	"github.com/kilianp07/fleetops/core/ledger"
	coremetrics "github.com/kilianp07/fleetops/core/metrics"
	coremon "github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/notify"
	"github.com/kilianp07/fleetops/core/telemetry"
	"github.com/kilianp07/fleetops/infra/decisionlog"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/infra/metrics"
	"github.com/kilianp07/fleetops/infra/monitoring"
	"github.com/kilianp07/fleetops/infra/mqtt"
	"github.com/kilianp07/fleetops/infra/redispub"
	"github.com/kilianp07/fleetops/infra/ws"
	"github.com/kilianp07/fleetops/internal/eventbus"
)

// Service wires the telemetry, alerting and allocation components to their
// transports.
type Service struct {
	Store        *telemetry.Store
	Ledger       *ledger.Ledger
	Thresholds   *alerting.ThresholdStore
	Fleet        *fleet.Registry
	Orchestrator *allocation.Orchestrator

	cfg       *config.Config
	log       logger.Logger
	bus       *eventbus.Bus[events.Event]
	sink      coremetrics.Sink
	dlog      allocation.DecisionLog
	mqtt      *mqtt.PahoClient
	hub       *ws.Hub
	redis     *redispub.Notifier
	forwarder *notify.Forwarder
	router    *mux.Router
	gatherer  prometheus.Gatherer
}

// New creates a Service from the configuration. Transports left empty in
// the configuration are not started.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	reporter, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(reporter)

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	bus := eventbus.New[events.Event](cfg.Notify.BusBuffer)

	th, err := alerting.NewThresholdStore(cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	l := ledger.New(
		ledger.WithPublisher(bus),
		ledger.WithSink(sink),
		ledger.WithLogger(logger.New("ledger")),
	)
	watcher := alerting.NewMonitor(alerting.NewEvaluator(th), l, bus, logger.New("alerting"))
	reg := fleet.NewRegistry(fleet.WithLogger(logger.New("fleet")))
	store := telemetry.NewStore(cfg.Telemetry, telemetry.Observers(reg, watcher),
		telemetry.WithSink(sink),
		telemetry.WithLogger(logger.New("telemetry")),
	)

	dlog, err := decisionlog.New(cfg.DecisionLog)
	if err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}
	opts := []allocation.Option{
		allocation.WithPublisher(bus),
		allocation.WithSink(sink),
		allocation.WithLogger(logger.New("allocation")),
	}
	if dlog != nil {
		opts = append(opts, allocation.WithDecisionLog(dlog))
	}
	orch := allocation.NewOrchestrator(cfg.Allocation, reg, th, opts...)

	s := &Service{
		Store:        store,
		Ledger:       l,
		Thresholds:   th,
		Fleet:        reg,
		Orchestrator: orch,
		cfg:          cfg,
		log:          logger.New("service"),
		bus:          bus,
		sink:         sink,
		dlog:         dlog,
		gatherer:     prometheus.DefaultGatherer,
	}

	var notifiers []notify.Notifier
	if cfg.MQTT.Enabled() {
		ing := mqtt.NewIngester(store, cfg.MQTT.TelemetryTopic)
		client, err := mqtt.NewPahoClient(cfg.MQTT, mqtt.WithIngester(ing), mqtt.WithLogger(logger.New("mqtt")))
		if err != nil {
			_ = s.closeStores()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.mqtt = client
		notifiers = append(notifiers, client)
	}
	if cfg.Notify.Websocket.Enabled {
		s.hub = ws.NewHub(logger.New("websocket"))
		notifiers = append(notifiers, s.hub)
	}
	if cfg.Notify.Redis.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rn, err := redispub.Dial(ctx, cfg.Notify.Redis)
		cancel()
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.redis = rn
		notifiers = append(notifiers, rn)
	}
	timeout := time.Duration(cfg.Notify.TimeoutSeconds) * time.Second
	s.forwarder = notify.NewForwarder(bus, logger.New("notify"), timeout, notifiers...)

	s.router = api.NewRouter(api.Deps{
		Store:        store,
		Ledger:       l,
		Thresholds:   th,
		Orchestrator: orch,
		Fleet:        reg,
		Logger:       logger.New("api"),
		Token:        cfg.Server.Token,
	})
	if s.hub != nil {
		s.router.Handle(cfg.Notify.Websocket.Path, ws.NewHandler(s.hub, cfg.Notify.Websocket.Origins))
	}
	return s, nil
}

// Handler returns the HTTP API, including the websocket endpoint when
// enabled.
func (s *Service) Handler() http.Handler { return s.router }

// Run starts the HTTP API, the event forwarder and the metrics endpoint. It
// blocks until ctx is cancelled or the API listener fails.
func (s *Service) Run(ctx context.Context) error {
	coremon.Go("notify", func() {
		if err := s.forwarder.Run(ctx); err != nil {
			s.log.Errorf("forwarder: %v", err)
		}
	})
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		coremon.Go("prom-server", func() {
			if err := metrics.StartPromServer(ctx, addr, s.gatherer); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("HTTP API listening on %s", s.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases transports and stores held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.hub != nil {
		s.hub.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	s.bus.Close()
	if err := s.closeStores(); err != nil {
		errs = append(errs, err)
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func (s *Service) closeStores() error {
	var err error
	if s.dlog != nil {
		if cerr := s.dlog.Close(); cerr != nil {
			err = fmt.Errorf("decision log: %w", cerr)
		}
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return err
}
