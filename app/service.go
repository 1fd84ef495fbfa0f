// Package app assembles the dispatch service from its configuration:
// distance provider chain, roster store, assignment engine, metrics
// sinks, run-summary publisher and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apiassign "github.com/cleanbear/dispatch/api/assign"
	apihealth "github.com/cleanbear/dispatch/api/health"
	"github.com/cleanbear/dispatch/api/httputil"
	apiroster "github.com/cleanbear/dispatch/api/roster"
	"github.com/cleanbear/dispatch/config"
	"github.com/cleanbear/dispatch/core/assign"
	coredistance "github.com/cleanbear/dispatch/core/distance"
	coremetrics "github.com/cleanbear/dispatch/core/metrics"
	corenotify "github.com/cleanbear/dispatch/core/notify"
	"github.com/cleanbear/dispatch/core/roster"
	infradistance "github.com/cleanbear/dispatch/infra/distance"
	"github.com/cleanbear/dispatch/infra/kakao"
	"github.com/cleanbear/dispatch/infra/logger"
	"github.com/cleanbear/dispatch/infra/metrics"
	infranotify "github.com/cleanbear/dispatch/infra/notify"
	"github.com/cleanbear/dispatch/infra/sheets"
)

// Service owns every long-lived component of the dispatch server.
type Service struct {
	Engine *assign.Engine
	Store  *roster.Store

	cfg     *config.Config
	log     logger.Logger
	server  *http.Server
	closers []func()
}

// New creates a Service from the configuration. It builds the full
// dependency chain but performs no roster I/O; the first load happens
// in Run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	var closers []func()

	var sinks []coremetrics.Sink
	if cfg.Metrics.Prometheus.Enabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.Enabled {
		sink := metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.Influx.URL,
			cfg.Metrics.Influx.Token,
			cfg.Metrics.Influx.Org,
			cfg.Metrics.Influx.Bucket,
		)
		if is, ok := sink.(*metrics.InfluxSink); ok {
			closers = append(closers, is.Close)
		}
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var provider coredistance.Provider
	var geocoder coredistance.Geocoder
	switch cfg.Distance.Mode {
	case "kakao":
		client, err := kakao.New(kakao.Options{
			APIKey:            cfg.Distance.Kakao.APIKey,
			BaseURL:           cfg.Distance.Kakao.BaseURL,
			GeocodeBaseURL:    cfg.Distance.Kakao.GeocodeBaseURL,
			Timeout:           time.Duration(cfg.Distance.Kakao.TimeoutSeconds) * time.Second,
			RequestsPerSecond: cfg.Distance.Kakao.RequestsPerSecond,
		})
		if err != nil {
			return nil, fmt.Errorf("kakao client: %w", err)
		}
		provider = client
		geocoder = client
	default:
		provider = infradistance.Estimator{SpeedKMH: cfg.Distance.Estimator.SpeedKMH}
	}

	cacheTTL := time.Duration(cfg.Distance.Cache.TTLSeconds) * time.Second
	switch cfg.Distance.Cache.Backend {
	case "memory":
		provider = infradistance.NewCache(provider, infradistance.NewMemoryStore(cfg.Distance.Cache.MaxEntries), cacheTTL)
	case "redis":
		store, err := infradistance.NewRedisStore(cfg.Distance.Cache.RedisURL, logger.New("distance-cache"))
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		closers = append(closers, func() { _ = store.Close() })
		provider = infradistance.NewCache(provider, store, cacheTTL)
	}

	provider = infradistance.NewResilient(provider, infradistance.ResilientOptions{
		Attempts: cfg.Distance.Retry.Attempts,
		Backoff:  time.Duration(cfg.Distance.Retry.BackoffMS) * time.Millisecond,
		Timeout:  time.Duration(cfg.Distance.Retry.TimeoutSeconds) * time.Second,
	}, logger.New("distance"), sink)

	var source roster.Source
	switch cfg.Roster.Source {
	case "sheets":
		src, err := sheets.New(sheets.Options{
			SpreadsheetID:   cfg.Roster.Sheets.SpreadsheetID,
			Range:           cfg.Roster.Sheets.Range,
			CredentialsJSON: cfg.Roster.Sheets.CredentialsJSON,
			APIKey:          cfg.Roster.Sheets.APIKey,
			BaseURL:         cfg.Roster.Sheets.BaseURL,
			Timeout:         time.Duration(cfg.Roster.Sheets.TimeoutSeconds) * time.Second,
		}, logger.New("sheets"))
		if err != nil {
			return nil, fmt.Errorf("sheets source: %w", err)
		}
		source = src
	default:
		source = roster.StaticSource{}
	}
	interval := time.Duration(cfg.Roster.RefreshIntervalSeconds) * time.Second
	store, err := roster.NewStore(source, geocoder, interval, logger.New("roster"), sink)
	if err != nil {
		return nil, fmt.Errorf("roster store: %w", err)
	}

	rules, err := cfg.Rules.Rules()
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	engine, err := assign.New(provider, rules, logger.New("assign"), sink)
	if err != nil {
		return nil, fmt.Errorf("assign engine: %w", err)
	}

	var publisher corenotify.Publisher = corenotify.NopPublisher{}
	if cfg.Notify.Enabled {
		pub, err := infranotify.NewMQTTPublisher(infranotify.Options{
			Broker:   cfg.Notify.Broker,
			Topic:    cfg.Notify.Topic,
			ClientID: cfg.Notify.ClientID,
			QoS:      cfg.Notify.QoS,
			Username: cfg.Notify.Username,
			Password: cfg.Notify.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		closers = append(closers, pub.Close)
		publisher = pub
	}

	apiLog := logger.New("api")
	mux := http.NewServeMux()
	mux.Handle("/assign", apiassign.NewRunHandler(engine, store, geocoder, publisher, apiLog))
	mux.Handle("/assign/single", apiassign.NewSingleHandler(engine, store, geocoder, apiLog))
	mux.Handle("/roster/refresh", apiroster.NewRefreshHandler(store, apiLog))
	mux.Handle("/health", apihealth.NewHandler(store, apiLog))

	server := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      httputil.AccessLog(apiLog, httputil.Recover(apiLog, httputil.MaxBody(cfg.API.MaxBodyBytes, mux))),
		ReadTimeout:  time.Duration(cfg.API.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.WriteTimeoutSeconds) * time.Second,
	}

	return &Service{
		Engine:  engine,
		Store:   store,
		cfg:     cfg,
		log:     logg,
		server:  server,
		closers: closers,
	}, nil
}

// Handler exposes the fully wired HTTP surface, middleware included.
func (s *Service) Handler() http.Handler { return s.server.Handler }

// Run loads the roster, starts the background refresh and the HTTP
// server, and blocks until the context is cancelled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Store.Load(ctx); err != nil {
		return fmt.Errorf("initial roster load: %w", err)
	}
	st := s.Store.Stats()
	s.log.Infof("roster loaded: %d technicians, %d skipped", st.Count, st.Skipped)
	go s.Store.Run(ctx)

	if s.cfg.Metrics.Prometheus.Enabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Prometheus.Addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.cfg.API.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases connections held by the service.
func (s *Service) Close() error {
	for _, fn := range s.closers {
		fn()
	}
	return nil
}
