// Package gateway assembles the HTTP-to-radio gateway: one radio worker on
// the bus, the status recorder, the heartbeat and the HTTP API.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"rfnode-go/bus"
	"rfnode-go/services/gateway/internal/config"
	"rfnode-go/services/gateway/internal/httpapi"
	"rfnode-go/services/gateway/internal/journal"
	"rfnode-go/services/gateway/internal/logging"
	"rfnode-go/services/gateway/internal/metrics"
	"rfnode-go/services/gateway/internal/presence"
	"rfnode-go/services/gateway/internal/radiolink"
	"rfnode-go/services/gateway/internal/status"
	"rfnode-go/services/heartbeat"
)

type Config = config.Config

var readyTimeout = 10 * time.Second

// LoadConfig reads the gateway configuration; see config.Load.
func LoadConfig(path string) (*Config, error) { return config.Load(path) }

// NewLogger builds the logger described by cfg.Logging.
func NewLogger(cfg *Config) (*zap.Logger, error) { return logging.InitLogger(cfg.Logging) }

type App struct {
	cfg *Config
	log *zap.Logger
	bus *bus.Bus
	reg *prometheus.Registry

	sim       *radiolink.Sim
	worker    *radiolink.Worker
	recorder  *status.Recorder
	heartbeat *heartbeat.Service
	router    http.Handler
	server    *httpapi.Server

	wg      sync.WaitGroup
	closers []func() error
}

// New wires every component. Nothing runs until Start.
func New(cfg *Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{
		cfg: cfg,
		log: log,
		bus: bus.NewBus(cfg.Radio.QueueLen),
		reg: metrics.NewRegistry(),
	}
	gm := metrics.NewGatewayMetrics(a.reg)

	radio, err := a.openRadio()
	if err != nil {
		a.Close()
		return nil, err
	}
	x := radiolink.NewExchanger(radio, radiolink.Options{
		ReplyTimeout: cfg.Radio.ReplyTimeout,
		PollInterval: cfg.Radio.PollInterval,
		RatePerSec:   cfg.Radio.RatePerSec,
		Burst:        cfg.Radio.Burst,
		Log:          log.Named("radio"),
	})
	a.worker = radiolink.NewWorker(a.bus.NewConnection("radio"), x, log.Named("radio"))

	store, err := a.openPresence()
	if err != nil {
		a.Close()
		return nil, err
	}
	tracker := presence.NewTracker(store, cfg.Presence.ReawakeSettle)
	if a.sim != nil {
		tracker.SetTimeFactor(cfg.Sim.TimeFactor)
	}

	j, err := a.openJournal()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.recorder = status.NewRecorder(a.bus.NewConnection("status"), j, gm, tracker, log.Named("status"))
	a.heartbeat = &heartbeat.Service{
		Interval: cfg.Presence.SweepInterval,
		Probes:   []heartbeat.Probe{a.recorder.Sweep},
		Log:      log.Named("heartbeat"),
	}

	h := &httpapi.Handler{
		Radio:    radiolink.NewClient(a.bus.NewConnection("http")),
		Presence: tracker,
		Journal:  j,
		Conn:     a.bus.NewConnection("http-status"),
		Metrics:  gm,
		Log:      log.Named("http"),
		Timeout:  cfg.HTTP.RequestTimeout,
	}
	var mh http.Handler
	if cfg.Metrics.Enable {
		mh = metrics.Handler(a.reg)
	}
	a.router = httpapi.NewRouter(h, cfg.Metrics.Path, mh, a.Ready)
	a.server = httpapi.New(cfg.HTTP, a.router)
	return a, nil
}

func (a *App) openRadio() (radiolink.Radio, error) {
	switch a.cfg.Radio.Backend {
	case "nrf24":
		link, err := a.cfg.Link.Gateway()
		if err != nil {
			return nil, err
		}
		hw, err := radiolink.OpenNRF24(link, radiolink.NRF24Options{
			SPIPort: a.cfg.Radio.SPIPort,
			SPIHz:   a.cfg.Radio.SPIHz,
			CEPin:   a.cfg.Radio.CEPin,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, hw.Close)
		a.log.Info("radio backend nrf24", zap.String("spi", a.cfg.Radio.SPIPort), zap.String("ce", a.cfg.Radio.CEPin))
		return hw, nil
	default:
		link, err := a.cfg.Link.Node()
		if err != nil {
			return nil, err
		}
		var diag io.Writer
		if a.cfg.Sim.Diag {
			w := logging.LineWriter(a.log.Named("node"))
			a.closers = append(a.closers, w.Close)
			diag = w
		}
		s, err := radiolink.NewSim(link, radiolink.SimOptions{
			Device:     a.cfg.Sim.Device,
			TimeFactor: a.cfg.Sim.TimeFactor,
			ADC:        uint16(a.cfg.Sim.ADC),
			Diag:       diag,
		})
		if err != nil {
			return nil, err
		}
		a.sim = s
		a.log.Info("radio backend sim", zap.String("device", a.cfg.Sim.Device), zap.Int("time_factor", a.cfg.Sim.TimeFactor))
		return s.Radio, nil
	}
}

func (a *App) openPresence() (presence.Store, error) {
	if a.cfg.Presence.Store != "redis" {
		return presence.NewMemory(), nil
	}
	rdb, err := presence.NewRedisClient(a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, rdb.Close)
	return presence.NewRedis(rdb, a.cfg.Presence.KeyPrefix), nil
}

func (a *App) openJournal() (journal.Store, error) {
	if a.cfg.Journal.Store != "postgres" {
		return journal.NewRing(a.cfg.Journal.Capacity), nil
	}
	db, err := journal.OpenPostgres(a.cfg.Database)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	g := journal.NewGorm(db)
	if a.cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := g.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
	}
	return g, nil
}

// Handler is the HTTP router.
func (a *App) Handler() http.Handler { return a.router }

// Ready reports whether the radio worker is serving.
func (a *App) Ready() bool { return a.worker.Ready() }

// Start launches the background services and waits up to readyTimeout for
// the radio to come up. ctx bounds the lifetime of the services, not only the
// wait; cancel it to stop them.
func (a *App) Start(ctx context.Context) error {
	st := a.bus.NewConnection("app")
	sub := st.Subscribe(radiolink.TopicState)
	defer st.Unsubscribe(sub)

	if a.sim != nil {
		errs := a.sim.Start(ctx)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err, ok := <-errs; ok && err != nil {
				a.log.Error("simulated node stopped", zap.Error(err))
			}
		}()
	}

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		if err := a.worker.Run(ctx); err != nil {
			a.log.Error("radio worker stopped", zap.Error(err))
		}
	}()
	go func() {
		defer a.wg.Done()
		a.recorder.Run(ctx)
	}()
	if err := a.heartbeat.Start(ctx, a.bus.NewConnection("heartbeat")); err != nil {
		return err
	}

	timer := time.NewTimer(readyTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("radio not ready after %s", readyTimeout)
		case m, ok := <-sub.Channel():
			if !ok {
				return errors.New("radio state subscription closed")
			}
			s, ok := m.Payload.(radiolink.State)
			if !ok {
				continue
			}
			switch s.Level {
			case "up":
				return nil
			case "error":
				return fmt.Errorf("radio: %s", s.Error)
			}
		}
	}
}

// Run starts the services and the HTTP server, and blocks until ctx ends.
// Shutdown is bounded by a 10s grace period.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		cancel()
		a.wg.Wait()
		a.Close()
		return err
	}

	srvErr := make(chan error, 1)
	go func() {
		a.log.Info("http listening", zap.String("addr", a.cfg.HTTP.Addr))
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-srvErr:
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if serr := a.server.Shutdown(sctx); serr != nil {
		a.log.Warn("http shutdown", zap.Error(serr))
	}
	cancel()
	a.wg.Wait()
	a.Close()
	return err
}

// Close releases stores, the radio and the log bridge. Call it after the
// services have stopped.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close", zap.Error(err))
		}
	}
	a.closers = nil
}
