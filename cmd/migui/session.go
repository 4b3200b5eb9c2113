package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmylchreest/migui/internal/bootstrap"
	"github.com/jmylchreest/migui/internal/broker"
	"github.com/jmylchreest/migui/internal/broker/dbus"
	"github.com/jmylchreest/migui/internal/broker/ws"
	"github.com/jmylchreest/migui/internal/config"
	"github.com/jmylchreest/migui/internal/eventloop"
	"github.com/jmylchreest/migui/internal/logging"
	"github.com/jmylchreest/migui/internal/metrics"
	"github.com/jmylchreest/migui/internal/scope"
)

// session is one bootstrap against the broker with everything it owns.
type session struct {
	loop   *eventloop.Loop
	broker *broker.Broker
	ws     *ws.Resolver
	dbus   *dbus.Resolver
	root   *scope.State
	boot   *bootstrap.Bootstrapper
}

func newSession(c *config.Config, sink *logging.Sink, recorder *metrics.Recorder) *session {
	log := sink.Logger()
	loop := eventloop.New()

	brokerOpts := []broker.Option{
		broker.WithDispatcher(loop),
		broker.WithLogger(log),
	}
	if recorder != nil {
		brokerOpts = append(brokerOpts, broker.WithObserver(
			func(ref broker.Reference, elapsed time.Duration, err error) {
				recorder.ObserveResolution(ref.Transport, elapsed)
			}))
	}
	b := broker.New(brokerOpts...)

	header := http.Header{}
	for k, v := range c.Broker.Headers {
		header.Set(k, v)
	}
	wsResolver := ws.NewResolver(c.Broker.URL, ws.Options{
		Header:           header,
		HandshakeTimeout: c.Broker.DialTimeout.Duration(),
		Logger:           log,
	})
	dbusResolver := dbus.NewResolver(dbusOptions(c, log))
	b.Register(ws.TransportName, wsResolver)
	b.Register(dbus.TransportName, dbusResolver)

	root := scope.NewState()
	bootOpts := []bootstrap.Option{bootstrap.WithSlog(log)}
	if recorder != nil {
		bootOpts = append(bootOpts, bootstrap.WithMetrics(recorder))
	}

	return &session{
		loop:   loop,
		broker: b,
		ws:     wsResolver,
		dbus:   dbusResolver,
		root:   root,
		boot:   bootstrap.New(sink, scope.Single(bootstrap.RootElementID, root), bootOpts...),
	}
}

// start runs the event loop and the bootstrap. It returns before the
// manager is resolved.
func (s *session) start(ctx context.Context) error {
	s.loop.Start(ctx)
	if err := s.boot.Run(ctx, s.broker); err != nil {
		return err
	}
	if globalOpts.verbose {
		sink.SetLevel(logging.LevelDebug)
		logger.Debug("log level lowered", "level", logging.LevelName(sink.Level()))
	}
	return nil
}

// attach starts the session and waits for the manager.
func (s *session) attach(ctx context.Context) (broker.Proxy, error) {
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	if err := s.boot.Wait(ctx); err != nil {
		return nil, err
	}
	proxy, ok := s.root.Manager()
	if !ok {
		return nil, errors.New("bootstrap finished without a manager")
	}
	return proxy, nil
}

func (s *session) close() {
	s.loop.Stop()
	s.root.Close()
	if err := s.ws.Close(); err != nil {
		logger.Debug("failed to close broker connection", "error", err)
	}
	if err := s.dbus.Close(); err != nil {
		logger.Debug("failed to close bus connection", "error", err)
	}
}

// startMetrics serves the recorder on addr until ctx is done.
func startMetrics(ctx context.Context, addr string, recorder *metrics.Recorder) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           recorder.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()
}

func dbusOptions(c *config.Config, log *slog.Logger) dbus.Options {
	return dbus.Options{
		Bus:        c.Broker.DBus.Bus,
		Prefix:     c.Broker.DBus.Prefix,
		PathPrefix: c.Broker.DBus.PathPrefix,
		Logger:     log,
	}
}
