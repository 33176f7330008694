// Command prescriptiond serves the prescription write side over HTTP: a
// SQLite-backed event store, the command service, the outbox relay and an
// in-process event bus consumed by a single dispatcher.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/terraskye/eventflow"
	busmemory "github.com/terraskye/eventflow/eventbus/memory"
	"github.com/terraskye/eventflow/eventstore/sqlite"
	"github.com/terraskye/eventflow/logging"
	"github.com/terraskye/eventflow/prescription"
	"github.com/terraskye/eventflow/prescription/rest"
)

type config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":3000"`
	DatabasePath    string        `env:"DATABASE_PATH" envDefault:"prescriptions.db"`
	OutboxInterval  time.Duration `env:"OUTBOX_INTERVAL" envDefault:"10s"`
	PublishRetries  uint64        `env:"OUTBOX_PUBLISH_RETRIES" envDefault:"3"`
	BusBufferSize   int           `env:"BUS_BUFFER_SIZE" envDefault:"1024"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Debug           bool          `env:"DEBUG" envDefault:"false"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.WithField("service", "prescriptiond")
	eventflow.MustInit()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := sqlite.Open[*prescription.Prescription, prescription.Event](cfg.DatabasePath, prescription.EventCodec(), prescription.New)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer db.Close()

	bus := busmemory.NewBus[prescription.Event](cfg.BusBufferSize)
	defer bus.Close()

	service := prescription.NewService(store, prescription.StaticDirectory{},
		eventflow.WithLogger(logger),
		eventflow.WithMetadata(func(context.Context) map[string]string {
			return map[string]string{"command_id": uuid.NewString()}
		}),
	)
	executor := logging.WithExecutorLogging[*prescription.Prescription, prescription.Command](logger, service)

	relay := eventflow.NewOutboxRelay[prescription.Event](store, bus,
		eventflow.WithRelayInterval(cfg.OutboxInterval),
		eventflow.WithPublishRetries(cfg.PublishRetries),
		eventflow.WithRelayLogger(logger),
	)
	go relay.Run(ctx)

	// Single dispatcher: the bus is a work queue, one consumer sees every
	// event exactly once per delivery.
	go func() {
		for envelope := range bus.ReceiveEvents() {
			logger.WithFields(log.Fields{
				"aggregate_id": envelope.AggregateID,
				"event_type":   envelope.Event.EventType(),
				"sequence":     envelope.Sequence,
			}).Info("event published")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	rest.Register(e, executor)

	go func() {
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
		os.Exit(1)
	}
}
