package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "barn_climate/docs"
	"barn_climate/internal/broker"
	"barn_climate/internal/config"
	"barn_climate/internal/handlers"
	"barn_climate/internal/logger"
	"barn_climate/internal/metrics"
	"barn_climate/internal/models"
	"barn_climate/internal/notifier"
	"barn_climate/internal/repository"
	"barn_climate/internal/repository/db"
	"barn_climate/internal/server"
	"barn_climate/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	brokerRetryPeriod = 15 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// @title        Barn Climate API
// @version      1.0
// @description  Telemetry, rule-driven device control and alert history for the barn climate controller.
// @BasePath     /
func main() {
	cfg, cfgErr := config.Load("configs")

	// init logger
	level := logger.InfoLevel
	if cfgErr == nil {
		level = cfg.Log.Level
	}
	log := logger.Get(level)
	if cfgErr != nil {
		log.Fatalw("error reading config", "err", cfgErr)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "path", cfg.DB.Path, "err", err)
	}
	defer closeDB(sqlDB, log)

	conn := broker.NewConnManager(broker.Config{
		Host:           cfg.MQTT.Host,
		Port:           cfg.MQTT.Port,
		Username:       cfg.MQTT.Username,
		Password:       cfg.MQTT.Password,
		ClientIDPrefix: cfg.MQTT.ClientIDPrefix,
		KeepAlive:      cfg.MQTT.KeepAlive,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
		ConnectRetries: cfg.MQTT.ConnectRetries,
	}, log.Named("mqtt"), m)
	defer conn.Close()

	publisher := broker.NewCommandPublisher(conn, cfg.MQTT.CommandTopic, cfg.MQTT.QoS, cfg.IO.Timeout, log.Named("publisher"), m)

	deps := service.Deps{
		Repos:          repository.NewRepository(sqlDB),
		Publisher:      publisher,
		Broker:         conn,
		AlertRecipient: cfg.Email.Recipient,
		IOTimeout:      cfg.IO.Timeout,
		Metrics:        m,
		Log:            log,
	}
	if cfg.Email.Enabled() {
		mailer, err := newMailer(cfg.Email, cfg.IO.Timeout, log)
		if err != nil {
			log.Errorw("email alerts disabled", "err", err)
		} else {
			deps.Mailer = mailer
		}
	} else {
		log.Infow("email not configured; alerts are recorded only")
	}
	if cfg.Influx.Enabled() {
		exporter := repository.NewSensorInflux(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		defer exporter.Close()
		deps.Exporter = exporter
	}
	services := service.NewService(deps)

	// the subscriber registers its on-connect hook, so it must exist before connecting
	subscriber := broker.NewTelemetrySubscriber(conn, cfg.MQTT.TelemetryTopic, cfg.MQTT.QoS, cfg.MQTT.QueueSize,
		func(ctx context.Context, snap models.SensorSnapshot) { services.Ingest.Handle(ctx, snap) },
		log.Named("subscriber"), m)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go connectBroker(ctx, conn, log)
	subDone := make(chan struct{})
	go func() {
		defer close(subDone)
		if err := subscriber.Run(ctx); err != nil {
			log.Errorw("telemetry subscriber stopped", "err", err)
		}
	}()

	if cfg.Sim.Enabled {
		log.Infow("barn simulator enabled", "interval", cfg.Sim.Interval)
		simulator := service.NewSimulatorService(services.Ingest, log.Named("simulator"))
		go simulator.Run(ctx, cfg.Sim.Interval)
	}

	apiHandler := handlers.NewHandler(services, log.Named("http")).
		WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Server.Port, apiHandler, log)

	waitForShutdown(cancel, srv, log)

	// let the reading in flight finish before the broker and DB close
	select {
	case <-subDone:
	case <-time.After(shutdownTimeout):
		log.Warnw("telemetry subscriber did not stop in time")
	}
}

func newMailer(cfg config.EmailConfig, timeout time.Duration, log *logger.Logger) (*notifier.Mailer, error) {
	return notifier.NewMailer(notifier.Config{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		Username:        cfg.Sender,
		Password:        cfg.Password,
		From:            cfg.Sender,
		Timeout:         timeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerOpenFor:  cfg.BreakerOpenFor,
	}, log.Named("mail"))
}

// connectBroker keeps dialing until the first connection succeeds. After that
// the client reconnects on its own.
func connectBroker(ctx context.Context, conn *broker.ConnManager, log *logger.Logger) {
	ticker := time.NewTicker(brokerRetryPeriod)
	defer ticker.Stop()

	for {
		err := conn.Connect(ctx)
		if err == nil {
			return
		}
		log.Errorw("mqtt broker unavailable", "broker", conn.BrokerURL(), "retry_in", brokerRetryPeriod, "err", err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http server listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop the subscriber and the connector
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

func closeDB(sqlDB *sql.DB, log *logger.Logger) {
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}
