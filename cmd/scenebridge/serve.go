package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/SceneBridge/internal/api"
	"github.com/AaronLay10/SceneBridge/internal/config"
	"github.com/AaronLay10/SceneBridge/internal/events"
	"github.com/AaronLay10/SceneBridge/internal/mqtt"
	"github.com/AaronLay10/SceneBridge/internal/report"
	"github.com/AaronLay10/SceneBridge/internal/storage/postgres"
	"github.com/AaronLay10/SceneBridge/internal/version"
)

const (
	mqttCheckInterval     = 5 * time.Second
	postgresCheckInterval = 10 * time.Second
	alertCheckInterval    = 10 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the MQTT load request listener",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			secrets, err := config.LoadSecrets()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, secrets)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, secrets *config.Secrets) error {
	instance := cfg.InstanceID()
	api.InitAuth(secrets)
	api.InitTLS()
	api.InitMetrics()
	api.SetInstanceID(instance)
	api.InitAlerts()

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "scenebridge starting", map[string]interface{}{
		"instance": instance,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"version":  version.Version,
	})

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(instance, secrets.PostgresPassword)
		if err != nil {
			log.Printf("postgres unavailable: %v", err)
			api.SetPostgresState(false, false)
		} else {
			defer pg.Close()
			events.SetPostgresClient(pg)
			api.SetPostgresState(true, false)
			go watchPostgres(ctx, pg)
		}
	} else {
		api.SetPostgresState(false, true)
	}

	lib, err := newLibrary(cfg)
	if err != nil {
		return err
	}
	svc := api.NewLoadService(lib)
	if pg := events.GetPostgresClient(); pg != nil {
		svc.SetHistory(pg)
	}
	api.SetLoadService(svc)
	defer svc.Close()

	if cfg.MQTT.Enabled {
		prefix := cfg.TopicPrefix()
		var sub *mqtt.RequestSubscriber
		client := mqtt.NewClient(mqtt.Options{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTTClientID(),
			Username: cfg.MQTT.Username,
			Password: secrets.MQTTPassword,
			// a clean session drops the request subscription
			OnConnect: func() {
				sub.Reset()
				syncMQTT(true, sub)
			},
			OnConnectionLost: func(error) { syncMQTT(false, sub) },
		})
		defer client.Disconnect()

		svc.SetPublisher(func(loadID string) report.LoadReporter {
			return mqtt.NewPublisher(client, prefix, loadID)
		})
		// paho delivers messages on one goroutine; a load must not block it
		sub = mqtt.NewRequestSubscriber(client, prefix, func(req mqtt.LoadRequest) {
			// rejections are emitted as system.error by the service
			go svc.Load(req.Path, req.LoadID)
		})

		if err := client.Connect(); err != nil {
			log.Printf("mqtt: failed to connect to %s: %v", client.Broker(), err)
		}
		syncMQTT(client.IsConnected(), sub)
		go watchMQTT(ctx, client, sub)
	} else {
		api.SetMQTTState(false, true)
	}

	api.StartAlertMonitor(alertCheckInterval, ctx.Done())

	srv, err := api.NewServer(cfg.APIPort())
	if err != nil {
		return err
	}
	errc := make(chan error, 1)
	go func() { errc <- api.ListenAndServe(srv) }()

	select {
	case err = <-errc:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = srv.Shutdown(shutdownCtx)
		cancel()
	}

	events.Emit("info", "system.shutdown", "scenebridge stopping", map[string]interface{}{
		"instance": instance,
	})
	events.CloseAllSubscribers()
	return err
}

type mqttConn interface {
	IsConnected() bool
}

// syncMQTT publishes the connection state and makes sure the request
// topic is subscribed while connected.
func syncMQTT(connected bool, sub *mqtt.RequestSubscriber) {
	api.SetMQTTState(connected, false)
	if !connected {
		sub.Reset()
		return
	}
	if sub.IsSubscribed() {
		return
	}
	if err := sub.Subscribe(); err != nil {
		log.Printf("mqtt: failed to subscribe to %s: %v", sub.Topic(), err)
		return
	}
	log.Printf("mqtt: subscribed to %s", sub.Topic())
}

// watchMQTT retries a failed subscribe and catches state changes the
// connection callbacks missed.
func watchMQTT(ctx context.Context, client mqttConn, sub *mqtt.RequestSubscriber) {
	ticker := time.NewTicker(mqttCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncMQTT(client.IsConnected(), sub)
		}
	}
}

func watchPostgres(ctx context.Context, pg *postgres.Client) {
	ticker := time.NewTicker(postgresCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			api.SetPostgresState(pg.Ping() == nil, false)
		}
	}
}
