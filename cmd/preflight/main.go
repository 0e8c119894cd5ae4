// Preflight runs aircraft start-up procedures against a simulator host.
//
// The executor drives host frames and serves jobs offloaded by the
// orchestrator, which polls the start-up sequence for the aircraft being
// flown. Operators start and interrupt runs over HTTP, WebSocket or MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/preflight/internal/aircraft"
	"github.com/nerrad567/preflight/internal/api"
	"github.com/nerrad567/preflight/internal/bridges/mqttpanel"
	"github.com/nerrad567/preflight/internal/executor"
	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/host/luahost"
	"github.com/nerrad567/preflight/internal/infrastructure/config"
	"github.com/nerrad567/preflight/internal/infrastructure/database"
	"github.com/nerrad567/preflight/internal/infrastructure/influxdb"
	"github.com/nerrad567/preflight/internal/infrastructure/logging"
	"github.com/nerrad567/preflight/internal/infrastructure/mqtt"
	"github.com/nerrad567/preflight/internal/orchestrator"
	"github.com/nerrad567/preflight/migrations"
)

// Version information, set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// startupTimeout bounds the first health check and the initial bench wiring.
const startupTimeout = 10 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled. Deferred
// cleanups run in reverse order of start-up.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	log := logging.Default()
	log.Info("starting preflight", "version", version, "commit", commit, "build_date", date)

	configPath := config.Path()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", configPath, "instance", cfg.Instance.ID)

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Aircraft profiles
	registry := aircraft.NewRegistry()
	registry.SetLogger(log.Component("aircraft"))
	if loadErr := registry.Load(profilesDir(cfg.Sequencer.ProfilesDir, log)); loadErr != nil {
		return fmt.Errorf("loading aircraft profiles: %w", loadErr)
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Host and executor
	luaHost, err := luahost.New(luahost.Options{Path: cfg.Host.Script, Logger: log.Component("script")})
	if err != nil {
		return fmt.Errorf("loading host script: %w", err)
	}
	defer luaHost.Close()
	log.Info("host script loaded", "script", luaHost.Name())

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	// The orchestrator and executor call into each other, so the executor's
	// callbacks go through orch, which is assigned before frames start.
	var orch *orchestrator.Orchestrator
	exec, client := executor.New(executor.Options{
		Logger:   log.Component("executor"),
		OnTarget: func(name string) { orch.TargetChanged(name) },
		OnWake:   func() { orch.Wake() },
		OnPause:  func(paused bool) { orch.SetPaused(paused) },
	})

	orchOpts := orchestrator.Options{
		Runs:           orchestrator.NewSQLiteRepository(db.DB),
		Hub:            hub,
		Logger:         log.Component("orchestrator"),
		StallWarnAfter: cfg.StallWarning(),
	}
	if influxClient != nil {
		orchOpts.Progress = influxClient
	}
	orch = orchestrator.New(client, registry, orchOpts)
	defer orch.Close()

	driver := executor.NewDriver(exec, luaHost, executor.DriverConfig{
		FrameRate: cfg.Host.FrameRate,
		Logger:    log.Component("driver"),
	})
	if startErr := driver.Start(ctx); startErr != nil {
		return fmt.Errorf("starting frame driver: %w", startErr)
	}
	defer func() {
		driver.Stop()
		exec.Stop()
	}()

	if cfg.Host.Bench {
		bindCtx, cancelBind := context.WithTimeout(ctx, startupTimeout)
		bindErr := bindBench(bindCtx, client, registry.List())
		cancelBind()
		if bindErr != nil {
			return fmt.Errorf("wiring bench cockpit: %w", bindErr)
		}
	}

	orchCtx, stopOrch := context.WithCancel(ctx)
	orchDone := make(chan error, 1)
	go func() { orchDone <- orch.Run(orchCtx) }()
	defer func() {
		stopOrch()
		if runErr := <-orchDone; runErr != nil {
			log.Error("orchestrator stopped with error", "error", runErr)
		}
	}()

	// Profile hot reload
	if cfg.Sequencer.WatchProfiles && cfg.Sequencer.ProfilesDir != "" {
		watcher, watchErr := aircraft.NewWatcher(registry, cfg.Sequencer.ProfilesDir, aircraft.WatcherOptions{
			Logger: log.Component("aircraft"),
			OnReload: func(profiles []*aircraft.Profile) {
				if cfg.Host.Bench {
					go func() {
						bindCtx, cancelBind := context.WithTimeout(ctx, startupTimeout)
						defer cancelBind()
						if err := bindBench(bindCtx, client, profiles); err != nil {
							log.Warn("rewiring bench cockpit failed", "error", err)
						}
					}()
				}
				orch.RefreshTarget()
			},
		})
		if watchErr != nil {
			log.Warn("profile watching disabled", "dir", cfg.Sequencer.ProfilesDir, "error", watchErr)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("profile watcher stopped", "error", err)
				}
			}()
		}
	}

	checks := map[string]api.HealthChecker{"database": db}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	// MQTT control panel (optional)
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge, bridgeErr := mqttpanel.NewBridge(mqttpanel.BridgeOptions{
			MQTTClient: &mqttBridgeAdapter{client: mqttClient},
			Sequencer:  orch,
			Instance:   cfg.Instance.ID,
			Version:    version,
			QoS:        byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0..2
			Logger:     log.Component("mqttpanel"),
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating MQTT panel bridge: %w", bridgeErr)
		}
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT panel bridge: %w", startErr)
		}
		defer bridge.Stop()
		log.Info("MQTT panel bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// HTTP API
	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log.Component("api"),
			Sequencer: orch,
			Runs:      orchOpts.Runs,
			Catalog:   registry,
			Checks:    checks,
			Hub:       hub,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	checkCtx, cancelCheck := context.WithTimeout(ctx, startupTimeout)
	err = healthCheck(checkCtx, checks)
	cancelCheck()
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"profiles", len(registry.List()),
		"frame_rate", cfg.Host.FrameRate,
	)
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// profilesDir returns dir when it exists. A missing directory is not an
// error; the embedded profiles are used alone.
func profilesDir(dir string, log *logging.Logger) string {
	if dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); err != nil {
		log.Warn("profiles directory not readable, using embedded profiles only", "dir", dir, "error", err)
		return ""
	}
	return dir
}

// healthCheck runs every check once and returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// bindBench ties each profile switch's command to its readback argument in
// the bench cockpit. It runs as a job on the host goroutine.
func bindBench(ctx context.Context, client *host.Client, profiles []*aircraft.Profile) error {
	f := client.Exec(func(h host.Host) error {
		lh, ok := h.(*luahost.Host)
		if !ok {
			return fmt.Errorf("host %T has no bench", h)
		}
		for _, p := range profiles {
			for _, s := range p.Switches.Sorted() {
				if s.Command == 0 {
					continue
				}
				if _, err := lh.Call("bench_bind", s.Device, s.Command, s.Argument); err != nil {
					return fmt.Errorf("profile %s switch %s: %w", p.Name, s.Key, err)
				}
				if s.CommandUp != 0 {
					if _, err := lh.Call("bench_bind", s.Device, s.CommandUp, s.Argument); err != nil {
						return fmt.Errorf("profile %s switch %s: %w", p.Name, s.Key, err)
					}
				}
			}
		}
		return nil
	})
	jobErr, err := f.WaitContext(ctx)
	if err != nil {
		return err
	}
	return jobErr
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the panel
// bridge, whose handlers do not return errors.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
