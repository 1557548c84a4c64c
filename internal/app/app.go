// Package app wires the audio policy service together: configuration, the
// hardware client, the policy manager, metrics and the HTTP control surface.
package app

import (
	"fmt"

	"audio-policy/internal/common/logging"
	"audio-policy/internal/config"
	"audio-policy/internal/hal"
	"audio-policy/internal/metrics"
	"audio-policy/internal/policy"
	"audio-policy/internal/routing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds all the application dependencies
type App struct {
	Config   *config.Config
	HAL      hal.Client
	Manager  *policy.Manager
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Logger   logging.Logger
}

// New creates the application and initializes the policy manager from the
// configured topology. A topology that fails to load or initialize leaves the
// manager uninitialized; every policy request then fails with no_init.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
	}

	hw, err := newHALClient(cfg.HALClient)
	if err != nil {
		return nil, err
	}
	app.HAL = hw

	if cfg.MetricsEnabled {
		app.Registry = prometheus.NewRegistry()
		app.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		app.Metrics = metrics.New(app.Registry)
	}

	app.Manager = policy.NewManager(
		hw,
		routing.NewFactoryRegistry(),
		app.Metrics,
		logging.GetGlobalLogger().WithFields(logging.String("component", "policy")),
	)

	app.initializeManager()
	return app, nil
}

func newHALClient(name string) (hal.Client, error) {
	switch name {
	case config.HALClientSim:
		return hal.NewSimClient(), nil
	case config.HALClientNull:
		return hal.NewNullClient(), nil
	default:
		return nil, fmt.Errorf("unknown hal client %q", name)
	}
}

func (app *App) initializeManager() {
	spec, err := app.Config.Topology()
	if err != nil {
		app.Logger.Error("Failed to load topology", err,
			logging.String("topology_file", app.Config.TopologyFile),
		)
		return
	}

	err = app.Manager.Initialize(policy.Config{
		Topology: spec,
		Engine:   app.Config.RoutingEngine,
	})
	if err != nil {
		app.Logger.Error("Policy manager failed to initialize", err,
			logging.String("engine", app.Config.RoutingEngine),
			logging.String("hal_client", app.Config.HALClient),
		)
		return
	}

	app.Logger.Info("Policy manager initialized",
		logging.Int("modules", len(spec.Modules)),
		logging.String("engine", app.Config.RoutingEngine),
	)
}
