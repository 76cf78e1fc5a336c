package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/planetwalk/internal/config"
	"github.com/zeusync/planetwalk/internal/core/events/bus"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
	"github.com/zeusync/planetwalk/internal/server"
	"github.com/zeusync/planetwalk/internal/sim"
)

// ConfigPath is the YAML file to load. Empty means built-in defaults.
type ConfigPath string

// App is the fully wired host.
type App struct {
	Config     config.Config
	Logger     log.Log
	Events     bus.EventBus
	Simulation *sim.Simulation
	Server     *server.Server
}

func ProvideConfig(path ConfigPath) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(string(path))
}

func ProvideLogger(cfg config.Config) log.Log {
	return log.NewWithOptions(cfg.LogOptions())
}

func ProvideEventBus() bus.EventBus {
	return bus.New()
}

func ProvideSimulation(cfg config.Config, logger log.Log, events bus.EventBus) (*sim.Simulation, error) {
	return sim.New(cfg, logger, events)
}

func ProvideServer(cfg config.Config, simulation *sim.Simulation, events bus.EventBus, logger log.Log) (*server.Server, error) {
	return server.NewServer(cfg.Server, simulation, events, logger)
}

// ProviderSet builds an App from a ConfigPath.
var ProviderSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideEventBus,
	ProvideSimulation,
	ProvideServer,
	wire.Struct(new(App), "*"),
)
