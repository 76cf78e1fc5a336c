// Package config loads the planetwalk configuration from YAML.
//
// A missing section keeps its default. Planets and keys given in a file replace
// and extend the defaults respectively.
package config

import (
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Log           LogConfig           `yaml:"log"`
	Sim           SimConfig           `yaml:"sim"`
	Player        PlayerConfig        `yaml:"player"`
	Camera        CameraConfig        `yaml:"camera"`
	DirectionLine DirectionLineConfig `yaml:"direction_line"`
	Planets       []PlanetConfig      `yaml:"planets"`
	Keys          map[string]string   `yaml:"keys"`
	Server        ServerConfig        `yaml:"server"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type SimConfig struct {
	TickRate time.Duration `yaml:"tick_rate"`
	// MinSphereSegments is the tessellation floor for spawned spheres.
	MinSphereSegments int        `yaml:"min_sphere_segments"`
	ClearColor        [3]float64 `yaml:"clear_color"`
}

type PlayerConfig struct {
	Position [3]float64 `yaml:"position"`
	// PitchX is the initial rotation about the world X axis, in radians.
	PitchX    float64    `yaml:"pitch_x"`
	Radius    float64    `yaml:"radius"`
	Depth     float64    `yaml:"depth"`
	Color     [3]float64 `yaml:"color"`
	WalkSpeed float64    `yaml:"walk_speed"`
	TurnSpeed float64    `yaml:"turn_speed"`
}

type CameraConfig struct {
	Offset    [3]float64 `yaml:"offset"`
	MinRadius float64    `yaml:"min_radius"`
	MaxRadius float64    `yaml:"max_radius"`
	ZoomSpeed float64    `yaml:"zoom_speed"`
}

type DirectionLineConfig struct {
	// Visible is whether agents start with the indicator wanted.
	Visible bool `yaml:"visible"`
}

type PlanetConfig struct {
	Name      string       `yaml:"name"`
	Position  [3]float64   `yaml:"position"`
	Radius    float64      `yaml:"radius"`
	Color     [3]float64   `yaml:"color"`
	Texture   string       `yaml:"texture,omitempty"`
	NormalMap string       `yaml:"normal_map,omitempty"`
	Align     bool         `yaml:"align,omitempty"`
	Light     *LightConfig `yaml:"light,omitempty"`
}

// LightConfig attaches a point light at the planet center.
type LightConfig struct {
	Intensity float64    `yaml:"intensity"`
	Range     float64    `yaml:"range"`
	Radius    float64    `yaml:"radius"`
	Color     [3]float64 `yaml:"color"`
	Shadows   bool       `yaml:"shadows"`
}

type ServerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	HTTPAddr string `yaml:"http_addr"`
	QUICAddr string `yaml:"quic_addr"`
	// Token, when set, must be presented by WebSocket and QUIC clients.
	Token string `yaml:"token"`
	// InputRateLimit caps input messages per client per second. Zero disables it.
	InputRateLimit int `yaml:"input_rate_limit"`
}

const mainPlanetRadius = 30.0

// Default returns the demo scene: one textured planet, three small ones and a sun.
func Default() Config {
	sunColor := [3]float64{1, 248.0 / 255, 224.0 / 255}
	return Config{
		Log: LogConfig{Level: "info", Encoding: "console"},
		Sim: SimConfig{
			TickRate:          time.Second / 60,
			MinSphereSegments: 160,
		},
		Player: PlayerConfig{
			Position:  [3]float64{0, 0, mainPlanetRadius + 0.4},
			PitchX:    math.Pi / 2,
			Radius:    0.1,
			Depth:     0.4,
			Color:     [3]float64{0.1, 0.8, 0.1},
			WalkSpeed: 30,
			TurnSpeed: 2,
		},
		Camera: CameraConfig{
			Offset:    [3]float64{0, 30, 12},
			MinRadius: 1,
			MaxRadius: 150,
			ZoomSpeed: 40,
		},
		DirectionLine: DirectionLineConfig{Visible: true},
		Planets: []PlanetConfig{
			{
				Name:      "earth",
				Radius:    mainPlanetRadius,
				Color:     [3]float64{1, 1, 1},
				Texture:   "earth-4k.jpg",
				NormalMap: "earth-normal-4k.png",
				Align:     true,
			},
			{Name: "red", Position: [3]float64{35, 0, 0}, Radius: 3, Color: [3]float64{1, 0, 0}},
			{Name: "yellow", Position: [3]float64{0, 35, 0}, Radius: 3, Color: [3]float64{1, 1, 0}},
			{Name: "green", Position: [3]float64{0, 0, 35}, Radius: 3, Color: [3]float64{0, 1, 0}},
			{
				Name:     "sun",
				Position: [3]float64{0, mainPlanetRadius * 4, 0},
				Radius:   5,
				Color:    sunColor,
				Light: &LightConfig{
					Intensity: 10,
					Range:     mainPlanetRadius * 500,
					Radius:    10,
					Color:     sunColor,
					Shadows:   true,
				},
			},
		},
		Keys: map[string]string{
			"W":        input.ActionForward.String(),
			"S":        input.ActionBack.String(),
			"A":        input.ActionLeft.String(),
			"D":        input.ActionRight.String(),
			"Space":    input.ActionUp.String(),
			"LControl": input.ActionDown.String(),
			"Q":        input.ActionTurnLeft.String(),
			"E":        input.ActionTurnRight.String(),
			"RBracket": input.ActionToggleDirectionLines.String(),
		},
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			QUICAddr:       ":8443",
			InputRateLimit: 240,
		},
	}
}

// Load reads and validates the file at path on top of Default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "open config %s", path)
	}
	defer func() { _ = f.Close() }()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML from r on top of Default and validates the result.
// Unknown fields are rejected. An empty document yields the defaults.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	if c.Log.Encoding != "" && c.Log.Encoding != "console" && c.Log.Encoding != "json" {
		return errors.Wrapf(ErrInvalidConfig, "log.encoding %q", c.Log.Encoding)
	}
	if c.Sim.TickRate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "sim.tick_rate must be positive, got %s", c.Sim.TickRate)
	}
	if c.Sim.MinSphereSegments < 3 {
		return errors.Wrapf(ErrInvalidConfig, "sim.min_sphere_segments must be at least 3, got %d", c.Sim.MinSphereSegments)
	}
	if !(c.Player.Radius > 0) || !(c.Player.Depth > 0) {
		return errors.Wrap(ErrInvalidConfig, "player.radius and player.depth must be positive")
	}
	if c.Player.WalkSpeed < 0 || c.Player.TurnSpeed < 0 {
		return errors.Wrap(ErrInvalidConfig, "player speeds must not be negative")
	}
	if !(c.Camera.MinRadius > 0) || c.Camera.MaxRadius < c.Camera.MinRadius {
		return errors.Wrapf(ErrInvalidConfig, "camera radius bounds [%v, %v]", c.Camera.MinRadius, c.Camera.MaxRadius)
	}
	if c.Camera.ZoomSpeed < 0 {
		return errors.Wrap(ErrInvalidConfig, "camera.zoom_speed must not be negative")
	}
	if c.Camera.Offset == [3]float64{} {
		return errors.Wrap(ErrInvalidConfig, "camera.offset must not be zero")
	}
	if len(c.Planets) == 0 {
		return errors.Wrap(ErrInvalidConfig, "at least one planet is required")
	}
	for i, p := range c.Planets {
		if !(p.Radius > 0) {
			return errors.Wrapf(ErrInvalidConfig, "planets[%d] %q radius must be positive", i, p.Name)
		}
	}
	if _, err := c.Keymap(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "keys: %v", err)
	}
	if c.Server.Enabled && c.Server.HTTPAddr == "" && c.Server.QUICAddr == "" {
		return errors.Wrap(ErrInvalidConfig, "server enabled without any listen address")
	}
	if c.Server.InputRateLimit < 0 {
		return errors.Wrap(ErrInvalidConfig, "server.input_rate_limit must not be negative")
	}
	return nil
}

// Keymap parses the key bindings.
func (c Config) Keymap() (input.Keymap, error) {
	return input.ParseKeymap(c.Keys)
}

// LogOptions maps the log section onto logger options. Unknown levels mean info.
func (c Config) LogOptions() log.Options {
	return log.Options{Level: log.ParseLevel(c.Log.Level), Encoding: c.Log.Encoding}
}
