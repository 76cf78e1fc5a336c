package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/planetwalk/internal/core/input"
	"github.com/zeusync/planetwalk/internal/core/observability/log"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	align := 0
	for _, p := range cfg.Planets {
		if p.Align {
			align++
		}
	}
	assert.Equal(t, 1, align)
	assert.Len(t, cfg.Planets, 5)

	km, err := cfg.Keymap()
	require.NoError(t, err)
	assert.Equal(t, input.DefaultKeymap(), km)
}

func TestEmptyDocumentYieldsDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestOverridesApply(t *testing.T) {
	doc := `
log:
  level: debug
sim:
  tick_rate: 10ms
player:
  walk_speed: 5
camera:
  zoom_speed: 20
direction_line:
  visible: false
keys:
  Up: forward
planets:
  - name: only
    radius: 10
    align: true
server:
  enabled: true
  token: secret
`
	cfg, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, log.LevelDebug, cfg.LogOptions().Level)
	assert.Equal(t, 10*time.Millisecond, cfg.Sim.TickRate)
	assert.Equal(t, 5.0, cfg.Player.WalkSpeed)
	assert.Equal(t, 2.0, cfg.Player.TurnSpeed, "untouched fields keep defaults")
	assert.Equal(t, 20.0, cfg.Camera.ZoomSpeed)
	assert.False(t, cfg.DirectionLine.Visible)
	require.Len(t, cfg.Planets, 1)
	assert.Equal(t, "only", cfg.Planets[0].Name)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "secret", cfg.Server.Token)

	km, err := cfg.Keymap()
	require.NoError(t, err)
	assert.Equal(t, input.ActionForward, km["Up"])
	assert.Equal(t, input.ActionForward, km["W"], "default bindings stay")
}

func TestInvalidConfigs(t *testing.T) {
	cases := map[string]string{
		"unknown field":    "bogus: 1\n",
		"negative tick":    "sim:\n  tick_rate: -1s\n",
		"bad camera range": "camera:\n  min_radius: 10\n  max_radius: 5\n",
		"zero offset":      "camera:\n  offset: [0, 0, 0]\n",
		"bad planet":       "planets:\n  - name: flat\n    radius: 0\n",
		"bad key":          "keys:\n  X: fly\n",
		"bad encoding":     "log:\n  encoding: xml\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestValidationErrorsWrapSentinel(t *testing.T) {
	cfg := Default()
	cfg.Player.Depth = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = Default()
	cfg.Server.Enabled = true
	cfg.Server.HTTPAddr = ""
	cfg.Server.QUICAddr = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planetwalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("player:\n  turn_speed: 1\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Player.TurnSpeed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
