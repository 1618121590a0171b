package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mfilmer/SETfit/internal/analysis"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, analysis.Difcon, cfg.Mode)
	require.Equal(t, DefaultTemperature, cfg.Temperature)
	require.Equal(t, "simData.dat", cfg.Out)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.yaml")
	data := []byte(`
temperature: 4.2
mode: Francis
drain:
  start: -5
  end: 5
  n: 11
device:
  cg: 3.0e-18
  num_e: 2
plot:
  glog: 1.0e-3
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4.2, cfg.Temperature)
	require.Equal(t, analysis.Francis, cfg.Mode)
	require.Equal(t, AxisConfig{Start: -5, End: 5, N: 11}, cfg.Drain)
	require.Equal(t, 3e-18, cfg.Device.Cg)
	require.Equal(t, 2, cfg.Device.NumE)
	require.Equal(t, DefaultCs, cfg.Device.Cs)
	require.Equal(t, DefaultNg, cfg.Gate.N)
	require.NotNil(t, cfg.Plot.GLog)
	require.Equal(t, 1e-3, *cfg.Plot.GLog)
	require.Nil(t, cfg.Plot.GMax)
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: conductance\n"), 0644))

	_, err := Load(path)
	require.ErrorIs(t, err, analysis.ErrUnknownMode)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rt.yaml")
	cfg := DefaultConfig()
	cfg.Mode = analysis.Sourcis
	cfg.DerivGate = true
	gmax := 2.5
	cfg.Plot.GMax = &gmax

	require.NoError(t, Save(path, cfg))
	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"negative temperature", func(c *Config) { c.Temperature = -1 }},
		{"empty drain axis", func(c *Config) { c.Drain.N = 0 }},
		{"empty gate axis", func(c *Config) { c.Gate.N = 0 }},
		{"negative charge range", func(c *Config) { c.Device.NumE = -1 }},
		{"negative capacitance", func(c *Config) { c.Device.Cg = -1e-18 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestSweepConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DerivGate = true
	sc := cfg.Sweep()

	require.Equal(t, cfg.Gate.Start, sc.VgStart)
	require.Equal(t, cfg.Gate.N, sc.Ng)
	require.Equal(t, cfg.Drain.End, sc.VdEnd)
	require.Equal(t, cfg.Device, sc.Device)
	require.True(t, sc.DerivGate)
	require.NoError(t, sc.Validate())
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("thermal", "helium")
	require.NotNil(t, cfg)
	require.Equal(t, 4.2, cfg.Temperature)

	cfg.Temperature = 300
	require.Equal(t, 4.2, GetPreset("thermal", "helium").Temperature)
}

func TestGetPresetNotFound(t *testing.T) {
	require.Nil(t, GetPreset("diamond", "nonexistent"))
	require.Nil(t, GetPreset("nonexistent", "symmetric"))
}

func TestListPresets(t *testing.T) {
	require.Equal(t, []string{"asymmetric", "symmetric", "weak_gate"}, ListPresets("diamond"))
	require.Nil(t, ListPresets("nonexistent"))
	require.Equal(t, []string{"diamond", "thermal", "zoom"}, Families())
}

func TestPresetsAreValid(t *testing.T) {
	for _, family := range Families() {
		for _, name := range ListPresets(family) {
			require.NoError(t, GetPreset(family, name).Validate(), "%s/%s", family, name)
		}
	}
}
