package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecard/internal/scoring"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging)
	assert.Equal(t, 200.0, cfg.Achievement.OrgCap)
	assert.Equal(t, 200.0, cfg.Achievement.EmployeeCap)
	assert.Equal(t, "direct", cfg.Leverage.CompositeWeight)
	assert.Equal(t, 10.0, cfg.Leverage.ImprovementStep)
	assert.Equal(t, 0.01, cfg.Weights.Tolerance)

	opts := cfg.ScoringOptions()
	assert.Equal(t, scoring.DefaultOptions(), opts)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
logging: debug
achievement:
  employee_cap: 150
leverage:
  composite_weight: path
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging)
	assert.Equal(t, 200.0, cfg.Achievement.OrgCap)
	assert.Equal(t, 150.0, cfg.Achievement.EmployeeCap)

	opts := cfg.ScoringOptions()
	assert.Equal(t, scoring.CompositePath, opts.Leverage.Mode)
	assert.Equal(t, 10.0, opts.Leverage.ImprovementStep)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		is   error
	}{
		{name: "zero cap", yml: "achievement: {org_cap: 0}", is: ErrInvalidCap},
		{name: "negative employee cap", yml: "achievement: {employee_cap: -1}", is: ErrInvalidCap},
		{name: "step", yml: "leverage: {improvement_step: -2}", is: ErrInvalidStep},
		{name: "tolerance", yml: "weights: {tolerance: -0.5}", is: ErrInvalidTolerance},
		{name: "log level", yml: "logging: loud", is: ErrInvalidLogLevel},
		{name: "mode", yml: "leverage: {composite_weight: cascade}"},
		{name: "yaml", yml: "achievement: [1, 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yml), 0o644))

			_, err := Load(path)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
