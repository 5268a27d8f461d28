package ns

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 400, cfg.MinNumLivePoints)
	assert.Equal(t, 0.01, cfg.Integrator.FracRemain)
	assert.Equal(t, 0.5, cfg.Integrator.Dlogz)
	assert.Equal(t, 1.25, cfg.Region.Enlarge)
	assert.Equal(t, 2.0, cfg.WarmStart.MaxTau)
	assert.Equal(t, ResumeModeOverwrite, cfg.WarmStart.Mode)
}

func TestConfig_WithDefaultsFillsZeroes(t *testing.T) {
	var cfg Config
	cfg = cfg.withDefaults()
	assert.Equal(t, 400, cfg.MinNumLivePoints)
	assert.Equal(t, 1600, cfg.MaxLivePoints)
	assert.Positive(t, cfg.Sampler.BatchSize)
	assert.Positive(t, cfg.Region.Bootstraps)
	assert.Equal(t, ResumeModeOverwrite, cfg.WarmStart.Mode)
}

func TestConfig_WithDefaultsScalesLivePointCap(t *testing.T) {
	cfg := Config{MinNumLivePoints: 50}.withDefaults()
	assert.Equal(t, 200, cfg.MaxLivePoints)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.MinNumLivePoints = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.MaxLivePoints = 10
	assert.Error(t, bad.Validate(), "cap below the floor")

	bad = cfg
	bad.MaxNumImprovementLoops = -1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.WarmStart.Mode = "restore"
	assert.Error(t, bad.Validate())
}

func TestIsValidResumeMode(t *testing.T) {
	for _, mode := range []string{"resume", "resume-similar", "overwrite", "subfolder", ""} {
		assert.True(t, IsValidResumeMode(mode), mode)
	}
	assert.False(t, IsValidResumeMode("restore"))
	assert.False(t, IsValidResumeMode("RESUME"))
}
