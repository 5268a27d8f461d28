package ns

import "fmt"

// ResumeMode selects how a previous run's cache is treated.
type ResumeMode string

const (
	// ResumeModeResume trusts cached log-likelihoods and reuses them
	// without re-evaluation.
	ResumeModeResume ResumeMode = "resume"
	// ResumeModeSimilar re-evaluates cached points under the current
	// likelihood and reuses them only when the change is small.
	ResumeModeSimilar ResumeMode = "resume-similar"
	// ResumeModeOverwrite ignores and replaces any existing cache.
	ResumeModeOverwrite ResumeMode = "overwrite"
	// ResumeModeSubfolder leaves existing caches untouched and writes
	// into a fresh subfolder.
	ResumeModeSubfolder ResumeMode = "subfolder"
)

// validResumeModes maps accepted resume mode strings.
var validResumeModes = map[ResumeMode]bool{
	ResumeModeResume:    true,
	ResumeModeSimilar:   true,
	ResumeModeOverwrite: true,
	ResumeModeSubfolder: true,
	"":                  true, // empty defaults to overwrite
}

// IsValidResumeMode returns true if the given string is a recognized
// resume mode.
func IsValidResumeMode(mode string) bool {
	return validResumeModes[ResumeMode(mode)]
}

// WarmStartConfig groups warm-start parameters.
type WarmStartConfig struct {
	Mode      ResumeMode
	MaxTau    float64 // tolerated robust spread of the log-likelihood change (default 2.0)
	ProbeSize int     // cached points re-evaluated to estimate the change (default 48)
}

// NewWarmStartConfig returns a WarmStartConfig with defaults applied.
func NewWarmStartConfig() WarmStartConfig {
	return WarmStartConfig{Mode: ResumeModeOverwrite, MaxTau: 2.0, ProbeSize: 48}
}

// Config groups all run parameters.
type Config struct {
	MinNumLivePoints       int   // live-set size at start (default 400)
	MaxLivePoints          int   // reactive growth cap (default 4x MinNumLivePoints)
	MaxNumImprovementLoops int   // refinement rounds after first convergence, 0 disables
	Seed                   int64 // master seed for the partitioned RNG

	Region     RegionConfig
	Sampler    SamplerConfig
	Integrator IntegratorConfig
	WarmStart  WarmStartConfig
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		MinNumLivePoints: 400,
		Region:           NewRegionConfig(),
		Sampler:          NewSamplerConfig(),
		Integrator:       NewIntegratorConfig(),
		WarmStart:        NewWarmStartConfig(),
	}
}

// withDefaults fills zero-valued fields so partially-specified configs
// behave sensibly.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinNumLivePoints <= 0 {
		c.MinNumLivePoints = d.MinNumLivePoints
	}
	if c.MaxLivePoints <= 0 {
		c.MaxLivePoints = 4 * c.MinNumLivePoints
	}
	if c.Region.Enlarge <= 0 {
		c.Region.Enlarge = d.Region.Enlarge
	}
	if c.Region.Bootstraps <= 0 {
		c.Region.Bootstraps = d.Region.Bootstraps
	}
	if c.Region.UpdateInterval <= 0 {
		c.Region.UpdateInterval = d.Region.UpdateInterval
	}
	if c.Sampler.BatchSize <= 0 {
		c.Sampler.BatchSize = d.Sampler.BatchSize
	}
	if c.Sampler.Workers <= 0 {
		c.Sampler.Workers = d.Sampler.Workers
	}
	if c.Sampler.MaxProposals <= 0 {
		c.Sampler.MaxProposals = d.Sampler.MaxProposals
	}
	if c.Sampler.MaxStallRebuilds <= 0 {
		c.Sampler.MaxStallRebuilds = d.Sampler.MaxStallRebuilds
	}
	if c.Sampler.StallEnlarge <= 1 {
		c.Sampler.StallEnlarge = d.Sampler.StallEnlarge
	}
	if c.Integrator.FracRemain <= 0 {
		c.Integrator.FracRemain = d.Integrator.FracRemain
	}
	if c.Integrator.Dlogz <= 0 {
		c.Integrator.Dlogz = d.Integrator.Dlogz
	}
	if c.WarmStart.Mode == "" {
		c.WarmStart.Mode = d.WarmStart.Mode
	}
	if c.WarmStart.MaxTau <= 0 {
		c.WarmStart.MaxTau = d.WarmStart.MaxTau
	}
	if c.WarmStart.ProbeSize <= 0 {
		c.WarmStart.ProbeSize = d.WarmStart.ProbeSize
	}
	return c
}

// Validate rejects configurations the engine cannot honor.
func (c Config) Validate() error {
	if c.MinNumLivePoints < 1 {
		return fmt.Errorf("MinNumLivePoints must be >= 1, got %d", c.MinNumLivePoints)
	}
	if c.MaxLivePoints > 0 && c.MaxLivePoints < c.MinNumLivePoints {
		return fmt.Errorf("MaxLivePoints (%d) must be >= MinNumLivePoints (%d)", c.MaxLivePoints, c.MinNumLivePoints)
	}
	if c.MaxNumImprovementLoops < 0 {
		return fmt.Errorf("MaxNumImprovementLoops must be >= 0, got %d", c.MaxNumImprovementLoops)
	}
	if !validResumeModes[c.WarmStart.Mode] {
		return fmt.Errorf("unrecognized resume mode %q", c.WarmStart.Mode)
	}
	return nil
}
