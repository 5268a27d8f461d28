package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nested-inference/nested-inference/ns"
)

// RunConfig is the YAML run-configuration surface. Zero-valued fields
// leave the corresponding defaults untouched.
type RunConfig struct {
	Seed                   int64   `yaml:"seed"`
	MinNumLivePoints       int     `yaml:"min_num_live_points"`
	MaxLivePoints          int     `yaml:"max_live_points"`
	MaxNumImprovementLoops int     `yaml:"max_num_improvement_loops"`
	FracRemain             float64 `yaml:"frac_remain"`
	Dlogz                  float64 `yaml:"dlogz"`
	MaxIters               int     `yaml:"max_iters"`
	MaxNCalls              int     `yaml:"max_ncalls"`
	MaxSeconds             int     `yaml:"max_seconds"`
	Resume                 string  `yaml:"resume"`
	WarmstartMaxTau        float64 `yaml:"warmstart_max_tau"`

	Region struct {
		Enlarge        float64 `yaml:"enlarge"`
		Bootstraps     int     `yaml:"bootstraps"`
		UpdateInterval int     `yaml:"update_interval"`
	} `yaml:"region"`

	Sampler struct {
		BatchSize    int `yaml:"batch_size"`
		Workers      int `yaml:"workers"`
		MaxProposals int `yaml:"max_proposals"`
	} `yaml:"sampler"`
}

// LoadRunConfig reads and parses a YAML run configuration.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config %s: %w", path, err)
	}
	var rc RunConfig
	if err := yaml.Unmarshal(data, &rc); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	if rc.Resume != "" && !ns.IsValidResumeMode(rc.Resume) {
		return nil, fmt.Errorf("run config %s: unrecognized resume mode %q", path, rc.Resume)
	}
	return &rc, nil
}

// Apply overlays the non-zero fields of the run config onto cfg.
func (rc *RunConfig) Apply(cfg ns.Config) ns.Config {
	cfg.Seed = rc.Seed
	if rc.MinNumLivePoints > 0 {
		cfg.MinNumLivePoints = rc.MinNumLivePoints
	}
	if rc.MaxLivePoints > 0 {
		cfg.MaxLivePoints = rc.MaxLivePoints
	}
	if rc.MaxNumImprovementLoops > 0 {
		cfg.MaxNumImprovementLoops = rc.MaxNumImprovementLoops
	}
	if rc.FracRemain > 0 {
		cfg.Integrator.FracRemain = rc.FracRemain
	}
	if rc.Dlogz > 0 {
		cfg.Integrator.Dlogz = rc.Dlogz
	}
	if rc.MaxIters > 0 {
		cfg.Integrator.MaxIters = rc.MaxIters
	}
	if rc.MaxNCalls > 0 {
		cfg.Integrator.MaxNCalls = rc.MaxNCalls
	}
	if rc.MaxSeconds > 0 {
		cfg.Integrator.MaxDuration = time.Duration(rc.MaxSeconds) * time.Second
	}
	if rc.Resume != "" {
		cfg.WarmStart.Mode = ns.ResumeMode(rc.Resume)
	}
	if rc.WarmstartMaxTau > 0 {
		cfg.WarmStart.MaxTau = rc.WarmstartMaxTau
	}
	if rc.Region.Enlarge > 0 {
		cfg.Region.Enlarge = rc.Region.Enlarge
	}
	if rc.Region.Bootstraps > 0 {
		cfg.Region.Bootstraps = rc.Region.Bootstraps
	}
	if rc.Region.UpdateInterval > 0 {
		cfg.Region.UpdateInterval = rc.Region.UpdateInterval
	}
	if rc.Sampler.BatchSize > 0 {
		cfg.Sampler.BatchSize = rc.Sampler.BatchSize
	}
	if rc.Sampler.Workers > 0 {
		cfg.Sampler.Workers = rc.Sampler.Workers
	}
	if rc.Sampler.MaxProposals > 0 {
		cfg.Sampler.MaxProposals = rc.Sampler.MaxProposals
	}
	return cfg
}
