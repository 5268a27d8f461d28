package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nested-inference/nested-inference/ns"
	"github.com/nested-inference/nested-inference/ns/cache"
)

var (
	// CLI flags for the sampling run
	seed             int64  // Master seed for the partitioned RNG
	logLevel         string // Log verbosity level
	numLivePoints    int    // Initial live-point population size
	maxLivePoints    int    // Reactive growth cap
	improvementLoops int    // Posterior refinement rounds (0 disables)
	dlogz            float64
	fracRemain       float64
	maxIters         int
	maxNCalls        int
	maxSeconds       int

	// CLI flags for the problem and cache
	problem    string // Built-in demo problem name
	dim        int    // Problem dimensionality
	configFile string // Optional YAML run configuration
	cacheDir   string // Resume-cache directory ("" disables persistence)
	resumeMode string // resume | resume-similar | overwrite | subfolder
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "nested-inference",
	Short: "Nested-sampling engine for Bayesian evidence estimation",
}

// runCmd executes a sampling run using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run nested sampling on a built-in demo problem",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := ns.DefaultConfig()
		if configFile != "" {
			rc, err := LoadRunConfig(configFile)
			if err != nil {
				logrus.Fatalf("unable to read run config: %v", err)
			}
			cfg = rc.Apply(cfg)
		}
		applyFlags(cmd, &cfg)

		space, analyticLogZ, err := buildProblem(problem, dim)
		if err != nil {
			logrus.Fatalf("Unknown problem %q: %v", problem, err)
		}

		var store *cache.Store
		var opts []ns.Option
		if cacheDir != "" {
			store, err = cache.Open(cacheDir, cfg.WarmStart.Mode)
			if err != nil {
				logrus.Fatalf("opening resume cache: %v", err)
			}
			prev, err := store.Load()
			if err != nil {
				logrus.Fatalf("loading resume cache: %v", err)
			}
			if prev != nil {
				opts = append(opts, ns.WithResumeCache(prev))
			}
		}
		opts = append(opts, ns.WithObserver(ns.LogObserver{}))

		sampler, err := ns.NewSampler(space, cfg, opts...)
		if err != nil {
			logrus.Fatalf("invalid configuration: %v", err)
		}

		logrus.Infof("Starting run: problem=%s dim=%d nlive=%d seed=%d", problem, space.Dim, cfg.MinNumLivePoints, cfg.Seed)
		startTime := time.Now()
		result, err := sampler.Run(context.Background())
		if err != nil {
			logrus.Fatalf("run aborted: %v", err)
		}

		printResult(result, analyticLogZ, time.Since(startTime))

		if store != nil {
			snap := cache.Snapshot(space, sampler.State().Dead, sampler.LivePoints())
			if err := store.Save(snap); err != nil {
				logrus.Fatalf("saving resume cache: %v", err)
			}
			logrus.Infof("resume cache written to %s", store.Dir())
		}
	},
}

// applyFlags overrides config fields with explicitly-set CLI flags.
func applyFlags(cmd *cobra.Command, cfg *ns.Config) {
	if cmd.Flags().Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("resume") {
		if !ns.IsValidResumeMode(resumeMode) {
			logrus.Fatalf("Invalid resume mode: %s", resumeMode)
		}
		cfg.WarmStart.Mode = ns.ResumeMode(resumeMode)
	}
	if cmd.Flags().Changed("num-live-points") {
		cfg.MinNumLivePoints = numLivePoints
	}
	if cmd.Flags().Changed("max-live-points") {
		cfg.MaxLivePoints = maxLivePoints
	}
	if cmd.Flags().Changed("improvement-loops") {
		cfg.MaxNumImprovementLoops = improvementLoops
	}
	if cmd.Flags().Changed("dlogz") {
		cfg.Integrator.Dlogz = dlogz
	}
	if cmd.Flags().Changed("frac-remain") {
		cfg.Integrator.FracRemain = fracRemain
	}
	if cmd.Flags().Changed("max-iters") {
		cfg.Integrator.MaxIters = maxIters
	}
	if cmd.Flags().Changed("max-ncalls") {
		cfg.Integrator.MaxNCalls = maxNCalls
	}
	if cmd.Flags().Changed("max-seconds") {
		cfg.Integrator.MaxDuration = time.Duration(maxSeconds) * time.Second
	}
}

func printResult(result *ns.Result, analyticLogZ *float64, elapsed time.Duration) {
	fmt.Printf("status:   %s (%s)\n", result.Status, result.StopReason)
	fmt.Printf("logz:     %.4f +/- %.4f\n", result.LogZ, result.LogZErr)
	if analyticLogZ != nil {
		fmt.Printf("analytic: %.4f\n", *analyticLogZ)
	}
	fmt.Printf("ncalls:   %d  iterations: %d  ess: %.0f  elapsed: %s\n",
		result.NCalls, result.Niter, result.ESS, elapsed.Round(time.Millisecond))
	means := result.PosteriorMean()
	stds := result.PosteriorStdDev()
	for i, name := range result.ParamNames {
		fmt.Printf("%-10s %.4f +/- %.4f\n", name, means[i], stds[i])
	}
}

func init() {
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for the run")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().IntVar(&numLivePoints, "num-live-points", 400, "Initial live-point population size")
	runCmd.Flags().IntVar(&maxLivePoints, "max-live-points", 0, "Reactive growth cap (0 = 4x num-live-points)")
	runCmd.Flags().IntVar(&improvementLoops, "improvement-loops", 0, "Posterior refinement rounds (0 disables)")
	runCmd.Flags().Float64Var(&dlogz, "dlogz", 0.5, "Evidence-width stopping threshold")
	runCmd.Flags().Float64Var(&fracRemain, "frac-remain", 0.01, "Remaining-evidence-fraction stopping threshold")
	runCmd.Flags().IntVar(&maxIters, "max-iters", 0, "Iteration budget (0 = unlimited)")
	runCmd.Flags().IntVar(&maxNCalls, "max-ncalls", 0, "Likelihood-call budget (0 = unlimited)")
	runCmd.Flags().IntVar(&maxSeconds, "max-seconds", 0, "Wall-clock budget in seconds (0 = unlimited)")
	runCmd.Flags().StringVar(&problem, "problem", "gaussian", "Demo problem (gaussian, shell, constant)")
	runCmd.Flags().IntVar(&dim, "dim", 2, "Problem dimensionality")
	runCmd.Flags().StringVar(&configFile, "config", "", "YAML run configuration file")
	runCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Resume-cache directory (empty disables persistence)")
	runCmd.Flags().StringVar(&resumeMode, "resume", "overwrite", "Resume mode: resume | resume-similar | overwrite | subfolder")

	rootCmd.AddCommand(runCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
