// Package ns provides the core nested-sampling engine for Bayesian
// evidence estimation.
//
// # Reading Guide
//
// Start with these three files to understand the sampling kernel:
//   - space.go: ParameterSpace, Point creation (transform + likelihood evaluation)
//   - liveset.go: the live-point population and its ordering invariant
//   - run.go: the main loop, reactive growth, and result assembly
//
// # Architecture
//
// The ns package holds the engine; supporting concerns live in
// sub-packages:
//   - ns/trace/: per-iteration trace recording (pure data types)
//   - ns/cache/: resume-cache persistence (deterministic CBOR)
//
// A run repeatedly removes the lowest-likelihood live point, shrinks the
// tracked prior volume, rebuilds a geometric region over the survivors
// (region.go, ellipsoid.go), and draws a replacement above the removed
// point's likelihood (sampler.go). The Integrator (integrator.go)
// accumulates the evidence and decides termination.
//
// # Key Interfaces
//
// The extension points are small interfaces and function types:
//   - TransformFunc / LogLikelihoodFunc: the user-supplied problem
//   - Observer: per-iteration hook (no-op, logging, and trace implementations)
//
// Warm start (warmstart.go) reseeds a run from a previous run's cached
// points; hot start (hotstart.go) wraps the problem in an auxiliary
// Student-t parameterization to accelerate convergence.
package ns
