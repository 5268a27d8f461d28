package ns

import (
	"hash/fnv"
	"math/rand/v2"
)

// === RunKey ===

// RunKey uniquely identifies a reproducible sampling run.
// Two runs with the same RunKey and identical configuration and problem
// MUST produce bit-for-bit identical dead-point sequences.
type RunKey int64

// NewRunKey creates a RunKey from a seed value.
func NewRunKey(seed int64) RunKey {
	return RunKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemInit is the RNG subsystem for initial prior draws.
	SubsystemInit = "init"

	// SubsystemProposal is the RNG subsystem for constrained-region
	// candidate generation.
	SubsystemProposal = "proposal"

	// SubsystemRegion is the RNG subsystem for bootstrap resampling
	// during region construction.
	SubsystemRegion = "region"

	// SubsystemBootstrap is the RNG subsystem for whole-run evidence
	// error replay.
	SubsystemBootstrap = "bootstrap"

	// SubsystemPosterior is the RNG subsystem for equal-weight
	// posterior resampling at run end.
	SubsystemPosterior = "posterior"

	// SubsystemWarmStart is the RNG subsystem for warm-start probe
	// selection and top-up draws.
	SubsystemWarmStart = "warmstart"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem, so that, for example, adding bootstrap rounds to the region
// builder does not perturb the proposal stream.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName), expanded
// into a two-word PCG state.
//
// Thread-safety: NOT thread-safe. Must be called from the coordinating
// goroutine only; worker evaluators never touch RNG state.
type PartitionedRNG struct {
	key        RunKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a RunKey.
func NewPartitionedRNG(key RunKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same subsystem name always returns the same *rand.Rand
// instance (cached). Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(p.SourceFor(name))
	p.subsystems[name] = rng
	return rng
}

// SourceFor returns a fresh deterministic source for the named
// subsystem. Unlike ForSubsystem, the source is NOT cached: gonum
// distributions take ownership of the source they are handed, and a
// shared source would entangle their draw sequences.
func (p *PartitionedRNG) SourceFor(name string) rand.Source {
	derived := uint64(p.key) ^ uint64(fnv1a64(name))
	return rand.NewPCG(derived, derived^0x9e3779b97f4a7c15)
}

// Key returns the RunKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() RunKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
