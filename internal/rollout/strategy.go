package rollout

import (
	"fmt"
	"math"
	"math/rand"

	"fleet-rollout-api/internal/firmware"
)

// Strategy names accepted at rollout creation.
const (
	StrategyImmediate = "immediate"
	StrategyRolling   = "rolling"
	StrategyCanary    = "canary"
	StrategyGradual   = "gradual"
	StrategyManual    = "manual"
)

// StrategyParams carries the per-strategy knobs over the API and CLI.
type StrategyParams struct {
	BatchSize        int       `json:"batchSize,omitempty"`
	CanaryPercentage float64   `json:"canaryPercentage,omitempty"`
	CanarySeed       int64     `json:"canarySeed,omitempty"`
	GradualSteps     []float64 `json:"gradualSteps,omitempty"`
}

// Strategy turns a target list into an ordered sequence of waves.
// Each variant carries its own parameters and plan implementation.
type Strategy interface {
	Name() string
	Validate() error
	Plan(targets []string) ([][]string, error)
}

// ParseStrategy maps a strategy name plus params onto its variant.
func ParseStrategy(name string, p StrategyParams) (Strategy, error) {
	switch name {
	case StrategyImmediate:
		return Immediate{}, nil
	case StrategyRolling:
		return Rolling{BatchSize: p.BatchSize}, nil
	case StrategyCanary:
		return Canary{Percentage: p.CanaryPercentage, Seed: p.CanarySeed}, nil
	case StrategyGradual:
		return Gradual{Steps: p.GradualSteps}, nil
	case StrategyManual, "scheduled":
		return Manual{BatchSize: p.BatchSize}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrValidation, name)
	}
}

// Immediate targets every device in a single wave.
type Immediate struct{}

func (Immediate) Name() string    { return StrategyImmediate }
func (Immediate) Validate() error { return nil }

func (Immediate) Plan(targets []string) ([][]string, error) {
	return [][]string{append([]string(nil), targets...)}, nil
}

// Rolling partitions targets into fixed-size batches in original order.
type Rolling struct {
	BatchSize int
}

func (Rolling) Name() string { return StrategyRolling }

func (s Rolling) Validate() error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("%w: rolling batch_size must be positive, got %d", ErrValidation, s.BatchSize)
	}
	return nil
}

func (s Rolling) Plan(targets []string) ([][]string, error) {
	var waves [][]string
	for i := 0; i < len(targets); i += s.BatchSize {
		end := i + s.BatchSize
		if end > len(targets) {
			end = len(targets)
		}
		waves = append(waves, append([]string(nil), targets[i:end]...))
	}
	return waves, nil
}

// Canary puts a deterministic pseudo-random sample of
// ceil(total * percentage) devices into wave 1 and the remainder into
// wave 2. The same seed always yields the same sample, which keeps
// canary planning reproducible.
type Canary struct {
	Percentage float64
	Seed       int64
}

func (Canary) Name() string { return StrategyCanary }

func (s Canary) Validate() error {
	if s.Percentage <= 0 || s.Percentage >= 1 {
		return fmt.Errorf("%w: canary percentage must be in (0,1), got %v", ErrValidation, s.Percentage)
	}
	return nil
}

func (s Canary) Plan(targets []string) ([][]string, error) {
	n := len(targets)
	sampleSize := int(math.Ceil(float64(n) * s.Percentage))
	if sampleSize >= n {
		return [][]string{append([]string(nil), targets...)}, nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(s.Seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	inCanary := make(map[int]bool, sampleSize)
	canary := make([]string, 0, sampleSize)
	for _, i := range idx[:sampleSize] {
		inCanary[i] = true
		canary = append(canary, targets[i])
	}
	rest := make([]string, 0, n-sampleSize)
	for i, d := range targets {
		if !inCanary[i] {
			rest = append(rest, d)
		}
	}
	return [][]string{canary, rest}, nil
}

// Gradual rolls out at increasing cumulative percentages, each wave
// drawing its devices from the not-yet-targeted pool in original
// order. A final step of 1.0 is implied if the caller omits it.
type Gradual struct {
	Steps []float64
}

func (Gradual) Name() string { return StrategyGradual }

func (s Gradual) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: gradual strategy requires at least one step", ErrValidation)
	}
	prev := 0.0
	for _, step := range s.Steps {
		if step <= prev || step > 1 {
			return fmt.Errorf("%w: gradual steps must be strictly increasing in (0,1], got %v", ErrValidation, s.Steps)
		}
		prev = step
	}
	return nil
}

func (s Gradual) Plan(targets []string) ([][]string, error) {
	steps := s.Steps
	if steps[len(steps)-1] < 1 {
		steps = append(append([]float64(nil), steps...), 1)
	}

	n := len(targets)
	var waves [][]string
	assigned := 0
	for _, step := range steps {
		cum := int(math.Ceil(float64(n) * step))
		if cum > n {
			cum = n
		}
		if cum <= assigned {
			continue
		}
		waves = append(waves, append([]string(nil), targets[assigned:cum]...))
		assigned = cum
	}
	return waves, nil
}

// Manual releases one wave per explicit operator trigger; the
// orchestrator never auto-advances between manual waves. An optional
// batch size partitions the fleet, otherwise it is a single wave.
type Manual struct {
	BatchSize int
}

func (Manual) Name() string { return StrategyManual }

func (s Manual) Validate() error {
	if s.BatchSize < 0 {
		return fmt.Errorf("%w: manual batch_size must not be negative, got %d", ErrValidation, s.BatchSize)
	}
	return nil
}

func (s Manual) Plan(targets []string) ([][]string, error) {
	if s.BatchSize <= 0 {
		return [][]string{append([]string(nil), targets...)}, nil
	}
	return Rolling{BatchSize: s.BatchSize}.Plan(targets)
}

// PlanWaves validates inputs and produces the wave sequence for a new
// rollout. Deprecated artifacts are always rejected; non-stable ones
// only pass with the explicit override flag.
func PlanWaves(artifact firmware.Artifact, strat Strategy, targets []string, concurrency int, override bool) ([][]string, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: empty target set", ErrValidation)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency_limit must be positive, got %d", ErrValidation, concurrency)
	}
	if artifact.Status == firmware.StatusDeprecated {
		return nil, fmt.Errorf("%w: artifact %s is deprecated", ErrValidation, artifact.ID)
	}
	if artifact.Status != firmware.StatusStable && !override {
		return nil, fmt.Errorf("%w: artifact %s is %s, not stable (set override_approval_gate to force)",
			ErrValidation, artifact.ID, artifact.Status)
	}
	if err := strat.Validate(); err != nil {
		return nil, err
	}
	return strat.Plan(targets)
}
