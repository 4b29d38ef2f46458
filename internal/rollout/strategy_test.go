package rollout

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gotest.tools/assert"

	"fleet-rollout-api/internal/firmware"
)

func deviceList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("dev-%03d", i)
	}
	return out
}

// assertPartition checks that waves cover exactly the target set with
// no device in more than one wave.
func assertPartition(t *testing.T, waves [][]string, targets []string) {
	t.Helper()
	seen := make(map[string]int)
	total := 0
	for _, wave := range waves {
		for _, d := range wave {
			seen[d]++
			total++
		}
	}
	assert.Equal(t, total, len(targets))
	for _, d := range targets {
		assert.Equal(t, seen[d], 1, "device %s should appear exactly once", d)
	}
}

func TestImmediatePlan(t *testing.T) {
	targets := deviceList(7)
	waves, err := Immediate{}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves), 1)
	assertPartition(t, waves, targets)
}

func TestRollingPlan(t *testing.T) {
	targets := deviceList(10)
	waves, err := Rolling{BatchSize: 3}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves), 4)
	assert.Equal(t, len(waves[0]), 3)
	assert.Equal(t, len(waves[3]), 1)
	assert.Equal(t, waves[0][0], "dev-000")
	assert.Equal(t, waves[3][0], "dev-009")
	assertPartition(t, waves, targets)
}

func TestRollingValidation(t *testing.T) {
	err := Rolling{BatchSize: 0}.Validate()
	assert.Check(t, errors.Is(err, ErrValidation))
}

func TestCanaryPlanDeterministic(t *testing.T) {
	targets := deviceList(100)
	s := Canary{Percentage: 0.1, Seed: 42}

	waves1, err := s.Plan(targets)
	assert.NilError(t, err)
	waves2, err := s.Plan(targets)
	assert.NilError(t, err)

	assert.Equal(t, len(waves1), 2)
	assert.Equal(t, len(waves1[0]), 10)
	assert.Equal(t, len(waves1[1]), 90)
	assert.DeepEqual(t, waves1, waves2)
	assertPartition(t, waves1, targets)

	other, err := Canary{Percentage: 0.1, Seed: 7}.Plan(targets)
	assert.NilError(t, err)
	assertPartition(t, other, targets)
}

func TestCanarySampleSizeRoundsUp(t *testing.T) {
	targets := deviceList(7)
	waves, err := Canary{Percentage: 0.1, Seed: 1}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves[0]), int(math.Ceil(7*0.1)))
}

func TestCanaryValidation(t *testing.T) {
	for _, pct := range []float64{0, -0.5, 1, 1.5} {
		err := Canary{Percentage: pct}.Validate()
		assert.Check(t, errors.Is(err, ErrValidation), "percentage %v", pct)
	}
}

func TestGradualPlan(t *testing.T) {
	targets := deviceList(100)
	waves, err := Gradual{Steps: []float64{0.10, 0.25, 0.50, 1.0}}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves), 4)
	assert.Equal(t, len(waves[0]), 10)
	assert.Equal(t, len(waves[1]), 15)
	assert.Equal(t, len(waves[2]), 25)
	assert.Equal(t, len(waves[3]), 50)
	assertPartition(t, waves, targets)
}

func TestGradualImpliedFinalStep(t *testing.T) {
	targets := deviceList(20)
	waves, err := Gradual{Steps: []float64{0.25, 0.5}}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves), 3)
	assert.Equal(t, len(waves[2]), 10)
	assertPartition(t, waves, targets)
}

func TestGradualValidation(t *testing.T) {
	for _, steps := range [][]float64{nil, {0.5, 0.25}, {0.5, 0.5}, {0, 0.5}, {0.5, 1.5}} {
		err := Gradual{Steps: steps}.Validate()
		assert.Check(t, errors.Is(err, ErrValidation), "steps %v", steps)
	}
}

func TestManualPlan(t *testing.T) {
	targets := deviceList(9)

	waves, err := Manual{}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves), 1)

	waves, err = Manual{BatchSize: 4}.Plan(targets)
	assert.NilError(t, err)
	assert.Equal(t, len(waves), 3)
	assertPartition(t, waves, targets)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("scheduled", StrategyParams{BatchSize: 5})
	assert.NilError(t, err)
	assert.Equal(t, s.Name(), StrategyManual)

	_, err = ParseStrategy("big-bang", StrategyParams{})
	assert.Check(t, errors.Is(err, ErrValidation))
}

func TestPlanWavesApprovalGate(t *testing.T) {
	targets := deviceList(5)
	stable := firmware.Artifact{ID: "a1", Status: firmware.StatusStable}
	inTesting := firmware.Artifact{ID: "a2", Status: firmware.StatusTesting}
	deprecated := firmware.Artifact{ID: "a3", Status: firmware.StatusDeprecated}

	_, err := PlanWaves(stable, Immediate{}, targets, 2, false)
	assert.NilError(t, err)

	_, err = PlanWaves(inTesting, Immediate{}, targets, 2, false)
	assert.Check(t, errors.Is(err, ErrValidation))

	// override lets non-stable through
	_, err = PlanWaves(inTesting, Immediate{}, targets, 2, true)
	assert.NilError(t, err)

	// deprecated is rejected even with override
	_, err = PlanWaves(deprecated, Immediate{}, targets, 2, true)
	assert.Check(t, errors.Is(err, ErrValidation))
}

func TestPlanWavesInputValidation(t *testing.T) {
	stable := firmware.Artifact{ID: "a1", Status: firmware.StatusStable}

	_, err := PlanWaves(stable, Immediate{}, nil, 2, false)
	assert.Check(t, errors.Is(err, ErrValidation))

	_, err = PlanWaves(stable, Immediate{}, deviceList(3), 0, false)
	assert.Check(t, errors.Is(err, ErrValidation))

	_, err = PlanWaves(stable, Rolling{BatchSize: -1}, deviceList(3), 2, false)
	assert.Check(t, errors.Is(err, ErrValidation))
}
