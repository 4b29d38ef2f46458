package rollout

import (
	"context"
	"testing"

	"gotest.tools/assert"
)

func TestEvaluateGate(t *testing.T) {
	testcases := []struct {
		name     string
		failed   int
		total    int
		policy   Policy
		decision GateDecision
	}{
		{name: "no failures", failed: 0, total: 10,
			policy: Policy{FailureRateThreshold: 0.1, AutoRollback: true}, decision: GatePromote},
		{name: "at threshold", failed: 1, total: 10,
			policy: Policy{FailureRateThreshold: 0.1, AutoRollback: true}, decision: GatePromote},
		{name: "above threshold rolls back", failed: 2, total: 10,
			policy: Policy{FailureRateThreshold: 0.1, AutoRollback: true}, decision: GateRollback},
		{name: "above threshold halts without auto rollback", failed: 2, total: 10,
			policy: Policy{FailureRateThreshold: 0.1, AutoRollback: false}, decision: GateHalt},
		{name: "empty wave promotes", failed: 0, total: 0,
			policy: Policy{FailureRateThreshold: 0.1, AutoRollback: true}, decision: GatePromote},
	}

	c := &Coordinator{}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			wr := WaveResult{Total: tc.total, Failed: tc.failed}
			if tc.total > 0 {
				wr.FailureRate = float64(tc.failed) / float64(tc.total)
			}
			assert.Equal(t, c.Evaluate(wr, tc.policy), tc.decision)
		})
	}
}

func rollbackJobs() []*Job {
	return []*Job{
		{ID: "j1", RolloutID: "ro-1", DeviceID: "dev-000", WaveIndex: 1, State: JobSucceeded},
		{ID: "j2", RolloutID: "ro-1", DeviceID: "dev-001", WaveIndex: 1, State: JobFailed},
		{ID: "j3", RolloutID: "ro-1", DeviceID: "dev-002", WaveIndex: 1, State: JobSucceeded},
		// earlier wave, must not be touched
		{ID: "j4", RolloutID: "ro-1", DeviceID: "dev-003", WaveIndex: 0, State: JobSucceeded},
	}
}

func TestRollbackRevertsSucceededWaveJobs(t *testing.T) {
	transport := newFakeTransport()
	c := &Coordinator{Transport: transport, Tuning: testTuning()}
	jobs := rollbackJobs()

	var events []JobEvent
	c.Rollback(context.Background(), "ro-1", 1, jobs, RevertCommand{RevertVersion: "1.9.0"}, 2,
		func(ev JobEvent) { events = append(events, ev) })

	reverted := make(map[string]bool)
	for _, d := range transport.revertedDevices() {
		reverted[d] = true
	}
	assert.Equal(t, len(reverted), 2)
	assert.Check(t, reverted["dev-000"])
	assert.Check(t, reverted["dev-002"])

	assert.Equal(t, jobs[0].State, JobRolledBack)
	assert.Equal(t, jobs[1].State, JobFailed)
	assert.Equal(t, jobs[2].State, JobRolledBack)
	assert.Equal(t, jobs[3].State, JobSucceeded)
	assert.Equal(t, len(events), 2)
}

func TestRollbackKeepsUnreachableDeviceSucceeded(t *testing.T) {
	transport := newFakeTransport()
	transport.revertKind["dev-000"] = ErrKindDeviceUnreachable
	c := &Coordinator{Transport: transport, Tuning: testTuning()}

	jobs := []*Job{
		{ID: "j1", RolloutID: "ro-1", DeviceID: "dev-000", WaveIndex: 0, State: JobSucceeded},
	}
	c.Rollback(context.Background(), "ro-1", 0, jobs, RevertCommand{}, 1, nil)

	// revert never landed: the job stays succeeded with the failure recorded
	assert.Equal(t, jobs[0].State, JobSucceeded)
	assert.Equal(t, jobs[0].LastErrorKind, ErrKindDeviceUnreachable)
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	tuning := testTuning()
	assert.Equal(t, tuning.Backoff(1), tuning.BackoffBase)
	assert.Equal(t, tuning.Backoff(2), 2*tuning.BackoffBase)
	assert.Equal(t, tuning.Backoff(3), 4*tuning.BackoffBase)
	assert.Equal(t, tuning.Backoff(10), tuning.BackoffMax)
}
