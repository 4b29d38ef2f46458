package rollout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gotest.tools/assert"

	"fleet-rollout-api/internal/firmware"
)

// fakeTransport scripts device behavior per test. Safe for concurrent
// use by the worker pool.
type fakeTransport struct {
	mu          sync.Mutex
	sendFail    map[string]int       // remaining transient SendUpdate failures per device
	installKind map[string]ErrorKind // permanent install failure per device
	revertKind  map[string]ErrorKind // SendRevert failure per device
	sent        []string
	reverts     []string

	installGate chan struct{} // when non-nil, each install consumes one token
	entered     chan string   // when non-nil, reports install entry

	inflight    int
	maxInflight int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		sendFail:    make(map[string]int),
		installKind: make(map[string]ErrorKind),
		revertKind:  make(map[string]ErrorKind),
	}
}

func (f *fakeTransport) SendUpdate(_ context.Context, cmd UpdateCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := f.sendFail[cmd.DeviceID]; n > 0 {
		f.sendFail[cmd.DeviceID] = n - 1
		return &TransportError{Kind: ErrKindDeviceUnreachable, Msg: "offline"}
	}
	f.sent = append(f.sent, cmd.DeviceID)
	return nil
}

func (f *fakeTransport) AwaitDownload(context.Context, string, string) error { return nil }

func (f *fakeTransport) AwaitInstall(ctx context.Context, deviceID, _ string) error {
	f.mu.Lock()
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	gate, entered := f.installGate, f.entered
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if entered != nil {
		entered <- deviceID
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	kind, failed := f.installKind[deviceID]
	f.mu.Unlock()
	if failed {
		return &TransportError{Kind: kind}
	}
	return nil
}

func (f *fakeTransport) SendRevert(_ context.Context, cmd RevertCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind, ok := f.revertKind[cmd.DeviceID]; ok {
		return &TransportError{Kind: kind}
	}
	f.reverts = append(f.reverts, cmd.DeviceID)
	return nil
}

func (f *fakeTransport) sentDevices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeTransport) revertedDevices() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reverts...)
}

// fakeProbe reports every device healthy on the expected version unless
// listed as unhealthy.
type fakeProbe struct {
	mu        sync.Mutex
	version   string
	unhealthy map[string]bool
}

func (p *fakeProbe) Check(_ context.Context, deviceID string) (HealthReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return HealthReport{Healthy: !p.unhealthy[deviceID], VersionReported: p.version}, nil
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(string, any) {}

func testTuning() Tuning {
	return Tuning{
		MaxAttempts:     3,
		BackoffBase:     time.Millisecond,
		BackoffMax:      5 * time.Millisecond,
		DispatchTimeout: time.Second,
		DownloadTimeout: time.Second,
		FlashTimeout:    5 * time.Second,
		VerifyTimeout:   time.Second,
	}
}

type harness struct {
	repo      *MemoryRepo
	transport *fakeTransport
	probe     *fakeProbe
	orch      *Orchestrator
}

// newHarness wires an orchestrator over in-memory state with version
// 2.0.0 as the rollout target. withPrevStable controls whether a 1.9.0
// stable artifact exists as a rollback target.
func newHarness(t *testing.T, withPrevStable bool) *harness {
	t.Helper()

	fwRepo := firmware.NewMemoryRepo()
	fwSvc := &firmware.Service{
		Repo:       fwRepo,
		Storage:    firmware.Storage{BaseDir: t.TempDir()},
		PublicBase: "https://fw.example.com",
	}
	assert.NilError(t, fwRepo.Insert(firmware.Artifact{
		ID: "art-current", DeviceType: "esp32-main", Version: "2.0.0",
		SHA256: "aabbcc", Status: firmware.StatusStable,
	}))
	if withPrevStable {
		assert.NilError(t, fwRepo.Insert(firmware.Artifact{
			ID: "art-prev", DeviceType: "esp32-main", Version: "1.9.0",
			SHA256: "ddeeff", Status: firmware.StatusStable,
		}))
	}

	repo := NewMemoryRepo()
	transport := newFakeTransport()
	probe := &fakeProbe{version: "2.0.0", unhealthy: make(map[string]bool)}
	orch := NewOrchestrator(repo, transport, probe, nopNotifier{}, fwSvc, testTuning())
	return &harness{repo: repo, transport: transport, probe: probe, orch: orch}
}

func (h *harness) createRollout(t *testing.T, waves [][]string, concurrency int, threshold float64, autoRollback bool, strategy string) *Rollout {
	t.Helper()
	var targets []string
	for _, w := range waves {
		targets = append(targets, w...)
	}
	now := time.Now().UTC()
	r := &Rollout{
		ID:                   uuid.NewString(),
		ArtifactID:           "art-current",
		DeviceType:           "esp32-main",
		FirmwareVersion:      "2.0.0",
		FirmwareURL:          "https://fw.example.com/api/firmware/esp32-main/2.0.0",
		Checksum:             "aabbcc",
		Strategy:             strategy,
		Targets:              targets,
		Waves:                waves,
		ConcurrencyLimit:     concurrency,
		FailureRateThreshold: threshold,
		AutoRollback:         autoRollback,
		Status:               StatusPlanned,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	assert.NilError(t, h.repo.CreateRollout(r))
	return r
}

func (h *harness) runToCompletion(t *testing.T, id string) StatusReport {
	t.Helper()
	assert.NilError(t, h.orch.Start(id))
	h.orch.Wait(id)
	report, err := h.orch.Status(id)
	assert.NilError(t, err)
	return report
}

func (h *harness) jobStates(t *testing.T, id string) map[string]JobState {
	t.Helper()
	jobs, err := h.repo.JobsForRollout(id)
	assert.NilError(t, err)
	out := make(map[string]JobState, len(jobs))
	for _, j := range jobs {
		out[j.DeviceID] = j.State
	}
	return out
}

func TestGradualRolloutCompletes(t *testing.T) {
	h := newHarness(t, false)
	targets := deviceList(100)
	waves, err := Gradual{Steps: []float64{0.10, 0.25, 0.50, 1.0}}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 20, 0.1, true, StrategyGradual)

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	assert.Equal(t, report.Counters.Succeeded, 100)
	assert.Equal(t, report.Counters.Failed, 0)
	assert.Equal(t, report.WaveIndex, 4)
	assert.Equal(t, len(report.Waves), 4)
	for _, wr := range report.Waves {
		assert.Equal(t, wr.GateDecision, GatePromote)
		assert.Equal(t, wr.Failed, 0)
	}

	states := h.jobStates(t, r.ID)
	assert.Equal(t, len(states), 100)
	for dev, st := range states {
		assert.Equal(t, st, JobSucceeded, "device %s", dev)
	}
}

func TestThresholdBreachRollsBackWave(t *testing.T) {
	h := newHarness(t, true)
	targets := deviceList(10)
	waves, err := Rolling{BatchSize: 5}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 5, 0.1, true, StrategyRolling)

	// 3 of the 5 wave-1 devices fail to flash
	h.transport.installKind["dev-001"] = ErrKindFlashFailure
	h.transport.installKind["dev-002"] = ErrKindChecksumMismatch
	h.transport.installKind["dev-003"] = ErrKindFlashFailure

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusRolledBack)
	assert.Equal(t, len(report.Waves), 1)
	assert.Equal(t, report.Waves[0].Failed, 3)
	assert.Equal(t, report.Waves[0].GateDecision, GateRollback)

	// wave 2 never dispatched
	for _, dev := range h.transport.sentDevices() {
		assert.Check(t, dev < "dev-005", "wave 2 device %s was dispatched", dev)
	}

	// only the succeeded wave-1 devices were reverted
	reverted := h.revertSet()
	assert.Equal(t, len(reverted), 2)
	assert.Check(t, reverted["dev-000"])
	assert.Check(t, reverted["dev-004"])

	states := h.jobStates(t, r.ID)
	assert.Equal(t, states["dev-000"], JobRolledBack)
	assert.Equal(t, states["dev-004"], JobRolledBack)
	assert.Equal(t, states["dev-001"], JobFailed)
	_, wave2Created := states["dev-005"]
	assert.Check(t, !wave2Created, "wave 2 jobs should never be created")
}

func (h *harness) revertSet() map[string]bool {
	out := make(map[string]bool)
	for _, d := range h.transport.revertedDevices() {
		out[d] = true
	}
	return out
}

func TestRollbackWithoutTargetHalts(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(4)}
	r := h.createRollout(t, waves, 4, 0.1, true, StrategyImmediate)

	h.transport.installKind["dev-000"] = ErrKindFlashFailure
	h.transport.installKind["dev-001"] = ErrKindFlashFailure

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusHalted)
	assert.Equal(t, len(h.transport.revertedDevices()), 0)
}

func TestThresholdBreachHaltsWithoutAutoRollback(t *testing.T) {
	h := newHarness(t, true)
	waves := [][]string{deviceList(4)}
	r := h.createRollout(t, waves, 4, 0.1, false, StrategyImmediate)

	h.transport.installKind["dev-000"] = ErrKindFlashFailure

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusHalted)
	assert.Equal(t, report.Waves[0].GateDecision, GateHalt)
	assert.Equal(t, len(h.transport.revertedDevices()), 0)
}

func TestResumeAfterHaltContinuesNextWave(t *testing.T) {
	h := newHarness(t, false)
	targets := deviceList(4)
	waves, err := Rolling{BatchSize: 2}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 2, 0.4, false, StrategyRolling)

	// 1 of the 2 wave-1 devices fails, breaching the threshold
	h.transport.installKind["dev-001"] = ErrKindFlashFailure

	report := h.runToCompletion(t, r.ID)
	assert.Equal(t, report.Status, StatusHalted)
	assert.Equal(t, report.Counters.Succeeded, 1)

	// the operator accepts the wave outcome and picks the rollout back
	// up; only wave 2 runs
	assert.NilError(t, h.orch.Resume(r.ID))
	h.orch.Wait(r.ID)

	report, err = h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusCompleted)
	assert.Equal(t, report.Counters.Succeeded, 3)
	assert.Equal(t, report.Counters.Failed, 1)

	// no device is ever commanded twice
	counts := make(map[string]int)
	for _, dev := range h.transport.sentDevices() {
		counts[dev]++
	}
	assert.Equal(t, len(counts), 4)
	for dev, n := range counts {
		assert.Equal(t, n, 1, "device %s", dev)
	}

	states := h.jobStates(t, r.ID)
	assert.Equal(t, states["dev-000"], JobSucceeded)
	assert.Equal(t, states["dev-001"], JobFailed)
	assert.Equal(t, states["dev-002"], JobSucceeded)
	assert.Equal(t, states["dev-003"], JobSucceeded)
}

func TestTerminalJobsNotRedispatched(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(4)}
	r := h.createRollout(t, waves, 4, 1.0, true, StrategyImmediate)

	// jobs left behind by an interrupted run
	finished := time.Now().UTC()
	pre := []*Job{
		{ID: "job-a", RolloutID: r.ID, DeviceID: "dev-000", WaveIndex: 0,
			State: JobSucceeded, AttemptCount: 1, FinishedAt: &finished},
		{ID: "job-b", RolloutID: r.ID, DeviceID: "dev-001", WaveIndex: 0,
			State: JobSkipped, FinishedAt: &finished},
		{ID: "job-c", RolloutID: r.ID, DeviceID: "dev-002", WaveIndex: 0,
			State: JobFailed, AttemptCount: 3, LastErrorKind: ErrKindTimeout, FinishedAt: &finished},
	}
	for _, j := range pre {
		assert.NilError(t, h.repo.SaveJob(j))
	}

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	// only the device without a finished job gets a command
	assert.DeepEqual(t, h.transport.sentDevices(), []string{"dev-003"})

	jobs, err := h.repo.JobsForRollout(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, len(jobs), 4)
	for _, j := range jobs {
		switch j.DeviceID {
		case "dev-000":
			assert.Equal(t, j.State, JobSucceeded)
			assert.Equal(t, j.AttemptCount, 1)
		case "dev-001":
			assert.Equal(t, j.State, JobSkipped)
		case "dev-002":
			assert.Equal(t, j.State, JobFailed)
			assert.Equal(t, j.AttemptCount, 3)
			assert.Equal(t, j.LastErrorKind, ErrKindTimeout)
		case "dev-003":
			assert.Equal(t, j.State, JobSucceeded)
		}
	}
}

func TestFailureRateAtThresholdPromotes(t *testing.T) {
	h := newHarness(t, true)
	targets := deviceList(10)
	waves, err := Rolling{BatchSize: 10}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 10, 0.1, true, StrategyRolling)

	// exactly at the threshold: 1/10 = 0.1 still promotes
	h.transport.installKind["dev-003"] = ErrKindFlashFailure

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	assert.Equal(t, report.Counters.Failed, 1)
	assert.Equal(t, report.Counters.Succeeded, 9)
	assert.Equal(t, report.Waves[0].GateDecision, GatePromote)
}

func TestConcurrencyLimitRespected(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(12)}
	r := h.createRollout(t, waves, 3, 0.1, true, StrategyImmediate)

	h.transport.installGate = make(chan struct{})
	h.transport.entered = make(chan string, 12)

	assert.NilError(t, h.orch.Start(r.ID))

	// hold three installs open at once so the pool must saturate
	for i := 0; i < 3; i++ {
		<-h.transport.entered
	}
	for i := 0; i < 12; i++ {
		h.transport.installGate <- struct{}{}
	}
	h.orch.Wait(r.ID)

	report, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusCompleted)

	h.transport.mu.Lock()
	maxInflight := h.transport.maxInflight
	h.transport.mu.Unlock()
	assert.Equal(t, maxInflight, 3)
}

func TestTransientFailureRetries(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{{"dev-000"}}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	// two unreachable attempts, then success within max_attempts=3
	h.transport.sendFail["dev-000"] = 2

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	jobs, err := h.repo.JobsForRollout(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, len(jobs), 1)
	assert.Equal(t, jobs[0].State, JobSucceeded)
	assert.Equal(t, jobs[0].AttemptCount, 3)
	assert.Equal(t, jobs[0].LastErrorKind, ErrKindDeviceUnreachable)
}

func TestTransientFailureExhaustsAttempts(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{{"dev-000"}}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	h.transport.sendFail["dev-000"] = 10

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	jobs, err := h.repo.JobsForRollout(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, jobs[0].State, JobFailed)
	assert.Equal(t, jobs[0].AttemptCount, 3)
}

func TestPermanentFailureNeverRetries(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{{"dev-000"}}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	h.transport.installKind["dev-000"] = ErrKindChecksumMismatch

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	jobs, err := h.repo.JobsForRollout(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, jobs[0].State, JobFailed)
	assert.Equal(t, jobs[0].AttemptCount, 1)
	assert.Equal(t, jobs[0].LastErrorKind, ErrKindChecksumMismatch)
}

func TestHealthCheckFailureFailsJob(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{{"dev-000", "dev-001"}}
	r := h.createRollout(t, waves, 2, 1.0, true, StrategyImmediate)

	h.probe.unhealthy["dev-001"] = true

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusCompleted)
	states := h.jobStates(t, r.ID)
	assert.Equal(t, states["dev-000"], JobSucceeded)
	assert.Equal(t, states["dev-001"], JobFailed)

	jobs, err := h.repo.JobsForRollout(r.ID)
	assert.NilError(t, err)
	for _, j := range jobs {
		if j.DeviceID == "dev-001" {
			assert.Equal(t, j.LastErrorKind, ErrKindHealthCheck)
			assert.Equal(t, j.AttemptCount, 1)
		}
	}
}

func TestPauseBlocksDispatchResumeContinues(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(3)}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	h.transport.installGate = make(chan struct{})
	h.transport.entered = make(chan string, 3)

	assert.NilError(t, h.orch.Start(r.ID))
	first := <-h.transport.entered

	assert.NilError(t, h.orch.Pause(r.ID))
	got, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, got.Status, StatusPaused)

	// the in-flight job finishes, nothing new is dispatched
	h.transport.installGate <- struct{}{}

	assert.NilError(t, h.orch.Resume(r.ID))
	for i := 0; i < 2; i++ {
		<-h.transport.entered
		h.transport.installGate <- struct{}{}
	}
	h.orch.Wait(r.ID)

	report, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusCompleted)
	assert.Equal(t, report.Counters.Succeeded, 3)
	assert.Check(t, first != "")
}

func TestCancelSkipsPendingJobs(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(3)}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	h.transport.installGate = make(chan struct{})
	h.transport.entered = make(chan string, 3)

	assert.NilError(t, h.orch.Start(r.ID))
	first := <-h.transport.entered

	assert.NilError(t, h.orch.Cancel(r.ID))
	// the in-flight job runs to completion, it is never aborted
	h.transport.installGate <- struct{}{}
	h.orch.Wait(r.ID)

	report, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusAborted)

	states := h.jobStates(t, r.ID)
	assert.Equal(t, states[first], JobSucceeded)
	skipped := 0
	for _, st := range states {
		if st == JobSkipped {
			skipped++
		}
	}
	assert.Equal(t, skipped, 2)
}

func TestCancelBeforeStartAborts(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(3)}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	assert.NilError(t, h.orch.Cancel(r.ID))

	report, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusAborted)
	assert.Equal(t, len(h.transport.sentDevices()), 0)

	// terminal rollouts reject further control
	assert.Check(t, h.orch.Start(r.ID) != nil)
	assert.Check(t, h.orch.Cancel(r.ID) != nil)
}

func TestManualStrategyWaitsForTrigger(t *testing.T) {
	h := newHarness(t, false)
	targets := deviceList(6)
	waves, err := Manual{BatchSize: 3}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 3, 1.0, true, StrategyManual)

	assert.NilError(t, h.orch.Start(r.ID))

	// wave 1 resolves, then the driver parks until the operator trigger
	waitForStatus(t, h.orch, r.ID, StatusPaused)
	report, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.WaveIndex, 1)
	assert.Equal(t, report.Counters.Succeeded, 3)

	assert.NilError(t, h.orch.Resume(r.ID))
	h.orch.Wait(r.ID)

	report, err = h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusCompleted)
	assert.Equal(t, report.Counters.Succeeded, 6)
}

func TestStartWhileRunningFails(t *testing.T) {
	h := newHarness(t, false)
	waves := [][]string{deviceList(2)}
	r := h.createRollout(t, waves, 1, 1.0, true, StrategyImmediate)

	h.transport.installGate = make(chan struct{})
	h.transport.entered = make(chan string, 2)

	assert.NilError(t, h.orch.Start(r.ID))
	<-h.transport.entered

	err := h.orch.Start(r.ID)
	assert.Check(t, errors.Is(err, ErrAlreadyRunning))

	close(h.transport.installGate)
	h.orch.Wait(r.ID)
}

func TestStartReleasesPausedRollout(t *testing.T) {
	h := newHarness(t, false)
	targets := deviceList(4)
	waves, err := Manual{BatchSize: 2}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 2, 1.0, true, StrategyManual)

	assert.NilError(t, h.orch.Start(r.ID))
	waitForStatus(t, h.orch, r.ID, StatusPaused)

	// start on a paused rollout acts as the operator trigger
	assert.NilError(t, h.orch.Start(r.ID))
	h.orch.Wait(r.ID)

	report, err := h.orch.Status(r.ID)
	assert.NilError(t, err)
	assert.Equal(t, report.Status, StatusCompleted)
	assert.Equal(t, report.Counters.Succeeded, 4)
}

func TestJobsCreatedPerWave(t *testing.T) {
	h := newHarness(t, true)
	targets := deviceList(10)
	waves, err := Canary{Percentage: 0.2, Seed: 42}.Plan(targets)
	assert.NilError(t, err)
	r := h.createRollout(t, waves, 4, 0.1, true, StrategyCanary)

	// sink the canary so wave 2 is never materialized
	for _, dev := range waves[0] {
		h.transport.installKind[dev] = ErrKindFlashFailure
	}

	report := h.runToCompletion(t, r.ID)

	assert.Equal(t, report.Status, StatusRolledBack)
	jobs, jerr := h.repo.JobsForRollout(r.ID)
	assert.NilError(t, jerr)
	assert.Equal(t, len(jobs), len(waves[0]))
}

func waitForStatus(t *testing.T, o *Orchestrator, id string, want Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		report, err := o.Status(id)
		assert.NilError(t, err)
		if report.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("rollout %s never reached status %s", id, want)
}
