package rollout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"fleet-rollout-api/internal/firmware"
)

// Orchestrator drives rollouts wave by wave. Each active rollout has
// exactly one driver goroutine; control operations address it by id,
// so multiple rollouts for different fleets run without interference.
type Orchestrator struct {
	mu      sync.Mutex
	drivers map[string]*driver

	Repo        Repository
	Transport   Transport
	Probe       HealthProbe
	Notifier    Notifier
	Firmware    *firmware.Service
	Coordinator *Coordinator
	Tuning      Tuning
}

func NewOrchestrator(repo Repository, transport Transport, probe HealthProbe, notifier Notifier, fw *firmware.Service, tuning Tuning) *Orchestrator {
	return &Orchestrator{
		drivers:     make(map[string]*driver),
		Repo:        repo,
		Transport:   transport,
		Probe:       probe,
		Notifier:    notifier,
		Firmware:    fw,
		Coordinator: &Coordinator{Transport: transport, Tuning: tuning},
		Tuning:      tuning,
	}
}

// Start begins dispatching at the rollout's current wave index.
// Starting a paused rollout releases it, same as Resume.
func (o *Orchestrator) Start(id string) error {
	o.mu.Lock()

	if d, active := o.drivers[id]; active {
		o.mu.Unlock()
		if d.isPaused() {
			d.resume()
			log.Info().Str("rollout_id", id).Msg("Rollout resumed")
			o.Notifier.Dispatch("rollout.resumed", map[string]string{"rolloutId": id})
			return nil
		}
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	}
	defer o.mu.Unlock()

	r, err := o.Repo.GetRollout(id)
	if err != nil {
		return err
	}
	switch r.Status {
	case StatusPlanned, StatusPaused, StatusHalted:
	case StatusRunning:
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
	default:
		return fmt.Errorf("%w: cannot start rollout in status %s", ErrValidation, r.Status)
	}

	o.launch(r, false)
	o.Notifier.Dispatch("rollout.started", map[string]string{"rolloutId": id})
	return nil
}

// Pause stops dispatching new jobs; in-flight jobs are not aborted.
func (o *Orchestrator) Pause(id string) error {
	o.mu.Lock()
	d := o.drivers[id]
	o.mu.Unlock()
	if d == nil {
		return fmt.Errorf("%w: %s", ErrNotRunning, id)
	}
	d.pause()
	log.Info().Str("rollout_id", id).Msg("Rollout paused")
	o.Notifier.Dispatch("rollout.paused", map[string]string{"rolloutId": id})
	return nil
}

// Resume releases a paused rollout. For manual-gated strategies this
// is the explicit operator trigger that releases the next wave.
func (o *Orchestrator) Resume(id string) error {
	o.mu.Lock()
	if d, active := o.drivers[id]; active {
		o.mu.Unlock()
		d.resume()
		log.Info().Str("rollout_id", id).Msg("Rollout resumed")
		o.Notifier.Dispatch("rollout.resumed", map[string]string{"rolloutId": id})
		return nil
	}
	defer o.mu.Unlock()

	r, err := o.Repo.GetRollout(id)
	if err != nil {
		return err
	}
	if r.Status != StatusPaused && r.Status != StatusHalted {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, id, r.Status)
	}
	o.launch(r, true)
	log.Info().Str("rollout_id", id).Int("wave", r.WaveIndex).Msg("Rollout resumed from persisted state")
	o.Notifier.Dispatch("rollout.resumed", map[string]string{"rolloutId": id})
	return nil
}

// Cancel marks all pending jobs skipped. In-flight jobs run to
// completion; a device is never interrupted mid-flash.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	d := o.drivers[id]
	o.mu.Unlock()

	if d != nil {
		d.cancel()
		log.Info().Str("rollout_id", id).Msg("Rollout cancel requested")
		o.Notifier.Dispatch("rollout.cancelled", map[string]string{"rolloutId": id})
		return nil
	}

	r, err := o.Repo.GetRollout(id)
	if err != nil {
		return err
	}
	if r.Status.Terminal() {
		return fmt.Errorf("%w: %s already %s", ErrNotRunning, id, r.Status)
	}
	// Not yet started (or parked): skip whatever is still pending.
	jobs, err := o.Repo.JobsForRollout(id)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if j.State == JobPending {
			if _, err := j.Transition(JobSkipped, ErrKindNone); err == nil {
				r.Counters.Skipped++
				_ = o.Repo.SaveJob(j)
			}
		}
	}
	r.Status = StatusAborted
	r.UpdatedAt = time.Now().UTC()
	if err := o.Repo.UpdateRollout(r); err != nil {
		return err
	}
	log.Info().Str("rollout_id", id).Msg("Rollout aborted before execution")
	o.Notifier.Dispatch("rollout.cancelled", map[string]string{"rolloutId": id})
	return nil
}

// Status returns aggregate counters and per-wave results.
func (o *Orchestrator) Status(id string) (StatusReport, error) {
	r, err := o.Repo.GetRollout(id)
	if err != nil {
		return StatusReport{}, err
	}
	waves, err := o.Repo.WaveResults(id)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{
		ID:                   r.ID,
		ArtifactID:           r.ArtifactID,
		FirmwareVersion:      r.FirmwareVersion,
		Strategy:             r.Strategy,
		Status:               r.Status,
		WaveIndex:            r.WaveIndex,
		WaveCount:            len(r.Waves),
		TotalDevices:         len(r.Targets),
		Counters:             r.Counters,
		Waves:                waves,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		FailureRateThreshold: r.FailureRateThreshold,
		AutoRollback:         r.AutoRollback,
	}, nil
}

// Wait blocks until the rollout's driver finishes. Test hook and
// graceful-shutdown aid; returns immediately when nothing is active.
func (o *Orchestrator) Wait(id string) {
	o.mu.Lock()
	d := o.drivers[id]
	o.mu.Unlock()
	if d != nil {
		<-d.done
	}
}

// launch must be called with o.mu held.
func (o *Orchestrator) launch(r *Rollout, triggerArmed bool) {
	// A halt only ever happens after its wave has fully resolved and
	// merged into the counters. Picking the rollout back up therefore
	// accepts that wave's outcome and continues with the next one;
	// re-running it would command already-updated devices again.
	if r.Status == StatusHalted && r.WaveIndex < len(r.Waves) {
		r.WaveIndex++
	}

	d := &driver{
		o:        o,
		r:        r,
		trigger:  triggerArmed,
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	o.drivers[r.ID] = d

	r.Status = StatusRunning
	r.UpdatedAt = time.Now().UTC()
	if err := o.Repo.UpdateRollout(r); err != nil {
		log.Error().Err(err).Str("rollout_id", r.ID).Msg("Failed to persist rollout start")
	}

	log.Info().
		Str("rollout_id", r.ID).
		Str("strategy", r.Strategy).
		Int("wave", r.WaveIndex).
		Int("waves", len(r.Waves)).
		Int("concurrency_limit", r.ConcurrencyLimit).
		Msg("Rollout driver started")

	go d.run()
}

func (o *Orchestrator) release(id string) {
	o.mu.Lock()
	delete(o.drivers, id)
	o.mu.Unlock()
}

// driver owns one running rollout. All mutations of the rollout record
// happen on this goroutine (or under d.mu from control calls).
type driver struct {
	o *Orchestrator
	r *Rollout

	mu        sync.Mutex
	cond      *sync.Cond
	paused    bool
	cancelled bool
	trigger   bool
	cancelCh  chan struct{}
	done      chan struct{}

	inflight atomic.Int64
}

func (d *driver) pause() {
	d.mu.Lock()
	d.paused = true
	d.r.Status = StatusPaused
	d.r.UpdatedAt = time.Now().UTC()
	_ = d.o.Repo.UpdateRollout(d.r)
	d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *driver) resume() {
	d.mu.Lock()
	d.paused = false
	d.trigger = true
	if d.r.Status == StatusPaused {
		d.r.Status = StatusRunning
		d.r.UpdatedAt = time.Now().UTC()
		_ = d.o.Repo.UpdateRollout(d.r)
	}
	d.mu.Unlock()
	d.cond.Broadcast()
}

func (d *driver) cancel() {
	d.mu.Lock()
	if !d.cancelled {
		d.cancelled = true
		close(d.cancelCh)
	}
	d.mu.Unlock()
	d.cond.Broadcast()
}

// awaitRunnable blocks while paused. Returns false once cancelled.
func (d *driver) awaitRunnable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.paused && !d.cancelled {
		d.cond.Wait()
	}
	return !d.cancelled
}

// awaitTrigger blocks until the operator releases the next manual wave.
func (d *driver) awaitTrigger() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for !d.trigger && !d.cancelled {
		d.cond.Wait()
	}
	if d.cancelled {
		return false
	}
	d.trigger = false
	return true
}

func (d *driver) isCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}

func (d *driver) isPaused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.r.Status == StatusPaused
}

func (d *driver) setStatus(s Status) {
	d.mu.Lock()
	d.r.Status = s
	d.r.UpdatedAt = time.Now().UTC()
	_ = d.o.Repo.UpdateRollout(d.r)
	d.mu.Unlock()
}

func (d *driver) emit(ev JobEvent) {
	log.Debug().
		Str("rollout_id", ev.RolloutID).
		Str("device_id", ev.DeviceID).
		Int("wave", ev.WaveIndex).
		Str("from", string(ev.From)).
		Str("to", string(ev.To)).
		Str("error_kind", string(ev.ErrorKind)).
		Msg("Job state transition")
	if ev.To.Terminal() {
		d.o.Notifier.Dispatch("job."+string(ev.To), ev)
	}
}

func (d *driver) run() {
	defer close(d.done)
	defer d.o.release(d.r.ID)

	ctx := context.Background()
	r := d.r

	for w := r.WaveIndex; w < len(r.Waves); w++ {
		if !d.awaitRunnable() {
			d.setStatus(StatusAborted)
			log.Info().Str("rollout_id", r.ID).Int("wave", w).Msg("Rollout aborted")
			d.o.Notifier.Dispatch("rollout.aborted", map[string]string{"rolloutId": r.ID})
			return
		}

		jobs := d.createWaveJobs(w)
		d.runWave(ctx, w, jobs)

		wr := d.resolveWave(w, jobs)
		decision := d.o.Coordinator.Evaluate(wr, Policy{
			FailureRateThreshold: r.FailureRateThreshold,
			AutoRollback:         r.AutoRollback,
		})
		wr.GateDecision = decision
		if err := d.o.Repo.SaveWaveResult(wr); err != nil {
			log.Error().Err(err).Str("rollout_id", r.ID).Int("wave", w).Msg("Failed to persist wave result")
		}
		d.o.Notifier.Dispatch("wave.completed", wr)

		log.Info().
			Str("rollout_id", r.ID).
			Int("wave", w).
			Int("total", wr.Total).
			Int("succeeded", wr.Succeeded).
			Int("failed", wr.Failed).
			Int("skipped", wr.Skipped).
			Float64("failure_rate", wr.FailureRate).
			Str("gate", string(decision)).
			Msg("Wave resolved")

		if d.isCancelled() {
			d.setStatus(StatusAborted)
			d.o.Notifier.Dispatch("rollout.aborted", map[string]string{"rolloutId": r.ID})
			return
		}

		switch decision {
		case GateRollback:
			d.rollbackWave(ctx, w, jobs)
			return
		case GateHalt:
			d.setStatus(StatusHalted)
			log.Warn().Str("rollout_id", r.ID).Int("wave", w).Msg("Rollout halted for operator review")
			d.o.Notifier.Dispatch("rollout.halted", wr)
			return
		}

		d.mu.Lock()
		r.WaveIndex = w + 1
		r.UpdatedAt = time.Now().UTC()
		_ = d.o.Repo.UpdateRollout(r)
		d.mu.Unlock()

		// Manual-gated strategies never auto-advance between waves.
		if r.ManualGated() && w+1 < len(r.Waves) {
			d.setStatus(StatusPaused)
			log.Info().Str("rollout_id", r.ID).Int("next_wave", w+1).Msg("Awaiting operator trigger for next wave")
			if !d.awaitTrigger() {
				d.setStatus(StatusAborted)
				d.o.Notifier.Dispatch("rollout.aborted", map[string]string{"rolloutId": r.ID})
				return
			}
			d.setStatus(StatusRunning)
		}
	}

	d.setStatus(StatusCompleted)
	log.Info().
		Str("rollout_id", r.ID).
		Int("succeeded", r.Counters.Succeeded).
		Int("failed", r.Counters.Failed).
		Int("skipped", r.Counters.Skipped).
		Msg("Rollout completed")
	d.o.Notifier.Dispatch("rollout.completed", map[string]any{"rolloutId": r.ID, "counters": r.Counters})
}

// createWaveJobs materializes jobs for one wave. Jobs are created per
// wave on demand, never all up front. A device that already has a
// non-terminal job in another rollout is skipped outright so two
// rollouts can never flash the same device concurrently.
func (d *driver) createWaveJobs(w int) []*Job {
	existing := make(map[string]*Job)
	if persisted, err := d.o.Repo.JobsForRollout(d.r.ID); err == nil {
		for _, j := range persisted {
			if j.WaveIndex == w {
				existing[j.DeviceID] = j
			}
		}
	}

	jobs := make([]*Job, 0, len(d.r.Waves[w]))
	for _, deviceID := range d.r.Waves[w] {
		// A job persisted by an interrupted run is picked up where it
		// left off; terminal ones are never dispatched again.
		if job, ok := existing[deviceID]; ok {
			jobs = append(jobs, job)
			continue
		}
		job := &Job{
			ID:        uuid.NewString(),
			RolloutID: d.r.ID,
			DeviceID:  deviceID,
			WaveIndex: w,
			State:     JobPending,
		}
		busy, err := d.o.Repo.DeviceBusy(deviceID, d.r.ID)
		if err == nil && busy {
			log.Warn().
				Str("rollout_id", d.r.ID).
				Str("device_id", deviceID).
				Msg("Device has an active job in another rollout, skipping")
			if ev, terr := job.Transition(JobSkipped, ErrKindRejected); terr == nil {
				d.emit(ev)
			}
		}
		if err := d.o.Repo.SaveJob(job); err != nil {
			log.Error().Err(err).Str("device_id", deviceID).Msg("Failed to persist job")
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func (d *driver) runWave(ctx context.Context, w int, jobs []*Job) {
	g := new(errgroup.Group)
	g.SetLimit(d.r.ConcurrencyLimit)

	for _, job := range jobs {
		if job.State.Terminal() {
			continue
		}
		job := job
		// The runnable check happens inside the worker so that pause
		// blocks and cancel skips jobs that were queued behind the
		// concurrency limit, not just jobs not yet submitted.
		g.Go(func() error {
			if !d.awaitRunnable() {
				if ev, err := job.Transition(JobSkipped, ErrKindNone); err == nil {
					d.emit(ev)
					_ = d.o.Repo.SaveJob(job)
				}
				return nil
			}
			d.runJob(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

// runJob drives a single job to a terminal state, retrying transient
// failures with exponential backoff. Calling it on an already terminal
// job is a no-op and sends no device command.
func (d *driver) runJob(ctx context.Context, job *Job) {
	if job.State.Terminal() {
		return
	}

	for {
		job.AttemptCount++
		ev, err := job.Transition(JobDownloading, ErrKindNone)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("Illegal dispatch transition")
			return
		}
		d.emit(ev)
		_ = d.o.Repo.SaveJob(job)

		if n := d.inflight.Add(1); n > int64(d.r.ConcurrencyLimit) {
			// Must be unreachable; the worker pool bounds dispatch.
			log.Panic().
				Str("rollout_id", d.r.ID).
				Int64("inflight", n).
				Int("limit", d.r.ConcurrencyLimit).
				Msg(ErrConcurrencyLimit.Error())
		}
		kind := d.attempt(ctx, job)
		d.inflight.Add(-1)

		_ = d.o.Repo.SaveJob(job)
		if kind == ErrKindNone {
			return
		}
		if !kind.Transient() || job.AttemptCount >= d.o.Tuning.MaxAttempts {
			log.Warn().
				Str("rollout_id", d.r.ID).
				Str("device_id", job.DeviceID).
				Str("error_kind", string(kind)).
				Int("attempts", job.AttemptCount).
				Msg("Job failed permanently")
			return
		}

		backoff := d.o.Tuning.Backoff(job.AttemptCount)
		log.Debug().
			Str("device_id", job.DeviceID).
			Dur("backoff", backoff).
			Int("attempt", job.AttemptCount).
			Msg("Retrying transient job failure")
		select {
		case <-time.After(backoff):
		case <-d.cancelCh:
			return
		case <-ctx.Done():
			return
		}

		ev, err = job.Transition(JobPending, ErrKindNone)
		if err != nil {
			return
		}
		d.emit(ev)
		_ = d.o.Repo.SaveJob(job)
	}
}

// attempt walks one dispatch through downloading, flashing and
// verifying. On failure it transitions the job to failed and returns
// the classified kind; ErrKindNone means the job succeeded.
func (d *driver) attempt(ctx context.Context, job *Job) ErrorKind {
	t := d.o.Tuning
	cmd := UpdateCommand{
		DeviceID:      job.DeviceID,
		FirmwareURL:   d.r.FirmwareURL,
		Checksum:      d.r.Checksum,
		TargetVersion: d.r.FirmwareVersion,
	}

	sendCtx, cancel := context.WithTimeout(ctx, t.DispatchTimeout)
	err := d.o.Transport.SendUpdate(sendCtx, cmd)
	cancel()
	if err != nil {
		return d.fail(job, ClassifyError(err))
	}

	dlCtx, cancel := context.WithTimeout(ctx, t.DownloadTimeout)
	err = d.o.Transport.AwaitDownload(dlCtx, job.DeviceID, d.r.FirmwareVersion)
	cancel()
	if err != nil {
		return d.fail(job, ClassifyError(err))
	}

	if ev, terr := job.Transition(JobFlashing, ErrKindNone); terr == nil {
		d.emit(ev)
	}
	flashCtx, cancel := context.WithTimeout(ctx, t.FlashTimeout)
	err = d.o.Transport.AwaitInstall(flashCtx, job.DeviceID, d.r.FirmwareVersion)
	cancel()
	if err != nil {
		return d.fail(job, ClassifyError(err))
	}

	if ev, terr := job.Transition(JobVerifying, ErrKindNone); terr == nil {
		d.emit(ev)
	}
	verifyCtx, cancel := context.WithTimeout(ctx, t.VerifyTimeout)
	report, err := d.o.Probe.Check(verifyCtx, job.DeviceID)
	cancel()
	if err != nil || !report.Healthy || report.VersionReported != d.r.FirmwareVersion {
		// Verification failures are never retried automatically; they
		// surface in the wave result for the rollback coordinator.
		return d.fail(job, ErrKindHealthCheck)
	}

	if ev, terr := job.Transition(JobSucceeded, ErrKindNone); terr == nil {
		d.emit(ev)
	}
	return ErrKindNone
}

func (d *driver) fail(job *Job, kind ErrorKind) ErrorKind {
	if ev, err := job.Transition(JobFailed, kind); err == nil {
		d.emit(ev)
	}
	return kind
}

// resolveWave merges job outcomes into the rollout counters and builds
// the wave result. Runs on the driver goroutine only, after every job
// in the wave is terminal.
func (d *driver) resolveWave(w int, jobs []*Job) WaveResult {
	wr := WaveResult{
		RolloutID:   d.r.ID,
		WaveIndex:   w,
		Total:       len(jobs),
		CompletedAt: time.Now().UTC(),
	}
	for _, j := range jobs {
		switch j.State {
		case JobSucceeded:
			wr.Succeeded++
		case JobFailed:
			wr.Failed++
		case JobSkipped:
			wr.Skipped++
		}
	}
	if wr.Total > 0 {
		wr.FailureRate = float64(wr.Failed) / float64(wr.Total)
	}

	d.mu.Lock()
	d.r.Counters.Succeeded += wr.Succeeded
	d.r.Counters.Failed += wr.Failed
	d.r.Counters.Skipped += wr.Skipped
	d.r.UpdatedAt = time.Now().UTC()
	_ = d.o.Repo.UpdateRollout(d.r)
	d.mu.Unlock()
	return wr
}

// rollbackWave reverts every succeeded device in the offending wave to
// the previous stable firmware and terminates the rollout. When no
// previous stable version exists there is nothing safe to revert to,
// so the rollout halts for operator review instead.
func (d *driver) rollbackWave(ctx context.Context, w int, jobs []*Job) {
	prev, err := d.o.Firmware.PreviousStable(d.r.DeviceType, d.r.FirmwareVersion)
	if err != nil {
		log.Error().
			Err(err).
			Str("rollout_id", d.r.ID).
			Str("device_type", d.r.DeviceType).
			Msg("No previous stable firmware to roll back to, halting")
		d.setStatus(StatusHalted)
		d.o.Notifier.Dispatch("rollout.halted", map[string]string{"rolloutId": d.r.ID, "reason": "no rollback target"})
		return
	}

	revert := RevertCommand{
		FirmwareURL:    d.o.Firmware.DownloadURL(prev.DeviceType, prev.Version),
		Checksum:       prev.SHA256,
		RevertVersion:  prev.Version,
		CurrentVersion: d.r.FirmwareVersion,
	}
	log.Warn().
		Str("rollout_id", d.r.ID).
		Int("wave", w).
		Str("revert_version", prev.Version).
		Msg("Rolling back wave")

	d.o.Coordinator.Rollback(ctx, d.r.ID, w, jobs, revert, d.r.ConcurrencyLimit, d.emit)
	for _, j := range jobs {
		_ = d.o.Repo.SaveJob(j)
	}

	d.setStatus(StatusRolledBack)
	d.o.Notifier.Dispatch("rollout.rolled_back", map[string]any{
		"rolloutId":     d.r.ID,
		"waveIndex":     w,
		"revertVersion": prev.Version,
	})
}
