package rollout

import (
	"fmt"
	"time"

	"fleet-rollout-api/internal/firmware"
)

// JobState is the per-device update state machine.
type JobState string

const (
	JobPending     JobState = "pending"
	JobDownloading JobState = "downloading"
	JobFlashing    JobState = "flashing"
	JobVerifying   JobState = "verifying"
	JobSucceeded   JobState = "succeeded"
	JobFailed      JobState = "failed"
	JobRolledBack  JobState = "rolled_back"
	JobSkipped     JobState = "skipped"
)

// jobTransitions is the only source of truth for legal state changes.
// failed -> pending is the transient-retry path; succeeded/failed ->
// rolled_back is driven by the rollback coordinator.
var jobTransitions = map[JobState][]JobState{
	JobPending:     {JobDownloading, JobSkipped},
	JobDownloading: {JobFlashing, JobFailed},
	JobFlashing:    {JobVerifying, JobFailed},
	JobVerifying:   {JobSucceeded, JobFailed},
	JobFailed:      {JobPending, JobRolledBack},
	JobSucceeded:   {JobRolledBack},
	JobRolledBack:  {},
	JobSkipped:     {},
}

// Terminal reports whether the state admits no further transitions
// except rollback coordination.
func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobRolledBack, JobSkipped:
		return true
	}
	return false
}

// Dispatched reports whether the job occupies a worker slot.
func (s JobState) Dispatched() bool {
	switch s {
	case JobDownloading, JobFlashing, JobVerifying:
		return true
	}
	return false
}

// ErrorKind classifies a job failure.
type ErrorKind string

const (
	ErrKindNone              ErrorKind = ""
	ErrKindDeviceUnreachable ErrorKind = "device_unreachable"
	ErrKindTimeout           ErrorKind = "timeout"
	ErrKindChecksumMismatch  ErrorKind = "checksum_mismatch"
	ErrKindFlashFailure      ErrorKind = "flash_failure"
	ErrKindRejected          ErrorKind = "rejected"
	ErrKindHealthCheck       ErrorKind = "health_check_failure"
)

// Transient kinds are retried with backoff up to max_attempts. All
// other kinds are permanent for the attempt.
func (k ErrorKind) Transient() bool {
	return k == ErrKindDeviceUnreachable || k == ErrKindTimeout
}

// Job tracks one update attempt for one device within a rollout.
// A job is only ever mutated by the worker that owns it.
type Job struct {
	ID            string
	RolloutID     string
	DeviceID      string
	WaveIndex     int
	State         JobState
	AttemptCount  int
	LastErrorKind ErrorKind
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// JobEvent is emitted on every state transition and feeds aggregate
// counters and external observability.
type JobEvent struct {
	RolloutID string    `json:"rolloutId"`
	JobID     string    `json:"jobId"`
	DeviceID  string    `json:"deviceId"`
	WaveIndex int       `json:"waveIndex"`
	From      JobState  `json:"from"`
	To        JobState  `json:"to"`
	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	At        time.Time `json:"at"`
}

// Transition moves the job to next, recording the error kind and
// timestamps. Illegal transitions return ErrInvalidStateTransition
// from the firmware package's taxonomy.
func (j *Job) Transition(next JobState, kind ErrorKind) (JobEvent, error) {
	legal := false
	for _, allowed := range jobTransitions[j.State] {
		if allowed == next {
			legal = true
			break
		}
	}
	if !legal {
		return JobEvent{}, fmt.Errorf("%w: job %s: %s -> %s",
			firmware.ErrInvalidStateTransition, j.ID, j.State, next)
	}

	now := time.Now().UTC()
	from := j.State
	j.State = next
	if kind != ErrKindNone {
		j.LastErrorKind = kind
	}
	if from == JobPending && next == JobDownloading && j.StartedAt == nil {
		j.StartedAt = &now
	}
	if next.Terminal() {
		j.FinishedAt = &now
	}
	if from == JobFailed && next == JobPending {
		// retry resets the finish marker, the attempt is not over
		j.FinishedAt = nil
	}

	return JobEvent{
		RolloutID: j.RolloutID,
		JobID:     j.ID,
		DeviceID:  j.DeviceID,
		WaveIndex: j.WaveIndex,
		From:      from,
		To:        next,
		ErrorKind: kind,
		At:        now,
	}, nil
}
